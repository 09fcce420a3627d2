// Package transport defines the request/response DTOs for the reclamations module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// Severity tags carried by a reclamation.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityCritical = "critical"
)

// CreateReclamationRequest is the request body for creating a reclamation.
// RawStatus accepts legacy spellings (bulk import, external channels); it is
// normalized to a canonical status on intake.
type CreateReclamationRequest struct {
	ClientID    uuid.UUID  `json:"clientId" validate:"required"`
	BordereauID *uuid.UUID `json:"bordereauId,omitempty"`
	ContractID  *uuid.UUID `json:"contractId,omitempty"`
	Description string     `json:"description" validate:"required,min=1,max=4000"`
	Category    string     `json:"category,omitempty" validate:"max=100"`
	Severity    string     `json:"severity" validate:"required,oneof=low medium critical"`
	Priority    int        `json:"priority" validate:"min=0,max=10"`
	RawStatus   string     `json:"rawStatus,omitempty" validate:"max=50"`
	AutoAssign  bool       `json:"autoAssign"`
}

// TransitionRequest is the request body for a lifecycle transition.
type TransitionRequest struct {
	TargetStatus     string     `json:"targetStatus" validate:"required"`
	Note             string     `json:"note,omitempty" validate:"max=2000"`
	AssignedWorkerID *uuid.UUID `json:"assignedWorkerId,omitempty"`
}

// AssignRequest is the request body for assigning a reclamation. When
// WorkerID is nil the least-loaded eligible worker is selected.
type AssignRequest struct {
	WorkerID   *uuid.UUID `json:"workerId,omitempty"`
	Department *string    `json:"department,omitempty" validate:"omitempty,max=100"`
}

// Bulk reassignment modes.
const (
	BulkModePool         = "pool"
	BulkModeRedistribute = "redistribute"
)

// BulkReassignRequest moves all open items of one worker either back to the
// pool or to the least-loaded eligible workers.
type BulkReassignRequest struct {
	FromWorkerID uuid.UUID `json:"fromWorkerId" validate:"required"`
	Mode         string    `json:"mode" validate:"required,oneof=pool redistribute"`
}

// ListReclamationsRequest is the query parameters for listing reclamations.
type ListReclamationsRequest struct {
	Status           string     `form:"status"`
	Severity         string     `form:"severity" validate:"omitempty,oneof=low medium critical"`
	ClientID         *uuid.UUID `form:"clientId"`
	AssignedWorkerID *uuid.UUID `form:"assignedWorkerId"`
	Page             int        `form:"page" validate:"min=0"`
	PageSize         int        `form:"pageSize" validate:"min=0,max=100"`
}

// SLAInfo annotates a reclamation with its current deadline standing.
type SLAInfo struct {
	Tier           string    `json:"tier"`
	Deadline       time.Time `json:"deadline"`
	RemainingHours int       `json:"remainingHours"`
}

// ReclamationResponse is the response body for a reclamation.
type ReclamationResponse struct {
	ID               uuid.UUID  `json:"id"`
	ClientID         uuid.UUID  `json:"clientId"`
	BordereauID      *uuid.UUID `json:"bordereauId,omitempty"`
	ContractID       *uuid.UUID `json:"contractId,omitempty"`
	Description      string     `json:"description"`
	Category         string     `json:"category,omitempty"`
	Severity         string     `json:"severity"`
	Priority         int        `json:"priority"`
	Status           string     `json:"status"`
	AssignedWorkerID *uuid.UUID `json:"assignedWorkerId,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	SLA              *SLAInfo   `json:"sla,omitempty"`
}

// ReclamationListResponse is the paginated response for listing reclamations.
type ReclamationListResponse struct {
	Items      []ReclamationResponse `json:"items"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"pageSize"`
	TotalPages int                   `json:"totalPages"`
}

// HistoryEntryResponse is one audit trail entry.
type HistoryEntryResponse struct {
	ID             uuid.UUID `json:"id"`
	ReclamationID  uuid.UUID `json:"reclamationId"`
	Actor          string    `json:"actor"`
	Action         string    `json:"action"`
	PreviousStatus *string   `json:"previousStatus,omitempty"`
	NewStatus      *string   `json:"newStatus,omitempty"`
	Note           *string   `json:"note,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// CorbeilleBuckets partitions the reclamation population for dashboards.
// Returned is only populated for personal scope.
type CorbeilleBuckets struct {
	Unassigned []ReclamationResponse `json:"unassigned"`
	InProgress []ReclamationResponse `json:"inProgress"`
	Resolved   []ReclamationResponse `json:"resolved"`
	Returned   []ReclamationResponse `json:"returned,omitempty"`
}

// CorbeilleStats carries bucket sizes plus derived SLA counts. Overdue and
// Critical are computed across all non-terminal items, not per bucket.
type CorbeilleStats struct {
	Unassigned int `json:"unassigned"`
	InProgress int `json:"inProgress"`
	Resolved   int `json:"resolved"`
	Returned   int `json:"returned"`
	Total      int `json:"total"`
	Overdue    int `json:"overdue"`
	Critical   int `json:"critical"`
}

// CorbeilleResponse is the aggregated view consumed by dashboards.
type CorbeilleResponse struct {
	Scope   string           `json:"scope"`
	Buckets CorbeilleBuckets `json:"buckets"`
	Stats   CorbeilleStats   `json:"stats"`
}

// AlertResponse is one SLA alert emitted by the monitor.
type AlertResponse struct {
	ID            uuid.UUID `json:"id"`
	ReclamationID uuid.UUID `json:"reclamationId"`
	Type          string    `json:"type"`
	Resolved      bool      `json:"resolved"`
	CreatedAt     time.Time `json:"createdAt"`
}

// TickResultResponse summarizes one SLA monitor pass.
type TickResultResponse struct {
	Processed     int `json:"processed"`
	AlertsCreated int `json:"alertsCreated"`
	Escalated     int `json:"escalated"`
	Skipped       int `json:"skipped"`
}

// BulkReassignResponse summarizes a bulk handover. Skipped counts items
// that could not be handed over because no other eligible worker exists.
type BulkReassignResponse struct {
	Returned   int `json:"returned"`
	Reassigned int `json:"reassigned"`
	Skipped    int `json:"skipped"`
}

// AssignmentResponse reports the outcome of an assignment request. WorkerID
// is nil when no eligible worker exists; the reclamation stays in OPEN.
type AssignmentResponse struct {
	ReclamationID uuid.UUID  `json:"reclamationId"`
	WorkerID      *uuid.UUID `json:"workerId"`
	Assigned      bool       `json:"assigned"`
}
