// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"reclamation_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Reclamation Domain Events
// =============================================================================

// ReclamationCreated is published when a new reclamation is created.
type ReclamationCreated struct {
	BaseEvent
	ReclamationID    uuid.UUID  `json:"reclamationId"`
	ClientID         uuid.UUID  `json:"clientId"`
	Severity         string     `json:"severity"`
	AssignedWorkerID *uuid.UUID `json:"assignedWorkerId,omitempty"`
}

func (e ReclamationCreated) EventName() string { return "reclamations.created" }

// ReclamationAssigned is published when a reclamation is assigned to a worker.
type ReclamationAssigned struct {
	BaseEvent
	ReclamationID uuid.UUID `json:"reclamationId"`
	WorkerID      uuid.UUID `json:"workerId"`
	Actor         string    `json:"actor"`
}

func (e ReclamationAssigned) EventName() string { return "reclamations.assigned" }

// ReclamationStatusChanged is published on every accepted lifecycle transition.
type ReclamationStatusChanged struct {
	BaseEvent
	ReclamationID uuid.UUID `json:"reclamationId"`
	OldStatus     string    `json:"oldStatus"`
	NewStatus     string    `json:"newStatus"`
	Actor         string    `json:"actor"`
}

func (e ReclamationStatusChanged) EventName() string { return "reclamations.status_changed" }

// ReclamationEscalated is published when a reclamation enters ESCALATED,
// whether by a manual transition or forced by the SLA monitor.
type ReclamationEscalated struct {
	BaseEvent
	ReclamationID    uuid.UUID  `json:"reclamationId"`
	AssignedWorkerID *uuid.UUID `json:"assignedWorkerId,omitempty"`
	Auto             bool       `json:"auto"`
}

func (e ReclamationEscalated) EventName() string { return "reclamations.escalated" }

// SLAAlertRaised is published when the monitor emits a new alert for an SLA
// tier transition. At most one unresolved alert of a given type exists per
// reclamation, so this fires at most once per tier transition.
type SLAAlertRaised struct {
	BaseEvent
	ReclamationID    uuid.UUID  `json:"reclamationId"`
	AlertType        string     `json:"alertType"`
	Tier             string     `json:"tier"`
	RemainingHours   int        `json:"remainingHours"`
	AssignedWorkerID *uuid.UUID `json:"assignedWorkerId,omitempty"`
}

func (e SLAAlertRaised) EventName() string { return "reclamations.sla_alert" }
