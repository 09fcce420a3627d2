package repository

import (
	"context"
	"fmt"
	"time"

	"reclamation_backend/internal/reclamations/transport"

	"github.com/google/uuid"
)

// Alert types emitted on SLA tier transitions.
const (
	AlertWarning  = "WARNING"
	AlertCritical = "CRITICAL"
	AlertBreach   = "BREACH"
)

// Alert represents an SLA alert row.
type Alert struct {
	ID            uuid.UUID `db:"id"`
	ReclamationID uuid.UUID `db:"reclamation_id"`
	Type          string    `db:"type"`
	Resolved      bool      `db:"resolved"`
	CreatedAt     time.Time `db:"created_at"`
}

// CreateAlert inserts an alert if no unresolved alert of the same type
// exists for the reclamation. Idempotency is enforced by the partial unique
// index on (reclamation_id, type) WHERE NOT resolved; duplicate inserts are
// silently dropped. Returns whether a row was actually inserted.
func (r *Repository) CreateAlert(ctx context.Context, reclamationID uuid.UUID, alertType string, createdAt time.Time) (bool, error) {
	query := `
		INSERT INTO sla_alerts (id, reclamation_id, type, resolved, created_at)
		VALUES ($1, $2, $3, FALSE, $4)
		ON CONFLICT (reclamation_id, type) WHERE NOT resolved DO NOTHING`

	result, err := r.pool.Exec(ctx, query, uuid.New(), reclamationID, alertType, createdAt)
	if err != nil {
		return false, fmt.Errorf("failed to create alert: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// ResolveAlerts marks every unresolved alert for a reclamation as resolved.
// Called when the reclamation reaches RESOLVED or CLOSED.
func (r *Repository) ResolveAlerts(ctx context.Context, reclamationID uuid.UUID) error {
	query := `UPDATE sla_alerts SET resolved = TRUE WHERE reclamation_id = $1 AND NOT resolved`

	if _, err := r.pool.Exec(ctx, query, reclamationID); err != nil {
		return fmt.Errorf("failed to resolve alerts: %w", err)
	}

	return nil
}

// ListAlerts returns all alerts for a reclamation, oldest first.
func (r *Repository) ListAlerts(ctx context.Context, reclamationID uuid.UUID) ([]Alert, error) {
	query := `SELECT id, reclamation_id, type, resolved, created_at
		FROM sla_alerts WHERE reclamation_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, reclamationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var items []Alert
	for rows.Next() {
		var alert Alert
		if err := rows.Scan(&alert.ID, &alert.ReclamationID, &alert.Type, &alert.Resolved, &alert.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		items = append(items, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return items, nil
}

// ToResponse converts an Alert to its transport representation.
func (a *Alert) ToResponse() transport.AlertResponse {
	return transport.AlertResponse{
		ID:            a.ID,
		ReclamationID: a.ReclamationID,
		Type:          a.Type,
		Resolved:      a.Resolved,
		CreatedAt:     a.CreatedAt,
	}
}
