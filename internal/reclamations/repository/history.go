package repository

import (
	"context"
	"fmt"
	"time"

	"reclamation_backend/internal/reclamations/transport"

	"github.com/google/uuid"
)

// Actor used for history entries written by the SLA monitor.
const SystemActor = "SYSTEM"

// History action tags. Every state-changing operation appends exactly one
// entry; entries are never mutated or deleted.
const (
	ActionCreate       = "CREATE"
	ActionAssign       = "ASSIGN"
	ActionStatusChange = "STATUS_CHANGE"
	ActionReturnToPool = "RETURN_TO_POOL"
	ActionResolve      = "RESOLVE"
	ActionClose        = "CLOSE"
	ActionEscalate     = "ESCALATE"
	ActionAutoEscalate = "AUTO_ESCALATE"
)

// HistoryEntry represents one append-only audit trail row.
type HistoryEntry struct {
	ID             uuid.UUID `db:"id"`
	ReclamationID  uuid.UUID `db:"reclamation_id"`
	Actor          string    `db:"actor"`
	Action         string    `db:"action"`
	PreviousStatus *string   `db:"previous_status"`
	NewStatus      *string   `db:"new_status"`
	Note           *string   `db:"note"`
	CreatedAt      time.Time `db:"created_at"`
}

// AppendHistory inserts an audit trail entry.
func (r *Repository) AppendHistory(ctx context.Context, entry *HistoryEntry) error {
	query := `
		INSERT INTO reclamation_history (
			id, reclamation_id, actor, action, previous_status, new_status, note, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)`

	_, err := r.pool.Exec(ctx, query,
		entry.ID, entry.ReclamationID, entry.Actor, entry.Action,
		entry.PreviousStatus, entry.NewStatus, entry.Note, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}

	return nil
}

// ListHistory returns the audit trail for a reclamation, oldest first.
func (r *Repository) ListHistory(ctx context.Context, reclamationID uuid.UUID) ([]HistoryEntry, error) {
	query := `SELECT id, reclamation_id, actor, action, previous_status, new_status, note, created_at
		FROM reclamation_history WHERE reclamation_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, reclamationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var items []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		if err := rows.Scan(
			&entry.ID, &entry.ReclamationID, &entry.Actor, &entry.Action,
			&entry.PreviousStatus, &entry.NewStatus, &entry.Note, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		items = append(items, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	return items, nil
}

// ListReturnedSince returns the IDs of reclamations whose most recent
// history entry is a return-to-pool by the given worker after the cutoff.
// Feeds the personal corbeille's "returned" bucket.
func (r *Repository) ListReturnedSince(ctx context.Context, workerID uuid.UUID, since time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT reclamation_id FROM (
			SELECT DISTINCT ON (reclamation_id) reclamation_id, actor, action, created_at
			FROM reclamation_history
			ORDER BY reclamation_id, created_at DESC
		) latest
		WHERE latest.action = $1 AND latest.actor = $2 AND latest.created_at >= $3`

	rows, err := r.pool.Query(ctx, query, ActionReturnToPool, workerID.String(), since)
	if err != nil {
		return nil, fmt.Errorf("failed to list returned reclamations: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan returned reclamation id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate returned reclamations: %w", err)
	}

	return ids, nil
}

// ToResponse converts a HistoryEntry to its transport representation.
func (entry *HistoryEntry) ToResponse() transport.HistoryEntryResponse {
	return transport.HistoryEntryResponse{
		ID:             entry.ID,
		ReclamationID:  entry.ReclamationID,
		Actor:          entry.Actor,
		Action:         entry.Action,
		PreviousStatus: entry.PreviousStatus,
		NewStatus:      entry.NewStatus,
		Note:           entry.Note,
		CreatedAt:      entry.CreatedAt,
	}
}
