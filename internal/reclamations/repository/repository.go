// Package repository provides database operations for reclamations, their
// audit trail, and SLA alerts.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reclamation_backend/internal/reclamations/domain"
	"reclamation_backend/internal/reclamations/transport"
	"reclamation_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reclamationColumns = `id, client_id, bordereau_id, contract_id, description, category,
	severity, priority, status, assigned_worker_id, created_at, updated_at`

const reclamationNotFoundMsg = "reclamation not found"

// Reclamation represents the reclamation database model. Status holds the
// raw stored value; callers normalize it through the domain package.
type Reclamation struct {
	ID               uuid.UUID  `db:"id"`
	ClientID         uuid.UUID  `db:"client_id"`
	BordereauID      *uuid.UUID `db:"bordereau_id"`
	ContractID       *uuid.UUID `db:"contract_id"`
	Description      string     `db:"description"`
	Category         string     `db:"category"`
	Severity         string     `db:"severity"`
	Priority         int        `db:"priority"`
	Status           string     `db:"status"`
	AssignedWorkerID *uuid.UUID `db:"assigned_worker_id"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

// Repository provides database operations for reclamations.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new reclamations repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new reclamation.
func (r *Repository) Create(ctx context.Context, rec *Reclamation) error {
	query := `
		INSERT INTO reclamations (
			id, client_id, bordereau_id, contract_id, description, category,
			severity, priority, status, assigned_worker_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.ClientID, rec.BordereauID, rec.ContractID, rec.Description,
		rec.Category, rec.Severity, rec.Priority, rec.Status,
		rec.AssignedWorkerID, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reclamation: %w", err)
	}

	return nil
}

// GetByID retrieves a reclamation by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Reclamation, error) {
	query := `SELECT ` + reclamationColumns + ` FROM reclamations WHERE id = $1`

	rec, err := scanReclamation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(reclamationNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get reclamation: %w", err)
	}

	return rec, nil
}

// UpdateStatus persists a lifecycle transition: the new status, the new
// assignee (nil clears it), and the update timestamp.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, assignedWorkerID *uuid.UUID, updatedAt time.Time) error {
	query := `UPDATE reclamations SET status = $2, assigned_worker_id = $3, updated_at = $4 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, status, assignedWorkerID, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to update reclamation status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound(reclamationNotFoundMsg)
	}

	return nil
}

// UpdateAssignment sets or clears the assigned worker without touching status.
func (r *Repository) UpdateAssignment(ctx context.Context, id uuid.UUID, workerID *uuid.UUID, updatedAt time.Time) error {
	query := `UPDATE reclamations SET assigned_worker_id = $2, updated_at = $3 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, workerID, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to update reclamation assignment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound(reclamationNotFoundMsg)
	}

	return nil
}

// ListOpen returns every reclamation in a monitorable status (OPEN,
// IN_PROGRESS, ESCALATED), oldest first. Used by the SLA monitor and the
// corbeille aggregator.
func (r *Repository) ListOpen(ctx context.Context) ([]Reclamation, error) {
	query := `SELECT ` + reclamationColumns + ` FROM reclamations
		WHERE status = ANY($1) ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, monitorableStatuses())
	if err != nil {
		return nil, fmt.Errorf("failed to list open reclamations: %w", err)
	}
	defer rows.Close()

	return collectReclamations(rows)
}

// ListAll returns the full reclamation population, oldest first. The
// corbeille aggregator partitions this set; a query failure fails the whole
// view rather than producing a partial partition.
func (r *Repository) ListAll(ctx context.Context) ([]Reclamation, error) {
	query := `SELECT ` + reclamationColumns + ` FROM reclamations ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list reclamations: %w", err)
	}
	defer rows.Close()

	return collectReclamations(rows)
}

// ListByWorker returns the reclamations currently assigned to a worker. A
// nil status slice means all statuses.
func (r *Repository) ListByWorker(ctx context.Context, workerID uuid.UUID, statuses []string) ([]Reclamation, error) {
	query := `SELECT ` + reclamationColumns + ` FROM reclamations
		WHERE assigned_worker_id = $1 AND ($2::text[] IS NULL OR status = ANY($2)) ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, workerID, statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to list reclamations by worker: %w", err)
	}
	defer rows.Close()

	return collectReclamations(rows)
}

// ListParams contains parameters for listing reclamations.
type ListParams struct {
	Status           *string
	Severity         *string
	ClientID         *uuid.UUID
	AssignedWorkerID *uuid.UUID
	Page             int
	PageSize         int
}

// ListResult contains the result of listing reclamations.
type ListResult struct {
	Items      []Reclamation
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// List retrieves reclamations with optional filtering.
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	baseQuery := `FROM reclamations WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	addFilter(&baseQuery, &args, &argIndex, params.Status != nil, " AND status = $%d", derefString(params.Status))
	addFilter(&baseQuery, &args, &argIndex, params.Severity != nil, " AND severity = $%d", derefString(params.Severity))
	addFilter(&baseQuery, &args, &argIndex, params.ClientID != nil, " AND client_id = $%d", derefUUID(params.ClientID))
	addFilter(&baseQuery, &args, &argIndex, params.AssignedWorkerID != nil, " AND assigned_worker_id = $%d", derefUUID(params.AssignedWorkerID))

	var total int
	countQuery := "SELECT COUNT(*) " + baseQuery
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count reclamations: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize

	selectQuery := fmt.Sprintf(`SELECT `+reclamationColumns+` %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		baseQuery, argIndex, argIndex+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reclamations: %w", err)
	}
	defer rows.Close()

	items, err := collectReclamations(rows)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

// CountOpenByWorkers returns, for each of the given workers, the number of
// reclamations currently assigned in IN_PROGRESS or ESCALATED. Workers with
// no open items are present in the result with a zero count. The counts are
// computed fresh per call; they are never cached across assignment decisions.
func (r *Repository) CountOpenByWorkers(ctx context.Context, workerIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(workerIDs))
	for _, id := range workerIDs {
		counts[id] = 0
	}
	if len(workerIDs) == 0 {
		return counts, nil
	}

	query := `SELECT assigned_worker_id, COUNT(*) FROM reclamations
		WHERE assigned_worker_id = ANY($1) AND status = ANY($2)
		GROUP BY assigned_worker_id`

	rows, err := r.pool.Query(ctx, query, workerIDs, []string{string(domain.StatusInProgress), string(domain.StatusEscalated)})
	if err != nil {
		return nil, fmt.Errorf("failed to count open assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var workerID uuid.UUID
		var count int
		if err := rows.Scan(&workerID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan workload count: %w", err)
		}
		counts[workerID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workload counts: %w", err)
	}

	return counts, nil
}

// ResolveSLAConfig resolves the SLA configuration for a reclamation from,
// in priority order: contract-level delay, client-level delay, the given
// system base. The returned config is raw; the caller sanitizes it.
func (r *Repository) ResolveSLAConfig(ctx context.Context, rec *Reclamation, base domain.SLAConfig) (domain.SLAConfig, error) {
	cfg := base

	if rec.ContractID != nil {
		var days *int
		err := r.pool.QueryRow(ctx,
			`SELECT reclamation_delay_days FROM contracts WHERE id = $1`, *rec.ContractID,
		).Scan(&days)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return cfg, fmt.Errorf("failed to read contract SLA config: %w", err)
		}
		if days != nil {
			cfg.SLADays = *days
			return cfg, nil
		}
	}

	var days *int
	err := r.pool.QueryRow(ctx,
		`SELECT reclamation_delay_days FROM clients WHERE id = $1`, rec.ClientID,
	).Scan(&days)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return cfg, fmt.Errorf("failed to read client SLA config: %w", err)
	}
	if days != nil {
		cfg.SLADays = *days
	}

	return cfg, nil
}

// ToResponse converts a Reclamation to its transport representation.
func (rec *Reclamation) ToResponse(sla *transport.SLAInfo) transport.ReclamationResponse {
	return transport.ReclamationResponse{
		ID:               rec.ID,
		ClientID:         rec.ClientID,
		BordereauID:      rec.BordereauID,
		ContractID:       rec.ContractID,
		Description:      rec.Description,
		Category:         rec.Category,
		Severity:         rec.Severity,
		Priority:         rec.Priority,
		Status:           rec.Status,
		AssignedWorkerID: rec.AssignedWorkerID,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
		SLA:              sla,
	}
}

func monitorableStatuses() []string {
	return []string{
		string(domain.StatusOpen),
		string(domain.StatusInProgress),
		string(domain.StatusEscalated),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReclamation(row rowScanner) (*Reclamation, error) {
	var rec Reclamation
	err := row.Scan(
		&rec.ID, &rec.ClientID, &rec.BordereauID, &rec.ContractID, &rec.Description,
		&rec.Category, &rec.Severity, &rec.Priority, &rec.Status,
		&rec.AssignedWorkerID, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func collectReclamations(rows pgx.Rows) ([]Reclamation, error) {
	var items []Reclamation
	for rows.Next() {
		rec, err := scanReclamation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reclamation: %w", err)
		}
		items = append(items, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reclamations: %w", err)
	}

	return items, nil
}

func addFilter(baseQuery *string, args *[]interface{}, argIndex *int, apply bool, clause string, value interface{}) {
	if !apply {
		return
	}
	*baseQuery += fmt.Sprintf(clause, *argIndex)
	*args = append(*args, value)
	*argIndex++
}

func derefUUID(value *uuid.UUID) uuid.UUID {
	if value == nil {
		return uuid.UUID{}
	}
	return *value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
