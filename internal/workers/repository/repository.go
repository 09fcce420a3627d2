// Package repository provides data access for back-office workers.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reclamation_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Worker represents a back-office worker row.
type Worker struct {
	ID         uuid.UUID `db:"id"`
	FullName   string    `db:"full_name"`
	Email      string    `db:"email"`
	Role       string    `db:"role"`
	Department *string   `db:"department"`
	Active     bool      `db:"active"`
	CreatedAt  time.Time `db:"created_at"`
}

const workerColumns = `id, full_name, email, role, department, active, created_at`

// Repository provides data access to workers.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new workers repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID retrieves a worker by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE id = $1`

	var w Worker
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&w.ID, &w.FullName, &w.Email, &w.Role, &w.Department, &w.Active, &w.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("worker not found")
		}
		return nil, fmt.Errorf("failed to get worker: %w", err)
	}

	return &w, nil
}

// ListActive returns active workers holding the given role, optionally
// filtered by department. Ordered by creation time then id so the
// assignment tie-break is stable across calls.
func (r *Repository) ListActive(ctx context.Context, role string, department *string) ([]Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers
		WHERE active AND role = $1 AND ($2::text IS NULL OR department = $2)
		ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, role, department)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	defer rows.Close()

	var items []Worker
	for rows.Next() {
		var w Worker
		if err := rows.Scan(&w.ID, &w.FullName, &w.Email, &w.Role, &w.Department, &w.Active, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan worker: %w", err)
		}
		items = append(items, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workers: %w", err)
	}

	return items, nil
}

// ListAll returns every worker regardless of role or active flag.
func (r *Repository) ListAll(ctx context.Context) ([]Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers ORDER BY full_name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	defer rows.Close()

	var items []Worker
	for rows.Next() {
		var w Worker
		if err := rows.Scan(&w.ID, &w.FullName, &w.Email, &w.Role, &w.Department, &w.Active, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan worker: %w", err)
		}
		items = append(items, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workers: %w", err)
	}

	return items, nil
}
