// Package ports defines consumer-driven interfaces for external dependencies.
// These interfaces are defined in the reclamations domain based on what it
// needs, rather than what other domains choose to offer.
package ports

import (
	"context"

	"github.com/google/uuid"
)

// WorkerInfo represents the minimal worker data the reclamations domain needs.
type WorkerInfo struct {
	ID       uuid.UUID
	FullName string
	Email    string
}

// WorkerDirectory provides worker lookups needed by the assigner and the
// notification path. The workers module implements this interface through
// an adapter; iteration order of ListEligible must be stable so assignment
// tie-breaking stays deterministic.
type WorkerDirectory interface {
	// ListEligible returns active workers holding the given role, optionally
	// filtered by department, in stable order.
	ListEligible(ctx context.Context, role string, department *string) ([]WorkerInfo, error)

	// GetWorker returns basic worker info. Returns an error if not found.
	GetWorker(ctx context.Context, id uuid.UUID) (WorkerInfo, error)
}
