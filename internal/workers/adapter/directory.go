// Package adapter bridges the workers module to the interfaces other
// domains consume.
package adapter

import (
	"context"

	"reclamation_backend/internal/reclamations/ports"
	"reclamation_backend/internal/workers/repository"

	"github.com/google/uuid"
)

// Directory implements ports.WorkerDirectory over the workers repository.
type Directory struct {
	repo *repository.Repository
}

// NewDirectory creates a worker directory adapter.
func NewDirectory(repo *repository.Repository) *Directory {
	return &Directory{repo: repo}
}

func (d *Directory) ListEligible(ctx context.Context, role string, department *string) ([]ports.WorkerInfo, error) {
	workers, err := d.repo.ListActive(ctx, role, department)
	if err != nil {
		return nil, err
	}

	out := make([]ports.WorkerInfo, 0, len(workers))
	for _, w := range workers {
		out = append(out, ports.WorkerInfo{ID: w.ID, FullName: w.FullName, Email: w.Email})
	}
	return out, nil
}

func (d *Directory) GetWorker(ctx context.Context, id uuid.UUID) (ports.WorkerInfo, error) {
	w, err := d.repo.GetByID(ctx, id)
	if err != nil {
		return ports.WorkerInfo{}, err
	}
	return ports.WorkerInfo{ID: w.ID, FullName: w.FullName, Email: w.Email}, nil
}

var _ ports.WorkerDirectory = (*Directory)(nil)
