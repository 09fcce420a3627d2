package service

import (
	"context"

	"reclamation_backend/internal/events"
	"reclamation_backend/internal/reclamations/domain"
	"reclamation_backend/internal/reclamations/ports"
	"reclamation_backend/internal/reclamations/repository"
	"reclamation_backend/internal/reclamations/transport"
	"reclamation_backend/platform/apperr"

	"github.com/google/uuid"
)

// pickLeastLoaded selects the eligible worker with the strictly lowest
// count of open assignments. Ties break on iteration order, first
// encountered wins, so the decision is deterministic. Workload is counted
// fresh on every call; the read-then-write window under concurrent bursts
// is an accepted trade-off, imbalance self-corrects on the next round.
// Returns a nil worker when no eligible one exists.
func (s *Service) pickLeastLoaded(ctx context.Context, department *string, exclude *uuid.UUID) (*ports.WorkerInfo, int, error) {
	workers, err := s.workers.ListEligible(ctx, s.cfg.GetAssignmentRole(), department)
	if err != nil {
		return nil, 0, err
	}
	if exclude != nil {
		filtered := workers[:0]
		for _, w := range workers {
			if w.ID != *exclude {
				filtered = append(filtered, w)
			}
		}
		workers = filtered
	}
	if len(workers) == 0 {
		return nil, 0, nil
	}

	ids := make([]uuid.UUID, 0, len(workers))
	for _, w := range workers {
		ids = append(ids, w.ID)
	}

	counts, err := s.store.CountOpenByWorkers(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	best := workers[0]
	bestCount := counts[best.ID]
	for _, w := range workers[1:] {
		if counts[w.ID] < bestCount {
			best = w
			bestCount = counts[w.ID]
		}
	}

	return &best, bestCount, nil
}

// Assign routes a reclamation to a worker. When the request names no
// worker, the least-loaded eligible one is selected. An OPEN reclamation
// moves to IN_PROGRESS; an already-running one keeps its status and only
// changes hands. No eligible worker is a valid outcome, not an error: the
// reclamation stays unassigned in OPEN and the response says so.
func (s *Service) Assign(ctx context.Context, id uuid.UUID, actor string, req transport.AssignRequest) (*transport.AssignmentResponse, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	current, _ := domain.Normalize(rec.Status)
	if !domain.IsMonitorable(current) {
		return nil, apperr.Conflict("resolved reclamations cannot be assigned")
	}

	var (
		worker   *ports.WorkerInfo
		workload int
	)
	if req.WorkerID != nil {
		info, err := s.workers.GetWorker(ctx, *req.WorkerID)
		if err != nil {
			return nil, apperr.BadRequest("assigned worker does not exist")
		}
		worker = &info
	} else {
		worker, workload, err = s.pickLeastLoaded(ctx, req.Department, nil)
		if err != nil {
			return nil, err
		}
	}

	if worker == nil {
		return &transport.AssignmentResponse{ReclamationID: id, Assigned: false}, nil
	}

	now := s.clock()
	if current == domain.StatusOpen {
		if err := s.store.UpdateStatus(ctx, id, string(domain.StatusInProgress), &worker.ID, now); err != nil {
			return nil, err
		}
		if err := s.appendHistory(ctx, id, actor, repository.ActionAssign,
			strPtr(string(current)), strPtr(string(domain.StatusInProgress)), nil, now); err != nil {
			return nil, err
		}
	} else {
		if err := s.store.UpdateAssignment(ctx, id, &worker.ID, now); err != nil {
			return nil, err
		}
		if err := s.appendHistory(ctx, id, actor, repository.ActionAssign, nil, nil, nil, now); err != nil {
			return nil, err
		}
	}

	s.log.AssignmentDecision(id.String(), worker.ID.String(), workload)
	s.bus.Publish(ctx, events.ReclamationAssigned{
		BaseEvent:     events.NewBaseEvent(),
		ReclamationID: id,
		WorkerID:      worker.ID,
		Actor:         actor,
	})

	workerID := worker.ID
	return &transport.AssignmentResponse{ReclamationID: id, WorkerID: &workerID, Assigned: true}, nil
}

// BulkReassign moves every open item of one worker. In "pool" mode
// IN_PROGRESS items return to OPEN awaiting reassignment; ESCALATED items
// cannot leave supervision and are handed to the least-loaded other worker
// instead. In "redistribute" mode every item is handed over directly.
func (s *Service) BulkReassign(ctx context.Context, actor string, req transport.BulkReassignRequest) (*transport.BulkReassignResponse, error) {
	if _, err := s.workers.GetWorker(ctx, req.FromWorkerID); err != nil {
		return nil, apperr.BadRequest("source worker does not exist")
	}

	items, err := s.store.ListByWorker(ctx, req.FromWorkerID, []string{
		string(domain.StatusInProgress),
		string(domain.StatusEscalated),
	})
	if err != nil {
		return nil, err
	}

	result := &transport.BulkReassignResponse{}
	for i := range items {
		rec := &items[i]
		status, _ := domain.Normalize(rec.Status)
		now := s.clock()

		if req.Mode == transport.BulkModePool && status == domain.StatusInProgress {
			if err := s.store.UpdateStatus(ctx, rec.ID, string(domain.StatusOpen), nil, now); err != nil {
				return nil, err
			}
			if err := s.appendHistory(ctx, rec.ID, actor, repository.ActionReturnToPool,
				strPtr(string(status)), strPtr(string(domain.StatusOpen)), nil, now); err != nil {
				return nil, err
			}
			result.Returned++
			continue
		}

		target, _, err := s.pickLeastLoaded(ctx, nil, &req.FromWorkerID)
		if err != nil {
			return nil, err
		}
		if target == nil {
			result.Skipped++
			continue
		}

		if err := s.store.UpdateAssignment(ctx, rec.ID, &target.ID, now); err != nil {
			return nil, err
		}
		if err := s.appendHistory(ctx, rec.ID, actor, repository.ActionAssign, nil, nil, nil, now); err != nil {
			return nil, err
		}
		s.bus.Publish(ctx, events.ReclamationAssigned{
			BaseEvent:     events.NewBaseEvent(),
			ReclamationID: rec.ID,
			WorkerID:      target.ID,
			Actor:         actor,
		})
		result.Reassigned++
	}

	return result, nil
}
