package service

import (
	"context"
	"time"

	"reclamation_backend/internal/reclamations/domain"
	"reclamation_backend/internal/reclamations/repository"
	"reclamation_backend/internal/reclamations/transport"

	"github.com/google/uuid"
)

// Corbeille scope names.
const (
	ScopeTeam     = "team"
	ScopePersonal = "personal"
)

// Corbeille builds the team-wide dashboard view: every reclamation lands in
// exactly one bucket, annotated with its SLA tier. The whole view is built
// from one consistent read; any failure fails the view rather than serving
// a partial partition.
func (s *Service) Corbeille(ctx context.Context) (*transport.CorbeilleResponse, error) {
	items, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	resp := &transport.CorbeilleResponse{Scope: ScopeTeam}
	now := s.clock()
	for i := range items {
		rec := &items[i]
		annotated, info, err := s.annotate(ctx, rec, now)
		if err != nil {
			return nil, err
		}

		status, _ := domain.Normalize(rec.Status)
		switch {
		case status == domain.StatusOpen && rec.AssignedWorkerID == nil:
			resp.Buckets.Unassigned = append(resp.Buckets.Unassigned, annotated)
		case status == domain.StatusResolved || status == domain.StatusClosed:
			resp.Buckets.Resolved = append(resp.Buckets.Resolved, annotated)
		default:
			// Running work, including OPEN items still held by a worker
			// awaiting re-dispatch.
			resp.Buckets.InProgress = append(resp.Buckets.InProgress, annotated)
		}

		tallyStats(&resp.Stats, status, info)
	}

	finalizeStats(resp)
	return resp, nil
}

// PersonalCorbeille builds the per-worker view. On top of the standard
// partition restricted to the worker's items, a "returned" bucket lists the
// items the worker recently sent back to the pool and that still await a
// new owner.
func (s *Service) PersonalCorbeille(ctx context.Context, workerID uuid.UUID) (*transport.CorbeilleResponse, error) {
	items, err := s.store.ListByWorker(ctx, workerID, nil)
	if err != nil {
		return nil, err
	}

	resp := &transport.CorbeilleResponse{Scope: ScopePersonal}
	now := s.clock()
	for i := range items {
		rec := &items[i]
		annotated, info, err := s.annotate(ctx, rec, now)
		if err != nil {
			return nil, err
		}

		status, _ := domain.Normalize(rec.Status)
		switch status {
		case domain.StatusResolved, domain.StatusClosed:
			resp.Buckets.Resolved = append(resp.Buckets.Resolved, annotated)
		default:
			resp.Buckets.InProgress = append(resp.Buckets.InProgress, annotated)
		}

		tallyStats(&resp.Stats, status, info)
	}

	since := now.Add(-s.cfg.GetReturnedWindow())
	returnedIDs, err := s.store.ListReturnedSince(ctx, workerID, since)
	if err != nil {
		return nil, err
	}
	for _, id := range returnedIDs {
		rec, err := s.store.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		// Only items still awaiting a new owner count as returned.
		status, _ := domain.Normalize(rec.Status)
		if status != domain.StatusOpen || rec.AssignedWorkerID != nil {
			continue
		}
		annotated, info, err := s.annotate(ctx, rec, now)
		if err != nil {
			return nil, err
		}
		resp.Buckets.Returned = append(resp.Buckets.Returned, annotated)
		tallyStats(&resp.Stats, status, info)
	}

	finalizeStats(resp)
	return resp, nil
}

// annotate evaluates the SLA standing of a reclamation and embeds it in the
// response item. Unlike the read-path annotation this is strict: the
// corbeille stats depend on every tier being known.
func (s *Service) annotate(ctx context.Context, rec *repository.Reclamation, now time.Time) (transport.ReclamationResponse, *transport.SLAInfo, error) {
	info, err := s.assess(ctx, rec, now)
	if err != nil {
		return transport.ReclamationResponse{}, nil, err
	}
	return rec.ToResponse(info), info, nil
}

func tallyStats(stats *transport.CorbeilleStats, status domain.Status, info *transport.SLAInfo) {
	stats.Total++
	if !domain.IsMonitorable(status) {
		return
	}
	switch info.Tier {
	case domain.TierOverdue.String():
		stats.Overdue++
	case domain.TierCritical.String():
		stats.Critical++
	}
}

func finalizeStats(resp *transport.CorbeilleResponse) {
	resp.Stats.Unassigned = len(resp.Buckets.Unassigned)
	resp.Stats.InProgress = len(resp.Buckets.InProgress)
	resp.Stats.Resolved = len(resp.Buckets.Resolved)
	resp.Stats.Returned = len(resp.Buckets.Returned)
}
