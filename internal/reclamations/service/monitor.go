package service

import (
	"context"
	"sync"
	"time"

	"reclamation_backend/internal/events"
	"reclamation_backend/internal/reclamations/domain"
	"reclamation_backend/internal/reclamations/repository"
	"reclamation_backend/internal/reclamations/transport"
)

// monitorState guards against overlapping monitoring passes within one
// process. Cross-process serialization comes from the single-worker queue
// the tick task runs on.
type monitorState struct {
	mu sync.Mutex
}

// RunMonitorTick walks every open reclamation and enforces its SLA as of
// the given instant: alerts for AT_RISK and CRITICAL tiers, a BREACH alert
// plus forced escalation once the deadline has passed. Alert creation is
// idempotent at the data layer, so re-running a tick for the same instant
// creates nothing new.
//
// The scheduler worker passes the task's scheduled time so a delayed
// delivery still evaluates against the intended instant. A zero now falls
// back to the service clock.
//
// A failure on one item is logged and skipped; the pass always covers the
// remaining items. If a previous tick is still running, this one returns
// immediately with an empty result.
func (s *Service) RunMonitorTick(ctx context.Context, now time.Time) (*transport.TickResultResponse, error) {
	if !s.monitor.mu.TryLock() {
		return &transport.TickResultResponse{}, nil
	}
	defer s.monitor.mu.Unlock()

	started := time.Now()
	if now.IsZero() {
		now = s.clock()
	}

	items, err := s.store.ListOpen(ctx)
	if err != nil {
		return nil, err
	}

	result := &transport.TickResultResponse{}
	for i := range items {
		rec := &items[i]
		if err := s.monitorItem(ctx, rec, now, result); err != nil {
			s.log.MonitorItemSkipped(rec.ID.String(), err)
			result.Skipped++
			continue
		}
		result.Processed++
	}

	s.log.MonitorPass(result.Processed, result.AlertsCreated, result.Escalated, result.Skipped, float64(time.Since(started).Milliseconds()))
	return result, nil
}

func (s *Service) monitorItem(ctx context.Context, rec *repository.Reclamation, now time.Time, result *transport.TickResultResponse) error {
	info, err := s.assess(ctx, rec, now)
	if err != nil {
		return err
	}

	switch info.Tier {
	case domain.TierAtRisk.String():
		return s.raiseAlert(ctx, rec, repository.AlertWarning, info, now, result)
	case domain.TierCritical.String():
		return s.raiseAlert(ctx, rec, repository.AlertCritical, info, now, result)
	case domain.TierOverdue.String():
		if err := s.raiseAlert(ctx, rec, repository.AlertBreach, info, now, result); err != nil {
			return err
		}
		return s.autoEscalate(ctx, rec, now, result)
	}
	return nil
}

// raiseAlert inserts an alert of the given type unless an unresolved one
// already exists. The insert-or-skip decision lives in the store so two
// concurrent passes cannot both win.
func (s *Service) raiseAlert(ctx context.Context, rec *repository.Reclamation, alertType string, info *transport.SLAInfo, now time.Time, result *transport.TickResultResponse) error {
	created, err := s.store.CreateAlert(ctx, rec.ID, alertType, now)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	result.AlertsCreated++
	if alertType == repository.AlertBreach {
		s.log.SLABreach(rec.ID.String())
	}
	s.bus.Publish(ctx, events.SLAAlertRaised{
		BaseEvent:        events.NewBaseEvent(),
		ReclamationID:    rec.ID,
		AlertType:        alertType,
		Tier:             info.Tier,
		RemainingHours:   info.RemainingHours,
		AssignedWorkerID: rec.AssignedWorkerID,
	})
	return nil
}

// autoEscalate forces a breached reclamation into ESCALATED under the
// SYSTEM actor. The current assignee is kept; an unassigned breached item
// escalates unassigned and surfaces in the corbeille until picked up.
func (s *Service) autoEscalate(ctx context.Context, rec *repository.Reclamation, now time.Time, result *transport.TickResultResponse) error {
	current, _ := domain.Normalize(rec.Status)
	if current == domain.StatusEscalated {
		return nil
	}

	if err := s.store.UpdateStatus(ctx, rec.ID, string(domain.StatusEscalated), rec.AssignedWorkerID, now); err != nil {
		return err
	}
	if err := s.appendHistory(ctx, rec.ID, repository.SystemActor, repository.ActionAutoEscalate,
		strPtr(string(current)), strPtr(string(domain.StatusEscalated)), nil, now); err != nil {
		return err
	}

	result.Escalated++
	s.bus.Publish(ctx, events.ReclamationEscalated{
		BaseEvent:        events.NewBaseEvent(),
		ReclamationID:    rec.ID,
		AssignedWorkerID: rec.AssignedWorkerID,
		Auto:             true,
	})
	return nil
}
