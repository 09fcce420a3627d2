// Package service provides the business logic for the reclamations module:
// intake, lifecycle transitions, workload-based assignment, SLA evaluation,
// the periodic SLA monitor, and the corbeille aggregation.
package service

import (
	"context"
	"fmt"
	"time"

	"reclamation_backend/internal/events"
	"reclamation_backend/internal/reclamations/domain"
	"reclamation_backend/internal/reclamations/ports"
	"reclamation_backend/internal/reclamations/repository"
	"reclamation_backend/internal/reclamations/transport"
	"reclamation_backend/platform/apperr"
	"reclamation_backend/platform/config"
	"reclamation_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Store is the persistence contract the service depends on. The pgx-backed
// repository implements it; tests substitute an in-memory fake.
type Store interface {
	Create(ctx context.Context, rec *repository.Reclamation) error
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Reclamation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, assignedWorkerID *uuid.UUID, updatedAt time.Time) error
	UpdateAssignment(ctx context.Context, id uuid.UUID, workerID *uuid.UUID, updatedAt time.Time) error
	List(ctx context.Context, params repository.ListParams) (*repository.ListResult, error)
	ListOpen(ctx context.Context) ([]repository.Reclamation, error)
	ListAll(ctx context.Context) ([]repository.Reclamation, error)
	ListByWorker(ctx context.Context, workerID uuid.UUID, statuses []string) ([]repository.Reclamation, error)
	CountOpenByWorkers(ctx context.Context, workerIDs []uuid.UUID) (map[uuid.UUID]int, error)
	ResolveSLAConfig(ctx context.Context, rec *repository.Reclamation, base domain.SLAConfig) (domain.SLAConfig, error)
	AppendHistory(ctx context.Context, entry *repository.HistoryEntry) error
	ListHistory(ctx context.Context, reclamationID uuid.UUID) ([]repository.HistoryEntry, error)
	ListReturnedSince(ctx context.Context, workerID uuid.UUID, since time.Time) ([]uuid.UUID, error)
	CreateAlert(ctx context.Context, reclamationID uuid.UUID, alertType string, createdAt time.Time) (bool, error)
	ResolveAlerts(ctx context.Context, reclamationID uuid.UUID) error
	ListAlerts(ctx context.Context, reclamationID uuid.UUID) ([]repository.Alert, error)
}

// Clock supplies the current instant. The monitor and the SLA read paths
// take "now" explicitly so tests run without wall-clock dependence.
type Clock func() time.Time

// Service provides business logic for reclamations.
type Service struct {
	store   Store
	workers ports.WorkerDirectory
	bus     events.Bus
	cfg     config.SLAConfig
	log     *logger.Logger
	clock   Clock

	monitor monitorState
}

// New creates a new reclamations service.
func New(store Store, workers ports.WorkerDirectory, bus events.Bus, cfg config.SLAConfig, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		workers: workers,
		bus:     bus,
		cfg:     cfg,
		log:     log,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the service clock. Intended for tests.
func (s *Service) SetClock(clock Clock) {
	s.clock = clock
}

// Create registers a new reclamation. The raw status is normalized on
// intake; when AutoAssign is set the least-loaded eligible worker picks it
// up immediately and the reclamation starts IN_PROGRESS.
func (s *Service) Create(ctx context.Context, actor string, req transport.CreateReclamationRequest) (*transport.ReclamationResponse, error) {
	now := s.clock()

	status, recognized := domain.Normalize(req.RawStatus)
	if req.RawStatus != "" && !recognized {
		s.log.UnknownStatus(req.RawStatus)
	}
	// Intake never starts an item mid-lifecycle without an assignee.
	if domain.RequiresAssignee(status) {
		status = domain.StatusOpen
	}

	rec := &repository.Reclamation{
		ID:          uuid.New(),
		ClientID:    req.ClientID,
		BordereauID: req.BordereauID,
		ContractID:  req.ContractID,
		Description: req.Description,
		Category:    req.Category,
		Severity:    req.Severity,
		Priority:    req.Priority,
		Status:      string(status),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Create(ctx, rec); err != nil {
		return nil, err
	}

	if err := s.appendHistory(ctx, rec.ID, actor, repository.ActionCreate, nil, strPtr(rec.Status), nil, now); err != nil {
		return nil, err
	}

	if req.AutoAssign && status == domain.StatusOpen {
		// No eligible worker leaves the reclamation unassigned in OPEN;
		// Assign reports that without erroring.
		if _, err := s.Assign(ctx, rec.ID, actor, transport.AssignRequest{}); err != nil {
			return nil, err
		}
		refreshed, err := s.store.GetByID(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		rec = refreshed
	}

	s.bus.Publish(ctx, events.ReclamationCreated{
		BaseEvent:        events.NewBaseEvent(),
		ReclamationID:    rec.ID,
		ClientID:         rec.ClientID,
		Severity:         rec.Severity,
		AssignedWorkerID: rec.AssignedWorkerID,
	})

	resp := rec.ToResponse(s.slaInfoFor(ctx, rec, s.clock()))
	return &resp, nil
}

// Get returns a reclamation annotated with its SLA standing.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*transport.ReclamationResponse, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := rec.ToResponse(s.slaInfoFor(ctx, rec, s.clock()))
	return &resp, nil
}

// List returns a filtered, paginated page of reclamations.
func (s *Service) List(ctx context.Context, req transport.ListReclamationsRequest) (*transport.ReclamationListResponse, error) {
	params := repository.ListParams{
		ClientID:         req.ClientID,
		AssignedWorkerID: req.AssignedWorkerID,
		Page:             req.Page,
		PageSize:         req.PageSize,
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}

	if req.Status != "" {
		status, recognized := domain.Normalize(req.Status)
		if !recognized {
			return nil, apperr.BadRequest("unknown status filter")
		}
		params.Status = strPtr(string(status))
	}
	if req.Severity != "" {
		params.Severity = strPtr(req.Severity)
	}

	result, err := s.store.List(ctx, params)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	items := make([]transport.ReclamationResponse, 0, len(result.Items))
	for i := range result.Items {
		rec := &result.Items[i]
		items = append(items, rec.ToResponse(s.slaInfoFor(ctx, rec, now)))
	}

	return &transport.ReclamationListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// History returns the audit trail for a reclamation.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]transport.HistoryEntryResponse, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return nil, err
	}

	entries, err := s.store.ListHistory(ctx, id)
	if err != nil {
		return nil, err
	}

	out := make([]transport.HistoryEntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, entries[i].ToResponse())
	}
	return out, nil
}

// Alerts returns every SLA alert raised for a reclamation, oldest first.
func (s *Service) Alerts(ctx context.Context, id uuid.UUID) ([]transport.AlertResponse, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return nil, err
	}

	alerts, err := s.store.ListAlerts(ctx, id)
	if err != nil {
		return nil, err
	}

	out := make([]transport.AlertResponse, 0, len(alerts))
	for i := range alerts {
		out = append(out, alerts[i].ToResponse())
	}
	return out, nil
}

// SLAStatus returns the current SLA standing of a reclamation. Terminal
// items report ON_TIME with zero remaining hours; their deadline is moot.
func (s *Service) SLAStatus(ctx context.Context, id uuid.UUID) (*transport.SLAInfo, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.assess(ctx, rec, s.clock())
}

// Transition applies a lifecycle transition requested by an actor. A
// transition outside the state machine table is rejected with the list of
// valid next states and no side effects.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, actor string, req transport.TransitionRequest) (*transport.ReclamationResponse, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	current, recognized := domain.Normalize(rec.Status)
	if !recognized {
		s.log.UnknownStatus(rec.Status)
	}

	target, recognized := domain.Normalize(req.TargetStatus)
	if !recognized {
		return nil, apperr.BadRequest("unknown target status").WithDetails(validNextDetails(current))
	}

	if !domain.CanTransition(current, target) {
		return nil, apperr.Conflict(
			fmt.Sprintf("transition %s -> %s is not permitted", current, target),
		).WithDetails(validNextDetails(current))
	}

	assignee := rec.AssignedWorkerID
	action := repository.ActionStatusChange

	switch target {
	case domain.StatusInProgress:
		if req.AssignedWorkerID != nil {
			if _, err := s.workers.GetWorker(ctx, *req.AssignedWorkerID); err != nil {
				return nil, apperr.BadRequest("assigned worker does not exist")
			}
			assignee = req.AssignedWorkerID
		}
		if assignee == nil {
			picked, _, err := s.pickLeastLoaded(ctx, nil, nil)
			if err != nil {
				return nil, err
			}
			if picked == nil {
				return nil, apperr.Conflict("no eligible worker available for assignment")
			}
			assignee = &picked.ID
		}
	case domain.StatusOpen:
		action = repository.ActionReturnToPool
		assignee = nil
	case domain.StatusEscalated:
		action = repository.ActionEscalate
	case domain.StatusResolved:
		action = repository.ActionResolve
		assignee = nil
	case domain.StatusClosed:
		action = repository.ActionClose
		assignee = nil
	}

	now := s.clock()
	if err := s.store.UpdateStatus(ctx, id, string(target), assignee, now); err != nil {
		return nil, err
	}

	var note *string
	if req.Note != "" {
		note = strPtr(req.Note)
	}
	if err := s.appendHistory(ctx, id, actor, action, strPtr(string(current)), strPtr(string(target)), note, now); err != nil {
		return nil, err
	}

	if target == domain.StatusResolved || target == domain.StatusClosed {
		if err := s.store.ResolveAlerts(ctx, id); err != nil {
			return nil, err
		}
	}

	s.bus.Publish(ctx, events.ReclamationStatusChanged{
		BaseEvent:     events.NewBaseEvent(),
		ReclamationID: id,
		OldStatus:     string(current),
		NewStatus:     string(target),
		Actor:         actor,
	})
	if target == domain.StatusEscalated {
		s.bus.Publish(ctx, events.ReclamationEscalated{
			BaseEvent:        events.NewBaseEvent(),
			ReclamationID:    id,
			AssignedWorkerID: assignee,
		})
	}

	updated, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := updated.ToResponse(s.slaInfoFor(ctx, updated, now))
	return &resp, nil
}

// systemSLAConfig builds the operator-configured system default. Load
// validates the environment values, so an unusable set only appears when a
// caller wires its own config; those degrade to the built-in constants.
func (s *Service) systemSLAConfig() domain.SLAConfig {
	base, _ := domain.SLAConfig{
		SLADays:           s.cfg.GetSLADefaultDays(),
		WarningThreshold:  s.cfg.GetSLAWarningThreshold(),
		CriticalThreshold: s.cfg.GetSLACriticalThreshold(),
	}.Sanitize(domain.DefaultSLAConfig())
	return base
}

// assess resolves and sanitizes the SLA configuration for a reclamation and
// evaluates it. Invalid stored configuration is substituted by the system
// default and logged, never surfaced as a failure.
func (s *Service) assess(ctx context.Context, rec *repository.Reclamation, now time.Time) (*transport.SLAInfo, error) {
	status, _ := domain.Normalize(rec.Status)
	if !domain.IsMonitorable(status) {
		return &transport.SLAInfo{Tier: domain.TierOnTime.String()}, nil
	}

	base := s.systemSLAConfig()
	cfg, err := s.store.ResolveSLAConfig(ctx, rec, base)
	if err != nil {
		return nil, err
	}

	cfg, valid := cfg.Sanitize(base)
	if !valid {
		s.log.ConfigurationError(rec.ID.String(), "non-positive or inconsistent SLA configuration, using system default")
	}

	assessment := domain.Evaluate(rec.CreatedAt, cfg, now)
	return &transport.SLAInfo{
		Tier:           assessment.Tier.String(),
		Deadline:       assessment.Deadline,
		RemainingHours: assessment.RemainingHours,
	}, nil
}

// slaInfoFor is the tolerant variant used to annotate read paths: an
// unresolvable configuration yields no annotation instead of failing the read.
func (s *Service) slaInfoFor(ctx context.Context, rec *repository.Reclamation, now time.Time) *transport.SLAInfo {
	info, err := s.assess(ctx, rec, now)
	if err != nil {
		s.log.DatabaseError("resolve sla config", err)
		return nil
	}
	return info
}

func (s *Service) appendHistory(ctx context.Context, reclamationID uuid.UUID, actor, action string, prev, next, note *string, at time.Time) error {
	return s.store.AppendHistory(ctx, &repository.HistoryEntry{
		ID:             uuid.New(),
		ReclamationID:  reclamationID,
		Actor:          actor,
		Action:         action,
		PreviousStatus: prev,
		NewStatus:      next,
		Note:           note,
		CreatedAt:      at,
	})
}

func validNextDetails(current domain.Status) map[string]interface{} {
	next := domain.ValidNext(current)
	names := make([]string, 0, len(next))
	for _, s := range next {
		names = append(names, string(s))
	}
	return map[string]interface{}{"validNextStates": names}
}

func strPtr(s string) *string {
	return &s
}
