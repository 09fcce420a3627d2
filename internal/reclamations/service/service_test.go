package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"reclamation_backend/internal/events"
	"reclamation_backend/internal/reclamations/domain"
	"reclamation_backend/internal/reclamations/ports"
	"reclamation_backend/internal/reclamations/repository"
	"reclamation_backend/internal/reclamations/transport"
	"reclamation_backend/platform/apperr"
	"reclamation_backend/platform/logger"

	"github.com/google/uuid"
)

var testBase = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// ----------------------------------------------------------------------------
// Fakes
// ----------------------------------------------------------------------------

type fakeStore struct {
	recs    map[uuid.UUID]*repository.Reclamation
	order   []uuid.UUID
	history []repository.HistoryEntry
	alerts  []repository.Alert

	slaConfigs map[uuid.UUID]domain.SLAConfig
	slaErrs    map[uuid.UUID]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		recs:       make(map[uuid.UUID]*repository.Reclamation),
		slaConfigs: make(map[uuid.UUID]domain.SLAConfig),
		slaErrs:    make(map[uuid.UUID]error),
	}
}

func (f *fakeStore) Create(_ context.Context, rec *repository.Reclamation) error {
	cp := *rec
	f.recs[rec.ID] = &cp
	f.order = append(f.order, rec.ID)
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*repository.Reclamation, error) {
	rec, ok := f.recs[id]
	if !ok {
		return nil, apperr.NotFound("reclamation not found")
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id uuid.UUID, status string, assignee *uuid.UUID, updatedAt time.Time) error {
	rec, ok := f.recs[id]
	if !ok {
		return apperr.NotFound("reclamation not found")
	}
	rec.Status = status
	rec.AssignedWorkerID = assignee
	rec.UpdatedAt = updatedAt
	return nil
}

func (f *fakeStore) UpdateAssignment(_ context.Context, id uuid.UUID, workerID *uuid.UUID, updatedAt time.Time) error {
	rec, ok := f.recs[id]
	if !ok {
		return apperr.NotFound("reclamation not found")
	}
	rec.AssignedWorkerID = workerID
	rec.UpdatedAt = updatedAt
	return nil
}

func (f *fakeStore) List(_ context.Context, params repository.ListParams) (*repository.ListResult, error) {
	var items []repository.Reclamation
	for _, id := range f.order {
		rec := f.recs[id]
		if params.Status != nil && rec.Status != *params.Status {
			continue
		}
		if params.Severity != nil && rec.Severity != *params.Severity {
			continue
		}
		items = append(items, *rec)
	}
	return &repository.ListResult{
		Items: items, Total: len(items),
		Page: params.Page, PageSize: params.PageSize, TotalPages: 1,
	}, nil
}

func (f *fakeStore) ListOpen(_ context.Context) ([]repository.Reclamation, error) {
	var items []repository.Reclamation
	for _, id := range f.order {
		rec := f.recs[id]
		status, _ := domain.Normalize(rec.Status)
		if domain.IsMonitorable(status) {
			items = append(items, *rec)
		}
	}
	return items, nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]repository.Reclamation, error) {
	var items []repository.Reclamation
	for _, id := range f.order {
		items = append(items, *f.recs[id])
	}
	return items, nil
}

func (f *fakeStore) ListByWorker(_ context.Context, workerID uuid.UUID, statuses []string) ([]repository.Reclamation, error) {
	var items []repository.Reclamation
	for _, id := range f.order {
		rec := f.recs[id]
		if rec.AssignedWorkerID == nil || *rec.AssignedWorkerID != workerID {
			continue
		}
		if statuses != nil {
			found := false
			for _, s := range statuses {
				if rec.Status == s {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		items = append(items, *rec)
	}
	return items, nil
}

func (f *fakeStore) CountOpenByWorkers(_ context.Context, workerIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(workerIDs))
	for _, id := range workerIDs {
		counts[id] = 0
	}
	for _, rec := range f.recs {
		if rec.AssignedWorkerID == nil {
			continue
		}
		status, _ := domain.Normalize(rec.Status)
		if status != domain.StatusInProgress && status != domain.StatusEscalated {
			continue
		}
		if _, ok := counts[*rec.AssignedWorkerID]; ok {
			counts[*rec.AssignedWorkerID]++
		}
	}
	return counts, nil
}

func (f *fakeStore) ResolveSLAConfig(_ context.Context, rec *repository.Reclamation, base domain.SLAConfig) (domain.SLAConfig, error) {
	if err := f.slaErrs[rec.ID]; err != nil {
		return base, err
	}
	if cfg, ok := f.slaConfigs[rec.ID]; ok {
		return cfg, nil
	}
	return base, nil
}

func (f *fakeStore) AppendHistory(_ context.Context, entry *repository.HistoryEntry) error {
	f.history = append(f.history, *entry)
	return nil
}

func (f *fakeStore) ListHistory(_ context.Context, reclamationID uuid.UUID) ([]repository.HistoryEntry, error) {
	var entries []repository.HistoryEntry
	for _, e := range f.history {
		if e.ReclamationID == reclamationID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (f *fakeStore) ListReturnedSince(_ context.Context, workerID uuid.UUID, since time.Time) ([]uuid.UUID, error) {
	latest := make(map[uuid.UUID]repository.HistoryEntry)
	for _, e := range f.history {
		if prev, ok := latest[e.ReclamationID]; !ok || e.CreatedAt.After(prev.CreatedAt) {
			latest[e.ReclamationID] = e
		}
	}
	var ids []uuid.UUID
	for id, e := range latest {
		if e.Action == repository.ActionReturnToPool && e.Actor == workerID.String() && !e.CreatedAt.Before(since) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeStore) CreateAlert(_ context.Context, reclamationID uuid.UUID, alertType string, createdAt time.Time) (bool, error) {
	for _, a := range f.alerts {
		if a.ReclamationID == reclamationID && a.Type == alertType && !a.Resolved {
			return false, nil
		}
	}
	f.alerts = append(f.alerts, repository.Alert{
		ID: uuid.New(), ReclamationID: reclamationID, Type: alertType, CreatedAt: createdAt,
	})
	return true, nil
}

func (f *fakeStore) ResolveAlerts(_ context.Context, reclamationID uuid.UUID) error {
	for i := range f.alerts {
		if f.alerts[i].ReclamationID == reclamationID {
			f.alerts[i].Resolved = true
		}
	}
	return nil
}

func (f *fakeStore) ListAlerts(_ context.Context, reclamationID uuid.UUID) ([]repository.Alert, error) {
	var out []repository.Alert
	for _, a := range f.alerts {
		if a.ReclamationID == reclamationID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) unresolvedAlerts(reclamationID uuid.UUID) []repository.Alert {
	var out []repository.Alert
	for _, a := range f.alerts {
		if a.ReclamationID == reclamationID && !a.Resolved {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeStore) historyActions(reclamationID uuid.UUID) []string {
	var actions []string
	for _, e := range f.history {
		if e.ReclamationID == reclamationID {
			actions = append(actions, e.Action)
		}
	}
	return actions
}

type fakeDirectory struct {
	workers []ports.WorkerInfo
}

func (d *fakeDirectory) ListEligible(_ context.Context, _ string, _ *string) ([]ports.WorkerInfo, error) {
	out := make([]ports.WorkerInfo, len(d.workers))
	copy(out, d.workers)
	return out, nil
}

func (d *fakeDirectory) GetWorker(_ context.Context, id uuid.UUID) (ports.WorkerInfo, error) {
	for _, w := range d.workers {
		if w.ID == id {
			return w, nil
		}
	}
	return ports.WorkerInfo{}, apperr.NotFound("worker not found")
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	var out []string
	for _, e := range b.published {
		out = append(out, e.EventName())
	}
	return out
}

type testSLAConfig struct {
	days int
}

func (c testSLAConfig) GetSLADefaultDays() int {
	if c.days > 0 {
		return c.days
	}
	return 7
}

func (testSLAConfig) GetSLAWarningThreshold() int      { return 70 }
func (testSLAConfig) GetSLACriticalThreshold() int     { return 90 }
func (testSLAConfig) GetReturnedWindow() time.Duration { return 7 * 24 * time.Hour }
func (testSLAConfig) GetAssignmentRole() string        { return "gestionnaire" }

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func newTestService(workers ...ports.WorkerInfo) (*Service, *fakeStore, *recordingBus) {
	store := newFakeStore()
	bus := &recordingBus{}
	svc := New(store, &fakeDirectory{workers: workers}, bus, testSLAConfig{}, testLogger())
	svc.SetClock(func() time.Time { return testBase })
	return svc, store, bus
}

func testWorkers(n int) []ports.WorkerInfo {
	workers := make([]ports.WorkerInfo, 0, n)
	for i := 0; i < n; i++ {
		workers = append(workers, ports.WorkerInfo{
			ID:       uuid.New(),
			FullName: fmt.Sprintf("Worker %d", i+1),
			Email:    fmt.Sprintf("worker%d@example.test", i+1),
		})
	}
	return workers
}

func seed(store *fakeStore, status domain.Status, assignee *uuid.UUID, createdAt time.Time) uuid.UUID {
	id := uuid.New()
	store.recs[id] = &repository.Reclamation{
		ID:               id,
		ClientID:         uuid.New(),
		Description:      "seeded",
		Severity:         transport.SeverityMedium,
		Status:           string(status),
		AssignedWorkerID: assignee,
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}
	store.order = append(store.order, id)
	return id
}

// ----------------------------------------------------------------------------
// Create
// ----------------------------------------------------------------------------

func TestCreateNormalizesLegacyStatus(t *testing.T) {
	svc, _, _ := newTestService()

	resp, err := svc.Create(context.Background(), "agent-1", transport.CreateReclamationRequest{
		ClientID:    uuid.New(),
		Description: "double billing on contract",
		Severity:    transport.SeverityMedium,
		RawStatus:   "OUVERTE",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if resp.Status != string(domain.StatusOpen) {
		t.Fatalf("expected status OPEN, got %s", resp.Status)
	}
}

func TestCreateForcesMidLifecycleStatusToOpen(t *testing.T) {
	svc, _, _ := newTestService()

	// Intake must not start an item IN_PROGRESS with nobody assigned.
	resp, err := svc.Create(context.Background(), "agent-1", transport.CreateReclamationRequest{
		ClientID:    uuid.New(),
		Description: "imported mid-lifecycle",
		Severity:    transport.SeverityLow,
		RawStatus:   "en cours",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if resp.Status != string(domain.StatusOpen) {
		t.Fatalf("expected status OPEN, got %s", resp.Status)
	}
	if resp.AssignedWorkerID != nil {
		t.Fatalf("expected no assignee, got %s", resp.AssignedWorkerID)
	}
}

func TestCreateAppendsHistory(t *testing.T) {
	svc, store, _ := newTestService()

	resp, err := svc.Create(context.Background(), "agent-1", transport.CreateReclamationRequest{
		ClientID:    uuid.New(),
		Description: "claim not processed",
		Severity:    transport.SeverityCritical,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	actions := store.historyActions(resp.ID)
	if len(actions) != 1 || actions[0] != repository.ActionCreate {
		t.Fatalf("expected single CREATE history entry, got %v", actions)
	}
}

// ----------------------------------------------------------------------------
// Assignment
// ----------------------------------------------------------------------------

func TestAutoAssignBalancesWorkload(t *testing.T) {
	workers := testWorkers(3)
	svc, store, _ := newTestService(workers...)

	for i := 0; i < 5; i++ {
		_, err := svc.Create(context.Background(), "agent-1", transport.CreateReclamationRequest{
			ClientID:    uuid.New(),
			Description: fmt.Sprintf("reclamation %d", i),
			Severity:    transport.SeverityMedium,
			AutoAssign:  true,
		})
		if err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}

	counts := make(map[uuid.UUID]int)
	for _, rec := range store.recs {
		if rec.Status != string(domain.StatusInProgress) {
			t.Fatalf("expected all items IN_PROGRESS, got %s", rec.Status)
		}
		if rec.AssignedWorkerID == nil {
			t.Fatal("expected every item assigned")
		}
		counts[*rec.AssignedWorkerID]++
	}

	var distribution []int
	for _, c := range counts {
		distribution = append(distribution, c)
	}
	sort.Ints(distribution)
	want := []int{1, 2, 2}
	if len(distribution) != 3 || distribution[0] != want[0] || distribution[1] != want[1] || distribution[2] != want[2] {
		t.Fatalf("expected distribution {1,2,2}, got %v", distribution)
	}
}

func TestAssignNoEligibleWorkerLeavesItemOpen(t *testing.T) {
	svc, store, _ := newTestService() // no workers at all

	id := seed(store, domain.StatusOpen, nil, testBase)
	resp, err := svc.Assign(context.Background(), id, "agent-1", transport.AssignRequest{})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if resp.Assigned || resp.WorkerID != nil {
		t.Fatalf("expected unassigned outcome, got %+v", resp)
	}

	rec, _ := store.GetByID(context.Background(), id)
	if rec.Status != string(domain.StatusOpen) || rec.AssignedWorkerID != nil {
		t.Fatalf("expected item untouched in OPEN, got %s assignee %v", rec.Status, rec.AssignedWorkerID)
	}
}

func TestAssignExplicitWorkerMovesToInProgress(t *testing.T) {
	workers := testWorkers(2)
	svc, store, bus := newTestService(workers...)

	id := seed(store, domain.StatusOpen, nil, testBase)
	resp, err := svc.Assign(context.Background(), id, "agent-1", transport.AssignRequest{WorkerID: &workers[1].ID})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if !resp.Assigned || resp.WorkerID == nil || *resp.WorkerID != workers[1].ID {
		t.Fatalf("expected assignment to requested worker, got %+v", resp)
	}

	rec, _ := store.GetByID(context.Background(), id)
	if rec.Status != string(domain.StatusInProgress) {
		t.Fatalf("expected IN_PROGRESS, got %s", rec.Status)
	}

	names := bus.names()
	if len(names) != 1 || names[0] != "reclamations.assigned" {
		t.Fatalf("expected single assigned event, got %v", names)
	}
}

func TestAssignUnknownWorkerRejected(t *testing.T) {
	svc, store, _ := newTestService(testWorkers(1)...)

	id := seed(store, domain.StatusOpen, nil, testBase)
	ghost := uuid.New()
	_, err := svc.Assign(context.Background(), id, "agent-1", transport.AssignRequest{WorkerID: &ghost})
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestAssignResolvedReclamationRejected(t *testing.T) {
	svc, store, _ := newTestService(testWorkers(1)...)

	id := seed(store, domain.StatusResolved, nil, testBase)
	_, err := svc.Assign(context.Background(), id, "agent-1", transport.AssignRequest{})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestBulkReassignPoolMode(t *testing.T) {
	workers := testWorkers(2)
	svc, store, _ := newTestService(workers...)

	inProgress := seed(store, domain.StatusInProgress, &workers[0].ID, testBase)
	escalated := seed(store, domain.StatusEscalated, &workers[0].ID, testBase)

	resp, err := svc.BulkReassign(context.Background(), "manager-1", transport.BulkReassignRequest{
		FromWorkerID: workers[0].ID,
		Mode:         transport.BulkModePool,
	})
	if err != nil {
		t.Fatalf("BulkReassign failed: %v", err)
	}
	if resp.Returned != 1 || resp.Reassigned != 1 {
		t.Fatalf("expected 1 returned + 1 reassigned, got %+v", resp)
	}

	rec, _ := store.GetByID(context.Background(), inProgress)
	if rec.Status != string(domain.StatusOpen) || rec.AssignedWorkerID != nil {
		t.Fatalf("expected IN_PROGRESS item back in pool, got %s assignee %v", rec.Status, rec.AssignedWorkerID)
	}

	// Escalated work cannot wait unowned in the pool.
	rec, _ = store.GetByID(context.Background(), escalated)
	if rec.Status != string(domain.StatusEscalated) {
		t.Fatalf("expected escalated item to keep its status, got %s", rec.Status)
	}
	if rec.AssignedWorkerID == nil || *rec.AssignedWorkerID != workers[1].ID {
		t.Fatalf("expected escalated item handed to other worker, got %v", rec.AssignedWorkerID)
	}
}

func TestBulkReassignRedistributeMode(t *testing.T) {
	workers := testWorkers(2)
	svc, store, _ := newTestService(workers...)

	a := seed(store, domain.StatusInProgress, &workers[0].ID, testBase)
	b := seed(store, domain.StatusInProgress, &workers[0].ID, testBase)

	resp, err := svc.BulkReassign(context.Background(), "manager-1", transport.BulkReassignRequest{
		FromWorkerID: workers[0].ID,
		Mode:         transport.BulkModeRedistribute,
	})
	if err != nil {
		t.Fatalf("BulkReassign failed: %v", err)
	}
	if resp.Reassigned != 2 || resp.Returned != 0 {
		t.Fatalf("expected 2 reassigned, got %+v", resp)
	}

	for _, id := range []uuid.UUID{a, b} {
		rec, _ := store.GetByID(context.Background(), id)
		if rec.AssignedWorkerID == nil || *rec.AssignedWorkerID != workers[1].ID {
			t.Fatalf("expected handover to other worker, got %v", rec.AssignedWorkerID)
		}
		if rec.Status != string(domain.StatusInProgress) {
			t.Fatalf("expected status kept, got %s", rec.Status)
		}
	}
}

func TestBulkReassignNoOtherWorkerSkips(t *testing.T) {
	workers := testWorkers(1)
	svc, store, _ := newTestService(workers...)

	seed(store, domain.StatusEscalated, &workers[0].ID, testBase)

	resp, err := svc.BulkReassign(context.Background(), "manager-1", transport.BulkReassignRequest{
		FromWorkerID: workers[0].ID,
		Mode:         transport.BulkModeRedistribute,
	})
	if err != nil {
		t.Fatalf("BulkReassign failed: %v", err)
	}
	if resp.Skipped != 1 || resp.Reassigned != 0 {
		t.Fatalf("expected 1 skipped, got %+v", resp)
	}
}

// ----------------------------------------------------------------------------
// Transitions
// ----------------------------------------------------------------------------

func TestTransitionRejectedOutsideStateMachine(t *testing.T) {
	svc, store, bus := newTestService(testWorkers(1)...)

	id := seed(store, domain.StatusOpen, nil, testBase)
	_, err := svc.Transition(context.Background(), id, "agent-1", transport.TransitionRequest{
		TargetStatus: string(domain.StatusClosed),
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %T", err)
	}
	details, ok := appErr.Details.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map details, got %T", appErr.Details)
	}
	if _, ok := details["validNextStates"]; !ok {
		t.Fatalf("expected validNextStates in details, got %v", details)
	}

	// Rejection leaves no trace.
	rec, _ := store.GetByID(context.Background(), id)
	if rec.Status != string(domain.StatusOpen) {
		t.Fatalf("expected status unchanged, got %s", rec.Status)
	}
	if len(store.historyActions(id)) != 0 {
		t.Fatal("expected no history on rejected transition")
	}
	if len(bus.published) != 0 {
		t.Fatal("expected no events on rejected transition")
	}
}

func TestTransitionResolveClearsAssigneeAndAlerts(t *testing.T) {
	workers := testWorkers(1)
	svc, store, _ := newTestService(workers...)

	id := seed(store, domain.StatusInProgress, &workers[0].ID, testBase)
	if _, err := store.CreateAlert(context.Background(), id, repository.AlertWarning, testBase); err != nil {
		t.Fatalf("seeding alert failed: %v", err)
	}

	resp, err := svc.Transition(context.Background(), id, "agent-1", transport.TransitionRequest{
		TargetStatus: string(domain.StatusResolved),
		Note:         "refund issued",
	})
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if resp.Status != string(domain.StatusResolved) || resp.AssignedWorkerID != nil {
		t.Fatalf("expected RESOLVED without assignee, got %s / %v", resp.Status, resp.AssignedWorkerID)
	}
	if alerts := store.unresolvedAlerts(id); len(alerts) != 0 {
		t.Fatalf("expected all alerts resolved, got %d unresolved", len(alerts))
	}
}

func TestTransitionToInProgressAutoPicksWorker(t *testing.T) {
	workers := testWorkers(2)
	svc, store, _ := newTestService(workers...)

	id := seed(store, domain.StatusOpen, nil, testBase)
	resp, err := svc.Transition(context.Background(), id, "agent-1", transport.TransitionRequest{
		TargetStatus: string(domain.StatusInProgress),
	})
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if resp.AssignedWorkerID == nil {
		t.Fatal("expected an auto-picked assignee")
	}
}

func TestTransitionToInProgressNoEligibleWorker(t *testing.T) {
	svc, store, _ := newTestService() // empty directory

	id := seed(store, domain.StatusOpen, nil, testBase)
	_, err := svc.Transition(context.Background(), id, "agent-1", transport.TransitionRequest{
		TargetStatus: string(domain.StatusInProgress),
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict when nobody can take the item, got %v", err)
	}
}

func TestTransitionAcceptsLegacySpelling(t *testing.T) {
	workers := testWorkers(1)
	svc, store, _ := newTestService(workers...)

	id := seed(store, domain.StatusInProgress, &workers[0].ID, testBase)
	resp, err := svc.Transition(context.Background(), id, "agent-1", transport.TransitionRequest{
		TargetStatus: "résolue",
	})
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if resp.Status != string(domain.StatusResolved) {
		t.Fatalf("expected RESOLVED, got %s", resp.Status)
	}
}

func TestTransitionReturnToPool(t *testing.T) {
	workers := testWorkers(1)
	svc, store, _ := newTestService(workers...)

	id := seed(store, domain.StatusInProgress, &workers[0].ID, testBase)
	resp, err := svc.Transition(context.Background(), id, workers[0].ID.String(), transport.TransitionRequest{
		TargetStatus: string(domain.StatusOpen),
	})
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if resp.Status != string(domain.StatusOpen) || resp.AssignedWorkerID != nil {
		t.Fatalf("expected unassigned OPEN item, got %s / %v", resp.Status, resp.AssignedWorkerID)
	}

	actions := store.historyActions(id)
	if len(actions) != 1 || actions[0] != repository.ActionReturnToPool {
		t.Fatalf("expected RETURN_TO_POOL history entry, got %v", actions)
	}
}

// ----------------------------------------------------------------------------
// SLA monitor
// ----------------------------------------------------------------------------

func TestMonitorCreatesWarningAlertOnce(t *testing.T) {
	workers := testWorkers(1)
	svc, store, bus := newTestService(workers...)

	// slaDays=4 evaluated at 75% elapsed: AT_RISK with default thresholds.
	id := seed(store, domain.StatusInProgress, &workers[0].ID, testBase)
	store.slaConfigs[id] = domain.SLAConfig{SLADays: 4, WarningThreshold: 70, CriticalThreshold: 90}

	result, err := svc.RunMonitorTick(context.Background(), testBase.Add(3*24*time.Hour))
	if err != nil {
		t.Fatalf("RunMonitorTick failed: %v", err)
	}
	if result.Processed != 1 || result.AlertsCreated != 1 || result.Escalated != 0 {
		t.Fatalf("unexpected first pass result: %+v", result)
	}

	alerts := store.unresolvedAlerts(id)
	if len(alerts) != 1 || alerts[0].Type != repository.AlertWarning {
		t.Fatalf("expected one WARNING alert, got %v", alerts)
	}

	names := bus.names()
	if len(names) != 1 || names[0] != "reclamations.sla_alert" {
		t.Fatalf("expected one sla_alert event, got %v", names)
	}

	// An hour later the tier is unchanged; nothing new may appear.
	result, err = svc.RunMonitorTick(context.Background(), testBase.Add(3*24*time.Hour+time.Hour))
	if err != nil {
		t.Fatalf("second RunMonitorTick failed: %v", err)
	}
	if result.AlertsCreated != 0 {
		t.Fatalf("expected no duplicate alerts, got %d", result.AlertsCreated)
	}
}

func TestMonitorEscalatesBreachedReclamation(t *testing.T) {
	workers := testWorkers(1)
	svc, store, bus := newTestService(workers...)

	id := seed(store, domain.StatusInProgress, &workers[0].ID, testBase)
	store.slaConfigs[id] = domain.SLAConfig{SLADays: 4, WarningThreshold: 70, CriticalThreshold: 90}

	result, err := svc.RunMonitorTick(context.Background(), testBase.Add(4*24*time.Hour+time.Hour))
	if err != nil {
		t.Fatalf("RunMonitorTick failed: %v", err)
	}
	if result.AlertsCreated != 1 || result.Escalated != 1 {
		t.Fatalf("expected 1 breach alert + 1 escalation, got %+v", result)
	}

	rec, _ := store.GetByID(context.Background(), id)
	if rec.Status != string(domain.StatusEscalated) {
		t.Fatalf("expected ESCALATED, got %s", rec.Status)
	}
	if rec.AssignedWorkerID == nil || *rec.AssignedWorkerID != workers[0].ID {
		t.Fatal("expected assignee kept through escalation")
	}

	entries, _ := store.ListHistory(context.Background(), id)
	if len(entries) != 1 {
		t.Fatalf("expected one history entry, got %d", len(entries))
	}
	if entries[0].Actor != repository.SystemActor || entries[0].Action != repository.ActionAutoEscalate {
		t.Fatalf("expected SYSTEM AUTO_ESCALATE entry, got %s %s", entries[0].Actor, entries[0].Action)
	}

	var sawEscalated bool
	for _, e := range bus.published {
		if esc, ok := e.(events.ReclamationEscalated); ok {
			if !esc.Auto {
				t.Fatal("expected escalation event marked auto")
			}
			sawEscalated = true
		}
	}
	if !sawEscalated {
		t.Fatal("expected an escalated event")
	}

	// Re-running at the same instant must change nothing.
	result, err = svc.RunMonitorTick(context.Background(), testBase.Add(4*24*time.Hour+time.Hour))
	if err != nil {
		t.Fatalf("second RunMonitorTick failed: %v", err)
	}
	if result.AlertsCreated != 0 || result.Escalated != 0 {
		t.Fatalf("expected idempotent second pass, got %+v", result)
	}
	entries, _ = store.ListHistory(context.Background(), id)
	if len(entries) != 1 {
		t.Fatalf("expected no duplicate history, got %d entries", len(entries))
	}
}

func TestMonitorSkipsFailingItemAndContinues(t *testing.T) {
	workers := testWorkers(1)
	svc, store, _ := newTestService(workers...)

	bad := seed(store, domain.StatusInProgress, &workers[0].ID, testBase)
	good := seed(store, domain.StatusInProgress, &workers[0].ID, testBase)
	store.slaErrs[bad] = fmt.Errorf("configuration unreadable")
	store.slaConfigs[good] = domain.SLAConfig{SLADays: 4, WarningThreshold: 70, CriticalThreshold: 90}

	result, err := svc.RunMonitorTick(context.Background(), testBase.Add(3*24*time.Hour))
	if err != nil {
		t.Fatalf("RunMonitorTick failed: %v", err)
	}
	if result.Skipped != 1 || result.Processed != 1 {
		t.Fatalf("expected 1 skipped + 1 processed, got %+v", result)
	}
	if len(store.unresolvedAlerts(good)) != 1 {
		t.Fatal("expected the healthy item still alerted")
	}
}

func TestMonitorZeroInstantFallsBackToClock(t *testing.T) {
	workers := testWorkers(1)
	svc, store, _ := newTestService(workers...)

	id := seed(store, domain.StatusInProgress, &workers[0].ID, testBase)
	store.slaConfigs[id] = domain.SLAConfig{SLADays: 4, WarningThreshold: 70, CriticalThreshold: 90}
	svc.SetClock(func() time.Time { return testBase.Add(3 * 24 * time.Hour) })

	// The manual tick endpoint passes no instant.
	result, err := svc.RunMonitorTick(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("RunMonitorTick failed: %v", err)
	}
	if result.AlertsCreated != 1 {
		t.Fatalf("expected one alert from the clock instant, got %+v", result)
	}
}

func TestMonitorIgnoresTerminalItems(t *testing.T) {
	svc, store, _ := newTestService()

	seed(store, domain.StatusResolved, nil, testBase.Add(-30*24*time.Hour))
	seed(store, domain.StatusClosed, nil, testBase.Add(-30*24*time.Hour))

	result, err := svc.RunMonitorTick(context.Background(), testBase)
	if err != nil {
		t.Fatalf("RunMonitorTick failed: %v", err)
	}
	if result.Processed != 0 || result.AlertsCreated != 0 {
		t.Fatalf("expected nothing processed, got %+v", result)
	}
}

// ----------------------------------------------------------------------------
// Corbeille
// ----------------------------------------------------------------------------

func TestCorbeillePartitionsEveryItemOnce(t *testing.T) {
	workers := testWorkers(1)
	svc, store, _ := newTestService(workers...)

	seed(store, domain.StatusOpen, nil, testBase)
	seed(store, domain.StatusInProgress, &workers[0].ID, testBase)
	seed(store, domain.StatusEscalated, &workers[0].ID, testBase)
	seed(store, domain.StatusResolved, nil, testBase)
	seed(store, domain.StatusClosed, nil, testBase)

	resp, err := svc.Corbeille(context.Background())
	if err != nil {
		t.Fatalf("Corbeille failed: %v", err)
	}

	if len(resp.Buckets.Unassigned) != 1 {
		t.Fatalf("expected 1 unassigned, got %d", len(resp.Buckets.Unassigned))
	}
	if len(resp.Buckets.InProgress) != 2 {
		t.Fatalf("expected 2 in progress, got %d", len(resp.Buckets.InProgress))
	}
	if len(resp.Buckets.Resolved) != 2 {
		t.Fatalf("expected 2 resolved, got %d", len(resp.Buckets.Resolved))
	}

	total := len(resp.Buckets.Unassigned) + len(resp.Buckets.InProgress) + len(resp.Buckets.Resolved)
	if total != 5 || resp.Stats.Total != 5 {
		t.Fatalf("expected every item in exactly one bucket, got %d buckets / %d stats", total, resp.Stats.Total)
	}
	if resp.Stats.Unassigned != 1 || resp.Stats.InProgress != 2 || resp.Stats.Resolved != 2 {
		t.Fatalf("stats disagree with buckets: %+v", resp.Stats)
	}
}

func TestCorbeilleCountsOverdueAndCritical(t *testing.T) {
	workers := testWorkers(1)
	svc, store, _ := newTestService(workers...)

	overdue := seed(store, domain.StatusInProgress, &workers[0].ID, testBase.Add(-10*24*time.Hour))
	store.slaConfigs[overdue] = domain.SLAConfig{SLADays: 4, WarningThreshold: 70, CriticalThreshold: 90}
	seed(store, domain.StatusOpen, nil, testBase)

	resp, err := svc.Corbeille(context.Background())
	if err != nil {
		t.Fatalf("Corbeille failed: %v", err)
	}
	if resp.Stats.Overdue != 1 {
		t.Fatalf("expected 1 overdue, got %d", resp.Stats.Overdue)
	}
	if resp.Stats.Critical != 0 {
		t.Fatalf("expected 0 critical, got %d", resp.Stats.Critical)
	}

	for _, item := range resp.Buckets.InProgress {
		if item.SLA == nil {
			t.Fatal("expected SLA annotation on every in-progress item")
		}
	}
}

func TestPersonalCorbeilleShowsReturnedItems(t *testing.T) {
	workers := testWorkers(1)
	svc, store, _ := newTestService(workers...)

	seed(store, domain.StatusInProgress, &workers[0].ID, testBase)

	// An item this worker sent back three days ago, still waiting.
	returned := seed(store, domain.StatusOpen, nil, testBase.Add(-5*24*time.Hour))
	store.history = append(store.history, repository.HistoryEntry{
		ID:            uuid.New(),
		ReclamationID: returned,
		Actor:         workers[0].ID.String(),
		Action:        repository.ActionReturnToPool,
		CreatedAt:     testBase.Add(-3 * 24 * time.Hour),
	})

	// Another returned long before the window opens.
	stale := seed(store, domain.StatusOpen, nil, testBase.Add(-40*24*time.Hour))
	store.history = append(store.history, repository.HistoryEntry{
		ID:            uuid.New(),
		ReclamationID: stale,
		Actor:         workers[0].ID.String(),
		Action:        repository.ActionReturnToPool,
		CreatedAt:     testBase.Add(-30 * 24 * time.Hour),
	})

	resp, err := svc.PersonalCorbeille(context.Background(), workers[0].ID)
	if err != nil {
		t.Fatalf("PersonalCorbeille failed: %v", err)
	}
	if resp.Scope != ScopePersonal {
		t.Fatalf("expected personal scope, got %s", resp.Scope)
	}
	if len(resp.Buckets.InProgress) != 1 {
		t.Fatalf("expected 1 in progress, got %d", len(resp.Buckets.InProgress))
	}
	if len(resp.Buckets.Returned) != 1 || resp.Buckets.Returned[0].ID != returned {
		t.Fatalf("expected exactly the recently returned item, got %v", resp.Buckets.Returned)
	}
	if resp.Stats.Returned != 1 {
		t.Fatalf("expected returned stat 1, got %d", resp.Stats.Returned)
	}
}

func TestPersonalCorbeilleOmitsReassignedReturns(t *testing.T) {
	workers := testWorkers(2)
	svc, store, _ := newTestService(workers...)

	// Returned by worker 0, but already picked up by worker 1.
	returned := seed(store, domain.StatusInProgress, &workers[1].ID, testBase.Add(-5*24*time.Hour))
	store.history = append(store.history, repository.HistoryEntry{
		ID:            uuid.New(),
		ReclamationID: returned,
		Actor:         workers[0].ID.String(),
		Action:        repository.ActionReturnToPool,
		CreatedAt:     testBase.Add(-2 * 24 * time.Hour),
	})

	resp, err := svc.PersonalCorbeille(context.Background(), workers[0].ID)
	if err != nil {
		t.Fatalf("PersonalCorbeille failed: %v", err)
	}
	if len(resp.Buckets.Returned) != 0 {
		t.Fatalf("expected no returned items, got %d", len(resp.Buckets.Returned))
	}
}

// ----------------------------------------------------------------------------
// SLA read path
// ----------------------------------------------------------------------------

func TestSLAStatusTerminalItemIsOnTime(t *testing.T) {
	svc, store, _ := newTestService()

	id := seed(store, domain.StatusClosed, nil, testBase.Add(-100*24*time.Hour))
	info, err := svc.SLAStatus(context.Background(), id)
	if err != nil {
		t.Fatalf("SLAStatus failed: %v", err)
	}
	if info.Tier != domain.TierOnTime.String() {
		t.Fatalf("expected ON_TIME for terminal item, got %s", info.Tier)
	}
}

func TestSLAStatusInvalidConfigFallsBackToDefault(t *testing.T) {
	workers := testWorkers(1)
	svc, store, _ := newTestService(workers...)

	id := seed(store, domain.StatusInProgress, &workers[0].ID, testBase)
	store.slaConfigs[id] = domain.SLAConfig{SLADays: -3, WarningThreshold: 70, CriticalThreshold: 90}

	info, err := svc.SLAStatus(context.Background(), id)
	if err != nil {
		t.Fatalf("SLAStatus failed: %v", err)
	}
	// System default is 7 days.
	wantDeadline := testBase.Add(7 * 24 * time.Hour)
	if !info.Deadline.Equal(wantDeadline) {
		t.Fatalf("expected default deadline %v, got %v", wantDeadline, info.Deadline)
	}
}

func TestSLAStatusHonorsConfiguredDefaultDays(t *testing.T) {
	store := newFakeStore()
	svc := New(store, &fakeDirectory{}, &recordingBus{}, testSLAConfig{days: 14}, testLogger())
	svc.SetClock(func() time.Time { return testBase })

	// No contract or client override: the configured 14-day default applies.
	plain := seed(store, domain.StatusInProgress, nil, testBase)
	info, err := svc.SLAStatus(context.Background(), plain)
	if err != nil {
		t.Fatalf("SLAStatus failed: %v", err)
	}
	wantDeadline := testBase.Add(14 * 24 * time.Hour)
	if !info.Deadline.Equal(wantDeadline) {
		t.Fatalf("expected configured deadline %v, got %v", wantDeadline, info.Deadline)
	}

	// An invalid stored override substitutes the configured default too.
	broken := seed(store, domain.StatusInProgress, nil, testBase)
	store.slaConfigs[broken] = domain.SLAConfig{SLADays: -1, WarningThreshold: 70, CriticalThreshold: 90}
	info, err = svc.SLAStatus(context.Background(), broken)
	if err != nil {
		t.Fatalf("SLAStatus failed: %v", err)
	}
	if !info.Deadline.Equal(wantDeadline) {
		t.Fatalf("expected configured deadline %v, got %v", wantDeadline, info.Deadline)
	}
}

func TestAlertsListsMonitorOutput(t *testing.T) {
	workers := testWorkers(1)
	svc, store, _ := newTestService(workers...)

	// 75% of a 4-day budget elapsed puts the item in AT_RISK.
	id := seed(store, domain.StatusInProgress, &workers[0].ID, testBase.Add(-3*24*time.Hour))
	store.slaConfigs[id] = domain.SLAConfig{SLADays: 4, WarningThreshold: 70, CriticalThreshold: 90}

	if _, err := svc.RunMonitorTick(context.Background(), testBase); err != nil {
		t.Fatalf("RunMonitorTick failed: %v", err)
	}

	alerts, err := svc.Alerts(context.Background(), id)
	if err != nil {
		t.Fatalf("Alerts failed: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Type != repository.AlertWarning {
		t.Fatalf("expected one WARNING alert, got %v", alerts)
	}

	if _, err := svc.Alerts(context.Background(), uuid.New()); apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found for unknown reclamation, got %v", err)
	}
}
