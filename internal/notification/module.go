// Package notification provides event handlers for sending notifications
// in response to domain events. The module subscribes to events and inverts
// the dependency: the reclamations module never touches email delivery.
package notification

import (
	"context"

	"reclamation_backend/internal/email"
	"reclamation_backend/internal/events"
	"reclamation_backend/internal/reclamations/ports"
	"reclamation_backend/platform/logger"
)

// Module wires domain events to outbound notifications. Delivery failures
// are logged and swallowed: a broken SMTP server must never fail the
// operation that raised the event.
type Module struct {
	sender  email.Sender
	workers ports.WorkerDirectory
	log     *logger.Logger
}

// New creates the notification module.
func New(sender email.Sender, workers ports.WorkerDirectory, log *logger.Logger) *Module {
	return &Module{
		sender:  sender,
		workers: workers,
		log:     log,
	}
}

// RegisterHandlers subscribes the module to the events it reacts to.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.SLAAlertRaised{}.EventName(), m)
	bus.Subscribe(events.ReclamationEscalated{}.EventName(), m)
	bus.Subscribe(events.ReclamationAssigned{}.EventName(), m)
}

// Handle routes events to the appropriate notification.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.SLAAlertRaised:
		m.handleSLAAlert(ctx, e)
	case events.ReclamationEscalated:
		m.handleEscalated(ctx, e)
	case events.ReclamationAssigned:
		m.handleAssigned(ctx, e)
	}
	return nil
}

func (m *Module) handleSLAAlert(ctx context.Context, e events.SLAAlertRaised) {
	if e.AssignedWorkerID == nil {
		// Nobody owns the item yet; it surfaces through the corbeille.
		return
	}

	worker, err := m.workers.GetWorker(ctx, *e.AssignedWorkerID)
	if err != nil {
		m.log.Warn("sla alert notification skipped", "reclamationId", e.ReclamationID, "error", err)
		return
	}

	if err := m.sender.SendSLAAlertEmail(ctx, worker.Email, worker.FullName,
		e.ReclamationID.String(), e.AlertType, e.Tier, e.RemainingHours); err != nil {
		m.log.Warn("sla alert email failed", "reclamationId", e.ReclamationID, "error", err)
	}
}

func (m *Module) handleEscalated(ctx context.Context, e events.ReclamationEscalated) {
	if e.AssignedWorkerID == nil {
		return
	}

	worker, err := m.workers.GetWorker(ctx, *e.AssignedWorkerID)
	if err != nil {
		m.log.Warn("escalation notification skipped", "reclamationId", e.ReclamationID, "error", err)
		return
	}

	if err := m.sender.SendEscalationEmail(ctx, worker.Email, worker.FullName,
		e.ReclamationID.String(), e.Auto); err != nil {
		m.log.Warn("escalation email failed", "reclamationId", e.ReclamationID, "error", err)
	}
}

func (m *Module) handleAssigned(ctx context.Context, e events.ReclamationAssigned) {
	worker, err := m.workers.GetWorker(ctx, e.WorkerID)
	if err != nil {
		m.log.Warn("assignment notification skipped", "reclamationId", e.ReclamationID, "error", err)
		return
	}

	if err := m.sender.SendAssignmentEmail(ctx, worker.Email, worker.FullName,
		e.ReclamationID.String()); err != nil {
		m.log.Warn("assignment email failed", "reclamationId", e.ReclamationID, "error", err)
	}
}
