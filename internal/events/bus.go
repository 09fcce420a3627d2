package events

import (
	platformevents "reclamation_backend/platform/events"
	"reclamation_backend/platform/logger"
)

// InMemoryBus aliases the platform bus so modules only ever import
// internal/events.
type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus creates the in-process event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
