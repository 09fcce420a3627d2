// Package domain provides core business rules for the reclamations bounded
// context: canonical statuses, the lifecycle state machine, status
// normalization, and SLA evaluation. Everything here is pure and stateless.
package domain

// Status is the canonical lifecycle status of a reclamation.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusEscalated  Status = "ESCALATED"
	StatusResolved   Status = "RESOLVED"
	StatusClosed     Status = "CLOSED"
)

// AllStatuses lists every canonical status, in lifecycle order.
var AllStatuses = []Status{
	StatusOpen,
	StatusInProgress,
	StatusEscalated,
	StatusResolved,
	StatusClosed,
}

// transitions is the authoritative transition table. A transition absent
// from this table is invalid and must be rejected without side effects.
var transitions = map[Status][]Status{
	StatusOpen:       {StatusInProgress, StatusEscalated},
	StatusInProgress: {StatusResolved, StatusEscalated, StatusOpen},
	StatusEscalated:  {StatusInProgress, StatusResolved},
	StatusResolved:   {StatusClosed},
	StatusClosed:     {},
}

// IsValid reports whether s is one of the canonical statuses.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether moving from one status to another is
// permitted by the lifecycle state machine.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidNext returns the statuses reachable from the given status.
// The returned slice is a copy and safe to mutate.
func ValidNext(from Status) []Status {
	next := transitions[from]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// IsTerminal reports whether the status ends the workflow entirely.
// Only CLOSED is fully terminal; RESOLVED may still be closed
// administratively.
func IsTerminal(s Status) bool {
	return s == StatusClosed
}

// IsMonitorable reports whether the SLA monitor evaluates reclamations in
// this status. RESOLVED and CLOSED are excluded: remaining time is moot
// once the item is resolved.
func IsMonitorable(s Status) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusEscalated:
		return true
	}
	return false
}

// RequiresAssignee reports whether the status implies an assigned worker.
// OPEN and the resolved statuses carry no assignee (except transiently for
// returned items awaiting reassignment).
func RequiresAssignee(s Status) bool {
	return s == StatusInProgress || s == StatusEscalated
}
