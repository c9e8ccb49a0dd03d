package domain

import "time"

// Status is the lifecycle state of an outbound message.
type Status string

const (
	StatusAttempted    Status = "attempted"
	StatusAccepted     Status = "accepted"
	StatusDropped      Status = "dropped"
	StatusRejected     Status = "rejected"
	StatusFailed       Status = "failed"
	StatusBounced      Status = "bounced"
	StatusDelivered    Status = "delivered"
	StatusOpened       Status = "opened"
	StatusClicked      Status = "clicked"
	StatusUnsubscribed Status = "unsubscribed"
	StatusComplained   Status = "complained"
)

// statusPriority is a total order over statuses. A message may only move to
// a status with a strictly greater priority. Bounced ranks highest so a
// bounce always lands, whatever engagement was recorded before it.
var statusPriority = map[Status]int{
	StatusAttempted:    0,
	StatusAccepted:     10,
	StatusDropped:      20,
	StatusRejected:     25,
	StatusFailed:       30,
	StatusDelivered:    40,
	StatusOpened:       50,
	StatusClicked:      60,
	StatusUnsubscribed: 70,
	StatusComplained:   80,
	StatusBounced:      90,
}

// Priority returns the lifecycle priority of s. Unrecognised statuses sort
// below Attempted so any known status can replace them.
func (s Status) Priority() int {
	if p, ok := statusPriority[s]; ok {
		return p
	}
	return -1
}

func (s Status) Valid() bool {
	_, ok := statusPriority[s]
	return ok
}

// Advance applies the monotonic lifecycle rule: candidate replaces s only
// when it has a strictly higher priority.
func (s Status) Advance(candidate Status) (Status, bool) {
	if !candidate.Valid() || candidate.Priority() <= s.Priority() {
		return s, false
	}
	return candidate, true
}

// AllStatuses returns every known status in ascending priority.
func AllStatuses() []Status {
	return []Status{
		StatusAttempted, StatusAccepted, StatusDropped, StatusRejected,
		StatusFailed, StatusDelivered, StatusOpened, StatusClicked,
		StatusUnsubscribed, StatusComplained, StatusBounced,
	}
}

// StatusChange is emitted whenever an inbound event advances a message.
type StatusChange struct {
	MessageID       string    `json:"message_id"`
	CorrelationID   string    `json:"correlation_id"`
	ProviderEventID string    `json:"provider_event_id"`
	EventKind       EventKind `json:"event_kind"`
	From            Status    `json:"from"`
	To              Status    `json:"to"`
	OccurredAt      time.Time `json:"occurred_at"`
}
