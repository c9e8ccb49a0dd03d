package domain

import (
	"encoding/json"
	"time"
)

// EventKind is the canonical, closed set of delivery event kinds.
type EventKind string

const (
	KindUnknown      EventKind = ""
	KindAccepted     EventKind = "accepted"
	KindDelivered    EventKind = "delivered"
	KindFailed       EventKind = "failed"
	KindRejected     EventKind = "rejected"
	KindOpened       EventKind = "opened"
	KindClicked      EventKind = "clicked"
	KindUnsubscribed EventKind = "unsubscribed"
	KindComplained   EventKind = "complained"
	KindStored       EventKind = "stored"
)

func (k EventKind) Known() bool {
	return k != KindUnknown
}

type DeliveryEvent struct {
	ID              string          `json:"id"`
	ProviderEventID string          `json:"provider_event_id"`
	MessageID       *string         `json:"message_id,omitempty"`
	EventKind       EventKind       `json:"event_kind"`
	RawEvent        string          `json:"raw_event"`
	Recipient       string          `json:"recipient,omitempty"`
	OccurredAt      time.Time       `json:"occurred_at"`
	RawPayload      json.RawMessage `json:"raw_payload"`
	ReceivedAt      time.Time       `json:"received_at"`
}

// Resolved reports whether the event was correlated to an outbound message.
func (e *DeliveryEvent) Resolved() bool {
	return e.MessageID != nil
}
