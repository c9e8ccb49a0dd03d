package store

import (
	"context"
	"time"

	"github.com/Priya8975/email-event-ingestion/internal/domain"
)

// Store is the persistence surface shared by the Postgres and in-memory
// implementations.
type Store interface {
	Ping(ctx context.Context) error

	CreateMessage(ctx context.Context, msg *domain.OutboundMessage) error
	GetMessage(ctx context.Context, id string) (*domain.OutboundMessage, error)
	FindByProviderMessageID(ctx context.Context, providerMessageID string) (*domain.OutboundMessage, error)
	FindByCorrelationID(ctx context.Context, correlationID string) (*domain.OutboundMessage, error)
	FindRecentByRecipientSubject(ctx context.Context, recipient, subject string, from, to time.Time) (*domain.OutboundMessage, error)
	BackfillProviderMessageID(ctx context.Context, messageID, providerMessageID string) (bool, error)

	EventExists(ctx context.Context, providerEventID string) (bool, error)
	RecordEvent(ctx context.Context, event *domain.DeliveryEvent, candidate domain.Status) (Transition, error)
	GetEvent(ctx context.Context, id string) (*domain.DeliveryEvent, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]domain.DeliveryEvent, error)
	ListMessageEvents(ctx context.Context, messageID string) ([]domain.DeliveryEvent, error)

	Stats(ctx context.Context) (*Stats, error)
}

// Transition reports what RecordEvent did to the correlated message.
// Applied is false when there was no message, no candidate status, or the
// candidate did not outrank the current status.
type Transition struct {
	Applied       bool
	From          domain.Status
	To            domain.Status
	CorrelationID string
}

type EventFilter struct {
	Unresolved bool
	Kind       domain.EventKind
	Limit      int
}

type Stats struct {
	TotalMessages    int            `json:"total_messages"`
	MessagesByStatus map[string]int `json:"messages_by_status"`
	TotalEvents      int            `json:"total_events"`
	UnresolvedEvents int            `json:"unresolved_events"`
	EventsByKind     map[string]int `json:"events_by_kind"`
}
