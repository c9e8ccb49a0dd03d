package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Priya8975/email-event-ingestion/internal/domain"
)

// MemoryStore is an in-process Store for local development and tests. It
// enforces the same uniqueness and status rules as PostgresStore.
type MemoryStore struct {
	mu sync.RWMutex

	messages      map[string]*domain.OutboundMessage
	byCorrelation map[string]string

	events          map[string]*domain.DeliveryEvent
	byProviderEvent map[string]string

	now func() time.Time
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		messages:        make(map[string]*domain.OutboundMessage),
		byCorrelation:   make(map[string]string),
		events:          make(map[string]*domain.DeliveryEvent),
		byProviderEvent: make(map[string]string),
		now:             time.Now,
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) CreateMessage(_ context.Context, msg *domain.OutboundMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byCorrelation[msg.CorrelationID]; ok {
		return ErrDuplicateMessage
	}
	if msg.Status == "" {
		msg.Status = domain.StatusAttempted
	}
	now := s.now().UTC()
	msg.CreatedAt, msg.UpdatedAt = now, now

	stored := copyMessage(msg)
	s.messages[msg.ID] = stored
	s.byCorrelation[msg.CorrelationID] = msg.ID
	return nil
}

func (s *MemoryStore) GetMessage(_ context.Context, id string) (*domain.OutboundMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMessage(msg), nil
}

func (s *MemoryStore) FindByProviderMessageID(_ context.Context, providerMessageID string) (*domain.OutboundMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.newest(func(m *domain.OutboundMessage) bool {
		return m.ProviderMessageID != nil && *m.ProviderMessageID == providerMessageID
	}), nil
}

func (s *MemoryStore) FindByCorrelationID(_ context.Context, correlationID string) (*domain.OutboundMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byCorrelation[correlationID]
	if !ok {
		return nil, nil
	}
	return copyMessage(s.messages[id]), nil
}

func (s *MemoryStore) FindRecentByRecipientSubject(_ context.Context, recipient, subject string, from, to time.Time) (*domain.OutboundMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.newest(func(m *domain.OutboundMessage) bool {
		return m.Recipient == recipient && m.Subject == subject &&
			!m.SentAt.Before(from) && !m.SentAt.After(to)
	}), nil
}

// newest returns a copy of the matching message with the latest sent_at.
func (s *MemoryStore) newest(match func(*domain.OutboundMessage) bool) *domain.OutboundMessage {
	var best *domain.OutboundMessage
	for _, m := range s.messages {
		if !match(m) {
			continue
		}
		if best == nil || m.SentAt.After(best.SentAt) {
			best = m
		}
	}
	if best == nil {
		return nil
	}
	return copyMessage(best)
}

func (s *MemoryStore) BackfillProviderMessageID(_ context.Context, messageID, providerMessageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[messageID]
	if !ok || msg.ProviderMessageID != nil {
		return false, nil
	}
	id := providerMessageID
	msg.ProviderMessageID = &id
	msg.UpdatedAt = s.now().UTC()
	return true, nil
}

func (s *MemoryStore) EventExists(_ context.Context, providerEventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byProviderEvent[providerEventID]
	return ok, nil
}

func (s *MemoryStore) RecordEvent(_ context.Context, event *domain.DeliveryEvent, candidate domain.Status) (Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byProviderEvent[event.ProviderEventID]; ok {
		return Transition{}, ErrDuplicateEvent
	}
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = s.now().UTC()
	}
	s.events[event.ID] = copyEvent(event)
	s.byProviderEvent[event.ProviderEventID] = event.ID

	var tr Transition
	if event.MessageID == nil || !candidate.Valid() {
		return tr, nil
	}
	msg, ok := s.messages[*event.MessageID]
	if !ok {
		return tr, nil
	}
	next, applied := msg.Status.Advance(candidate)
	if !applied {
		return tr, nil
	}
	tr = Transition{
		Applied:       true,
		From:          msg.Status,
		To:            next,
		CorrelationID: msg.CorrelationID,
	}
	msg.Status = next
	msg.UpdatedAt = s.now().UTC()
	return tr, nil
}

func (s *MemoryStore) GetEvent(_ context.Context, id string) (*domain.DeliveryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyEvent(e), nil
}

func (s *MemoryStore) ListEvents(_ context.Context, filter EventFilter) ([]domain.DeliveryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := []domain.DeliveryEvent{}
	for _, e := range s.events {
		if filter.Unresolved && e.Resolved() {
			continue
		}
		if filter.Kind != domain.KindUnknown && e.EventKind != filter.Kind {
			continue
		}
		events = append(events, *copyEvent(e))
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].ReceivedAt.After(events[j].ReceivedAt)
	})
	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[:filter.Limit]
	}
	return events, nil
}

func (s *MemoryStore) ListMessageEvents(_ context.Context, messageID string) ([]domain.DeliveryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := []domain.DeliveryEvent{}
	for _, e := range s.events {
		if e.MessageID != nil && *e.MessageID == messageID {
			events = append(events, *copyEvent(e))
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].OccurredAt.Before(events[j].OccurredAt)
	})
	return events, nil
}

func (s *MemoryStore) Stats(context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &Stats{
		MessagesByStatus: map[string]int{},
		EventsByKind:     map[string]int{},
	}
	for _, m := range s.messages {
		st.MessagesByStatus[string(m.Status)]++
		st.TotalMessages++
	}
	for _, e := range s.events {
		st.EventsByKind[string(e.EventKind)]++
		st.TotalEvents++
		if !e.Resolved() {
			st.UnresolvedEvents++
		}
	}
	return st, nil
}

func copyMessage(m *domain.OutboundMessage) *domain.OutboundMessage {
	c := *m
	if m.ProviderMessageID != nil {
		id := *m.ProviderMessageID
		c.ProviderMessageID = &id
	}
	return &c
}

func copyEvent(e *domain.DeliveryEvent) *domain.DeliveryEvent {
	c := *e
	if e.MessageID != nil {
		id := *e.MessageID
		c.MessageID = &id
	}
	c.RawPayload = append([]byte(nil), e.RawPayload...)
	return &c
}
