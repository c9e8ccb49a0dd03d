package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Priya8975/email-event-ingestion/internal/domain"
	"github.com/Priya8975/email-event-ingestion/internal/metrics"
	"github.com/Priya8975/email-event-ingestion/internal/signature"
	"github.com/Priya8975/email-event-ingestion/internal/store"
	"github.com/google/uuid"
)

// Outcome is the terminal state of one webhook request.
type Outcome string

const (
	OutcomeDisabled            Outcome = "disabled"
	OutcomeUnauthenticated     Outcome = "unauthenticated"
	OutcomeStale               Outcome = "stale"
	OutcomeDuplicate           Outcome = "duplicate"
	OutcomeUnknownEvent        Outcome = "unknown_event"
	OutcomeMalformedEvent      Outcome = "malformed_event"
	OutcomeProcessedUnresolved Outcome = "processed_unresolved"
	OutcomeProcessedResolved   Outcome = "processed_resolved"
	OutcomeInternalError       Outcome = "internal_error"
)

// HTTPStatus maps the outcome to the response code sent to the ESP. Only
// internal errors invite a retry.
func (o Outcome) HTTPStatus() int {
	switch o {
	case OutcomeDisabled, OutcomeUnauthenticated, OutcomeStale:
		return http.StatusForbidden
	case OutcomeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

// Message is the human-readable response text.
func (o Outcome) Message() string {
	switch o {
	case OutcomeDisabled:
		return "email events are disabled"
	case OutcomeUnauthenticated:
		return "invalid signature"
	case OutcomeStale:
		return "stale request"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeUnknownEvent:
		return "unknown event ignored"
	case OutcomeMalformedEvent:
		return "malformed event ignored"
	case OutcomeProcessedUnresolved:
		return "event recorded, message not found"
	case OutcomeProcessedResolved:
		return "event processed"
	default:
		return "internal error"
	}
}

// EventStore is the idempotent write side used by the ingester.
type EventStore interface {
	EventExists(ctx context.Context, providerEventID string) (bool, error)
	RecordEvent(ctx context.Context, event *domain.DeliveryEvent, candidate domain.Status) (store.Transition, error)
}

type Store interface {
	MessageLookup
	EventStore
}

// Deduper is an optional fast-path cache of processed provider event ids.
type Deduper interface {
	Seen(ctx context.Context, providerEventID string) (bool, error)
	MarkSeen(ctx context.Context, providerEventID string) (bool, error)
}

// Notifier receives applied status changes. Submit must not block; an
// error means the change was dropped.
type Notifier interface {
	Submit(change domain.StatusChange) error
}

// Result describes what happened to one webhook request.
type Result struct {
	Outcome         Outcome
	ProviderEventID string
	EventID         string
	MessageID       string
	Strategy        Strategy
	Transition      store.Transition
	Err             error
}

// Ingester runs the webhook state machine: authenticate, deduplicate,
// classify, correlate, persist and advance the message status.
type Ingester struct {
	verifier   *signature.Verifier
	store      Store
	correlator *Correlator
	dedup      Deduper
	notifier   Notifier
	enabled    bool
	logger     *slog.Logger
	now        func() time.Time
}

type IngesterOption func(*Ingester)

func WithDedup(d Deduper) IngesterOption {
	return func(i *Ingester) { i.dedup = d }
}

func WithNotifier(n Notifier) IngesterOption {
	return func(i *Ingester) { i.notifier = n }
}

func WithEnabled(enabled bool) IngesterOption {
	return func(i *Ingester) { i.enabled = enabled }
}

func WithIngestClock(now func() time.Time) IngesterOption {
	return func(i *Ingester) {
		if now != nil {
			i.now = now
		}
	}
}

func NewIngester(verifier *signature.Verifier, st Store, logger *slog.Logger, opts ...IngesterOption) *Ingester {
	i := &Ingester{
		verifier:   verifier,
		store:      st,
		correlator: NewCorrelator(st, logger),
		enabled:    true,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Enabled reports whether webhook processing is switched on. Callers check
// it before reading the request body.
func (i *Ingester) Enabled() bool {
	return i.enabled
}

// Ingest processes one raw webhook body.
func (i *Ingester) Ingest(ctx context.Context, body []byte) Result {
	if !i.enabled {
		return Result{Outcome: OutcomeDisabled}
	}

	var req domain.WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		i.logger.Warn("rejecting unparseable webhook", "error", err)
		return Result{Outcome: OutcomeUnauthenticated}
	}

	sig := req.Signature
	switch i.verifier.Check(ctx, sig.Timestamp.Raw, sig.Token, sig.Signature) {
	case signature.Invalid:
		i.logger.Warn("rejecting webhook with invalid signature")
		return Result{Outcome: OutcomeUnauthenticated}
	case signature.Stale:
		i.logger.Warn("rejecting stale webhook", "timestamp", sig.Timestamp.Raw)
		return Result{Outcome: OutcomeStale}
	}

	var data domain.EventData
	if err := json.Unmarshal(req.EventData, &data); err != nil || strings.TrimSpace(data.ID) == "" {
		i.logger.Warn("ignoring webhook without a usable event-data id", "error", err)
		return Result{Outcome: OutcomeMalformedEvent}
	}
	providerEventID := strings.TrimSpace(data.ID)
	res := Result{ProviderEventID: providerEventID}

	dup, err := i.isDuplicate(ctx, providerEventID)
	if err != nil {
		return i.fail(res, err)
	}
	if dup {
		res.Outcome = OutcomeDuplicate
		return res
	}

	kind := MapEventKind(data.Event)
	if !kind.Known() {
		i.logger.Info("ignoring unknown event kind",
			"provider_event_id", providerEventID,
			"event", data.Event,
		)
		res.Outcome = OutcomeUnknownEvent
		return res
	}

	occurredAt, ok := data.Timestamp.Time()
	if !ok {
		occurredAt = i.now().UTC()
	}

	resolution, err := i.correlator.Correlate(ctx, CorrelationInput{
		MessageIDHeader: data.Message.Headers.MessageID,
		CorrelationID:   data.Message.Headers.CorrelationID,
		Recipient:       data.Recipient,
		Subject:         data.Message.Headers.Subject,
		OccurredAt:      occurredAt,
	})
	if err != nil {
		return i.fail(res, err)
	}
	res.Strategy = resolution.Strategy

	event := &domain.DeliveryEvent{
		ID:              uuid.NewString(),
		ProviderEventID: providerEventID,
		EventKind:       kind,
		RawEvent:        normalizeEvent(data.Event),
		Recipient:       data.Recipient,
		OccurredAt:      occurredAt,
		RawPayload:      req.EventData,
		ReceivedAt:      i.now().UTC(),
	}

	var candidate domain.Status
	if resolution.Resolved() {
		id := resolution.Message.ID
		event.MessageID = &id
		res.MessageID = id
		candidate = CandidateStatus(data.Event, kind)
	}

	tr, err := i.store.RecordEvent(ctx, event, candidate)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEvent) {
			res.Outcome = OutcomeDuplicate
			return res
		}
		return i.fail(res, fmt.Errorf("recording event: %w", err))
	}
	res.EventID = event.ID
	res.Transition = tr

	i.markSeen(ctx, providerEventID)

	if !resolution.Resolved() {
		i.logger.Info("recorded unresolved event",
			"provider_event_id", providerEventID,
			"event_kind", kind,
		)
		res.Outcome = OutcomeProcessedUnresolved
		return res
	}

	if tr.Applied {
		metrics.StatusTransitions.WithLabelValues(string(tr.From), string(tr.To)).Inc()
		i.notify(domain.StatusChange{
			MessageID:       res.MessageID,
			CorrelationID:   tr.CorrelationID,
			ProviderEventID: providerEventID,
			EventKind:       kind,
			From:            tr.From,
			To:              tr.To,
			OccurredAt:      occurredAt,
		})
	}

	i.logger.Info("processed event",
		"provider_event_id", providerEventID,
		"message_id", res.MessageID,
		"strategy", resolution.Strategy,
		"backfilled", resolution.Backfilled,
		"candidate_status", candidate,
		"status_applied", tr.Applied,
	)
	res.Outcome = OutcomeProcessedResolved
	return res
}

// isDuplicate consults the Redis fast path, then the event store. Redis
// trouble is logged and treated as a miss.
func (i *Ingester) isDuplicate(ctx context.Context, providerEventID string) (bool, error) {
	if i.dedup != nil {
		seen, err := i.dedup.Seen(ctx, providerEventID)
		if err != nil {
			i.logger.Warn("dedup lookup failed, falling back to store", "error", err)
		} else if seen {
			return true, nil
		}
	}

	exists, err := i.store.EventExists(ctx, providerEventID)
	if err != nil {
		return false, fmt.Errorf("checking for duplicate event: %w", err)
	}
	return exists, nil
}

func (i *Ingester) markSeen(ctx context.Context, providerEventID string) {
	if i.dedup == nil {
		return
	}
	if _, err := i.dedup.MarkSeen(ctx, providerEventID); err != nil {
		i.logger.Warn("dedup mark failed", "error", err, "provider_event_id", providerEventID)
	}
}

func (i *Ingester) notify(change domain.StatusChange) {
	if i.notifier == nil {
		return
	}
	if err := i.notifier.Submit(change); err != nil {
		metrics.NotificationsDropped.Inc()
		i.logger.Warn("dropping status change notification",
			"error", err,
			"message_id", change.MessageID,
			"to", change.To,
		)
	}
}

func (i *Ingester) fail(res Result, err error) Result {
	res.Outcome = OutcomeInternalError
	res.Err = err
	return res
}
