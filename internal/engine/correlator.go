package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Priya8975/email-event-ingestion/internal/domain"
	"github.com/Priya8975/email-event-ingestion/internal/metrics"
)

// Heuristic window around the event timestamp. Providers log events after
// the send, so the look-back is wider than the look-ahead.
const (
	HeuristicLookBack  = 5 * time.Minute
	HeuristicLookAhead = 1 * time.Minute
)

// Strategy names the correlation tier that matched.
type Strategy string

const (
	StrategyNone              Strategy = "none"
	StrategyProviderMessageID Strategy = "provider_message_id"
	StrategyCorrelationID     Strategy = "correlation_id"
	StrategyHeuristic         Strategy = "heuristic"
)

// MessageLookup is the read side of the message store plus the one write
// the correlator performs. Find methods return (nil, nil) on a miss.
type MessageLookup interface {
	FindByProviderMessageID(ctx context.Context, providerMessageID string) (*domain.OutboundMessage, error)
	FindByCorrelationID(ctx context.Context, correlationID string) (*domain.OutboundMessage, error)
	FindRecentByRecipientSubject(ctx context.Context, recipient, subject string, from, to time.Time) (*domain.OutboundMessage, error)
	BackfillProviderMessageID(ctx context.Context, messageID, providerMessageID string) (bool, error)
}

// CorrelationInput carries the identifiers an event offers, as received.
type CorrelationInput struct {
	MessageIDHeader string
	CorrelationID   string
	Recipient       string
	Subject         string
	OccurredAt      time.Time
}

type Resolution struct {
	Message    *domain.OutboundMessage
	Strategy   Strategy
	Backfilled bool
}

func (r Resolution) Resolved() bool {
	return r.Message != nil
}

// Correlator resolves delivery events to outbound messages with a strictly
// ordered cascade. The first strategy that matches wins.
type Correlator struct {
	messages MessageLookup
	logger   *slog.Logger
}

func NewCorrelator(messages MessageLookup, logger *slog.Logger) *Correlator {
	return &Correlator{messages: messages, logger: logger}
}

// StripAngleBrackets removes a single surrounding pair of < and >.
func StripAngleBrackets(id string) string {
	id = strings.TrimSpace(id)
	if len(id) >= 2 && id[0] == '<' && id[len(id)-1] == '>' {
		return id[1 : len(id)-1]
	}
	return id
}

// Correlate runs the cascade. An unresolved event is not an error: the
// returned Resolution simply has no Message.
func (c *Correlator) Correlate(ctx context.Context, in CorrelationInput) (Resolution, error) {
	providerID := StripAngleBrackets(in.MessageIDHeader)

	res, err := c.correlate(ctx, in, providerID)
	if err != nil {
		return Resolution{}, err
	}
	metrics.Correlations.WithLabelValues(string(res.Strategy)).Inc()
	return res, nil
}

func (c *Correlator) correlate(ctx context.Context, in CorrelationInput, providerID string) (Resolution, error) {
	if providerID != "" {
		msg, err := c.byProviderMessageID(ctx, providerID)
		if err != nil {
			return Resolution{}, err
		}
		if msg != nil {
			return Resolution{Message: msg, Strategy: StrategyProviderMessageID}, nil
		}
	}

	if correlationID := strings.TrimSpace(in.CorrelationID); correlationID != "" {
		msg, err := c.messages.FindByCorrelationID(ctx, correlationID)
		if err != nil {
			return Resolution{}, fmt.Errorf("correlating by correlation id: %w", err)
		}
		if msg != nil {
			return c.backfill(ctx, Resolution{Message: msg, Strategy: StrategyCorrelationID}, providerID)
		}
	}

	if in.Recipient != "" && in.Subject != "" {
		msg, err := c.messages.FindRecentByRecipientSubject(ctx, in.Recipient, in.Subject,
			in.OccurredAt.Add(-HeuristicLookBack), in.OccurredAt.Add(HeuristicLookAhead))
		if err != nil {
			return Resolution{}, fmt.Errorf("correlating by recipient and subject: %w", err)
		}
		if msg != nil {
			return c.backfill(ctx, Resolution{Message: msg, Strategy: StrategyHeuristic}, providerID)
		}
	}

	return Resolution{Strategy: StrategyNone}, nil
}

// byProviderMessageID tries the stripped id, then once more with the
// brackets put back, since providers echo the header inconsistently.
func (c *Correlator) byProviderMessageID(ctx context.Context, providerID string) (*domain.OutboundMessage, error) {
	for _, candidate := range []string{providerID, "<" + providerID + ">"} {
		msg, err := c.messages.FindByProviderMessageID(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("correlating by provider message id: %w", err)
		}
		if msg != nil {
			return msg, nil
		}
	}
	return nil, nil
}

func (c *Correlator) backfill(ctx context.Context, res Resolution, providerID string) (Resolution, error) {
	if providerID == "" || res.Message.HasProviderMessageID() {
		return res, nil
	}

	ok, err := c.messages.BackfillProviderMessageID(ctx, res.Message.ID, providerID)
	if err != nil {
		return Resolution{}, fmt.Errorf("backfilling provider message id: %w", err)
	}
	if ok {
		id := providerID
		res.Message.ProviderMessageID = &id
		res.Backfilled = true
		metrics.Backfills.Inc()
		c.logger.Debug("backfilled provider message id",
			"message_id", res.Message.ID,
			"provider_message_id", providerID,
			"strategy", res.Strategy,
		)
	}
	return res, nil
}
