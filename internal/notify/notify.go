// Package notify publishes applied message status changes to downstream
// consumers. Publishing is best effort and never affects webhook handling.
package notify

import (
	"context"
	"log/slog"

	"github.com/Priya8975/email-event-ingestion/internal/domain"
	"github.com/Priya8975/email-event-ingestion/internal/metrics"
)

// Sink is one destination for status changes.
type Sink interface {
	Name() string
	Send(ctx context.Context, change domain.StatusChange) error
}

// Fanout sends each status change to every sink, skipping sinks whose
// breaker is open. A failing sink does not stop the others.
type Fanout struct {
	sinks   []Sink
	breaker *Breaker
	logger  *slog.Logger
}

// NewFanout builds a fan-out over sinks. breaker may be nil.
func NewFanout(sinks []Sink, breaker *Breaker, logger *slog.Logger) *Fanout {
	return &Fanout{sinks: sinks, breaker: breaker, logger: logger}
}

func (f *Fanout) Sinks() []string {
	names := make([]string, 0, len(f.sinks))
	for _, s := range f.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Dispatch delivers change to all sinks and returns how many accepted it.
func (f *Fanout) Dispatch(ctx context.Context, change domain.StatusChange) int {
	delivered := 0
	for _, sink := range f.sinks {
		name := sink.Name()

		if f.breaker != nil {
			if state, ok := f.breaker.Allow(ctx, name); !ok {
				metrics.NotificationsSent.WithLabelValues(name, "skipped").Inc()
				f.logger.Debug("skipping sink", "sink", name, "breaker", state)
				continue
			}
		}

		if err := sink.Send(ctx, change); err != nil {
			metrics.NotificationsSent.WithLabelValues(name, "error").Inc()
			if f.breaker != nil {
				f.breaker.Failure(ctx, name)
			}
			f.logger.Warn("status change notification failed",
				"sink", name,
				"message_id", change.MessageID,
				"to", change.To,
				"error", err,
			)
			continue
		}

		metrics.NotificationsSent.WithLabelValues(name, "ok").Inc()
		if f.breaker != nil {
			f.breaker.Success(ctx, name)
		}
		delivered++
	}
	return delivered
}
