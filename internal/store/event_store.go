package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Priya8975/email-event-ingestion/internal/domain"
	"github.com/jackc/pgx/v5"
)

const eventColumns = `id, provider_event_id, message_id, event_kind, raw_event, recipient, occurred_at, raw_payload, received_at`

func scanEvent(row pgx.Row) (*domain.DeliveryEvent, error) {
	var e domain.DeliveryEvent
	err := row.Scan(
		&e.ID, &e.ProviderEventID, &e.MessageID, &e.EventKind, &e.RawEvent,
		&e.Recipient, &e.OccurredAt, &e.RawPayload, &e.ReceivedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *PostgresStore) EventExists(ctx context.Context, providerEventID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM delivery_events WHERE provider_event_id = $1)",
		providerEventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking event existence: %w", err)
	}
	return exists, nil
}

// RecordEvent inserts the event and, when it is correlated and carries a
// candidate status, advances the message status in the same transaction.
// The status update is a compare-and-set on status_priority so concurrent
// events for one message can only move it forward. A provider_event_id
// conflict returns ErrDuplicateEvent and writes nothing.
func (s *PostgresStore) RecordEvent(ctx context.Context, event *domain.DeliveryEvent, candidate domain.Status) (Transition, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Transition{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO delivery_events (id, provider_event_id, message_id, event_kind, raw_event, recipient, occurred_at, raw_payload, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (provider_event_id) DO NOTHING
		RETURNING received_at
	`, event.ID, event.ProviderEventID, event.MessageID, event.EventKind, event.RawEvent,
		event.Recipient, event.OccurredAt, []byte(event.RawPayload), event.ReceivedAt,
	).Scan(&event.ReceivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
			return Transition{}, ErrDuplicateEvent
		}
		return Transition{}, fmt.Errorf("inserting delivery event: %w", err)
	}

	var tr Transition
	if event.MessageID != nil && candidate.Valid() {
		err = tx.QueryRow(ctx, `
			WITH prev AS (
				SELECT id, status FROM outbound_messages WHERE id = $1 FOR UPDATE
			)
			UPDATE outbound_messages m
			SET status = $2, status_priority = $3, updated_at = NOW()
			FROM prev
			WHERE m.id = prev.id AND m.status_priority < $3
			RETURNING prev.status, m.correlation_id
		`, *event.MessageID, candidate, candidate.Priority()).Scan(&tr.From, &tr.CorrelationID)
		switch {
		case err == nil:
			tr.Applied = true
			tr.To = candidate
		case errors.Is(err, pgx.ErrNoRows):
		default:
			return Transition{}, fmt.Errorf("advancing message status: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return Transition{}, ErrDuplicateEvent
		}
		return Transition{}, fmt.Errorf("committing transaction: %w", err)
	}
	return tr, nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, id string) (*domain.DeliveryEvent, error) {
	e, err := scanEvent(s.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM delivery_events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying event: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, filter EventFilter) ([]domain.DeliveryEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM delivery_events`
	args := []any{}
	argIdx := 1
	conditions := []string{}

	if filter.Unresolved {
		conditions = append(conditions, "message_id IS NULL")
	}
	if filter.Kind != domain.KindUnknown {
		conditions = append(conditions, fmt.Sprintf("event_kind = $%d", argIdx))
		args = append(args, filter.Kind)
		argIdx++
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY received_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Limit)
	}

	return s.queryEvents(ctx, query, args...)
}

func (s *PostgresStore) ListMessageEvents(ctx context.Context, messageID string) ([]domain.DeliveryEvent, error) {
	return s.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM delivery_events
		WHERE message_id = $1
		ORDER BY occurred_at ASC
	`, messageID)
}

func (s *PostgresStore) queryEvents(ctx context.Context, query string, args ...any) ([]domain.DeliveryEvent, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	events := []domain.DeliveryEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}
