package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Priya8975/email-event-ingestion/internal/domain"
	"github.com/jackc/pgx/v5"
)

const messageColumns = `id, correlation_id, provider_message_id, recipient, subject, sent_at, status, created_at, updated_at`

func scanMessage(row pgx.Row) (*domain.OutboundMessage, error) {
	var msg domain.OutboundMessage
	err := row.Scan(
		&msg.ID, &msg.CorrelationID, &msg.ProviderMessageID, &msg.Recipient,
		&msg.Subject, &msg.SentAt, &msg.Status, &msg.CreatedAt, &msg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// findOne runs a single-row message lookup. A miss is (nil, nil).
func (s *PostgresStore) findOne(ctx context.Context, what, query string, args ...any) (*domain.OutboundMessage, error) {
	msg, err := scanMessage(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying message by %s: %w", what, err)
	}
	return msg, nil
}

func (s *PostgresStore) CreateMessage(ctx context.Context, msg *domain.OutboundMessage) error {
	if msg.Status == "" {
		msg.Status = domain.StatusAttempted
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO outbound_messages (id, correlation_id, provider_message_id, recipient, subject, sent_at, status, status_priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, msg.ID, msg.CorrelationID, msg.ProviderMessageID, msg.Recipient, msg.Subject,
		msg.SentAt, msg.Status, msg.Status.Priority(),
	).Scan(&msg.CreatedAt, &msg.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateMessage
		}
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMessage(ctx context.Context, id string) (*domain.OutboundMessage, error) {
	msg, err := s.findOne(ctx, "id", `SELECT `+messageColumns+` FROM outbound_messages WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrNotFound
	}
	return msg, nil
}

// FindByProviderMessageID returns the newest message carrying the given
// provider message id. The column is not unique, so ties go to sent_at.
func (s *PostgresStore) FindByProviderMessageID(ctx context.Context, providerMessageID string) (*domain.OutboundMessage, error) {
	return s.findOne(ctx, "provider message id", `
		SELECT `+messageColumns+`
		FROM outbound_messages
		WHERE provider_message_id = $1
		ORDER BY sent_at DESC
		LIMIT 1
	`, providerMessageID)
}

func (s *PostgresStore) FindByCorrelationID(ctx context.Context, correlationID string) (*domain.OutboundMessage, error) {
	return s.findOne(ctx, "correlation id",
		`SELECT `+messageColumns+` FROM outbound_messages WHERE correlation_id = $1`, correlationID)
}

// FindRecentByRecipientSubject returns the most recently sent message to
// recipient with exactly this subject and sent_at within [from, to].
func (s *PostgresStore) FindRecentByRecipientSubject(ctx context.Context, recipient, subject string, from, to time.Time) (*domain.OutboundMessage, error) {
	return s.findOne(ctx, "recipient and subject", `
		SELECT `+messageColumns+`
		FROM outbound_messages
		WHERE recipient = $1
		  AND subject = $2
		  AND sent_at >= $3
		  AND sent_at <= $4
		ORDER BY sent_at DESC
		LIMIT 1
	`, recipient, subject, from, to)
}

// BackfillProviderMessageID sets provider_message_id only if it is still
// unset. It reports whether a row was changed.
func (s *PostgresStore) BackfillProviderMessageID(ctx context.Context, messageID, providerMessageID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE outbound_messages
		SET provider_message_id = $2, updated_at = NOW()
		WHERE id = $1 AND provider_message_id IS NULL
	`, messageID, providerMessageID)
	if err != nil {
		return false, fmt.Errorf("backfilling provider message id: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
