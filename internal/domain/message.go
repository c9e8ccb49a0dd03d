package domain

import (
	"time"
)

// CorrelationHeader is the custom header the send path writes on every
// outbound message. The ESP echoes it back as "x-correlation-id".
const CorrelationHeader = "X-Correlation-ID"

type OutboundMessage struct {
	ID                string    `json:"id"`
	CorrelationID     string    `json:"correlation_id"`
	ProviderMessageID *string   `json:"provider_message_id,omitempty"`
	Recipient         string    `json:"recipient"`
	Subject           string    `json:"subject"`
	SentAt            time.Time `json:"sent_at"`
	Status            Status    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// HasProviderMessageID reports whether the ESP identifier has been learned yet.
func (m *OutboundMessage) HasProviderMessageID() bool {
	return m.ProviderMessageID != nil && *m.ProviderMessageID != ""
}

type CreateMessageRequest struct {
	Recipient         string     `json:"recipient"`
	Subject           string     `json:"subject"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
	CorrelationID     string     `json:"correlation_id,omitempty"`
	ProviderMessageID string     `json:"provider_message_id,omitempty"`
}

type CreateMessageResponse struct {
	ID                string `json:"id"`
	CorrelationID     string `json:"correlation_id"`
	CorrelationHeader string `json:"correlation_header"`
}
