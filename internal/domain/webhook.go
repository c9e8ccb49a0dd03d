package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// WebhookRequest is the body the ESP posts to the events endpoint.
type WebhookRequest struct {
	Signature WebhookSignature `json:"signature"`
	EventData json.RawMessage  `json:"event-data"`
}

type WebhookSignature struct {
	Timestamp Timestamp `json:"timestamp"`
	Token     string    `json:"token"`
	Signature string    `json:"signature"`
}

type EventData struct {
	Event      string          `json:"event"`
	ID         string          `json:"id"`
	Timestamp  Timestamp       `json:"timestamp"`
	Recipient  string          `json:"recipient,omitempty"`
	Severity   string          `json:"severity,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	URL        string          `json:"url,omitempty"`
	Message    EventMessage    `json:"message"`
	ClientInfo EventClientInfo `json:"client-info"`
}

type EventMessage struct {
	Headers EventHeaders `json:"headers"`
}

type EventHeaders struct {
	MessageID     string `json:"message-id,omitempty"`
	CorrelationID string `json:"x-correlation-id,omitempty"`
	Subject       string `json:"subject,omitempty"`
}

type EventClientInfo struct {
	ClientIP   string `json:"client-ip,omitempty"`
	ClientType string `json:"client-type,omitempty"`
}

// Timestamp keeps the textual form of a unix timestamp exactly as the ESP
// sent it. The signature is computed over that text, so it must not be
// re-formatted. Both JSON numbers and JSON strings are accepted.
type Timestamp struct {
	Raw string
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		t.Raw = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		t.Raw = strings.TrimSpace(s)
		return nil
	}
	t.Raw = string(data)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Raw == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseFloat(t.Raw, 64); err == nil {
		return []byte(t.Raw), nil
	}
	return json.Marshal(t.Raw)
}

// Time parses the timestamp as (possibly fractional) unix seconds.
func (t Timestamp) Time() (time.Time, bool) {
	if t.Raw == "" {
		return time.Time{}, false
	}
	f, err := strconv.ParseFloat(t.Raw, 64)
	if err != nil || math.IsNaN(f) || f >= math.MaxInt64 || f <= math.MinInt64 {
		return time.Time{}, false
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}

// UnixTimestamp builds a Timestamp from a time, truncated to whole seconds.
func UnixTimestamp(t time.Time) Timestamp {
	return Timestamp{Raw: strconv.FormatInt(t.Unix(), 10)}
}
