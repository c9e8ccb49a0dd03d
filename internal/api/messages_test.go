package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Priya8975/email-event-ingestion/internal/domain"
	"github.com/Priya8975/email-event-ingestion/internal/store"
)

type failingStore struct {
	*store.MemoryStore
}

func (f *failingStore) RecordEvent(context.Context, *domain.DeliveryEvent, domain.Status) (store.Transition, error) {
	return store.Transition{}, errors.New("connection reset")
}

func (f *failingStore) Ping(context.Context) error {
	return errors.New("connection refused")
}

func do(h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateMessage(t *testing.T) {
	st := store.NewMemory()
	h := newTestRouter(t, st)

	rec := do(h, http.MethodPost, "/api/v1/messages/",
		[]byte(`{"recipient":"a@x.com","subject":"Hi","provider_message_id":"<p1@esp>"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp domain.CreateMessageResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID == "" || resp.CorrelationID == "" {
		t.Fatalf("expected generated ids, got %+v", resp)
	}
	if resp.CorrelationHeader != domain.CorrelationHeader {
		t.Errorf("expected header %q, got %q", domain.CorrelationHeader, resp.CorrelationHeader)
	}

	msg, err := st.GetMessage(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if msg.Status != domain.StatusAttempted {
		t.Errorf("expected attempted, got %s", msg.Status)
	}
	if !msg.HasProviderMessageID() || *msg.ProviderMessageID != "p1@esp" {
		t.Errorf("provider id should be stored without brackets, got %v", msg.ProviderMessageID)
	}
}

func TestCreateMessage_Validation(t *testing.T) {
	h := newTestRouter(t, store.NewMemory())

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{`},
		{name: "missing recipient", body: `{"subject":"Hi"}`},
		{name: "blank recipient", body: `{"recipient":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodPost, "/api/v1/messages/", []byte(tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestCreateMessage_DuplicateCorrelationID(t *testing.T) {
	h := newTestRouter(t, store.NewMemory())
	body := []byte(`{"recipient":"a@x.com","correlation_id":"c-1"}`)

	if rec := do(h, http.MethodPost, "/api/v1/messages/", body); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/v1/messages/", body); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestGetMessage(t *testing.T) {
	st := store.NewMemory()
	seedMessage(t, st, "m1", "c1")
	h := newTestRouter(t, st)

	rec := do(h, http.MethodGet, "/api/v1/messages/m1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var msg domain.OutboundMessage
	json.NewDecoder(rec.Body).Decode(&msg)
	if msg.CorrelationID != "c1" {
		t.Errorf("expected c1, got %s", msg.CorrelationID)
	}

	rec = do(h, http.MethodGet, "/api/v1/messages/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestMessageEvents(t *testing.T) {
	st := store.NewMemory()
	seedMessage(t, st, "m1", "c1")
	h := newTestRouter(t, st)

	for _, ev := range []struct{ id, kind string }{{"e-1", "accepted"}, {"e-2", "delivered"}} {
		rec := postWebhook(h, bytes.NewReader(webhookBody(t, testKey, ev.id, ev.kind,
			map[string]any{"x-correlation-id": "c1"})))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", ev.id, rec.Code)
		}
	}

	rec := do(h, http.MethodGet, "/api/v1/messages/m1/events", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var events []domain.DeliveryEvent
	json.NewDecoder(rec.Body).Decode(&events)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	rec = do(h, http.MethodGet, "/api/v1/messages/missing/events", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestListEvents(t *testing.T) {
	st := store.NewMemory()
	seedMessage(t, st, "m1", "c1")
	h := newTestRouter(t, st)

	postWebhook(h, bytes.NewReader(webhookBody(t, testKey, "e-1", "delivered",
		map[string]any{"x-correlation-id": "c1"})))
	postWebhook(h, bytes.NewReader(webhookBody(t, testKey, "e-2", "opened",
		map[string]any{"x-correlation-id": "nobody"})))

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "all", query: "", want: 2},
		{name: "unresolved", query: "?unresolved=true", want: 1},
		{name: "by kind", query: "?kind=delivered", want: 1},
		{name: "limit", query: "?limit=1", want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodGet, "/api/v1/events/"+tt.query, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			var events []domain.DeliveryEvent
			json.NewDecoder(rec.Body).Decode(&events)
			if len(events) != tt.want {
				t.Errorf("expected %d events, got %d", tt.want, len(events))
			}
		})
	}

	if rec := do(h, http.MethodGet, "/api/v1/events/?unresolved=maybe", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad boolean, got %d", rec.Code)
	}
}

func TestGetEvent(t *testing.T) {
	st := store.NewMemory()
	h := newTestRouter(t, st)
	postWebhook(h, bytes.NewReader(webhookBody(t, testKey, "e-1", "delivered", nil)))

	events, _ := st.ListEvents(context.Background(), store.EventFilter{})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	rec := do(h, http.MethodGet, "/api/v1/events/"+events[0].ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"provider_event_id":"e-1"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}

	if rec := do(h, http.MethodGet, "/api/v1/events/nope", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
