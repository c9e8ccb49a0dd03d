package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Priya8975/email-event-ingestion/internal/domain"
	"github.com/Priya8975/email-event-ingestion/internal/engine"
	"github.com/Priya8975/email-event-ingestion/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// MessageHandler is the registration API used by the outbound send path.
type MessageHandler struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewMessageHandler(s store.Store, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{store: s, logger: logger, now: time.Now}
}

func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Recipient = strings.TrimSpace(req.Recipient)
	if req.Recipient == "" {
		respondError(w, http.StatusBadRequest, "recipient is required")
		return
	}

	msg := &domain.OutboundMessage{
		ID:            uuid.NewString(),
		CorrelationID: strings.TrimSpace(req.CorrelationID),
		Recipient:     req.Recipient,
		Subject:       req.Subject,
		SentAt:        h.now().UTC(),
		Status:        domain.StatusAttempted,
	}
	if msg.CorrelationID == "" {
		msg.CorrelationID = uuid.NewString()
	}
	if req.SentAt != nil {
		msg.SentAt = req.SentAt.UTC()
	}
	if id := engine.StripAngleBrackets(req.ProviderMessageID); id != "" {
		msg.ProviderMessageID = &id
	}

	if err := h.store.CreateMessage(r.Context(), msg); err != nil {
		if errors.Is(err, store.ErrDuplicateMessage) {
			respondError(w, http.StatusConflict, "correlation_id already registered")
			return
		}
		h.logger.Error("creating message failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create message")
		return
	}

	respondJSON(w, http.StatusCreated, domain.CreateMessageResponse{
		ID:                msg.ID,
		CorrelationID:     msg.CorrelationID,
		CorrelationHeader: domain.CorrelationHeader,
	})
}

func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	msg, err := h.store.GetMessage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "message not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get message")
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

// Events returns the message's delivery events in occurrence order.
func (h *MessageHandler) Events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.store.GetMessage(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "message not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get message")
		return
	}

	events, err := h.store.ListMessageEvents(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	respondJSON(w, http.StatusOK, events)
}
