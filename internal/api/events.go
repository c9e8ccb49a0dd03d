package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Priya8975/email-event-ingestion/internal/domain"
	"github.com/Priya8975/email-event-ingestion/internal/store"
	"github.com/go-chi/chi/v5"
)

type EventHandler struct {
	store store.Store
}

func NewEventHandler(s store.Store) *EventHandler {
	return &EventHandler{store: s}
}

// List returns recorded delivery events, newest first. ?unresolved=true
// restricts to events that never matched an outbound message.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.EventFilter{
		Kind:  domain.EventKind(r.URL.Query().Get("kind")),
		Limit: queryLimit(r, 50, 500),
	}
	if s := r.URL.Query().Get("unresolved"); s != "" {
		unresolved, err := strconv.ParseBool(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "unresolved must be a boolean")
			return
		}
		filter.Unresolved = unresolved
	}

	events, err := h.store.ListEvents(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	respondJSON(w, http.StatusOK, events)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.store.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "event not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	respondJSON(w, http.StatusOK, event)
}
