package api

import (
	"net/http"

	"github.com/Priya8975/email-event-ingestion/internal/notify"
	"github.com/Priya8975/email-event-ingestion/internal/store"
	ws "github.com/Priya8975/email-event-ingestion/internal/websocket"
)

type StatsHandler struct {
	store   store.Store
	fanout  *notify.Fanout
	breaker *notify.Breaker
	hub     *ws.Hub
}

func NewStatsHandler(s store.Store, fanout *notify.Fanout, breaker *notify.Breaker, hub *ws.Hub) *StatsHandler {
	return &StatsHandler{store: s, fanout: fanout, breaker: breaker, hub: hub}
}

type StatsResponse struct {
	*store.Stats
	WebSocketClients int `json:"websocket_clients"`
}

// Stats returns aggregate counts for messages and delivery events.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	resp := StatsResponse{Stats: stats}
	if h.hub != nil {
		resp.WebSocketClients = h.hub.ClientCount()
	}
	respondJSON(w, http.StatusOK, resp)
}

type SinkHealth struct {
	Name    string              `json:"name"`
	Breaker notify.BreakerState `json:"breaker"`
}

// Sinks returns the circuit breaker state of every notification sink.
func (h *StatsHandler) Sinks(w http.ResponseWriter, r *http.Request) {
	result := []SinkHealth{}
	if h.fanout == nil {
		respondJSON(w, http.StatusOK, result)
		return
	}

	for _, name := range h.fanout.Sinks() {
		state := notify.BreakerState{State: notify.StateClosed}
		if h.breaker != nil {
			state = h.breaker.State(r.Context(), name)
		}
		result = append(result, SinkHealth{Name: name, Breaker: state})
	}
	respondJSON(w, http.StatusOK, result)
}
