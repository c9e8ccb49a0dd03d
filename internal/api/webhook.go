package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Priya8975/email-event-ingestion/internal/engine"
	"github.com/Priya8975/email-event-ingestion/internal/metrics"
	"github.com/go-chi/chi/v5/middleware"
)

const maxWebhookBody = 1 << 20

// WebhookHandler receives ESP delivery event callbacks.
type WebhookHandler struct {
	ingester *engine.Ingester
	logger   *slog.Logger
}

func NewWebhookHandler(ingester *engine.Ingester, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{ingester: ingester, logger: logger}
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := h.logger.With("request_id", middleware.GetReqID(r.Context()))

	// The body is not read at all while the feature is off.
	if !h.ingester.Enabled() {
		h.respond(w, logger, start, engine.Result{Outcome: engine.OutcomeDisabled}, nil)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn("webhook body too large", "limit", maxWebhookBody)
			respondJSON(w, http.StatusRequestEntityTooLarge, messageResponse{Message: "payload too large"})
			return
		}
		h.respond(w, logger, start, engine.Result{Outcome: engine.OutcomeInternalError, Err: err}, body)
		return
	}

	res := h.ingester.Ingest(r.Context(), body)
	h.respond(w, logger, start, res, body)
}

func (h *WebhookHandler) respond(w http.ResponseWriter, logger *slog.Logger, start time.Time, res engine.Result, body []byte) {
	outcome := string(res.Outcome)
	metrics.WebhookOutcomes.WithLabelValues(outcome).Inc()
	metrics.WebhookDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if res.Outcome == engine.OutcomeInternalError {
		logger.Error("email event ingestion failed",
			"error", res.Err,
			"provider_event_id", res.ProviderEventID,
			"payload", string(body),
		)
	} else {
		logger.Debug("email event handled",
			"outcome", outcome,
			"provider_event_id", res.ProviderEventID,
			"message_id", res.MessageID,
		)
	}

	respondJSON(w, res.Outcome.HTTPStatus(), messageResponse{Message: res.Outcome.Message()})
}
