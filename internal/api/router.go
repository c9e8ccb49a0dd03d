package api

import (
	"log/slog"
	"net/http"

	"github.com/Priya8975/email-event-ingestion/internal/engine"
	"github.com/Priya8975/email-event-ingestion/internal/notify"
	"github.com/Priya8975/email-event-ingestion/internal/store"
	ws "github.com/Priya8975/email-event-ingestion/internal/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Deps holds what the router wires into handlers. Store, Ingester and Logger
// are required; the rest may be nil.
type Deps struct {
	Store     store.Store
	Ingester  *engine.Ingester
	Logger    *slog.Logger
	Hub       *ws.Hub
	Fanout    *notify.Fanout
	Breaker   *notify.Breaker
	Redis     *redis.Client
	Limiter   *engine.RateLimiter
	RateLimit int
}

// NewRouter creates and configures the HTTP router.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	webhookHandler := NewWebhookHandler(d.Ingester, d.Logger)
	messageHandler := NewMessageHandler(d.Store, d.Logger)
	eventHandler := NewEventHandler(d.Store)
	statsHandler := NewStatsHandler(d.Store, d.Fanout, d.Breaker, d.Hub)

	// ESP callback endpoint
	r.With(rateLimit(d.Limiter, d.RateLimit)).Post("/webhooks/email-events", webhookHandler.Receive)

	r.Handle("/metrics", promhttp.Handler())

	if d.Hub != nil {
		r.Get("/ws", d.Hub.HandleWebSocket)
	}

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandler(d.Store, d.Redis))

		r.Route("/messages", func(r chi.Router) {
			r.Post("/", messageHandler.Create)
			r.Get("/{id}", messageHandler.Get)
			r.Get("/{id}/events", messageHandler.Events)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", eventHandler.List)
			r.Get("/{id}", eventHandler.Get)
		})

		r.Get("/stats", statsHandler.Stats)
		r.Get("/sinks", statsHandler.Sinks)
	})

	return r
}
