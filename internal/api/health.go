package api

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the store, and Redis when configured, are
// reachable. Redis is optional: the service degrades without it, so an
// unreachable Redis is reported but does not fail the check.
func HealthHandler(db pinger, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := HealthResponse{
			Status:  "healthy",
			Version: "1.0.0",
			Checks:  map[string]string{"store": "ok"},
		}
		status := http.StatusOK

		if err := db.Ping(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.Checks["store"] = err.Error()
			status = http.StatusServiceUnavailable
		}

		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				resp.Checks["redis"] = err.Error()
				if resp.Status == "healthy" {
					resp.Status = "degraded"
				}
			} else {
				resp.Checks["redis"] = "ok"
			}
		}

		respondJSON(w, status, resp)
	}
}
