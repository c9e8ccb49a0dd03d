// Command mock-endpoints is a local development helper. By default it
// serves receivers for the webhook notification sink. With the "send"
// argument it posts one signed ESP delivery event to the ingestion service.
package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/Priya8975/email-event-ingestion/internal/domain"
	"github.com/Priya8975/email-event-ingestion/internal/signature"
	"github.com/google/uuid"
)

var requestCount atomic.Int64

func main() {
	if len(os.Args) > 1 && os.Args[1] == "send" {
		if err := sendEvent(); err != nil {
			log.Fatalf("send failed: %v", err)
		}
		return
	}
	serve()
}

func serve() {
	port := getenv("PORT", "9090")
	secret := os.Getenv("NOTIFY_WEBHOOK_SECRET")

	// Successful endpoint: always returns 200
	http.HandleFunc("/webhook/success", func(w http.ResponseWriter, r *http.Request) {
		count := requestCount.Add(1)
		status := receive(r, secret)
		logRequest(r, count, status)
		w.WriteHeader(status)
	})

	// Slow endpoint: delays 3 seconds before responding
	http.HandleFunc("/webhook/slow", func(w http.ResponseWriter, r *http.Request) {
		count := requestCount.Add(1)
		time.Sleep(3 * time.Second)
		status := receive(r, secret)
		logRequest(r, count, status)
		w.WriteHeader(status)
	})

	// Failing endpoint: always returns 500, trips the sink breaker
	http.HandleFunc("/webhook/fail", func(w http.ResponseWriter, r *http.Request) {
		count := requestCount.Add(1)
		logRequest(r, count, http.StatusInternalServerError)
		w.WriteHeader(http.StatusInternalServerError)
	})

	http.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int64{"total_requests": requestCount.Load()})
	})

	log.Printf("Mock endpoint server starting on :%s", port)
	log.Printf("  POST /webhook/success  -> 200 OK")
	log.Printf("  POST /webhook/slow     -> 200 OK (3s delay)")
	log.Printf("  POST /webhook/fail     -> 500 Error")
	log.Printf("  GET  /stats            -> request count")

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// receive checks the sink signature when a secret is configured and prints
// the status change.
func receive(r *http.Request, secret string) int {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return http.StatusBadRequest
	}
	if secret != "" {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		if !hmac.Equal([]byte(hex.EncodeToString(mac.Sum(nil))), []byte(r.Header.Get("X-Webhook-Signature"))) {
			return http.StatusUnauthorized
		}
	}

	var change domain.StatusChange
	if err := json.Unmarshal(body, &change); err != nil {
		return http.StatusBadRequest
	}
	fmt.Printf("    message=%s %s -> %s (%s)\n", change.MessageID, change.From, change.To, change.EventKind)
	return http.StatusOK
}

func logRequest(r *http.Request, count int64, status int) {
	fmt.Printf("[#%d] %s %s -> %d | sig=%s event=%s id=%s\n",
		count,
		r.Method,
		r.URL.Path,
		status,
		truncate(r.Header.Get("X-Webhook-Signature"), 16),
		r.Header.Get("X-Webhook-Event"),
		truncate(r.Header.Get("X-Webhook-ID"), 8),
	)
}

// sendEvent posts a signed event built from EVENT, CORRELATION_ID,
// MESSAGE_ID, RECIPIENT and SUBJECT to TARGET_URL.
func sendEvent() error {
	target := getenv("TARGET_URL", "http://localhost:8080/webhooks/email-events")
	key := os.Getenv("WEBHOOK_SIGNING_KEY")
	if key == "" {
		return fmt.Errorf("WEBHOOK_SIGNING_KEY is required")
	}

	now := time.Now()
	stamp := strconv.FormatInt(now.Unix(), 10)
	token := uuid.NewString()

	body, err := json.Marshal(map[string]any{
		"signature": map[string]any{
			"timestamp": stamp,
			"token":     token,
			"signature": signature.Sign(key, stamp, token),
		},
		"event-data": map[string]any{
			"event":     getenv("EVENT", "delivered"),
			"id":        getenv("EVENT_ID", uuid.NewString()),
			"timestamp": float64(now.UnixNano()) / 1e9,
			"recipient": os.Getenv("RECIPIENT"),
			"message": map[string]any{
				"headers": map[string]string{
					"message-id":       os.Getenv("MESSAGE_ID"),
					"x-correlation-id": os.Getenv("CORRELATION_ID"),
					"subject":          os.Getenv("SUBJECT"),
				},
			},
		},
	})
	if err != nil {
		return err
	}

	resp, err := http.Post(target, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("%d %s\n", resp.StatusCode, bytes.TrimSpace(respBody))
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
