// Package relay forwards Airtable webhook deliveries to the OxiForms server
// with the shared webhook secret attached.
package relay

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/parisxmas/OxiDB/OxiForms/internal/handler"
	"github.com/parisxmas/OxiDB/OxiForms/internal/middleware"
)

const (
	WebhookPath  = "/api/webhooks/airtable"
	maxBodyBytes = 1 << 20
)

// Hop-by-hop headers are meaningful for a single connection only.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
	"Content-Length",
	"Host",
}

type Relay struct {
	target string
	secret string
	client *http.Client
}

// New builds a relay posting to target+WebhookPath. A nil client gets a
// 30 second timeout.
func New(target, secret string, client *http.Client) *Relay {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Relay{target: target, secret: secret, client: client}
}

func (rl *Relay) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.Tracing)
	r.Use(middleware.Logger)
	r.Use(middleware.CORS([]string{"*"}))

	r.Post("/webhook", rl.Forward)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"message": "Webhook relay is running",
			"target":  rl.target,
		})
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message":  "OxiForms webhook relay",
			"endpoint": "/webhook",
			"target":   rl.target,
		})
	})
	return r
}

// Forward relays one delivery and mirrors the backend's status and body.
func (rl *Relay) Forward(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid webhook payload"})
		return
	}
	slog.InfoContext(r.Context(), "webhook received", slog.Int("bytes", len(body)))

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, rl.target+WebhookPath, bytes.NewReader(body))
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "proxy error", "message": err.Error()})
		return
	}
	req.Header = r.Header.Clone()
	for _, h := range hopHeaders {
		req.Header.Del(h)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(handler.WebhookSecretHeader, rl.secret)
	otel.GetTextMapPropagator().Inject(r.Context(), propagation.HeaderCarrier(req.Header))

	resp, err := rl.client.Do(req)
	if err != nil {
		slog.ErrorContext(r.Context(), "webhook forward failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "proxy error", "message": err.Error()})
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		slog.WarnContext(r.Context(), "copy backend response", slog.String("error", err.Error()))
	}
	slog.InfoContext(r.Context(), "webhook forwarded", slog.Int("status", resp.StatusCode))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
