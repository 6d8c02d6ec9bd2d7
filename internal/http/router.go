package httpx

import (
	"log/slog"
	"net/http"

	"github.com/AbheyTiwari/RTC/internal/app"
	"github.com/AbheyTiwari/RTC/internal/relay"
	"github.com/AbheyTiwari/RTC/pkg/metrics"
)

// NewRouter wires up all HTTP routes, middleware, and handlers
func NewRouter(cfg app.Config, logger *slog.Logger, hub *relay.Hub, api *MeetingsAPI) http.Handler {
	mw := NewMiddleware(cfg)

	mux := http.NewServeMux()

	// Health / readiness / metrics
	mux.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/metrics", metrics.Handler())

	// Realtime endpoint; admission happens via ticket
	mux.Handle("/ws", http.HandlerFunc(hub.ServeWS))

	// Meeting endpoints
	mux.Handle("/api/meetings", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			api.Create(w, r)
			return
		}
		http.NotFound(w, r)
	}))
	mux.Handle("GET /api/meetings/{id}", http.HandlerFunc(api.Get))
	mux.Handle("POST /api/meetings/{id}/join", http.HandlerFunc(api.Join))

	// CORS + rate limit applied globally
	return mw.Wrap(mux)
}
