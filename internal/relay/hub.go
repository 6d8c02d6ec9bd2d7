package relay

import (
	"log/slog"
	"net/http"

	"github.com/AbheyTiwari/RTC/internal/presence"
	"github.com/AbheyTiwari/RTC/pkg/auth"
)

// Hub owns the registry and turns admitted websocket connections into
// running sessions.
type Hub struct {
	log      *slog.Logger
	reg      *Registry
	presence *presence.Tracker // nil disables the redis mirror (tests)
	tickets  *auth.Tickets
}

// NewHub sets up the hub around a registry.
func NewHub(logger *slog.Logger, reg *Registry, pres *presence.Tracker, tickets *auth.Tickets) *Hub {
	return &Hub{log: logger, reg: reg, presence: pres, tickets: tickets}
}

// Registry exposes the occupancy state for read-only callers.
func (h *Hub) Registry() *Registry { return h.reg }

// ServeWS handles a new /ws connection. The ticket carries the room and the
// participant's labels; the admission endpoint already validated both, so
// the relay performs no checks of its own.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	tk, err := h.tickets.Verify(r.URL.Query().Get("ticket"))
	if err != nil {
		http.Error(w, "invalid ticket", http.StatusUnauthorized)
		return
	}

	ws, err := Accept(w, r)
	if err != nil {
		h.log.Error("ws.accept", "err", err)
		return
	}

	ctx := r.Context()
	c := NewConn(ws)
	go c.WriteLoop(ctx)

	s := h.Join(tk.Room, tk.Name, tk.Roll, c)
	defer func() {
		s.Close()
		c.Close()
	}()

	for {
		raw, ok := c.Read(ctx)
		if !ok {
			// Any transport error ends the session; no read is retried.
			return
		}
		s.Handle(raw)
	}
}

// broadcast fans a frame out to every occupant of a room, minus except when
// non-empty. A recipient whose connection is gone or stalled is skipped;
// delivery is best-effort, never atomic.
func (h *Hub) broadcast(room, except string, frame []byte) {
	for _, ep := range h.reg.ConnectionsExcept(room, except) {
		if !ep.Link.Send(frame) {
			h.log.Debug("relay.send_drop", "room", room, "id", ep.ID)
		}
	}
}
