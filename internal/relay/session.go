package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AbheyTiwari/RTC/pkg/metrics"
)

// Session routes one connection's traffic from admission to teardown. All
// of its methods run on the connection's own goroutine.
type Session struct {
	hub     *Hub
	room    string
	id      string
	profile Profile
	link    Link
}

// Join runs the connect sequence: register with the registry, send the
// newcomer its identity and the prior-occupant snapshot, then announce the
// arrival to everyone else (chat notice first, then the user-joined event —
// chat clients and signaling clients consume different message types).
func (h *Hub) Join(room, name, roll string, link Link) *Session {
	id, snap := h.reg.Join(room, name, roll, link)
	s := &Session{
		hub:     h,
		room:    room,
		id:      id,
		profile: Profile{Name: name, Roll: roll},
		link:    link,
	}

	link.Send(encode(connectedMsg{Type: typeConnected, ID: id, Users: snap}))
	h.broadcast(room, id, encode(chatMsg{
		Type:     typeChat,
		Name:     name,
		Message:  name + " has joined the meeting.",
		IsSystem: true,
	}))
	h.broadcast(room, id, encode(userJoinedMsg{Type: typeUserJoined, ID: id, Name: name, Roll: roll}))

	h.trackJoin(room, roll)
	h.log.Info("relay.join", "room", room, "id", id, "name", name, "roll", roll)
	return s
}

// Handle classifies one inbound frame and routes it. Inbound order is
// preserved because every frame of a connection passes through here on the
// same goroutine.
func (s *Session) Handle(raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.hub.log.Debug("relay.bad_frame", "room", s.room, "id", s.id, "err", err)
		return
	}

	switch {
	case env.Type == typeChat:
		// Chat echoes to the whole room, sender included; the chat UI
		// renders its own message from the echo.
		s.hub.broadcast(s.room, "", encode(chatMsg{
			Type:    typeChat,
			Name:    s.profile.Name,
			Message: env.Message,
		}))
		metrics.MessagesRelayed.WithLabelValues("chat").Inc()

	case env.Type != "" && env.To != "":
		// Anything else with a target is an opaque signaling frame
		// (offer/answer/candidate/...). Relay it verbatim apart from the
		// origin stamp.
		out, err := stampFrom(raw, s.id)
		if err != nil {
			s.hub.log.Debug("relay.bad_frame", "room", s.room, "id", s.id, "err", err)
			return
		}
		link, ok := s.hub.reg.Lookup(s.room, env.To)
		if !ok {
			// Expected race: the target disconnected while this frame was
			// in flight. Drop it silently.
			s.hub.log.Debug("relay.target_gone", "room", s.room, "to", env.To)
			return
		}
		link.Send(out)
		metrics.MessagesRelayed.WithLabelValues("signal").Inc()

	default:
		// Untyped or untargeted frames have nowhere to go.
		s.hub.log.Debug("relay.unroutable", "room", s.room, "id", s.id, "type", env.Type)
	}
}

// Close runs the disconnect sequence. Safe to invoke more than once: the
// registry's idempotent Leave makes every call after the first a no-op, so
// racing error paths never double-announce a departure.
func (s *Session) Close() {
	profile, ok := s.hub.reg.Leave(s.room, s.id)
	if !ok {
		return
	}

	s.hub.broadcast(s.room, "", encode(chatMsg{
		Type:     typeChat,
		Name:     profile.Name,
		Message:  profile.Name + " has left the meeting.",
		IsSystem: true,
	}))
	s.hub.broadcast(s.room, "", encode(userLeftMsg{Type: typeUserLeft, ID: s.id}))

	s.hub.trackLeave(s.room, profile.Roll)
	s.hub.log.Info("relay.leave", "room", s.room, "id", s.id, "name", profile.Name)
}

// trackJoin mirrors a join into presence and the occupancy gauges.
func (h *Hub) trackJoin(room, roll string) {
	if h.presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := h.presence.Add(ctx, room, roll); err != nil {
			h.log.Warn("presence.add", "room", room, "roll", roll, "err", err)
		}
	}
	h.updateGauges()
}

// trackLeave mirrors a leave into presence and the occupancy gauges.
func (h *Hub) trackLeave(room, roll string) {
	if h.presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := h.presence.Remove(ctx, room, roll); err != nil {
			h.log.Warn("presence.remove", "room", room, "roll", roll, "err", err)
		}
	}
	h.updateGauges()
}

func (h *Hub) updateGauges() {
	rooms, occupants := h.reg.Counts()
	metrics.RoomsActive.Set(float64(rooms))
	metrics.OccupantsActive.Set(float64(occupants))
}
