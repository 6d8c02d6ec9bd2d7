package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/AbheyTiwari/RTC/internal/presence"
	"github.com/AbheyTiwari/RTC/internal/store"
	"github.com/AbheyTiwari/RTC/pkg/auth"
)

type MeetingsAPI struct {
	DB       *store.Postgres
	Presence *presence.Tracker
	Tickets  *auth.Tickets
}

type createMeetingReq struct {
	Name     string `json:"name"`
	Passcode string `json:"passcode"`
}

type meetingResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	HasPasscode   bool      `json:"hasPasscode"`
	CreatedAt     time.Time `json:"createdAt"`
	LiveOccupants int64     `json:"liveOccupants,omitempty"`
}

type joinReq struct {
	Name     string `json:"name"`
	Roll     string `json:"roll"`
	Passcode string `json:"passcode"`
}

type ticketResp struct {
	Ticket string `json:"ticket"`
	Room   string `json:"room"`
}

// Create handles new meeting creation.
func (a *MeetingsAPI) Create(w http.ResponseWriter, r *http.Request) {
	var req createMeetingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	hash := ""
	if req.Passcode != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(req.Passcode), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hash = string(b)
	}

	m, err := a.DB.CreateMeeting(r.Context(), req.Name, hash)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, meetingResponse{ID: m.ID, Name: m.Name, HasPasscode: hash != "", CreatedAt: m.CreatedAt})
}

// Get returns meeting info plus the current live occupant count.
func (a *MeetingsAPI) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}

	m, err := a.DB.GetMeeting(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "meeting not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	count, _ := a.Presence.Count(r.Context(), m.ID)
	writeJSON(w, meetingResponse{
		ID: m.ID, Name: m.Name, HasPasscode: m.PasscodeHash != "",
		CreatedAt: m.CreatedAt, LiveOccupants: count,
	})
}

// Join admits a participant: the meeting must exist, the passcode must
// match when set, and the roll number must not already be connected. On
// success the participant gets a short-lived ticket for /ws.
func (a *MeetingsAPI) Join(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}

	var req joinReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Roll = strings.TrimSpace(req.Roll)
	if req.Name == "" || req.Roll == "" {
		http.Error(w, "name and roll required", http.StatusBadRequest)
		return
	}

	m, err := a.DB.GetMeeting(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "meeting not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if m.PasscodeHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(m.PasscodeHash), []byte(req.Passcode)) != nil {
			http.Error(w, "wrong passcode", http.StatusForbidden)
			return
		}
	}

	live, err := a.Presence.Live(r.Context(), m.ID, req.Roll)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if live {
		http.Error(w, "roll number already in the meeting", http.StatusConflict)
		return
	}

	if _, err := a.DB.AddParticipant(r.Context(), m.ID, req.Name, req.Roll); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	tok, err := a.Tickets.Sign(auth.Ticket{Room: m.ID, Name: req.Name, Roll: req.Roll})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, ticketResp{Ticket: tok, Room: m.ID})
}

// send JSON with proper headers
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
