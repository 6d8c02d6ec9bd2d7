package relay

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Registry is the single source of truth for room occupancy. A room exists
// exactly while it has occupants: it appears on the first join and is
// reclaimed synchronously with the last leave.
//
// One mutex guards every room. Join/leave churn and room sizes are small, so
// coarse locking is correct and cheap; nothing network-bound ever runs under
// the lock.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]map[string]*occupant
	log   *slog.Logger
}

type occupant struct {
	profile Profile
	link    Link
}

// Endpoint pairs an occupant identity with its live connection for fanout.
type Endpoint struct {
	ID   string
	Link Link
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{rooms: map[string]map[string]*occupant{}, log: log}
}

// Join inserts a new occupant under a freshly allocated identity and returns
// it together with the room as it stood before the insert, so the joining
// client sees everyone already present and never itself.
func (r *Registry) Join(room, name, roll string, link Link) (string, map[string]Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()

	occ := r.rooms[room]
	if occ == nil {
		occ = map[string]*occupant{}
		r.rooms[room] = occ
	}

	snap := make(map[string]Profile, len(occ))
	for id, o := range occ {
		snap[id] = o.profile
	}

	id := uuid.NewString()
	for occ[id] != nil {
		// Identity allocation is self-managed, so a collision is an
		// implementation fault, not user input. Reallocate and keep going.
		r.log.Error("registry.identity_collision", "room", room, "id", id)
		id = uuid.NewString()
	}
	occ[id] = &occupant{profile: Profile{Name: name, Roll: roll}, link: link}
	return id, snap
}

// Leave removes an occupant and reclaims the room when it empties. Removing
// an identity that is not present is a no-op: concurrent error paths may
// both try to tear the same session down. The removed occupant's metadata is
// returned so the caller can still compose a departure notification.
func (r *Registry) Leave(room, id string) (Profile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	occ := r.rooms[room]
	o, ok := occ[id]
	if !ok {
		return Profile{}, false
	}
	delete(occ, id)
	if len(occ) == 0 {
		delete(r.rooms, room)
	}
	return o.profile, true
}

// Snapshot returns an independent copy of a room's occupant metadata.
func (r *Registry) Snapshot(room string) map[string]Profile {
	r.mu.Lock()
	defer r.mu.Unlock()

	occ := r.rooms[room]
	snap := make(map[string]Profile, len(occ))
	for id, o := range occ {
		snap[id] = o.profile
	}
	return snap
}

// ConnectionsExcept copies out a room's live connections, skipping except
// when non-empty. Callers fan out after the lock is released.
func (r *Registry) ConnectionsExcept(room, except string) []Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	occ := r.rooms[room]
	eps := make([]Endpoint, 0, len(occ))
	for id, o := range occ {
		if except != "" && id == except {
			continue
		}
		eps = append(eps, Endpoint{ID: id, Link: o.link})
	}
	return eps
}

// Lookup resolves one occupant's connection for targeted delivery.
func (r *Registry) Lookup(room, id string) (Link, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.rooms[room][id]
	if !ok {
		return nil, false
	}
	return o.link, true
}

// Counts reports the number of live rooms and occupants across all rooms.
func (r *Registry) Counts() (rooms, occupants int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, occ := range r.rooms {
		occupants += len(occ)
	}
	return len(r.rooms), occupants
}

// Occupants reports how many occupants a single room currently holds.
func (r *Registry) Occupants(room string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[room])
}
