package relay

import (
	"encoding/json"
	"sync"
	"testing"
)

// fakeLink records every frame it is asked to deliver, in order.
type fakeLink struct {
	mu     sync.Mutex
	frames []map[string]any
}

func (f *fakeLink) Send(b []byte) bool {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return false
	}
	f.mu.Lock()
	f.frames = append(f.frames, m)
	f.mu.Unlock()
	return true
}

func (f *fakeLink) all() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.frames...)
}

func (f *fakeLink) ofType(typ string) []map[string]any {
	var out []map[string]any
	for _, m := range f.all() {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeLink) reset() {
	f.mu.Lock()
	f.frames = nil
	f.mu.Unlock()
}

func newTestHub() *Hub {
	log := testLogger()
	return NewHub(log, NewRegistry(log), nil, nil)
}

func TestConnectSequence(t *testing.T) {
	hub := newTestHub()

	alice := &fakeLink{}
	sa := hub.Join("math", "Alice", "01", alice)

	// First joiner: connected with an empty occupant set, nothing else.
	frames := alice.all()
	if len(frames) != 1 || frames[0]["type"] != typeConnected {
		t.Fatalf("expected a single connected frame, got %v", frames)
	}
	if frames[0]["id"] != sa.id {
		t.Errorf("connected frame carries wrong id: %v", frames[0]["id"])
	}
	if users := frames[0]["users"].(map[string]any); len(users) != 0 {
		t.Errorf("first joiner should see an empty room, got %v", users)
	}

	bob := &fakeLink{}
	sb := hub.Join("math", "Bob", "02", bob)

	// Bob sees Alice in his snapshot.
	bframes := bob.all()
	if len(bframes) != 1 || bframes[0]["type"] != typeConnected {
		t.Fatalf("expected only a connected frame for bob, got %v", bframes)
	}
	users := bframes[0]["users"].(map[string]any)
	if len(users) != 1 {
		t.Fatalf("bob should see exactly alice, got %v", users)
	}
	prior := users[sa.id].(map[string]any)
	if prior["name"] != "Alice" || prior["roll"] != "01" {
		t.Errorf("snapshot labels wrong: %v", prior)
	}

	// Alice gets the chat notice first, then the user-joined event.
	aframes := alice.all()
	if len(aframes) != 3 {
		t.Fatalf("alice should have connected+chat+user-joined, got %v", aframes)
	}
	chat := aframes[1]
	if chat["type"] != typeChat || chat["isSystem"] != true {
		t.Fatalf("expected system chat second, got %v", chat)
	}
	if chat["message"] != "Bob has joined the meeting." {
		t.Errorf("unexpected join notice: %v", chat["message"])
	}
	joined := aframes[2]
	if joined["type"] != typeUserJoined || joined["id"] != sb.id || joined["name"] != "Bob" || joined["roll"] != "02" {
		t.Errorf("unexpected user-joined frame: %v", joined)
	}

	// Bob never hears about his own arrival.
	if got := bob.ofType(typeUserJoined); len(got) != 0 {
		t.Errorf("joiner received its own user-joined: %v", got)
	}
}

func TestChatEcho(t *testing.T) {
	hub := newTestHub()

	alice, bob := &fakeLink{}, &fakeLink{}
	hub.Join("room", "Alice", "01", alice)
	sb := hub.Join("room", "Bob", "02", bob)
	alice.reset()
	bob.reset()

	sb.Handle([]byte(`{"type":"chat-message","message":"hello"}`))

	for who, link := range map[string]*fakeLink{"alice": alice, "bob": bob} {
		chats := link.ofType(typeChat)
		if len(chats) != 1 {
			t.Fatalf("%s: expected one chat frame, got %v", who, link.all())
		}
		c := chats[0]
		if c["name"] != "Bob" || c["message"] != "hello" || c["isSystem"] != false {
			t.Errorf("%s: unexpected chat frame %v", who, c)
		}
	}
}

func TestSignalingSpoofResistance(t *testing.T) {
	hub := newTestHub()

	alice, bob := &fakeLink{}, &fakeLink{}
	sa := hub.Join("room", "Alice", "01", alice)
	sb := hub.Join("room", "Bob", "02", bob)
	alice.reset()
	bob.reset()

	sb.Handle([]byte(`{"type":"offer","to":"` + sa.id + `","from":"mallory","sdp":"v=0"}`))

	offers := alice.ofType("offer")
	if len(offers) != 1 {
		t.Fatalf("alice should receive the offer, got %v", alice.all())
	}
	o := offers[0]
	if o["from"] != sb.id {
		t.Errorf("from must be the real sender %s, got %v", sb.id, o["from"])
	}
	if o["sdp"] != "v=0" {
		t.Errorf("payload must pass through unmodified, got %v", o["sdp"])
	}
	if got := bob.ofType("offer"); len(got) != 0 {
		t.Errorf("targeted frame must reach only the target, bob saw %v", got)
	}
}

func TestDanglingTargetDroppedSilently(t *testing.T) {
	hub := newTestHub()

	alice, bob := &fakeLink{}, &fakeLink{}
	sa := hub.Join("room", "Alice", "01", alice)
	sb := hub.Join("room", "Bob", "02", bob)

	gone := sa.id
	sa.Close()
	alice.reset()
	bob.reset()

	sb.Handle([]byte(`{"type":"candidate","to":"` + gone + `","candidate":"c"}`))

	if len(alice.all()) != 0 || len(bob.all()) != 0 {
		t.Errorf("frame to a departed identity must reach no one: alice=%v bob=%v",
			alice.all(), bob.all())
	}
}

func TestUntypedAndUntargetedFramesIgnored(t *testing.T) {
	hub := newTestHub()

	alice, bob := &fakeLink{}, &fakeLink{}
	hub.Join("room", "Alice", "01", alice)
	sb := hub.Join("room", "Bob", "02", bob)
	alice.reset()
	bob.reset()

	sb.Handle([]byte(`not json at all`))
	sb.Handle([]byte(`{"message":"no type"}`))
	sb.Handle([]byte(`{"type":"offer","sdp":"v=0"}`)) // signaling without a target

	if len(alice.all()) != 0 || len(bob.all()) != 0 {
		t.Errorf("unroutable frames must be dropped: alice=%v bob=%v", alice.all(), bob.all())
	}
}

func TestDisconnectSequence(t *testing.T) {
	hub := newTestHub()

	alice, bob := &fakeLink{}, &fakeLink{}
	sa := hub.Join("room", "Alice", "01", alice)
	sb := hub.Join("room", "Bob", "02", bob)
	alice.reset()
	bob.reset()

	sb.Close()

	frames := alice.all()
	if len(frames) != 2 {
		t.Fatalf("alice should get chat then user-left, got %v", frames)
	}
	if frames[0]["type"] != typeChat || frames[0]["message"] != "Bob has left the meeting." || frames[0]["isSystem"] != true {
		t.Errorf("unexpected departure notice: %v", frames[0])
	}
	if frames[1]["type"] != typeUserLeft || frames[1]["id"] != sb.id {
		t.Errorf("unexpected user-left frame: %v", frames[1])
	}

	// Double close is a no-op: no duplicate departure broadcast.
	alice.reset()
	sb.Close()
	if got := alice.all(); len(got) != 0 {
		t.Errorf("second close must not re-broadcast, got %v", got)
	}

	// Last occupant out reclaims the room.
	sa.Close()
	if rooms, _ := hub.reg.Counts(); rooms != 0 {
		t.Errorf("room should be reclaimed after the last leave")
	}
}

// The end-to-end walk from the room "algebra-101": two joins, a chat, a
// targeted offer, a disconnect, reclamation.
func TestScenarioAlgebra101(t *testing.T) {
	hub := newTestHub()

	a := &fakeLink{}
	sa := hub.Join("algebra-101", "A", "a-roll", a)

	if users := a.all()[0]["users"].(map[string]any); len(users) != 0 {
		t.Fatalf("A should get an empty snapshot, got %v", users)
	}

	b := &fakeLink{}
	sb := hub.Join("algebra-101", "B", "b-roll", b)

	snap := b.all()[0]["users"].(map[string]any)
	if prior, ok := snap[sa.id].(map[string]any); !ok || prior["name"] != "A" {
		t.Fatalf("B's snapshot should contain A's labels, got %v", snap)
	}
	if joined := a.ofType(typeUserJoined); len(joined) != 1 || joined[0]["id"] != sb.id {
		t.Fatalf("A should see user-joined for B, got %v", joined)
	}
	if chats := a.ofType(typeChat); len(chats) != 1 || chats[0]["message"] != "B has joined the meeting." {
		t.Fatalf("A should see B's join notice, got %v", chats)
	}

	a.reset()
	b.reset()

	sb.Handle([]byte(`{"type":"chat-message","message":"hello"}`))
	for who, l := range map[string]*fakeLink{"A": a, "B": b} {
		chats := l.ofType(typeChat)
		if len(chats) != 1 || chats[0]["name"] != "B" || chats[0]["isSystem"] != false {
			t.Fatalf("%s should receive B's chat, got %v", who, l.all())
		}
	}

	a.reset()
	b.reset()

	sa.Handle([]byte(`{"type":"offer","to":"` + sb.id + `","sdp":"v=0"}`))
	offers := b.ofType("offer")
	if len(offers) != 1 || offers[0]["from"] != sa.id {
		t.Fatalf("B should receive the offer stamped from A, got %v", b.all())
	}

	a.reset()
	sb.Close()

	frames := a.all()
	if len(frames) != 2 || frames[0]["message"] != "B has left the meeting." || frames[1]["id"] != sb.id {
		t.Fatalf("A should see B's departure notice then user-left, got %v", frames)
	}

	sa.Close()
	if rooms, occs := hub.reg.Counts(); rooms != 0 || occs != 0 {
		t.Fatalf("algebra-101 should no longer exist, rooms=%d occupants=%d", rooms, occs)
	}
}
