package relay

import "encoding/json"

// Profile is the client-supplied presentation metadata for one occupant.
// Names are display-only; roll numbers are unique among the live occupants
// of a room, enforced at admission time before the socket ever opens.
type Profile struct {
	Name string `json:"name"`
	Roll string `json:"roll"`
}

// Server-originated message types. Anything else arriving from a client is
// treated as an opaque signaling frame and routed by its "to" field.
const (
	typeConnected  = "connected"
	typeUserJoined = "user-joined"
	typeUserLeft   = "user-left"
	typeChat       = "chat-message"
)

// connectedMsg is sent once to a newly joined client: its assigned identity
// plus everyone who was already in the room.
type connectedMsg struct {
	Type  string             `json:"type"`
	ID    string             `json:"id"`
	Users map[string]Profile `json:"users"`
}

type userJoinedMsg struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
	Roll string `json:"roll"`
}

type userLeftMsg struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type chatMsg struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Message  string `json:"message"`
	IsSystem bool   `json:"isSystem"`
}

// envelope is the minimal inbound peek: just enough to classify a frame
// without disturbing the rest of the payload.
type envelope struct {
	Type    string `json:"type"`
	To      string `json:"to"`
	Message string `json:"message"`
}

// encode marshals a server message. The shapes above cannot fail to marshal.
func encode(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

// stampFrom rewrites the origin of a signaling frame before relay. Any
// sender-supplied "from" is overwritten, so peers cannot spoof each other.
func stampFrom(raw []byte, id string) ([]byte, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	m["from"] = id
	return json.Marshal(m)
}
