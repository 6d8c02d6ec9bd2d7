package relay

import (
	"context"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

const (
	outBuffer  = 256
	pingPeriod = 20 * time.Second
)

// Link is the send half of a connection as the registry sees it. Sends are
// best-effort: a false return means the frame was dropped, never that the
// caller should abort.
type Link interface {
	Send(b []byte) bool
}

// Conn wraps one occupant's websocket.
type Conn struct {
	ws  *websocket.Conn
	out chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

// Accept upgrades HTTP to websocket (allow all origins)
func Accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{
		ws:     ws,
		out:    make(chan []byte, outBuffer),
		closed: make(chan struct{}),
	}
}

// Send enqueues a frame without blocking. Frames to a closed connection, or
// to a peer that has stopped draining its queue, are dropped.
func (c *Conn) Send(b []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.out <- b:
		return true
	default:
		return false
	}
}

// Read blocks until the next text/binary frame. Returns false once the
// connection is gone; any transport error means the session is over.
func (c *Conn) Read(ctx context.Context) ([]byte, bool) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return nil, false
		}
		if typ == websocket.MessageText || typ == websocket.MessageBinary {
			return data, true
		}
	}
}

// WriteLoop drains the outbound queue and keeps the socket alive with pings
// Exits when the connection closes or ctx is cancelled
func (c *Conn) WriteLoop(ctx context.Context) {
	t := time.NewTicker(pingPeriod)
	defer t.Stop()

	for {
		select {
		case b := <-c.out:
			_ = c.ws.Write(ctx, websocket.MessageText, b)
		case <-t.C:
			_ = c.ws.Ping(ctx)
		case <-c.closed:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Close tears the socket down exactly once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.ws.Close(websocket.StatusNormalClosure, "bye")
	})
}
