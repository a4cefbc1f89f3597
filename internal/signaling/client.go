package signaling

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kerry-okpere/ai-video-conferencing/internal/logging"
)

// Settings tunes the per-connection pumps.
type Settings struct {
	// SendBuffer is the capacity of each client's outbound queue.
	SendBuffer int

	// MaxMessageSize is the largest inbound frame accepted from a peer.
	MaxMessageSize int64

	// WriteWait is the time allowed to write a message to the peer.
	WriteWait time.Duration

	// PongWait is the time allowed to read the next pong from the peer.
	PongWait time.Duration

	// PingPeriod must be less than PongWait.
	PingPeriod time.Duration
}

func DefaultSettings() Settings {
	pongWait := 60 * time.Second
	return Settings{
		SendBuffer:     256,
		MaxMessageSize: 64 * 1024, // enough for SDP with many candidates
		WriteWait:      10 * time.Second,
		PongWait:       pongWait,
		PingPeriod:     (pongWait * 9) / 10,
	}
}

// Client is one websocket connection registered with the hub.
type Client struct {
	// ID is assigned by the Registry on register.
	ID string

	Hub  *Hub
	Conn *websocket.Conn

	// Send is the outbound queue drained by WritePump. It is closed by the
	// Registry on unregister.
	Send chan []byte

	open  atomic.Bool
	ready chan struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		Hub:   hub,
		Conn:  conn,
		Send:  make(chan []byte, hub.settings.SendBuffer),
		ready: make(chan struct{}),
	}
}

// Open reports whether the connection is registered and writable.
func (c *Client) Open() bool {
	return c.open.Load()
}

// enqueue never blocks. Callers must hold the registry lock so Send cannot
// be closed underneath them.
func (c *Client) enqueue(data []byte) bool {
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// ReadPump pumps frames from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. All reads on
// the connection happen here.
func (c *Client) ReadPump() {
	log := c.Hub.log.With(slog.String("client_id", c.ID))
	defer func() {
		c.Hub.Disconnect(c)
		c.Conn.Close()
	}()

	s := c.Hub.settings
	c.Conn.SetReadLimit(s.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(s.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(s.PongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn("websocket closed unexpectedly", logging.Err(err))
			}
			return
		}

		if !c.Hub.Deliver(c, data) {
			return
		}
	}
}

// WritePump pumps queued messages from the hub to the websocket connection
// and keeps it alive with pings. All writes on the connection happen here.
func (c *Client) WritePump() {
	s := c.Hub.settings
	ticker := time.NewTicker(s.PingPeriod)

	defer func() {
		ticker.Stop()
		c.open.Store(false)
		c.Conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(s.WriteWait))
			if !ok {
				// The registry closed the queue.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Hub.log.Debug("write failed", slog.String("client_id", c.ID), logging.Err(err))
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(s.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
