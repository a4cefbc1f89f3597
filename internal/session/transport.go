package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kerry-okpere/ai-video-conferencing/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

// Conn is the part of *websocket.Conn the transport uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// DialFunc opens a signaling connection.
type DialFunc func(ctx context.Context, url string) (Conn, error)

// DialWebsocket returns a DialFunc that connects with gorilla/websocket and
// resolves host names with public DNS when the system resolver fails.
func DialWebsocket() DialFunc {
	dialer := &websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		NetDialContext:   resolvingDial,
	}

	return func(ctx context.Context, url string) (Conn, error) {
		conn, _, err := dialer.DialContext(ctx, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to connect: %w", err)
		}
		conn.SetReadLimit(maxMessageSize)
		return conn, nil
	}
}

func resolvingDial(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	ip := host
	if net.ParseIP(host) == nil {
		ip, err = Lookup(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("dns lookup failed: %w", err)
		}
	}

	var d net.Dialer
	return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
}

// transport serializes writes on one connection. Reads happen only on the
// controller's serve goroutine.
type transport struct {
	conn    Conn
	writeMu sync.Mutex
	closed  atomic.Bool
}

func newTransport(conn Conn) *transport {
	return &transport{conn: conn}
}

func (t *transport) Send(msg any) error {
	if t.closed.Load() {
		return ErrNotConnected
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if ws, ok := t.conn.(*websocket.Conn); ok {
		ws.SetWriteDeadline(time.Now().Add(writeWait))
	}
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.Join(ErrNotConnected, err)
	}
	return nil
}

func (t *transport) Read() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *transport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	return t.conn.Close()
}
