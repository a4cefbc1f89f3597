package signaling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kerry-okpere/ai-video-conferencing/internal/logging"
	"github.com/kerry-okpere/ai-video-conferencing/internal/protocol"
)

// Hub is the central brain of the signaling server. A single goroutine
// (Run) applies every connect, disconnect and inbound message in order.
type Hub struct {
	clients *Registry
	rooms   *Rooms

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	done       chan struct{}

	handlers map[string]handlerFunc
	settings Settings
	log      *slog.Logger
}

type inbound struct {
	client *Client
	data   []byte
}

type handlerFunc func(c *Client, msg *protocol.Message)

type Option func(*Hub)

func WithLogger(log *slog.Logger) Option {
	return func(h *Hub) {
		h.log = log
	}
}

func WithSettings(s Settings) Option {
	return func(h *Hub) {
		h.settings = s
	}
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound),
		done:       make(chan struct{}),
		settings:   DefaultSettings(),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.log = h.log.With(slog.String("component", "hub"))
	h.clients = NewRegistry(h.log)
	h.rooms = NewRooms()
	h.handlers = map[string]handlerFunc{
		protocol.TypeCreateRoom: h.createRoom,
		protocol.TypeJoinRoom:   h.joinRoom,
	}

	return h
}

func (h *Hub) Rooms() *Rooms {
	return h.rooms
}

func (h *Hub) Clients() *Registry {
	return h.clients
}

func (h *Hub) Settings() Settings {
	return h.settings
}

// Connect hands a new connection to the hub and waits until it has been
// registered and welcomed. It returns false once the hub has stopped.
func (h *Hub) Connect(c *Client) bool {
	select {
	case h.register <- c:
	case <-h.done:
		return false
	}

	select {
	case <-c.ready:
		return true
	case <-h.done:
		return false
	}
}

// Disconnect queues the client for removal. Safe to call more than once.
func (h *Hub) Disconnect(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Deliver queues one raw inbound frame. It returns false once the hub has
// stopped.
func (h *Hub) Deliver(c *Client, data []byte) bool {
	select {
	case h.inbound <- inbound{client: c, data: data}:
		return true
	case <-h.done:
		return false
	}
}

// Run processes hub events until ctx is cancelled. On exit every client's
// queue is closed so the write pumps hang up.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.clients.CloseAll()
	}()

	for {
		select {
		case <-ctx.Done():
			h.log.Info("hub stopped")
			return

		case c := <-h.register:
			h.connect(c)

		case c := <-h.unregister:
			h.disconnect(c)

		case in := <-h.inbound:
			h.handle(in.client, in.data)
		}
	}
}

func (h *Hub) connect(c *Client) {
	defer close(c.ready)

	id := h.clients.Register(c)
	count := h.clients.Count()
	h.log.Info("client connected", slog.String("client_id", id), slog.Int("connected", count))

	h.clients.Send(id, protocol.NewWelcome(id, h.rooms.IDs(), count))
}

func (h *Hub) disconnect(c *Client) {
	if !h.clients.Unregister(c.ID) {
		return
	}
	h.log.Info("client disconnected", slog.String("client_id", c.ID))

	for _, roomID := range h.rooms.RemoveParticipant(c.ID) {
		h.log.Info("room closed", slog.String("room_id", roomID))
		h.clients.Broadcast("", protocol.NewRoomClosed(roomID))
	}

	h.clients.Broadcast("", protocol.NewPeerDisconnected(c.ID))
}

// handle applies one inbound frame. A failing message never stops the hub.
func (h *Hub) handle(c *Client, data []byte) {
	log := h.log.With(slog.String("client_id", c.ID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while handling message", logging.Err(fmt.Errorf("%v", r)))
		}
	}()

	typ, err := protocol.PeekType(data)
	if err != nil {
		log.Warn("dropping malformed message", logging.Err(err))
		return
	}

	log.Debug("message received", slog.String("type", typ))

	handler, ok := h.handlers[typ]
	if !ok {
		h.relay(c, typ, data)
		return
	}

	// Only room requests are decoded; relayed records pass through as-is.
	msg, err := protocol.Decode(data)
	if err != nil {
		log.Warn("dropping malformed message", slog.String("type", typ), logging.Err(err))
		h.clients.Send(c.ID, protocol.NewError(err.Error()))
		return
	}
	handler(c, msg)
}

func (h *Hub) createRoom(c *Client, msg *protocol.Message) {
	room, err := h.rooms.Create(msg.RoomID, c.ID, msg.Username)
	if err != nil {
		h.log.Info("room create rejected", slog.String("room_id", msg.RoomID), logging.Err(err))
		h.clients.Send(c.ID, protocol.NewError(err.Error()))
		return
	}

	h.log.Info("room created", slog.String("room_id", room.ID), slog.String("client_id", c.ID))

	h.clients.Send(c.ID, protocol.NewRoomCreated(room.ID, room.Participants))
	h.clients.Broadcast(c.ID, protocol.NewNewRoom(room.ID))
}

func (h *Hub) joinRoom(c *Client, msg *protocol.Message) {
	room, err := h.rooms.Join(msg.RoomID, c.ID, msg.Username)
	if err != nil {
		h.log.Info("room join rejected", slog.String("room_id", msg.RoomID), logging.Err(err))
		h.clients.Send(c.ID, protocol.NewError(joinErrorMessage(msg.RoomID, err)))
		return
	}

	h.log.Info("client joined room", slog.String("room_id", room.ID), slog.String("client_id", c.ID))

	h.clients.Send(c.ID, protocol.NewJoinedRoom(room.ID))
	h.clients.Broadcast("", protocol.NewNewParticipant(room.ID, room.Participants))
}

// relay forwards any other record to every other connection with "from"
// set to the sender.
func (h *Hub) relay(c *Client, typ string, raw []byte) {
	if !h.clients.Has(c.ID) {
		return
	}

	stamped, err := protocol.Stamp(raw, c.ID)
	if err != nil {
		h.log.Warn("dropping unrelayable message", slog.String("client_id", c.ID), logging.Err(err))
		return
	}

	h.log.Debug("relaying message", slog.String("type", typ), slog.String("from", c.ID))
	h.clients.BroadcastRaw(c.ID, stamped)
}

func joinErrorMessage(roomID string, err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrRoomFull):
		return fmt.Sprintf("%s: %s", err, roomID)
	default:
		return err.Error()
	}
}
