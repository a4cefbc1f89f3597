// Package session owns a call client's lifecycle: the signaling transport
// with its reconnection policy, room selection, and the glue that feeds
// signaling messages into a negotiation.Machine.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/kerry-okpere/ai-video-conferencing/internal/logging"
	"github.com/kerry-okpere/ai-video-conferencing/internal/negotiation"
	"github.com/kerry-okpere/ai-video-conferencing/internal/protocol"
	"github.com/kerry-okpere/ai-video-conferencing/internal/rtc"
)

const (
	DefaultMaxReconnectAttempts = 3
	DefaultReconnectDelay       = 3 * time.Second
)

// Peer is a peer connection that can also carry the control channel.
// *rtc.Peer implements it.
type Peer interface {
	negotiation.PeerConnection
	OpenControl() error
	OnPeerHello(f func(rtc.Hello))
}

// PeerFactory builds a fresh, cold peer connection for each call.
type PeerFactory func() (Peer, error)

type ActionKind int

const (
	ActionCreate ActionKind = iota
	ActionJoin
)

// Action is what the UI offers the user: join a known room or create one.
type Action struct {
	Kind   ActionKind
	RoomID string
}

// SelectAction joins the first known room, or creates one when none is
// known.
func SelectAction(rooms []string) Action {
	if len(rooms) > 0 {
		return Action{Kind: ActionJoin, RoomID: rooms[0]}
	}
	return Action{Kind: ActionCreate}
}

type Options struct {
	URL      string
	Username string

	// Room forces joining this room instead of SelectAction. With Create it
	// is the id requested for the new room.
	Room   string
	Create bool

	// AutoCall starts a call as soon as the first welcome arrives.
	AutoCall bool

	MaxReconnectAttempts int
	ReconnectDelay       time.Duration

	Dial    DialFunc
	NewPeer PeerFactory
	OnEvent func(Event)
	Logger  *slog.Logger
}

type role int

const (
	roleNone role = iota
	roleCreator
	roleJoiner
)

// Controller drives one client. Run it once; it is not reusable.
type Controller struct {
	opts   Options
	log    *slog.Logger
	events *eventQueue

	mu           sync.Mutex
	conn         *transport
	status       Status
	attempts     int
	clientID     string
	rooms        []string
	roomID       string
	role         role
	peerID       string
	participants []protocol.Participant
	peer         Peer
	machine      *negotiation.Machine
	generation   int
	started      bool
}

func New(opts Options) (*Controller, error) {
	if opts.URL == "" {
		return nil, errors.New("session: url is required")
	}
	if opts.NewPeer == nil {
		return nil, errors.New("session: peer factory is required")
	}
	if opts.Dial == nil {
		opts.Dial = DialWebsocket()
	}
	if opts.MaxReconnectAttempts < 0 {
		opts.MaxReconnectAttempts = 0
	}
	if opts.ReconnectDelay < 0 {
		opts.ReconnectDelay = 0
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Controller{
		opts:   opts,
		log:    opts.Logger.With(slog.String("component", "session")),
		events: newEventQueue(opts.OnEvent),
	}, nil
}

// Run connects and keeps reconnecting until ctx is cancelled or the
// reconnection budget is spent. The budget is never refilled, so after the
// last allowed reconnect any further drop is terminal.
func (c *Controller) Run(ctx context.Context) error {
	done := make(chan struct{})
	eventsDone := make(chan struct{})
	go func() {
		c.events.run(done)
		close(eventsDone)
	}()
	defer func() {
		close(done)
		<-eventsDone
	}()

	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("session: controller already ran")
	}
	c.started = true
	err := c.preparePeerLocked()
	c.mu.Unlock()
	if err != nil {
		return err
	}
	defer c.teardown()

	for {
		err := c.serve(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.transportClosed()

		c.mu.Lock()
		if c.attempts >= c.opts.MaxReconnectAttempts {
			c.mu.Unlock()
			c.setStatus(StatusDisconnected, fmt.Errorf("%w: %w", ErrReconnectionExhausted, err))
			return ErrReconnectionExhausted
		}
		c.attempts++
		attempt := c.attempts
		c.mu.Unlock()

		c.log.Info("signaling connection lost, reconnecting",
			slog.Int("attempt", attempt),
			slog.Int("max", c.opts.MaxReconnectAttempts),
			logging.Err(err),
		)
		c.setStatus(StatusReconnecting, err)

		timer := time.NewTimer(c.opts.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Attempts reports how many reconnects have been made.
func (c *Controller) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Rooms returns the known room ids in the order they were learned.
func (c *Controller) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.rooms)
}

func (c *Controller) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

// NegotiationState reports the current call's machine state.
func (c *Controller) NegotiationState() negotiation.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.machine == nil {
		return negotiation.StateClosed
	}
	return c.machine.State()
}

// Action is the room choice the UI should offer right now.
func (c *Controller) Action() Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.actionLocked()
}

func (c *Controller) actionLocked() Action {
	switch {
	case c.opts.Create:
		return Action{Kind: ActionCreate, RoomID: c.opts.Room}
	case c.opts.Room != "":
		return Action{Kind: ActionJoin, RoomID: c.opts.Room}
	default:
		return SelectAction(c.rooms)
	}
}

// StartCall performs the current Action.
func (c *Controller) StartCall() error {
	c.mu.Lock()
	action := c.actionLocked()
	c.mu.Unlock()

	return c.perform(action)
}

func (c *Controller) perform(action Action) error {
	switch action.Kind {
	case ActionJoin:
		return c.Send(protocol.NewJoinRoom(action.RoomID, c.opts.Username))
	default:
		return c.Send(protocol.NewCreateRoom(action.RoomID, c.opts.Username))
	}
}

// Hangup ends the current call and prepares a fresh peer connection.
func (c *Controller) Hangup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hangupLocked("local hangup")
}

// Send writes one record to the signaling server. It returns ErrNotConnected
// while the transport is down.
func (c *Controller) Send(msg any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	return conn.Send(msg)
}

func (c *Controller) serve(ctx context.Context) error {
	c.setStatus(StatusConnecting, nil)

	conn, err := c.opts.Dial(ctx, c.opts.URL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransportClosed, err)
	}

	t := newTransport(conn)
	stop := context.AfterFunc(ctx, func() { t.Close() })
	defer stop()
	defer t.Close()

	c.mu.Lock()
	c.conn = t
	c.mu.Unlock()
	c.setStatus(StatusConnected, nil)

	for {
		data, err := t.Read()
		if err != nil {
			c.mu.Lock()
			if c.conn == t {
				c.conn = nil
			}
			c.mu.Unlock()
			return fmt.Errorf("%w: %w", ErrTransportClosed, err)
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			c.log.Warn("dropping malformed message", logging.Err(err))
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Controller) dispatch(msg *protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Debug("message received", slog.String("type", msg.Type), slog.String("from", msg.From))

	switch msg.Type {
	case protocol.TypeWelcome:
		c.clientID = msg.ClientID
		c.rooms = slices.Clone(msg.RoomIDs)
		c.events.push(Event{Kind: EventWelcome, ClientID: msg.ClientID, Rooms: slices.Clone(c.rooms)})
		if c.opts.AutoCall && c.roomID == "" {
			action := c.actionLocked()
			go func() {
				if err := c.perform(action); err != nil {
					c.events.push(Event{Kind: EventError, Err: err})
				}
			}()
		}

	case protocol.TypeRoomCreated:
		c.enterRoomLocked(msg.RoomID, roleCreator)
		c.participants = slices.Clone(msg.Participants)
		c.addRoomLocked(msg.RoomID)
		c.events.push(Event{Kind: EventRoomCreated, RoomID: msg.RoomID, Participants: slices.Clone(msg.Participants)})

	case protocol.TypeNewRoom:
		c.addRoomLocked(msg.RoomID)

	case protocol.TypeJoinedRoom:
		c.enterRoomLocked(msg.RoomID, roleJoiner)
		c.events.push(Event{Kind: EventRoomJoined, RoomID: msg.RoomID})

	case protocol.TypeNewParticipant:
		c.participantsLocked(msg)

	case protocol.TypeRoomClosed:
		c.removeRoomLocked(msg.RoomID)
		if msg.RoomID == c.roomID {
			c.hangupLocked("room closed")
		}

	case protocol.TypePeerDisconnected:
		if c.peerID != "" && msg.ClientID == c.peerID {
			c.hangupLocked("peer disconnected")
		}

	case protocol.TypeError:
		c.events.push(Event{Kind: EventError, Err: errors.New(msg.Message)})

	case protocol.TypeOffer, protocol.TypeAnswer, protocol.TypeICECandidate:
		c.negotiateLocked(msg)

	default:
		c.log.Debug("ignoring message", slog.String("type", msg.Type))
	}
}

func (c *Controller) enterRoomLocked(roomID string, r role) {
	c.roomID = roomID
	c.role = r
	c.peerID = ""
	c.participants = nil
}

func (c *Controller) participantsLocked(msg *protocol.Message) {
	if msg.RoomID != c.roomID || c.roomID == "" {
		return
	}

	c.participants = slices.Clone(msg.Participants)
	c.peerID = ""
	for _, p := range c.participants {
		if p.ClientID != c.clientID {
			c.peerID = p.ClientID
			break
		}
	}
	c.events.push(Event{Kind: EventParticipants, RoomID: msg.RoomID, Participants: slices.Clone(c.participants)})

	if c.role != roleCreator || c.peerID == "" || len(c.participants) < 2 {
		return
	}
	if c.machine == nil || c.machine.State() != negotiation.StateIdle {
		return
	}

	if err := c.peer.OpenControl(); err != nil {
		c.log.Warn("control channel unavailable", logging.Err(err))
	}
	if err := c.machine.Initiate(); err != nil {
		c.events.push(Event{Kind: EventError, Err: err})
	}
}

// negotiateLocked feeds offer, answer and candidate records from the other
// participant of the current room into the machine. Everything else is
// someone else's call.
func (c *Controller) negotiateLocked(msg *protocol.Message) {
	if c.roomID == "" || c.peerID == "" || msg.From != c.peerID {
		c.log.Debug("ignoring negotiation message from outside the call",
			slog.String("type", msg.Type), slog.String("from", msg.From))
		return
	}
	if c.machine == nil {
		return
	}

	var err error
	switch msg.Type {
	case protocol.TypeOffer:
		if msg.Offer == nil {
			err = protocol.ErrMalformedMessage
			break
		}
		err = c.machine.HandleOffer(*msg.Offer)
	case protocol.TypeAnswer:
		if msg.Answer == nil {
			err = protocol.ErrMalformedMessage
			break
		}
		err = c.machine.HandleAnswer(*msg.Answer)
	case protocol.TypeICECandidate:
		if msg.Candidate == nil {
			err = protocol.ErrMalformedMessage
			break
		}
		err = c.machine.HandleCandidate(*msg.Candidate)
	}

	if err != nil {
		c.log.Warn("negotiation input rejected", slog.String("type", msg.Type), logging.Err(err))
	}
}

func (c *Controller) addRoomLocked(roomID string) {
	if roomID == "" || slices.Contains(c.rooms, roomID) {
		return
	}
	c.rooms = append(c.rooms, roomID)
	c.events.push(Event{Kind: EventRooms, Rooms: slices.Clone(c.rooms)})
}

func (c *Controller) removeRoomLocked(roomID string) {
	i := slices.Index(c.rooms, roomID)
	if i < 0 {
		return
	}
	c.rooms = slices.Delete(c.rooms, i, i+1)
	c.events.push(Event{Kind: EventRooms, Rooms: slices.Clone(c.rooms)})
}

func (c *Controller) hangupLocked(reason string) {
	roomID := c.roomID

	c.roomID = ""
	c.role = roleNone
	c.peerID = ""
	c.participants = nil
	c.closePeerLocked()

	c.log.Info("call ended", slog.String("room_id", roomID), slog.String("reason", reason))
	c.events.push(Event{Kind: EventHangup, RoomID: roomID, Reason: reason})

	if err := c.preparePeerLocked(); err != nil {
		c.events.push(Event{Kind: EventError, Err: err})
	}
}

// preparePeerLocked builds the cold peer connection and machine for the
// next call.
func (c *Controller) preparePeerLocked() error {
	peer, err := c.opts.NewPeer()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoPeer, err)
	}

	c.generation++
	gen := c.generation

	peer.OnPeerHello(func(h rtc.Hello) {
		c.mu.Lock()
		current := c.generation == gen
		c.mu.Unlock()
		if current {
			c.events.push(Event{Kind: EventPeerInfo, Peer: h})
		}
	})

	c.peer = peer
	c.machine = negotiation.New(peer, c,
		negotiation.WithLogger(c.opts.Logger),
		negotiation.WithEventHandler(func(e negotiation.Event) {
			c.machineEvent(gen, e)
		}),
	)
	return nil
}

func (c *Controller) closePeerLocked() {
	if c.machine != nil {
		c.machine.Close()
	}
	c.machine = nil
	c.peer = nil
}

func (c *Controller) machineEvent(gen int, e negotiation.Event) {
	c.mu.Lock()
	current := c.generation == gen
	c.mu.Unlock()
	if !current {
		return
	}

	switch e.Kind {
	case negotiation.EventStateChanged:
		c.events.push(Event{Kind: EventNegotiation, Negotiation: e.State})
	case negotiation.EventFailure:
		c.events.push(Event{Kind: EventError, Err: e.Err})
	case negotiation.EventRemoteTrack:
		c.events.push(Event{Kind: EventRemoteTrack, Track: e.Track})
	case negotiation.EventPeerState:
		if e.PeerState == webrtc.PeerConnectionStateFailed {
			c.mu.Lock()
			if c.generation == gen {
				c.hangupLocked("peer connection failed")
			}
			c.mu.Unlock()
		}
	}
}

// transportClosed ends any call in progress. The server forgets our
// client id with the socket, so the room state is stale as well.
func (c *Controller) transportClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn = nil
	c.clientID = ""
	c.rooms = nil
	if c.roomID != "" {
		c.hangupLocked("signaling connection lost")
	}
}

func (c *Controller) teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.closePeerLocked()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Controller) setStatus(s Status, err error) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()

	c.events.push(Event{Kind: EventStatus, Status: s, Err: err})
}
