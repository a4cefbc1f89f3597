package session

import (
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/kerry-okpere/ai-video-conferencing/internal/negotiation"
	"github.com/kerry-okpere/ai-video-conferencing/internal/protocol"
	"github.com/kerry-okpere/ai-video-conferencing/internal/rtc"
)

// Status is the state of the signaling transport.
type Status int

const (
	StatusConnecting Status = iota
	StatusConnected
	StatusReconnecting
	// StatusDisconnected is terminal.
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

type EventKind int

const (
	EventStatus EventKind = iota
	EventWelcome
	EventRooms
	EventRoomCreated
	EventRoomJoined
	EventParticipants
	EventNegotiation
	EventRemoteTrack
	EventPeerInfo
	EventHangup
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventStatus:
		return "status"
	case EventWelcome:
		return "welcome"
	case EventRooms:
		return "rooms"
	case EventRoomCreated:
		return "room-created"
	case EventRoomJoined:
		return "room-joined"
	case EventParticipants:
		return "participants"
	case EventNegotiation:
		return "negotiation"
	case EventRemoteTrack:
		return "remote-track"
	case EventPeerInfo:
		return "peer-info"
	case EventHangup:
		return "hangup"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is what the controller reports to the UI. Only the fields relevant
// to Kind are set.
type Event struct {
	Kind EventKind

	Status       Status
	ClientID     string
	Rooms        []string
	RoomID       string
	Participants []protocol.Participant
	Negotiation  negotiation.State
	Track        *webrtc.TrackRemote
	Peer         rtc.Hello
	Reason       string
	Err          error
}

// eventQueue hands events to the UI callback in order from one goroutine.
type eventQueue struct {
	mu      sync.Mutex
	items   []Event
	signal  chan struct{}
	handler func(Event)
}

func newEventQueue(handler func(Event)) *eventQueue {
	if handler == nil {
		handler = func(Event) {}
	}
	return &eventQueue{signal: make(chan struct{}, 1), handler: handler}
}

func (q *eventQueue) push(e Event) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// run delivers events until done is closed, then flushes what is left.
func (q *eventQueue) run(done <-chan struct{}) {
	for {
		select {
		case <-q.signal:
			q.deliver()
		case <-done:
			q.deliver()
			return
		}
	}
}

func (q *eventQueue) deliver() {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()

	for _, e := range items {
		q.handler(e)
	}
}
