package negotiation

import (
	"github.com/pion/webrtc/v4"
)

// State is the position of a Machine in the offer/answer exchange.
type State int32

const (
	StateIdle State = iota
	StateOffering
	StateOfferSent
	StateAnswering
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOffering:
		return "offering"
	case StateOfferSent:
		return "offer-sent"
	case StateAnswering:
		return "answering"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type EventKind int

const (
	// EventStateChanged carries the new State.
	EventStateChanged EventKind = iota
	// EventFailure carries an *Error. The state is unchanged.
	EventFailure
	// EventRemoteTrack carries a remote media track.
	EventRemoteTrack
	// EventPeerState mirrors the peer connection's own state.
	EventPeerState
)

// Event is emitted from the machine's goroutine to the registered handler.
type Event struct {
	Kind      EventKind
	State     State
	Err       error
	Track     *webrtc.TrackRemote
	PeerState webrtc.PeerConnectionState
}
