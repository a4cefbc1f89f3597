package session

import "errors"

var (
	ErrTransportClosed       = errors.New("signaling transport closed")
	ErrReconnectionExhausted = errors.New("reconnection attempts exhausted")
	ErrNotConnected          = errors.New("not connected to signaling server")
	ErrNoPeer                = errors.New("no peer connection available")
)
