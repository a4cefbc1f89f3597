// Package protocol defines the JSON vocabulary exchanged between call clients
// and the signaling server. Every record carries a mandatory "type" field.
package protocol

import (
	"github.com/pion/webrtc/v4"
)

// Message type constants.
const (
	TypeWelcome          = "welcome"
	TypeCreateRoom       = "create-room"
	TypeRoomCreated      = "room-created"
	TypeNewRoom          = "new-room"
	TypeJoinRoom         = "join-room"
	TypeJoinedRoom       = "joined-room"
	TypeNewParticipant   = "new-participant"
	TypeRoomClosed       = "room-closed"
	TypeError            = "error"
	TypeOffer            = "offer"
	TypeAnswer           = "answer"
	TypeICECandidate     = "ice-candidate"
	TypePeerDisconnected = "peer-disconnected"
)

// Participant is one member of a room.
type Participant struct {
	ClientID string `json:"clientId"`
	Username string `json:"username"`
}

// Message is the decoded form of any record on the wire. Fields that do not
// belong to the record's type are left empty.
type Message struct {
	Type         string                     `json:"type"`
	ClientID     string                     `json:"clientId,omitempty"`
	RoomID       string                     `json:"roomId,omitempty"`
	RoomIDs      []string                   `json:"roomIds,omitempty"`
	Connected    int                        `json:"connected,omitempty"`
	Username     string                     `json:"username,omitempty"`
	Participants []Participant              `json:"participants,omitempty"`
	Message      string                     `json:"message,omitempty"`
	Offer        *webrtc.SessionDescription `json:"offer,omitempty"`
	Answer       *webrtc.SessionDescription `json:"answer,omitempty"`
	Candidate    *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
	From         string                     `json:"from,omitempty"`
}

// Welcome is sent to a client right after it connects.
type Welcome struct {
	Type      string   `json:"type"`
	ClientID  string   `json:"clientId"`
	RoomIDs   []string `json:"roomIds"`
	Connected int      `json:"connected"`
}

// CreateRoom asks the server to open a room. RoomID is optional.
type CreateRoom struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId,omitempty"`
	Username string `json:"username,omitempty"`
}

// RoomCreated answers CreateRoom to its sender.
type RoomCreated struct {
	Type         string        `json:"type"`
	RoomID       string        `json:"roomId"`
	Participants []Participant `json:"participants"`
}

// RoomEvent carries a bare room id: new-room, joined-room and room-closed.
type RoomEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

// JoinRoom asks the server to add the sender to an existing room.
type JoinRoom struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId"`
	Username string `json:"username,omitempty"`
}

// NewParticipant announces the full participant list after a join.
type NewParticipant struct {
	Type         string        `json:"type"`
	RoomID       string        `json:"roomId"`
	Participants []Participant `json:"participants"`
}

// Error reports a rejected request to its sender.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Offer carries the initiator's session description.
type Offer struct {
	Type  string                    `json:"type"`
	Offer webrtc.SessionDescription `json:"offer"`
}

// Answer carries the responder's session description.
type Answer struct {
	Type   string                    `json:"type"`
	Answer webrtc.SessionDescription `json:"answer"`
}

// ICECandidate carries one trickled candidate.
type ICECandidate struct {
	Type      string                  `json:"type"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

// PeerDisconnected tells every client that a connection went away.
type PeerDisconnected struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
}

func NewWelcome(clientID string, roomIDs []string, connected int) Welcome {
	if roomIDs == nil {
		roomIDs = []string{}
	}
	return Welcome{Type: TypeWelcome, ClientID: clientID, RoomIDs: roomIDs, Connected: connected}
}

func NewRoomCreated(roomID string, participants []Participant) RoomCreated {
	return RoomCreated{Type: TypeRoomCreated, RoomID: roomID, Participants: participants}
}

func NewNewRoom(roomID string) RoomEvent {
	return RoomEvent{Type: TypeNewRoom, RoomID: roomID}
}

func NewJoinedRoom(roomID string) RoomEvent {
	return RoomEvent{Type: TypeJoinedRoom, RoomID: roomID}
}

func NewRoomClosed(roomID string) RoomEvent {
	return RoomEvent{Type: TypeRoomClosed, RoomID: roomID}
}

func NewNewParticipant(roomID string, participants []Participant) NewParticipant {
	return NewParticipant{Type: TypeNewParticipant, RoomID: roomID, Participants: participants}
}

func NewError(message string) Error {
	return Error{Type: TypeError, Message: message}
}

func NewPeerDisconnected(clientID string) PeerDisconnected {
	return PeerDisconnected{Type: TypePeerDisconnected, ClientID: clientID}
}

func NewCreateRoom(roomID, username string) CreateRoom {
	return CreateRoom{Type: TypeCreateRoom, RoomID: roomID, Username: username}
}

func NewJoinRoom(roomID, username string) JoinRoom {
	return JoinRoom{Type: TypeJoinRoom, RoomID: roomID, Username: username}
}

func NewOffer(sd webrtc.SessionDescription) Offer {
	return Offer{Type: TypeOffer, Offer: sd}
}

func NewAnswer(sd webrtc.SessionDescription) Answer {
	return Answer{Type: TypeAnswer, Answer: sd}
}

func NewICECandidate(c webrtc.ICECandidateInit) ICECandidate {
	return ICECandidate{Type: TypeICECandidate, Candidate: c}
}

// RoomInfo describes one open room on the HTTP API.
type RoomInfo struct {
	RoomID       string        `json:"roomId"`
	Participants []Participant `json:"participants"`
	Full         bool          `json:"full"`
}

// RoomList is the body of GET /api/rooms.
type RoomList struct {
	Rooms     []RoomInfo `json:"rooms"`
	Connected int        `json:"connected"`
}
