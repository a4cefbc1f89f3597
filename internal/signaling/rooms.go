package signaling

import (
	"slices"
	"strings"
	"sync"

	"github.com/kerry-okpere/ai-video-conferencing/internal/protocol"
)

// MaxParticipants is the capacity of every room.
const MaxParticipants = 2

// Room is a snapshot of one open room. Participants are in join order.
type Room struct {
	ID           string                 `json:"roomId"`
	Participants []protocol.Participant `json:"participants"`
}

// Full reports whether the room reached MaxParticipants.
func (r Room) Full() bool {
	return len(r.Participants) >= MaxParticipants
}

func (r Room) has(clientID string) bool {
	return slices.ContainsFunc(r.Participants, func(p protocol.Participant) bool {
		return p.ClientID == clientID
	})
}

func (r Room) snapshot() Room {
	return Room{ID: r.ID, Participants: slices.Clone(r.Participants)}
}

// Rooms is the room registry. All methods are safe for concurrent use.
type Rooms struct {
	mu    sync.Mutex
	rooms map[string]*Room

	// newID generates ids for rooms created without one.
	newID func(taken func(string) bool) string
}

func NewRooms() *Rooms {
	return &Rooms{
		rooms: make(map[string]*Room),
		newID: generateRoomID,
	}
}

// Create opens a room with the creator as its only participant. An empty
// requestedID gets a generated word id.
func (r *Rooms) Create(requestedID, clientID, username string) (Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := requestedID
	if id == "" {
		id = r.newID(func(candidate string) bool {
			_, ok := r.rooms[candidate]
			return ok
		})
	} else if _, ok := r.rooms[id]; ok {
		return Room{}, ErrDuplicateRoom
	}

	room := &Room{
		ID:           id,
		Participants: []protocol.Participant{{ClientID: clientID, Username: username}},
	}
	r.rooms[id] = room

	return room.snapshot(), nil
}

// Join adds a participant. Joining a room the client is already in returns
// the current snapshot unchanged.
func (r *Rooms) Join(roomID, clientID, username string) (Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	if room.has(clientID) {
		return room.snapshot(), nil
	}
	if room.Full() {
		return Room{}, ErrRoomFull
	}

	room.Participants = append(room.Participants, protocol.Participant{ClientID: clientID, Username: username})

	return room.snapshot(), nil
}

// RemoveParticipant drops the client from every room it is in and deletes
// rooms left empty. It returns the ids of the deleted rooms, sorted.
func (r *Rooms) RemoveParticipant(clientID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var closed []string
	for id, room := range r.rooms {
		if !room.has(clientID) {
			continue
		}
		room.Participants = slices.DeleteFunc(room.Participants, func(p protocol.Participant) bool {
			return p.ClientID == clientID
		})
		if len(room.Participants) == 0 {
			delete(r.rooms, id)
			closed = append(closed, id)
		}
	}
	slices.Sort(closed)

	return closed
}

// IDs returns the ids of all open rooms, sorted.
func (r *Rooms) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids
}

// Snapshot returns a copy of one room.
func (r *Rooms) Snapshot(roomID string) (Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return Room{}, false
	}
	return room.snapshot(), true
}

// List returns copies of all open rooms ordered by id.
func (r *Rooms) List() []Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		list = append(list, room.snapshot())
	}
	slices.SortFunc(list, func(a, b Room) int {
		return strings.Compare(a.ID, b.ID)
	})

	return list
}

func (r *Rooms) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
