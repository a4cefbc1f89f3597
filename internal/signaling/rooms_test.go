package signaling

import (
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerry-okpere/ai-video-conferencing/internal/protocol"
)

func TestRoomsCreate(t *testing.T) {
	rooms := NewRooms()

	room, err := rooms.Create("standup", "a", "alice")
	require.NoError(t, err)
	assert.Equal(t, "standup", room.ID)
	assert.Equal(t, []protocol.Participant{{ClientID: "a", Username: "alice"}}, room.Participants)

	_, err = rooms.Create("standup", "b", "bob")
	assert.ErrorIs(t, err, ErrDuplicateRoom)

	snap, ok := rooms.Snapshot("standup")
	require.True(t, ok)
	assert.Len(t, snap.Participants, 1, "rejected create must not touch the existing room")
}

func TestRoomsCreateGeneratesWordID(t *testing.T) {
	rooms := NewRooms()

	room, err := rooms.Create("", "a", "")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[a-z]+-[a-z]+-[a-z]+-[a-z]+$`), room.ID)
}

func TestRoomsCreateRetriesTakenID(t *testing.T) {
	rooms := NewRooms()
	_, err := rooms.Create("taken", "a", "")
	require.NoError(t, err)

	candidates := []string{"taken", "free"}
	rooms.newID = func(taken func(string) bool) string {
		for _, c := range candidates {
			if !taken(c) {
				return c
			}
		}
		t.Fatal("no free candidate")
		return ""
	}

	room, err := rooms.Create("", "b", "")
	require.NoError(t, err)
	assert.Equal(t, "free", room.ID)
}

func TestRoomsJoin(t *testing.T) {
	rooms := NewRooms()
	_, err := rooms.Create("r", "a", "alice")
	require.NoError(t, err)

	room, err := rooms.Join("r", "b", "bob")
	require.NoError(t, err)
	assert.Equal(t, []protocol.Participant{
		{ClientID: "a", Username: "alice"},
		{ClientID: "b", Username: "bob"},
	}, room.Participants)
	assert.True(t, room.Full())

	_, err = rooms.Join("r", "c", "carol")
	assert.ErrorIs(t, err, ErrRoomFull)

	_, err = rooms.Join("missing", "c", "carol")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRoomsJoinTwiceIsNoop(t *testing.T) {
	rooms := NewRooms()
	_, err := rooms.Create("r", "a", "alice")
	require.NoError(t, err)

	first, err := rooms.Join("r", "b", "bob")
	require.NoError(t, err)
	second, err := rooms.Join("r", "b", "bob")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	again, err := rooms.Join("r", "a", "alice")
	require.NoError(t, err, "a full room still accepts its own members")
	assert.Len(t, again.Participants, 2)
}

func TestRoomsRemoveParticipant(t *testing.T) {
	rooms := NewRooms()
	_, err := rooms.Create("one", "a", "")
	require.NoError(t, err)
	_, err = rooms.Create("two", "a", "")
	require.NoError(t, err)
	_, err = rooms.Join("two", "b", "")
	require.NoError(t, err)

	closed := rooms.RemoveParticipant("a")
	assert.Equal(t, []string{"one"}, closed)
	assert.Equal(t, []string{"two"}, rooms.IDs())

	snap, ok := rooms.Snapshot("two")
	require.True(t, ok)
	assert.Equal(t, []protocol.Participant{{ClientID: "b"}}, snap.Participants)

	assert.Empty(t, rooms.RemoveParticipant("a"), "second removal is a no-op")
	assert.Equal(t, []string{"two"}, rooms.RemoveParticipant("b"))
	assert.Zero(t, rooms.Len())
}

func TestRoomsSnapshotIsCopy(t *testing.T) {
	rooms := NewRooms()
	room, err := rooms.Create("r", "a", "alice")
	require.NoError(t, err)

	room.Participants[0].Username = "mallory"

	snap, _ := rooms.Snapshot("r")
	assert.Equal(t, "alice", snap.Participants[0].Username)
}

func TestRoomsConcurrentJoinNeverOverfills(t *testing.T) {
	rooms := NewRooms()
	_, err := rooms.Create("r", "creator", "")
	require.NoError(t, err)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		joined int
	)
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := rooms.Join("r", string(rune('a'+i)), ""); err == nil {
				mu.Lock()
				joined++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, joined)
	snap, _ := rooms.Snapshot("r")
	assert.Len(t, snap.Participants, MaxParticipants)
}

func TestRoomsList(t *testing.T) {
	rooms := NewRooms()
	for _, id := range []string{"c", "a", "b"} {
		_, err := rooms.Create(id, "owner-"+id, "")
		require.NoError(t, err)
	}

	list := rooms.List()
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "c", list[2].ID)
	assert.Equal(t, []string{"a", "b", "c"}, rooms.IDs())
}
