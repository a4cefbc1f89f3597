package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerry-okpere/ai-video-conferencing/internal/protocol"
	"github.com/kerry-okpere/ai-video-conferencing/internal/signaling"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *signaling.Hub) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := signaling.NewHub(signaling.WithLogger(log))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(SetupRouter(hub, opts, log))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})

	return srv, hub
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func read(t *testing.T, conn *websocket.Conn) *protocol.Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	msg, err := protocol.Decode(data)
	require.NoError(t, err)
	return msg
}

func write(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRelayEndToEnd(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	a := dial(t, srv)
	welcomeA := read(t, a)
	require.Equal(t, protocol.TypeWelcome, welcomeA.Type)
	assert.Equal(t, 1, welcomeA.Connected)

	b := dial(t, srv)
	welcomeB := read(t, b)
	assert.Equal(t, 2, welcomeB.Connected)
	assert.NotEqual(t, welcomeA.ClientID, welcomeB.ClientID)

	write(t, a, protocol.NewCreateRoom("call", "alice"))
	assert.Equal(t, protocol.TypeRoomCreated, read(t, a).Type)
	assert.Equal(t, "call", read(t, b).RoomID)

	write(t, b, protocol.NewJoinRoom("call", "bob"))
	assert.Equal(t, protocol.TypeJoinedRoom, read(t, b).Type)
	for _, conn := range []*websocket.Conn{a, b} {
		msg := read(t, conn)
		assert.Equal(t, protocol.TypeNewParticipant, msg.Type)
		assert.Len(t, msg.Participants, 2)
	}

	write(t, a, map[string]any{"type": "offer", "offer": map[string]string{"type": "offer", "sdp": "v=0"}})
	offer := read(t, b)
	assert.Equal(t, protocol.TypeOffer, offer.Type)
	assert.Equal(t, welcomeA.ClientID, offer.From)
	require.NotNil(t, offer.Offer)
	assert.Equal(t, "v=0", offer.Offer.SDP)

	require.NoError(t, a.Close())

	gone := read(t, b)
	assert.Equal(t, protocol.TypePeerDisconnected, gone.Type)
	assert.Equal(t, welcomeA.ClientID, gone.ClientID)
}

func TestMalformedFrameKeepsConnectionOpen(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	a := dial(t, srv)
	read(t, a)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("{{{")))
	write(t, a, protocol.NewCreateRoom("after", ""))

	assert.Equal(t, protocol.TypeRoomCreated, read(t, a).Type)
}

func TestRoomsAPI(t *testing.T) {
	srv, hub := newTestServer(t, Options{})

	a := dial(t, srv)
	read(t, a)
	write(t, a, protocol.NewCreateRoom("api-room", "alice"))
	read(t, a)

	require.Eventually(t, func() bool {
		return len(hub.Rooms().IDs()) == 1
	}, time.Second, 10*time.Millisecond)

	resp, err := http.Get(srv.URL + "/api/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list protocol.RoomList
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, 1, list.Connected)
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, "api-room", list.Rooms[0].RoomID)
	assert.False(t, list.Rooms[0].Full)
	assert.Equal(t, "alice", list.Rooms[0].Participants[0].Username)

	missing, err := http.Get(srv.URL + "/api/rooms/nope")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestWebsocketRejectsUnknownOrigin(t *testing.T) {
	srv, _ := newTestServer(t, Options{AllowedOrigins: []string{"https://duo.example"}})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://duo.example")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}
