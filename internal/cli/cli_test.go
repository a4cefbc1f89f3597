package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerry-okpere/ai-video-conferencing/internal/config"
	"github.com/kerry-okpere/ai-video-conferencing/internal/server"
	"github.com/kerry-okpere/ai-video-conferencing/internal/signaling"
	"github.com/kerry-okpere/ai-video-conferencing/internal/ui"
	"github.com/kerry-okpere/ai-video-conferencing/internal/version"
)

func execute(t *testing.T, v *viper.Viper, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	prev := ui.Output
	ui.Output = io.Discard
	t.Cleanup(func() { ui.Output = prev })

	var out bytes.Buffer
	root := NewRootCmd(v)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func startSignaling(t *testing.T) (*httptest.Server, *signaling.Hub) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := signaling.NewHub(signaling.WithLogger(log))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(server.SetupRouter(hub, server.Options{}, log))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv, hub
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, viper.New(), "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "duo "+version.Version))
}

func TestFlagsOverrideEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "duo.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server_url: wss://calls.example.com/ws
name: from-file
reconnect_delay: 5s
`), 0o600))
	t.Setenv("DUO_MAX_RECONNECT_ATTEMPTS", "7")
	t.Setenv("DUO_NAME", "from-env")

	v := viper.New()
	_, err := execute(t, v, "version", "--config", file, "--name", "from-flag")
	require.NoError(t, err)

	cfg, err := config.LoadClient(v)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.Name)
	assert.Equal(t, "wss://calls.example.com/ws", cfg.ServerURL)
	assert.Equal(t, 7, cfg.MaxReconnectAttempts)
	assert.Equal(t, 5*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, []string{config.DefaultSTUN}, cfg.STUNServers)
}

func TestCallRejectsBadServerURL(t *testing.T) {
	_, err := execute(t, viper.New(), "call", "--server", "http://localhost:8080/ws")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ws:// or wss://")
}

func TestRoomsCommand(t *testing.T) {
	srv, hub := startSignaling(t)
	_, err := hub.Rooms().Create("red-fox", "client-1", "alice")
	require.NoError(t, err)
	_, err = hub.Rooms().Create("blue-owl", "client-2", "bob")
	require.NoError(t, err)
	_, err = hub.Rooms().Join("blue-owl", "client-3", "carol")
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	out, err := execute(t, viper.New(), "rooms", "--server", wsURL)
	require.NoError(t, err)

	assert.Contains(t, out, "red-fox")
	assert.Contains(t, out, "blue-owl")
	assert.Contains(t, out, "in call")
}

func TestFetchRoomsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/broken/api/rooms":
			_, _ = w.Write([]byte("{"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	_, err := fetchRooms(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")

	_, err = fetchRooms(context.Background(), srv.URL+"/broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode rooms")
}
