package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeFile(t, "cfg.yaml", "env: dev\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, int64(64*1024), cfg.Signaling.MaxMessageSize)
	assert.Equal(t, 256, cfg.Signaling.SendBuffer)
	assert.Equal(t, 60*time.Second, cfg.Signaling.PongWait)
	assert.Equal(t, 54*time.Second, cfg.Signaling.PingPeriod)
	assert.Equal(t, 10*time.Second, cfg.Signaling.WriteWait)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "cfg.yaml", "env: local\nhttp:\n  address: \":9000\"\n")
	t.Setenv("HTTP_ADDRESS", ":7000")
	t.Setenv("SIGNALING_SEND_BUFFER", "32")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.HTTP.Address)
	assert.Equal(t, 32, cfg.Signaling.SendBuffer)
}

func TestLoadRejectsBadTimers(t *testing.T) {
	path := writeFile(t, "cfg.yaml", "signaling:\n  ping_period: 90s\n  pong_wait: 60s\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestMustLoadPathPanicsOnMissingFile(t *testing.T) {
	assert.Panics(t, func() {
		MustLoadPath(filepath.Join(t.TempDir(), "missing.yaml"))
	})
}

func TestRepositoryConfigsLoad(t *testing.T) {
	for _, name := range []string{"local.yaml", "prod.yaml"} {
		cfg, err := Load(filepath.Join("..", "..", "config", name))
		require.NoError(t, err, name)
		assert.NotEmpty(t, cfg.Env)
	}
}

func TestLoadClientDefaults(t *testing.T) {
	v := viper.New()
	SetClientDefaults(v)

	cfg, err := LoadClient(v)
	require.NoError(t, err)
	assert.Equal(t, DefaultServerURL, cfg.ServerURL)
	assert.Equal(t, []string{DefaultSTUN}, cfg.STUNServers)
	assert.Equal(t, 3, cfg.MaxReconnectAttempts)
	assert.Equal(t, 3*time.Second, cfg.ReconnectDelay)
	assert.NotEmpty(t, cfg.Name)
}

func TestLoadClientPriority(t *testing.T) {
	path := writeFile(t, "duo.yaml", "server_url: ws://file:1/ws\nname: from-file\nreconnect_delay: 5s\n")
	t.Setenv("DUO_NAME", "from-env")

	v := viper.New()
	SetClientDefaults(v)
	require.NoError(t, ReadClientFile(v, path))
	v.Set(KeyServerURL, "wss://flag.example/ws")

	cfg, err := LoadClient(v)
	require.NoError(t, err)
	assert.Equal(t, "wss://flag.example/ws", cfg.ServerURL)
	assert.Equal(t, "from-env", cfg.Name)
	assert.Equal(t, 5*time.Second, cfg.ReconnectDelay)
}

func TestLoadClientValidates(t *testing.T) {
	v := viper.New()
	SetClientDefaults(v)
	v.Set(KeyServerURL, "http://nope")

	_, err := LoadClient(v)
	assert.Error(t, err)

	v.Set(KeyServerURL, DefaultServerURL)
	v.Set(KeyMaxReconnectAttempts, -1)
	_, err = LoadClient(v)
	assert.Error(t, err)
}

func TestHTTPBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080", (&Client{ServerURL: "ws://localhost:8080/ws"}).HTTPBaseURL())
	assert.Equal(t, "https://duo.example", (&Client{ServerURL: "wss://duo.example/ws"}).HTTPBaseURL())
}
