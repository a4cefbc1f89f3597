package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Client keys, shared by flags, DUO_* environment variables and the
// optional $HOME/.duo.yaml file.
const (
	KeyServerURL            = "server_url"
	KeyName                 = "name"
	KeyRoom                 = "room"
	KeySTUNServers          = "stun_servers"
	KeyMaxReconnectAttempts = "max_reconnect_attempts"
	KeyReconnectDelay       = "reconnect_delay"
)

const (
	DefaultServerURL            = "ws://localhost:8080/ws"
	DefaultSTUN                 = "stun:stun.l.google.com:19302"
	DefaultMaxReconnectAttempts = 3
	DefaultReconnectDelay       = 3 * time.Second

	envPrefix      = "DUO"
	clientFileName = ".duo"
)

// Client holds the call client configuration.
type Client struct {
	ServerURL            string
	Name                 string
	Room                 string
	STUNServers          []string
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
}

// SetClientDefaults registers defaults and environment binding on v.
func SetClientDefaults(v *viper.Viper) {
	v.SetDefault(KeyServerURL, DefaultServerURL)
	v.SetDefault(KeyName, defaultName())
	v.SetDefault(KeyRoom, "")
	v.SetDefault(KeySTUNServers, []string{DefaultSTUN})
	v.SetDefault(KeyMaxReconnectAttempts, DefaultMaxReconnectAttempts)
	v.SetDefault(KeyReconnectDelay, DefaultReconnectDelay)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// ReadClientFile loads cfgFile, or $HOME/.duo.yaml when cfgFile is empty.
// A missing default file is not an error.
func ReadClientFile(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(home)
		v.SetConfigType("yaml")
		v.SetConfigName(clientFileName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	return nil
}

// LoadClient resolves the client configuration from v. Priority is flags,
// then environment, then file, then defaults.
func LoadClient(v *viper.Viper) (*Client, error) {
	cfg := &Client{
		ServerURL:            v.GetString(KeyServerURL),
		Name:                 v.GetString(KeyName),
		Room:                 v.GetString(KeyRoom),
		STUNServers:          v.GetStringSlice(KeySTUNServers),
		MaxReconnectAttempts: v.GetInt(KeyMaxReconnectAttempts),
		ReconnectDelay:       v.GetDuration(KeyReconnectDelay),
	}

	if cfg.ServerURL == "" {
		return nil, errors.New("server url is empty")
	}
	if !strings.HasPrefix(cfg.ServerURL, "ws://") && !strings.HasPrefix(cfg.ServerURL, "wss://") {
		return nil, fmt.Errorf("server url must use ws:// or wss://, got %q", cfg.ServerURL)
	}
	if cfg.MaxReconnectAttempts < 0 {
		return nil, fmt.Errorf("max reconnect attempts must not be negative, got %d", cfg.MaxReconnectAttempts)
	}
	if cfg.ReconnectDelay < 0 {
		return nil, fmt.Errorf("reconnect delay must not be negative, got %s", cfg.ReconnectDelay)
	}

	return cfg, nil
}

// HTTPBaseURL maps the websocket endpoint to the server's HTTP origin.
func (c *Client) HTTPBaseURL() string {
	base := c.ServerURL
	switch {
	case strings.HasPrefix(base, "wss://"):
		base = "https://" + strings.TrimPrefix(base, "wss://")
	case strings.HasPrefix(base, "ws://"):
		base = "http://" + strings.TrimPrefix(base, "ws://")
	}
	return strings.TrimSuffix(strings.TrimSuffix(base, "/"), "/ws")
}

func defaultName() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "guest"
}
