package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the signaling server configuration.
type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Signaling SignalingConfig `yaml:"signaling"`
}

type HTTPConfig struct {
	Address        string   `yaml:"address" env:"HTTP_ADDRESS" env-default:""`
	AllowedOrigins []string `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:","`
}

type SignalingConfig struct {
	MaxMessageSize int64         `yaml:"max_message_size" env:"SIGNALING_MAX_MESSAGE_SIZE"`
	SendBuffer     int           `yaml:"send_buffer" env:"SIGNALING_SEND_BUFFER"`
	PingPeriod     time.Duration `yaml:"ping_period" env:"SIGNALING_PING_PERIOD"`
	PongWait       time.Duration `yaml:"pong_wait" env:"SIGNALING_PONG_WAIT"`
	WriteWait      time.Duration `yaml:"write_wait" env:"SIGNALING_WRITE_WAIT"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

// Load reads the YAML file at configPath, applies environment overrides and
// fills defaults.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = "config/local.yaml"
	}

	return res
}

func (c *Config) setDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if len(c.HTTP.AllowedOrigins) == 0 {
		c.HTTP.AllowedOrigins = []string{"*"}
	}

	s := &c.Signaling
	if s.MaxMessageSize == 0 {
		s.MaxMessageSize = 64 * 1024
	}
	if s.SendBuffer == 0 {
		s.SendBuffer = 256
	}
	if s.PongWait == 0 {
		s.PongWait = 60 * time.Second
	}
	if s.PingPeriod == 0 {
		s.PingPeriod = (s.PongWait * 9) / 10
	}
	if s.WriteWait == 0 {
		s.WriteWait = 10 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Signaling.PingPeriod >= c.Signaling.PongWait {
		return errors.New("signaling.ping_period must be less than signaling.pong_wait")
	}
	if c.Signaling.SendBuffer < 1 {
		return errors.New("signaling.send_buffer must be positive")
	}
	return nil
}
