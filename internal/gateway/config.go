package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gesturesync/gesturesync/internal/core/gesture"
	"github.com/gesturesync/gesturesync/internal/core/observability/log"
)

// Config holds gateway configuration.
type Config struct {
	// Network settings
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
	// QUICListenAddr enables the QUIC ingest listener when non-empty.
	QUICListenAddr string `json:"quic_listen_addr,omitempty" yaml:"quic_listen_addr,omitempty"`
	MaxClients     int    `json:"max_clients" yaml:"max_clients"`

	// Frame settings
	ReadBufferSize  int `json:"read_buffer_size" yaml:"read_buffer_size"`
	WriteBufferSize int `json:"write_buffer_size" yaml:"write_buffer_size"`
	MaxFrameSize    int `json:"max_frame_size" yaml:"max_frame_size"`

	// Health monitoring
	HealthCheckInterval time.Duration `json:"health_check_interval" yaml:"health_check_interval"`
	ClientTimeout       time.Duration `json:"client_timeout" yaml:"client_timeout"`

	// Logging
	LogLevel log.Level `json:"log_level" yaml:"log_level"`

	// Gesture is the detector preset applied to every target. Binding
	// fields are overridden per target by the gateway.
	Gesture gesture.Config `json:"gesture" yaml:"gesture"`
}

// DefaultConfig returns default gateway configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr:          "127.0.0.1:8080",
		MaxClients:          10_000,
		ReadBufferSize:      1024,
		WriteBufferSize:     1024,
		MaxFrameSize:        64 * 1024,
		HealthCheckInterval: 30 * time.Second,
		ClientTimeout:       5 * time.Minute,
		LogLevel:            log.LevelInfo,
		Gesture:             gesture.DefaultConfig(),
	}
}

// Validate checks the configuration for values the gateway cannot run with.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("%w: listen_addr is required", ErrInvalidConfig)
	}
	if c.MaxClients <= 0 {
		return fmt.Errorf("%w: max_clients must be positive, got %d", ErrInvalidConfig, c.MaxClients)
	}
	if c.MaxFrameSize <= 0 {
		return fmt.Errorf("%w: max_frame_size must be positive, got %d", ErrInvalidConfig, c.MaxFrameSize)
	}
	if c.HealthCheckInterval <= 0 {
		return fmt.Errorf("%w: health_check_interval must be positive, got %v", ErrInvalidConfig, c.HealthCheckInterval)
	}
	if c.ClientTimeout <= 0 {
		return fmt.Errorf("%w: client_timeout must be positive, got %v", ErrInvalidConfig, c.ClientTimeout)
	}
	if err := c.Gesture.Validate(); err != nil {
		return err
	}
	return nil
}

// LoadYAML loads config from a YAML reader on top of the defaults.
func LoadYAML(r io.Reader) (Config, error) {
	c := DefaultConfig()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadJSON loads config from a JSON reader on top of the defaults.
func LoadJSON(r io.Reader) (Config, error) {
	c := DefaultConfig()
	dec := json.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}
