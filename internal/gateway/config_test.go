package gateway

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty listen addr", func(c *Config) { c.ListenAddr = "" }},
		{"zero max clients", func(c *Config) { c.MaxClients = 0 }},
		{"zero max frame size", func(c *Config) { c.MaxFrameSize = 0 }},
		{"zero health interval", func(c *Config) { c.HealthCheckInterval = 0 }},
		{"zero client timeout", func(c *Config) { c.ClientTimeout = 0 }},
		{"bad gesture preset", func(c *Config) { c.Gesture.MinSwipeDistance = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoadYAML(t *testing.T) {
	doc := `
listen_addr: "0.0.0.0:9090"
max_clients: 42
gesture:
  min_swipe_distance: 150
  emit_debounce: 200000000 # nanoseconds
`
	cfg, err := LoadYAML(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	require.Equal(t, 42, cfg.MaxClients)
	require.Equal(t, 150.0, cfg.Gesture.MinSwipeDistance)
	require.Equal(t, 200*time.Millisecond, cfg.Gesture.EmitDebounce)

	// Unset fields keep their defaults.
	require.Equal(t, DefaultConfig().MaxFrameSize, cfg.MaxFrameSize)
	require.Equal(t, DefaultConfig().ClientTimeout, cfg.ClientTimeout)
}

func TestLoadYAMLMalformed(t *testing.T) {
	_, err := LoadYAML(strings.NewReader("listen_addr: [broken"))
	require.Error(t, err)
}

func TestLoadJSON(t *testing.T) {
	doc := `{"listen_addr": "127.0.0.1:7070", "max_clients": 7}`
	cfg, err := LoadJSON(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:7070", cfg.ListenAddr)
	require.Equal(t, 7, cfg.MaxClients)
	require.Equal(t, DefaultConfig().Gesture, cfg.Gesture)
}
