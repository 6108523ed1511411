package client

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"emberhollow/client/internal/hooks"
)

// Config is the client-side tuning loaded from config.yaml at boot.
type Config struct {
	ListenAddr   string `yaml:"listen_addr"`
	AuthorityURL string `yaml:"authority_url"`
	SessionID    string `yaml:"session_id"`
	DataDir      string `yaml:"data_dir"`

	TickRateHz          int    `yaml:"tick_rate_hz"`
	RunIn               string `yaml:"run_in"`
	WorldMinutesPerTick int64  `yaml:"world_minutes_per_tick"`
	WorldAdvanceTicks   int    `yaml:"world_advance_ticks"`

	MaxRetries     int `yaml:"max_retries"`
	BaseDelayMs    int `yaml:"base_delay_ms"`
	HTTPTimeoutSec int `yaml:"http_timeout_sec"`

	JournalEnabled bool `yaml:"journal_enabled"`
}

// DefaultConfig returns the tuning used when no config file is present.
func DefaultConfig() Config {
	return Config{
		ListenAddr:          ":8080",
		DataDir:             "data",
		SessionID:           "local",
		TickRateHz:          4,
		RunIn:               string(hooks.RunInGame),
		WorldMinutesPerTick: 1,
		WorldAdvanceTicks:   4,
		MaxRetries:          3,
		BaseDelayMs:         100,
		HTTPTimeoutSec:      10,
		JournalEnabled:      true,
	}
}

// LoadConfig reads the YAML tuning file, layering it over the defaults. A
// missing file is not an error; a malformed one is.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnvOverrides layers environment variables over the file config.
// Invalid values are reported through the returned notes rather than
// aborting boot.
func (c *Config) ApplyEnvOverrides() []string {
	var notes []string
	if raw := os.Getenv("EMBERHOLLOW_AUTHORITY_URL"); raw != "" {
		c.AuthorityURL = raw
	}
	if raw := os.Getenv("EMBERHOLLOW_LISTEN_ADDR"); raw != "" {
		c.ListenAddr = raw
	}
	if raw := os.Getenv("EMBERHOLLOW_SESSION_ID"); raw != "" {
		c.SessionID = raw
	}
	if raw := os.Getenv("EMBERHOLLOW_TICK_RATE_HZ"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			c.TickRateHz = value
		} else {
			notes = append(notes, fmt.Sprintf("invalid EMBERHOLLOW_TICK_RATE_HZ=%q", raw))
		}
	}
	if raw := os.Getenv("EMBERHOLLOW_MAX_RETRIES"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			c.MaxRetries = value
		} else {
			notes = append(notes, fmt.Sprintf("invalid EMBERHOLLOW_MAX_RETRIES=%q", raw))
		}
	}
	return notes
}

// RunInMode converts the configured run-in string, defaulting to game.
func (c Config) RunInMode() hooks.RunIn {
	switch hooks.RunIn(c.RunIn) {
	case hooks.RunInSimulation:
		return hooks.RunInSimulation
	case hooks.RunInBoth:
		return hooks.RunInBoth
	default:
		return hooks.RunInGame
	}
}

// BaseDelay converts the configured retry seed delay.
func (c Config) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMs) * time.Millisecond
}

// HTTPTimeout converts the configured authority call timeout.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}
