package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so yaml values like "10s" parse; bare
// numbers are read as seconds, the same unit the -i flag takes.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration value %q", value.Value)
	}
	if parsed, err := time.ParseDuration(s); err == nil {
		*d = Duration(parsed)
		return nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		*d = Duration(time.Duration(secs * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration %q", s)
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Steam   SteamConfig   `yaml:"steam"`
	Monitor MonitorConfig `yaml:"monitor"`
	Server  ServerConfig  `yaml:"server"`
}

type SteamConfig struct {
	// Root overrides Steam install autodetection when set.
	Root string `yaml:"root"`
	// LogPath overrides the content log location; default is
	// <root>/logs/content_log.txt.
	LogPath string `yaml:"log_path"`
}

type MonitorConfig struct {
	PollInterval      Duration `yaml:"poll_interval"`
	ErrorBackoff      Duration `yaml:"error_backoff"`
	ReportInterval    Duration `yaml:"report_interval"`
	StaleAfter        Duration `yaml:"stale_after"`
	ReplayWindowBytes int64    `yaml:"replay_window_bytes"`
}

type ServerConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Host             string   `yaml:"host"`
	Port             int      `yaml:"port"`
	SnapshotInterval Duration `yaml:"snapshot_interval"`
}

func defaults() *Config {
	return &Config{
		Monitor: MonitorConfig{
			PollInterval:      Duration(50 * time.Millisecond),
			ErrorBackoff:      Duration(200 * time.Millisecond),
			ReportInterval:    Duration(60 * time.Second),
			StaleAfter:        Duration(300 * time.Second),
			ReplayWindowBytes: 200000,
		},
		Server: ServerConfig{
			Host:             "127.0.0.1",
			Port:             8077,
			SnapshotInterval: Duration(5 * time.Second),
		},
	}
}

// Load reads the yaml config at path over built-in defaults. A missing
// file is not an error; it just yields the defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Monitor.PollInterval <= 0 {
		return errors.New("monitor.poll_interval must be positive")
	}
	if c.Monitor.ReportInterval <= 0 {
		return errors.New("monitor.report_interval must be positive")
	}
	if c.Monitor.StaleAfter <= 0 {
		return errors.New("monitor.stale_after must be positive")
	}
	if c.Monitor.ReplayWindowBytes <= 0 {
		return errors.New("monitor.replay_window_bytes must be positive")
	}
	return nil
}
