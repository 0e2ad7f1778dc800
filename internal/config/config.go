package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	World     WorldConfig     `toml:"world"`
	Storage   StorageConfig   `toml:"storage"`
	Transport TransportConfig `toml:"transport"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Name        string `toml:"name"`
	BindAddress string `toml:"bind_address"`
	EnablePprof bool   `toml:"enable_pprof"`
}

type WorldConfig struct {
	ID        string `toml:"id"`
	ConfigDir string `toml:"config_dir"` // catalogs and tuning.yaml
	Seed      int64  `toml:"seed"`
	// Width/Height override tuning.yaml bounds when > 0.
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

type StorageConfig struct {
	DataDir            string `toml:"data_dir"`
	SnapshotEveryTicks int    `toml:"snapshot_every_ticks"`
	Resume             bool   `toml:"resume"`
	DisableIndex       bool   `toml:"disable_index"`
	DisableTickLog     bool   `toml:"disable_tick_log"`
	// Snapshots whose tick is a multiple of ArchiveEveryTicks are copied to
	// archives/; only the newest KeepSnapshots stay in snapshots/.
	ArchiveEveryTicks uint64 `toml:"archive_every_ticks"`
	KeepSnapshots     int    `toml:"keep_snapshots"`
}

type TransportConfig struct {
	MaxMessageBytes int64         `toml:"max_message_bytes"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	CommandTimeout  time.Duration `toml:"command_timeout"`
	ObserverBuffer  int           `toml:"observer_buffer"`
	RateWindowTicks uint64        `toml:"rate_window_ticks"`
	RateMax         int           `toml:"rate_max"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault returns defaults when path is empty or does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return defaults(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return defaults(), nil
	}
	return Load(path)
}

func Defaults() *Config { return defaults() }

func (c *Config) Validate() error {
	if c.Server.BindAddress == "" {
		return errors.New("server.bind_address is required")
	}
	if c.World.ID == "" {
		return errors.New("world.id is required")
	}
	if c.World.Width < 0 || c.World.Height < 0 {
		return errors.New("world.width and world.height must be >= 0")
	}
	if c.Storage.SnapshotEveryTicks < 0 {
		return errors.New("storage.snapshot_every_ticks must be >= 0")
	}
	if c.Storage.KeepSnapshots < 0 {
		return errors.New("storage.keep_snapshots must be >= 0")
	}
	if c.Transport.MaxMessageBytes <= 0 {
		return errors.New("transport.max_message_bytes must be > 0")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console (got %q)", c.Logging.Format)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:        "factorycraft",
			BindAddress: "0.0.0.0:8080",
		},
		World: WorldConfig{
			ID:        "world_1",
			ConfigDir: "./configs",
			Seed:      1337,
		},
		Storage: StorageConfig{
			DataDir:            "./data",
			SnapshotEveryTicks: 1200,
			Resume:             true,
			ArchiveEveryTicks:  72000,
			KeepSnapshots:      10,
		},
		Transport: TransportConfig{
			MaxMessageBytes: 64 * 1024,
			WriteTimeout:    10 * time.Second,
			ReadTimeout:     60 * time.Second,
			CommandTimeout:  5 * time.Second,
			ObserverBuffer:  4,
			RateWindowTicks: 20,
			RateMax:         200,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
