package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crimsonsky/ai-player-sub001/internal/container"
	"github.com/crimsonsky/ai-player-sub001/internal/logging"
	"github.com/crimsonsky/ai-player-sub001/internal/state"
)

// #region types
// Config is the full on-disk configuration.
type Config struct {
	DataDir string       `yaml:"data_dir"`
	Codec   state.Config `yaml:"codec"`
	Replay  ReplayConfig `yaml:"replay"`
	Server  ServerConfig `yaml:"server"`
	Log     LogConfig    `yaml:"log"`
}

// ReplayConfig sizes the experience store and its snapshots.
type ReplayConfig struct {
	Capacity    int    `yaml:"capacity"`
	StateWidth  int    `yaml:"state_width"` // 0 selects variable-shape storage
	Seed        uint64 `yaml:"seed"`        // 0 draws a random seed
	Snapshot    string `yaml:"snapshot"`    // empty means <data_dir>/experiences/replay.db
	Compression string `yaml:"compression"`
	MinReady    int    `yaml:"min_ready"`
}

// ServerConfig controls the replay server process.
type ServerConfig struct {
	GRPCAddr         string        `yaml:"grpc_addr"`
	MetricsAddr      string        `yaml:"metrics_addr"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
// #endregion types

// #region defaults
// Default returns a config that runs without a file.
func Default() Config {
	codec := state.DefaultConfig()
	return Config{
		DataDir: "data",
		Codec:   codec,
		Replay: ReplayConfig{
			Capacity:    100000,
			StateWidth:  codec.VectorSize,
			Compression: string(container.CompressionAuto),
			MinReady:    1000,
		},
		Server: ServerConfig{
			GRPCAddr:         "localhost:50061",
			MetricsAddr:      "localhost:9464",
			SnapshotInterval: 5 * time.Minute,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}
// #endregion defaults

// #region load
// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if cfg.Replay.Snapshot == "" {
		cfg.Replay.Snapshot = cfg.DefaultSnapshot()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.DataDir = envOr("GAMESTATE_DATA_DIR", c.DataDir)
	c.Server.GRPCAddr = envOr("GAMESTATE_GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.MetricsAddr = envOr("GAMESTATE_METRICS_ADDR", c.Server.MetricsAddr)
	c.Replay.Snapshot = envOr("GAMESTATE_SNAPSHOT", c.Replay.Snapshot)
	c.Log.Level = envOr("GAMESTATE_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOr("GAMESTATE_LOG_FORMAT", c.Log.Format)
	if v := os.Getenv("GAMESTATE_REPLAY_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GAMESTATE_REPLAY_CAPACITY: %w", err)
		}
		c.Replay.Capacity = n
	}
	return nil
}

// DefaultSnapshot is the snapshot path inside the data layout.
func (c Config) DefaultSnapshot() string {
	return filepath.Join(c.DataDir, "experiences", "replay.db")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
// #endregion load

// #region validate
// Validate checks every section.
func (c Config) Validate() error {
	var errs []error
	if err := c.Codec.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("codec: %w", err))
	}
	if c.Replay.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("replay: capacity %d must be positive", c.Replay.Capacity))
	}
	if c.Replay.StateWidth < 0 {
		errs = append(errs, fmt.Errorf("replay: state_width %d is negative", c.Replay.StateWidth))
	}
	if c.Replay.MinReady < 0 {
		errs = append(errs, fmt.Errorf("replay: min_ready %d is negative", c.Replay.MinReady))
	}
	if _, err := container.ParseCompression(c.Replay.Compression); err != nil {
		errs = append(errs, fmt.Errorf("replay: %w", err))
	}
	if c.Server.GRPCAddr == "" {
		errs = append(errs, errors.New("server: grpc_addr is empty"))
	}
	if c.Server.SnapshotInterval < 0 {
		errs = append(errs, fmt.Errorf("server: snapshot_interval %s is negative", c.Server.SnapshotInterval))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	return errors.Join(errs...)
}
// #endregion validate

// #region data-dirs
// DataDirs lists the subdirectories of the data layout.
var DataDirs = []string{"experiences", "state_vectors", "training_batches", "archives", "logs"}

// EnsureDataDirs creates the data layout under base.
func EnsureDataDirs(base string) error {
	for _, d := range DataDirs {
		if err := os.MkdirAll(filepath.Join(base, d), 0o755); err != nil {
			return fmt.Errorf("create data dir %s: %w", d, err)
		}
	}
	return nil
}
// #endregion data-dirs
