// Package config loads Harbor configuration.
//
// Values are resolved in this order, later sources overriding earlier ones:
//   - built-in defaults (Default)
//   - an optional YAML file
//   - environment variables (PORT, DEBUG, HARBOR_ARTIFACTS_DIR, HARBOR_LOG_LEVEL)
//   - command-line flags, applied by the cmd/ binaries
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/peakwhale/harbor/artifact"
	"github.com/peakwhale/harbor/dataset"
	"github.com/peakwhale/harbor/pkg/errors"
	"github.com/peakwhale/harbor/pkg/log"
)

// Environment variable names.
const (
	EnvPort         = "PORT"
	EnvDebug        = "DEBUG"
	EnvArtifactsDir = "HARBOR_ARTIFACTS_DIR"
	EnvLogLevel     = "HARBOR_LOG_LEVEL"
)

// Config is the complete configuration for the server and the trainer.
type Config struct {
	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Artifacts locates the fitted scaler and model.
	Artifacts ArtifactsConfig `yaml:"artifacts"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`

	// Train configures the offline trainer.
	Train TrainConfig `yaml:"train"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Host is the listen host. Default: 0.0.0.0
	Host string `yaml:"host"`

	// Port is the listen port. Default: 5000
	Port int `yaml:"port"`

	// Debug enables debug logging and human-readable console output.
	Debug bool `yaml:"debug"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes limits the size of request bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// ArtifactsConfig locates the artifact files. Explicit paths win over Dir.
type ArtifactsConfig struct {
	Dir        string `yaml:"dir"`
	ScalerPath string `yaml:"scaler_path"`
	ModelPath  string `yaml:"model_path"`
}

// LogConfig configures pkg/log.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default: info
	Level string `yaml:"level"`

	// File enables a rotating log file in addition to stdout.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// TrainConfig configures the trainer.
type TrainConfig struct {
	// DataPath is the local CSV. DataURL is only fetched when DataPath does not
	// exist, and is empty by default: remote fetching is opt-in.
	DataPath string `yaml:"data_path"`
	DataURL  string `yaml:"data_url"`

	TestSize float64 `yaml:"test_size"`
	Seed     uint64  `yaml:"seed"`

	// PlotPath, when set, receives a predicted-vs-actual PNG of the test split.
	PlotPath string `yaml:"plot_path"`

	// RunLogPath, when set, is a SQLite ledger of training runs.
	RunLogPath string `yaml:"run_log_path"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Artifacts: ArtifactsConfig{
			Dir: artifact.DefaultDir,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Train: TrainConfig{
			DataPath: filepath.Join("data", "boston_housing.csv"),
			TestSize: dataset.DefaultTestSize,
			Seed:     dataset.DefaultSeed,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the process environment, then validates it.
func Load(path string) (*Config, error) {
	cfg, err := load(path, os.LookupEnv)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrapf(err, "invalid %s %q", EnvPort, v)
		}
		c.Server.Port = port
	}
	if v, ok := lookup(EnvDebug); ok && v != "" {
		debug, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrapf(err, "invalid %s %q", EnvDebug, v)
		}
		c.Server.Debug = debug
	}
	if v, ok := lookup(EnvArtifactsDir); ok && v != "" {
		c.Artifacts.Dir = v
		c.Artifacts.ScalerPath = ""
		c.Artifacts.ModelPath = ""
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate reports the first invalid value.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.Newf("config: port %d out of range", c.Server.Port)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "config: log.level")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return errors.New("config: server timeouts must not be negative")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("config: server.max_body_bytes must be positive")
	}
	if c.Train.TestSize <= 0 || c.Train.TestSize >= 1 {
		return errors.Newf("config: train.test_size %v must be in (0, 1)", c.Train.TestSize)
	}
	if c.Artifacts.Dir == "" && (c.Artifacts.ScalerPath == "" || c.Artifacts.ModelPath == "") {
		return errors.New("config: artifacts.dir or both artifact paths are required")
	}
	return nil
}

// ArtifactPaths resolves the scaler and model file paths.
func (c *Config) ArtifactPaths() artifact.Paths {
	p := artifact.PathsIn(c.Artifacts.Dir)
	if c.Artifacts.ScalerPath != "" {
		p.Scaler = c.Artifacts.ScalerPath
	}
	if c.Artifacts.ModelPath != "" {
		p.Model = c.Artifacts.ModelPath
	}
	return p
}

// LogLevel returns the effective log level; debug mode forces debug.
func (c *Config) LogLevel() string {
	if c.Server.Debug {
		return "debug"
	}
	return c.Log.Level
}

// LogOptions converts the logging section into pkg/log options.
func (c *Config) LogOptions() log.Options {
	return log.Options{
		Level:      c.LogLevel(),
		Console:    c.Server.Debug,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}
