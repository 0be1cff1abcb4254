package config

import (
	"os"

	"github.com/spf13/pflag"
)

// EnvConfig names a YAML config file when --config is not given.
const EnvConfig = "HARBOR_CONFIG"

// Flags holds the command-line overrides shared by the Harbor binaries.
// Only flags that were set on the command line override the loaded config.
type Flags struct {
	fs *pflag.FlagSet

	configPath   string
	host         string
	port         int
	debug        bool
	artifactsDir string
	logLevel     string
	logFile      string

	dataPath   string
	dataURL    string
	seed       uint64
	testSize   float64
	plotPath   string
	runLogPath string
}

// NewServerFlags registers the server flags on a new FlagSet named name.
func NewServerFlags(name string) *Flags {
	f := newFlags(name)
	f.fs.StringVar(&f.host, "host", "", "listen host")
	f.fs.IntVarP(&f.port, "port", "p", 0, "listen port (overrides "+EnvPort+")")
	return f
}

// NewTrainFlags registers the trainer flags on a new FlagSet named name.
func NewTrainFlags(name string) *Flags {
	f := newFlags(name)
	f.fs.StringVar(&f.dataPath, "data", "", "local dataset CSV")
	f.fs.StringVar(&f.dataURL, "data-url", "", "remote dataset CSV, fetched only when --data does not exist")
	f.fs.Uint64Var(&f.seed, "seed", 0, "random seed for the train/test split")
	f.fs.Float64Var(&f.testSize, "test-size", 0, "fraction of samples held out for evaluation")
	f.fs.StringVar(&f.plotPath, "plot", "", "write a predicted-vs-actual PNG to this path")
	f.fs.StringVar(&f.runLogPath, "run-log", "", "record the run in this SQLite ledger")
	return f
}

func newFlags(name string) *Flags {
	f := &Flags{fs: pflag.NewFlagSet(name, pflag.ContinueOnError)}
	f.fs.StringVarP(&f.configPath, "config", "c", "", "YAML config file (default $"+EnvConfig+")")
	f.fs.BoolVar(&f.debug, "debug", false, "debug logging with console output (overrides "+EnvDebug+")")
	f.fs.StringVar(&f.artifactsDir, "artifacts-dir", "", "artifact directory (overrides "+EnvArtifactsDir+")")
	f.fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error (overrides "+EnvLogLevel+")")
	f.fs.StringVar(&f.logFile, "log-file", "", "also write JSON logs to this rotating file")
	return f
}

// Parse parses command-line arguments (without the program name).
func (f *Flags) Parse(args []string) error {
	return f.fs.Parse(args)
}

// Load resolves defaults, the config file, the environment and the parsed
// flags, in that order, and validates the result.
func (f *Flags) Load() (*Config, error) {
	return f.load(os.LookupEnv)
}

func (f *Flags) load(lookup func(string) (string, bool)) (*Config, error) {
	path := f.configPath
	if !f.fs.Changed("config") {
		if v, ok := lookup(EnvConfig); ok {
			path = v
		}
	}
	cfg, err := load(path, lookup)
	if err != nil {
		return nil, err
	}
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f *Flags) apply(cfg *Config) {
	changed := func(name string) bool {
		return f.fs.Lookup(name) != nil && f.fs.Changed(name)
	}
	if changed("host") {
		cfg.Server.Host = f.host
	}
	if changed("port") {
		cfg.Server.Port = f.port
	}
	if changed("debug") {
		cfg.Server.Debug = f.debug
	}
	if changed("artifacts-dir") {
		cfg.Artifacts.Dir = f.artifactsDir
		cfg.Artifacts.ScalerPath = ""
		cfg.Artifacts.ModelPath = ""
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if changed("log-file") {
		cfg.Log.File = f.logFile
	}
	if changed("data") {
		cfg.Train.DataPath = f.dataPath
	}
	if changed("data-url") {
		cfg.Train.DataURL = f.dataURL
	}
	if changed("seed") {
		cfg.Train.Seed = f.seed
	}
	if changed("test-size") {
		cfg.Train.TestSize = f.testSize
	}
	if changed("plot") {
		cfg.Train.PlotPath = f.plotPath
	}
	if changed("run-log") {
		cfg.Train.RunLogPath = f.runLogPath
	}
}
