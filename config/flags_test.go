package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerFlagsOverrideEnvAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harbor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7000\nlog:\n  level: warn\n"), 0o644))

	f := NewServerFlags("harbor-server")
	require.NoError(t, f.Parse([]string{"--config", path, "-p", "9100", "--artifacts-dir", "/models"}))

	cfg, err := f.load(env(map[string]string{EnvPort: "8000", EnvLogLevel: "error"}))
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port, "flag beats env beats file")
	assert.Equal(t, "error", cfg.Log.Level, "env beats file")
	assert.Equal(t, "/models/scaling.gob", cfg.ArtifactPaths().Scaler)
}

func TestFlagsConfigFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harbor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  host: 127.0.0.1\n"), 0o644))

	f := NewServerFlags("harbor-server")
	require.NoError(t, f.Parse(nil))
	cfg, err := f.load(env(map[string]string{EnvConfig: path}))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:5000", cfg.Addr())
}

func TestTrainFlags(t *testing.T) {
	f := NewTrainFlags("harbor-train")
	require.NoError(t, f.Parse([]string{
		"--data", "in.csv", "--data-url", "https://example.com/h.csv",
		"--seed", "9", "--test-size", "0.25", "--plot", "eval.png", "--run-log", "runs.db",
	}))
	cfg, err := f.load(env(nil))
	require.NoError(t, err)

	assert.Equal(t, "in.csv", cfg.Train.DataPath)
	assert.Equal(t, "https://example.com/h.csv", cfg.Train.DataURL)
	assert.Equal(t, uint64(9), cfg.Train.Seed)
	assert.Equal(t, 0.25, cfg.Train.TestSize)
	assert.Equal(t, "eval.png", cfg.Train.PlotPath)
	assert.Equal(t, "runs.db", cfg.Train.RunLogPath)

	// 学習用フラグはサーバーには存在しない
	assert.Error(t, NewServerFlags("harbor-server").Parse([]string{"--seed", "1"}))
}

func TestFlagsUnsetKeepConfig(t *testing.T) {
	f := NewTrainFlags("harbor-train")
	require.NoError(t, f.Parse(nil))
	cfg, err := f.load(env(map[string]string{EnvDebug: "true"}))
	require.NoError(t, err)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, uint64(42), cfg.Train.Seed)
}

func TestFlagsInvalidAfterOverride(t *testing.T) {
	f := NewServerFlags("harbor-server")
	require.NoError(t, f.Parse([]string{"--port", "0"}))
	_, err := f.load(env(nil))
	assert.Error(t, err)

	f = NewServerFlags("harbor-server")
	assert.ErrorIs(t, f.Parse([]string{"--help"}), pflag.ErrHelp)
}
