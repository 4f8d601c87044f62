package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func Test_DefaultConfigHasSaneDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 1, cfg.Cores)
	assert.Empty(t, cfg.Pipeline)
	assert.Equal(t, 4*datasize.KB, cfg.Trace.MinEntryBytes)
	assert.Equal(t, 10, cfg.TickIntervalMillis)
	assert.Equal(t, zapcore.InfoLevel, cfg.Logging.Level)
}

func Test_LoadConfigOverridesDefaultsFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daemon.yaml")
	body := `
cores: 2
tick_interval_millis: 5
pipeline:
  - name: eq
    kind: eqiir
    ring_min_available: 256
    ring_min_free_space: 256
    config: [1, 0, 255]
trace:
  min_entry_bytes: 8KB
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Cores)
	assert.Equal(t, 5, cfg.TickIntervalMillis)
	assert.Equal(t, 8*datasize.KB, cfg.Trace.MinEntryBytes)
	require.Len(t, cfg.Pipeline, 1)
	assert.Equal(t, "eq", cfg.Pipeline[0].Name)
	assert.Equal(t, "eqiir", cfg.Pipeline[0].Kind)
	assert.Equal(t, datasize.ByteSize(256), cfg.Pipeline[0].RingMinAvailable)
	assert.Equal(t, []byte{1, 0, 0xFF}, cfg.Pipeline[0].Config)
}

func Test_LoadConfigLeavesUnsetFieldsAtDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daemon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cores: 4\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Cores)
	assert.Equal(t, 4*datasize.KB, cfg.Trace.MinEntryBytes)
	assert.Equal(t, 10, cfg.TickIntervalMillis)
}

func Test_LoadConfigFailsOnMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}

func Test_LoadConfigFailsOnMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daemon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cores: [this is not an int\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}
