package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendsp/audiocore/internal/config"
)

func eqiirConfigBytes(t *testing.T) []byte {
	t.Helper()
	// One channel, bypass response (-1): smallest valid eqiir.Init blob.
	return []byte{1, 0, 0xFF}
}

func Test_NewBuildsAndStartsAnEmptyPipeline(t *testing.T) {
	cfg := config.DefaultConfig()
	d, err := New(cfg)
	require.NoError(t, err)
	assert.Empty(t, d.stages)
}

func Test_NewBuildsAndStartsAConfiguredPipeline(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Pipeline = []config.InstanceConfig{
		{Name: "eq", Kind: "eqiir", Config: eqiirConfigBytes(t)},
	}

	d, err := New(cfg)
	require.NoError(t, err)
	require.Len(t, d.stages, 1)
}

func Test_NewRejectsUnknownModuleKind(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Pipeline = []config.InstanceConfig{
		{Name: "mystery", Kind: "does-not-exist"},
	}

	_, err := New(cfg)
	require.Error(t, err)
}

func Test_RunStopsCleanlyOnContextCancel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TickIntervalMillis = 5
	cfg.Pipeline = []config.InstanceConfig{
		{Name: "eq", Kind: "eqiir", Config: eqiirConfigBytes(t)},
	}

	d, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	require.NoError(t, d.Run(ctx))
}
