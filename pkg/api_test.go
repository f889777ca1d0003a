package dupsweep

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineFromConfig(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, cfg.ApplyOverrides([]string{"keep:path", "dry_run:true", "debug:delete"}))

	engine := NewEngineFromConfig(cfg, zerolog.Nop())
	assert.True(t, engine.DryRun())
	assert.Equal(t, KeepPath, engine.DefaultScanOptions().KeepPolicy)
	assert.True(t, engine.debug.Enabled(DebugDelete))

	dir := makeScenario(t)
	result, err := engine.Scan(context.Background(), dir, engine.DefaultScanOptions())
	require.NoError(t, err)
	require.Len(t, result.Groups, 1)
	// path policy keeps a.txt even though b.txt is older
	assert.Equal(t, filepath.Join(dir, "a.txt"), result.Groups[0].Original)
	assert.Equal(t, "duplicate of file with earlier path", result.Suggestions()[0].Reason)
}

func TestEngineWithDryRun(t *testing.T) {
	engine := newTestEngine(nil, false)
	dry := engine.WithDryRun(true)

	assert.False(t, engine.DryRun())
	assert.True(t, dry.DryRun())

	dir := makeScenario(t)
	target := filepath.Join(dir, "a.txt")
	outcome := dry.DeleteOne(context.Background(), target)
	assert.Equal(t, ReasonDryRun, outcome.Reason)
	assert.True(t, fileExists(target))

	outcome = engine.DeleteOne(context.Background(), target)
	assert.Equal(t, ResultDeleted, outcome.Result)
}

func TestEngineDefaultScanOptionsCopy(t *testing.T) {
	defaults := DefaultScanOptions()
	defaults.Extensions = []string{".txt"}
	engine := NewEngine(EngineOptions{Defaults: defaults, Logger: zerolog.Nop()})

	opts := engine.DefaultScanOptions()
	opts.Extensions[0] = ".bin"
	assert.Equal(t, ".txt", engine.DefaultScanOptions().Extensions[0])
}

func TestEngineScanRejectsBadOptions(t *testing.T) {
	engine := newTestEngine(nil, false)
	opts := DefaultScanOptions()
	opts.HashAlgorithm = "crc32"

	_, err := engine.Scan(context.Background(), t.TempDir(), opts)
	assert.Error(t, err)
	assert.False(t, IsInvalidRoot(err))
}
