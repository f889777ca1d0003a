package dupsweep

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusUnchanged(t *testing.T) {
	dir := makeScenario(t)
	result, err := newTestEngine(nil, false).Scan(context.Background(), dir, DefaultScanOptions())
	require.NoError(t, err)

	status := result.Status(context.Background())
	assert.True(t, status.Complete)
	assert.False(t, status.HasChanges())
	assert.Equal(t, 2, status.Unchanged)
	assert.Zero(t, status.StaleGroups)
}

func TestStatusDetectsChanges(t *testing.T) {
	dir := makeScenario(t)
	writeTestFile(t, filepath.Join(dir, "d.txt"), "world", zeroTime)
	writeTestFile(t, filepath.Join(dir, "e.txt"), "world", zeroTime)

	result, err := newTestEngine(nil, false).Scan(context.Background(), dir, DefaultScanOptions())
	require.NoError(t, err)
	require.Len(t, result.Groups, 2)

	require.NoError(t, os.Remove(filepath.Join(dir, "a.txt")))
	writeTestFile(t, filepath.Join(dir, "d.txt"), "world", time.Now().Add(time.Hour))

	status := result.Status(context.Background())
	assert.True(t, status.HasChanges())
	assert.Equal(t, 2, status.TotalChanges())
	assert.Equal(t, []string{filepath.Join(dir, "a.txt")}, status.Deleted)
	assert.Equal(t, []string{filepath.Join(dir, "d.txt")}, status.Modified)
	assert.Equal(t, 2, status.StaleGroups)
	assert.Equal(t, 3, status.Unchanged)
}

func TestStatusSymlinkSubstitution(t *testing.T) {
	dir := makeScenario(t)
	result, err := newTestEngine(nil, false).Scan(context.Background(), dir, DefaultScanOptions())
	require.NoError(t, err)

	target := filepath.Join(dir, "a.txt")
	require.NoError(t, os.Remove(target))
	require.NoError(t, os.Symlink(filepath.Join(dir, "c.txt"), target))

	status := result.Status(context.Background())
	assert.Equal(t, []string{target}, status.Modified)
}

func TestStatusCancelled(t *testing.T) {
	dir := makeScenario(t)
	result, err := newTestEngine(nil, false).Scan(context.Background(), dir, DefaultScanOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	status := result.Status(ctx)
	assert.False(t, status.Complete)
	assert.Zero(t, status.Unchanged)
}

func TestFileStatusString(t *testing.T) {
	assert.Equal(t, "unchanged", StatusUnchanged.String())
	assert.Equal(t, "modified", StatusModified.String())
	assert.Equal(t, "deleted", StatusDeleted.String())
	assert.Equal(t, "unknown", FileStatus(42).String())
}
