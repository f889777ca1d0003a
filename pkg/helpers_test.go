package dupsweep

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// zeroTime leaves the file's mtime untouched
var zeroTime time.Time

// writeTestFile creates path with content, setting mtime when non-zero
func writeTestFile(t *testing.T, path, content string, mtime time.Time) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	if !mtime.IsZero() {
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatalf("Failed to set times on %s: %v", path, err)
		}
	}
	return path
}

func skipIfRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
}

// makeScenario builds a.txt and b.txt holding "hello" (b older) and c.txt
// holding "world"
func makeScenario(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	writeTestFile(t, filepath.Join(dir, "a.txt"), "hello", base)
	writeTestFile(t, filepath.Join(dir, "b.txt"), "hello", base.Add(-time.Hour))
	writeTestFile(t, filepath.Join(dir, "c.txt"), "world", base)
	return dir
}

func newTestEngine(remover Remover, dryRun bool) *Engine {
	return NewEngine(EngineOptions{
		Defaults: DefaultScanOptions(),
		Delete:   DeleteOptions{Workers: 4, DryRun: dryRun},
		Remover:  remover,
		Logger:   zerolog.Nop(),
	})
}

func newTestScanner(t *testing.T, opts ScanOptions) *Scanner {
	t.Helper()
	s, err := NewScanner(opts, zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("Failed to create scanner: %v", err)
	}
	return s
}
