package dupsweep

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// Remover abstracts the final unlink so tests can prove dry runs never delete
type Remover interface {
	Remove(path string) error
}

type osRemover struct{}

func (osRemover) Remove(path string) error { return os.Remove(path) }

// OSRemover returns the Remover backed by os.Remove
func OSRemover() Remover { return osRemover{} }

// DeletionOutcome is the result for one requested path
type DeletionOutcome struct {
	Path   string    `json:"path"`
	Result string    `json:"result"`
	Reason string    `json:"reason,omitempty"`
	Kind   ErrorKind `json:"kind,omitempty"`
	Bytes  int64     `json:"bytes"`
}

// Deleted returns true if the file was removed
func (o DeletionOutcome) Deleted() bool {
	return o.Result == ResultDeleted
}

// DeletionReport aggregates outcomes in request order
type DeletionReport struct {
	Outcomes   []DeletionOutcome `json:"outcomes"`
	Deleted    int               `json:"deleted"`
	Skipped    int               `json:"skipped"`
	Failed     int               `json:"failed"`
	BytesFreed int64             `json:"bytes_freed"`
	DryRun     bool              `json:"dry_run"`
}

// problems counts outcomes that are neither removals nor dry-run passes
func (r *DeletionReport) problems() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Result == ResultFailed || (o.Result == ResultSkipped && o.Reason != ReasonDryRun) {
			n++
		}
	}
	return n
}

// OK returns true when every target was removed, or would be in a dry run
func (r *DeletionReport) OK() bool {
	return r.problems() == 0
}

// Partial returns true when some targets went through and others did not
func (r *DeletionReport) Partial() bool {
	n := r.problems()
	return n > 0 && n < len(r.Outcomes)
}

// DeleteOptions configures a DeletionExecutor
type DeleteOptions struct {
	Workers int
	DryRun  bool
}

// deleteTarget is one requested removal. expect carries the scan's view of
// the file for bulk deletion; preset short-circuits the checks.
type deleteTarget struct {
	path   string
	expect *FileRecord
	preset *DeletionOutcome
}

// reportCollector serialises updates from the deletion workers
type reportCollector struct {
	mu     sync.Mutex
	report *DeletionReport
}

func (c *reportCollector) record(index int, outcome DeletionOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.report.Outcomes[index] = outcome
	switch outcome.Result {
	case ResultDeleted:
		c.report.Deleted++
		c.report.BytesFreed += outcome.Bytes
	case ResultSkipped:
		c.report.Skipped++
	case ResultFailed:
		c.report.Failed++
	}
}

// DeletionExecutor removes files after re-checking them against the
// filesystem. It is the only part of the engine that mutates anything.
type DeletionExecutor struct {
	remover Remover
	workers int
	dryRun  bool
	log     zerolog.Logger
	debug   DebugFlags
}

// NewDeletionExecutor creates an executor. A nil remover uses os.Remove.
func NewDeletionExecutor(remover Remover, opts DeleteOptions, log zerolog.Logger, debug DebugFlags) *DeletionExecutor {
	if remover == nil {
		remover = osRemover{}
	}
	workers := opts.Workers
	if workers < 1 {
		workers = DefaultDeleteWorkers
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}
	return &DeletionExecutor{
		remover: remover,
		workers: workers,
		dryRun:  opts.DryRun,
		log:     log,
		debug:   debug,
	}
}

// DryRun reports whether removals are only simulated
func (e *DeletionExecutor) DryRun() bool {
	return e.dryRun
}

// DeleteOne removes a single file
func (e *DeletionExecutor) DeleteOne(ctx context.Context, path string) DeletionOutcome {
	return e.removeTarget(ctx, deleteTarget{path: path})
}

// DeleteMany removes each path independently. The report has one outcome per
// input path in input order; a repeated path is removed at most once.
func (e *DeletionExecutor) DeleteMany(ctx context.Context, paths []string) *DeletionReport {
	targets := make([]deleteTarget, len(paths))
	for i, p := range paths {
		targets[i] = deleteTarget{path: p}
	}
	return e.run(ctx, targets)
}

// DeleteDuplicates removes every non-original member of every group. Targets
// that changed since the scan are skipped, and a group whose original is gone
// or changed is skipped whole.
func (e *DeletionExecutor) DeleteDuplicates(ctx context.Context, result *ScanResult) *DeletionReport {
	if result == nil {
		return &DeletionReport{Outcomes: []DeletionOutcome{}, DryRun: e.dryRun}
	}

	var targets []deleteTarget
	for _, g := range result.Groups {
		members := g.DeletionTargets()
		groupSkip := e.checkOriginal(g)

		for i := range members {
			f := members[i]
			t := deleteTarget{path: f.Path, expect: &f}
			switch {
			case groupSkip != nil:
				t.preset = &DeletionOutcome{Path: f.Path, Result: ResultSkipped, Reason: groupSkip.Reason, Kind: groupSkip.Kind}
			case result.Root != "" && !isPathUnder(f.Path, result.Root):
				t.preset = &DeletionOutcome{Path: f.Path, Result: ResultSkipped, Reason: ReasonOutsideRoot}
			}
			targets = append(targets, t)
		}
	}

	return e.run(ctx, targets)
}

// checkOriginal returns a skip outcome when the group's original can no
// longer vouch for the content
func (e *DeletionExecutor) checkOriginal(g *DuplicateGroup) *DeletionOutcome {
	orig, err := g.OriginalRecord()
	if err != nil {
		return &DeletionOutcome{Result: ResultSkipped, Reason: ReasonOriginalMissing, Kind: KindRace}
	}

	info, err := os.Lstat(orig.Path)
	if err != nil || !info.Mode().IsRegular() {
		e.log.Warn().Str("original", orig.Path).Msg("Original missing, skipping group")
		return &DeletionOutcome{Result: ResultSkipped, Reason: ReasonOriginalMissing, Kind: KindRace}
	}
	if isFileModified(&orig, info) {
		e.log.Warn().Str("original", orig.Path).Msg("Original changed since scan, skipping group")
		return &DeletionOutcome{Result: ResultSkipped, Reason: ReasonOriginalChanged, Kind: KindRace}
	}
	return nil
}

// run dispatches unique targets to the worker pool and collects outcomes
func (e *DeletionExecutor) run(ctx context.Context, targets []deleteTarget) *DeletionReport {
	collector := &reportCollector{
		report: &DeletionReport{
			Outcomes: make([]DeletionOutcome, len(targets)),
			DryRun:   e.dryRun,
		},
	}

	seen := make(map[string]struct{}, len(targets))
	var pending []int
	for i, t := range targets {
		if t.preset != nil {
			collector.record(i, *t.preset)
			continue
		}
		key := filepath.Clean(t.path)
		if t.path != "" {
			if _, dup := seen[key]; dup {
				collector.record(i, DeletionOutcome{Path: t.path, Result: ResultSkipped, Reason: ReasonDuplicateTarget})
				continue
			}
			seen[key] = struct{}{}
		}
		pending = append(pending, i)
	}

	workers := e.workers
	if workers > len(pending) {
		workers = len(pending)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				collector.record(idx, e.removeTarget(ctx, targets[idx]))
			}
		}()
	}
	for _, idx := range pending {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	report := collector.report
	e.log.Info().Int("deleted", report.Deleted).Int("skipped", report.Skipped).Int("failed", report.Failed).
		Int64("freed", report.BytesFreed).Bool("dry_run", e.dryRun).Msg("Deletion finished")
	return report
}

// removeTarget applies every precondition to one path and removes it
func (e *DeletionExecutor) removeTarget(ctx context.Context, t deleteTarget) DeletionOutcome {
	outcome := e.checkAndRemove(ctx, t)

	switch outcome.Result {
	case ResultDeleted:
		e.log.Info().Str("path", outcome.Path).Int64("bytes", outcome.Bytes).Msg("Deleted file")
	case ResultFailed:
		e.log.Error().Str("path", outcome.Path).Str("kind", string(outcome.Kind)).Msg(outcome.Reason)
	default:
		debugEvent(e.log, e.debug, DebugDelete).Str("path", outcome.Path).Str("reason", outcome.Reason).Msg("skipped")
	}
	return outcome
}

func (e *DeletionExecutor) checkAndRemove(ctx context.Context, t deleteTarget) DeletionOutcome {
	skip := func(reason string, kind ErrorKind) DeletionOutcome {
		return DeletionOutcome{Path: t.path, Result: ResultSkipped, Reason: reason, Kind: kind}
	}

	if t.path == "" {
		return skip(ReasonEmptyPath, "")
	}
	if ctx.Err() != nil {
		return skip(ReasonCancelled, KindCancelled)
	}

	path := filepath.Clean(t.path)

	info, err := os.Lstat(path)
	if err != nil {
		fe := classifyOSError(path, err)
		if isNotExist(err) {
			return skip(ReasonVanished, KindRace)
		}
		return skip(fe.Reason(), fe.Kind)
	}

	mode := info.Mode()
	if !mode.IsRegular() {
		reason := ReasonNotRegular
		if mode&os.ModeSymlink != 0 {
			reason = ReasonSymlink
		}
		if t.expect != nil {
			// the scan saw a regular file here
			return skip(reason, KindRace)
		}
		return skip(reason, "")
	}

	if t.expect != nil && isFileModified(t.expect, info) {
		return skip(ReasonChangedOnDisk, KindRace)
	}

	if err := unix.Access(filepath.Dir(path), unix.W_OK|unix.X_OK); err != nil {
		return skip(ReasonNoDirAccess, KindPermission)
	}

	if e.dryRun {
		o := skip(ReasonDryRun, "")
		o.Bytes = info.Size()
		return o
	}

	// Narrow the window between the checks and the unlink
	current, err := os.Lstat(path)
	if err != nil {
		return skip(ReasonVanished, KindRace)
	}
	if !os.SameFile(info, current) {
		return skip(ReasonReplaced, KindRace)
	}

	if err := e.remover.Remove(path); err != nil {
		if isNotExist(err) {
			return skip(ReasonVanished, KindRace)
		}
		return DeletionOutcome{Path: t.path, Result: ResultFailed, Reason: err.Error(), Kind: KindDeletion}
	}

	return DeletionOutcome{Path: t.path, Result: ResultDeleted, Bytes: info.Size()}
}
