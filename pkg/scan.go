package dupsweep

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ============================================================================
// TYPE DEFINITIONS
// ============================================================================

// ScanOptions controls what the scanner considers and how it hashes
type ScanOptions struct {
	Extensions     []string // allow-list; empty means every extension
	MaxFileSize    int64    // files above this are skipped; <= 0 disables the ceiling
	ChunkSize      int      // read buffer for hashing
	Workers        int      // concurrent hash workers
	HashAlgorithm  string   // sha256 or sha512
	IgnorePatterns []string // regexes matched against slash-separated relative paths
	SizePrefilter  bool     // only hash files whose size is shared with another file
	KeepPolicy     string   // original selection policy
}

// DefaultScanOptions returns the built-in scan configuration
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		MaxFileSize:   DefaultMaxFileSize,
		ChunkSize:     DefaultChunkSize,
		Workers:       DefaultHashWorkers,
		HashAlgorithm: DefaultHashAlgorithm,
		SizePrefilter: true,
		KeepPolicy:    KeepOldest,
	}
}

// normalise fills zero values with defaults and validates the rest
func (o ScanOptions) normalise() (ScanOptions, error) {
	if o.ChunkSize == 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Workers == 0 {
		o.Workers = DefaultHashWorkers
	}
	if o.HashAlgorithm == "" {
		o.HashAlgorithm = DefaultHashAlgorithm
	}
	if o.KeepPolicy == "" {
		o.KeepPolicy = KeepOldest
	}
	o.Extensions = NormaliseExtensions(o.Extensions)

	if err := ValidateHashAlgorithm(o.HashAlgorithm); err != nil {
		return o, err
	}
	if err := ValidateChunkSize(o.ChunkSize); err != nil {
		return o, err
	}
	if err := ValidateWorkers(o.Workers); err != nil {
		return o, err
	}
	if err := ValidateKeepPolicy(o.KeepPolicy); err != nil {
		return o, err
	}
	for _, p := range o.IgnorePatterns {
		if err := ValidatePattern(p); err != nil {
			return o, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
	}
	return o, nil
}

// SkipCounts tallies entries the scanner saw but did not hash
type SkipCounts struct {
	Extension  int `json:"extension"`
	TooLarge   int `json:"too_large"`
	Special    int `json:"special"`
	Ignored    int `json:"ignored"`
	Empty      int `json:"empty"`
	UniqueSize int `json:"unique_size"`
}

// ScanOutput is the raw product of one scan, before grouping
type ScanOutput struct {
	Root       string
	Algorithm  string
	Records    []*FileRecord // sorted by path
	Errors     map[string]*FileError
	Skipped    SkipCounts
	TotalFiles int
	TotalBytes int64
	Cancelled  bool
	Started    time.Time
	Duration   time.Duration
}

// walkItem is one event streamed by the directory walker
type walkItem struct {
	record    *FileRecord
	err       *FileError
	skip      *int // counter in SkipCounts to bump
	cancelled bool
}

// hashJob represents a file queued for fingerprinting
type hashJob struct {
	index  int
	record *FileRecord
}

type hashResult struct {
	index  int
	digest Digest
	err    error
}

// Scanner walks a directory tree and fingerprints candidate files
type Scanner struct {
	opts          ScanOptions
	fingerprinter *Fingerprinter
	extensions    map[string]struct{}
	log           zerolog.Logger
	debug         DebugFlags
}

// NewScanner validates opts and prepares a scanner. A Scanner holds no
// per-scan state and may run several scans concurrently.
func NewScanner(opts ScanOptions, log zerolog.Logger, debug DebugFlags) (*Scanner, error) {
	opts, err := opts.normalise()
	if err != nil {
		return nil, err
	}

	fp, err := NewFingerprinter(opts.HashAlgorithm, opts.ChunkSize, opts.MaxFileSize)
	if err != nil {
		return nil, err
	}

	var exts map[string]struct{}
	if len(opts.Extensions) > 0 {
		exts = make(map[string]struct{}, len(opts.Extensions))
		for _, ext := range opts.Extensions {
			exts[ext] = struct{}{}
		}
	}

	return &Scanner{
		opts:          opts,
		fingerprinter: fp,
		extensions:    exts,
		log:           log,
		debug:         debug,
	}, nil
}

// Options returns the normalised options
func (s *Scanner) Options() ScanOptions {
	return s.opts
}

// ============================================================================
// MAIN SCAN FUNCTION
// ============================================================================

// Scan enumerates root, applies the pre-filters and fingerprints every
// candidate that could have a duplicate. Only an invalid root is returned as
// an error; per-file problems are collected in ScanOutput.Errors. A cancelled
// context stops the scan at the next file boundary and sets Cancelled.
func (s *Scanner) Scan(ctx context.Context, root string) (*ScanOutput, error) {
	absRoot, err := ValidateRootPath(root)
	if err != nil {
		return nil, err
	}

	out := &ScanOutput{
		Root:      absRoot,
		Algorithm: s.fingerprinter.Algorithm().Name,
		Errors:    make(map[string]*FileError),
		Started:   time.Now(),
	}

	ignore, err := NewIgnoreManager(s.opts.IgnorePatterns)
	if err != nil {
		return nil, err
	}
	ignoreFile := filepath.Join(absRoot, IgnoreFileName)
	if err := ignore.LoadIgnoreFile(ignoreFile); err != nil {
		out.Errors[ignoreFile] = classifyOSError(ignoreFile, err)
	}

	s.log.Info().Str("root", absRoot).Int("workers", s.opts.Workers).
		Str("hash", s.opts.HashAlgorithm).Msg("Starting directory scan")

	// Stream the walk; collection happens on this goroutine so the
	// counters and error log have a single writer.
	walkChan := make(chan walkItem, 64)
	go s.walk(ctx, absRoot, ignoreFile, ignore, &out.Skipped, walkChan)

	var candidates []*FileRecord
	for item := range walkChan {
		switch {
		case item.cancelled:
			out.Cancelled = true
		case item.err != nil:
			s.recordError(out, item.err)
		case item.skip != nil:
			*item.skip++
		case item.record != nil:
			candidates = append(candidates, item.record)
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Path < candidates[j].Path })

	toHash := s.selectForHashing(candidates, &out.Skipped)

	var results []hashResult
	if !out.Cancelled && len(toHash) > 0 {
		results = s.hashAll(ctx, candidates, toHash)
	}

	records := make([]*FileRecord, 0, len(candidates))
	resultByIndex := make(map[int]hashResult, len(results))
	for _, r := range results {
		resultByIndex[r.index] = r
	}
	hashWanted := make(map[int]bool, len(toHash))
	for _, idx := range toHash {
		hashWanted[idx] = true
	}

	for i, rec := range candidates {
		if !hashWanted[i] {
			records = append(records, rec)
			continue
		}
		r, ok := resultByIndex[i]
		if !ok {
			// never reached before cancellation
			out.Cancelled = true
			continue
		}
		if r.err == nil {
			records = append(records, rec.withDigest(r.digest))
			continue
		}
		switch ErrorKindOf(r.err) {
		case KindCancelled:
			out.Cancelled = true
		case KindPermission:
			s.recordError(out, r.err)
			records = append(records, rec.unreadable())
		default:
			s.recordError(out, r.err)
		}
	}

	if ctx.Err() != nil {
		out.Cancelled = true
	}

	out.Records = records
	for _, rec := range records {
		out.TotalFiles++
		out.TotalBytes += rec.Size
	}
	out.Duration = time.Since(out.Started)

	event := s.log.Info()
	if out.Cancelled {
		event = s.log.Warn()
	}
	event.Str("root", absRoot).Int("files", out.TotalFiles).Int("errors", len(out.Errors)).
		Bool("cancelled", out.Cancelled).Dur("elapsed", out.Duration).Msg("Directory scan finished")

	return out, nil
}

func (s *Scanner) recordError(out *ScanOutput, err error) {
	fe, ok := err.(*FileError)
	if !ok {
		fe = newFileError(KindIO, out.Root, err)
	}
	out.Errors[fe.Path] = fe
	s.log.Warn().Str("path", fe.Path).Str("kind", string(fe.Kind)).Msg(fe.Reason())
}

// selectForHashing returns indices of candidates that need a digest.
// Zero-byte files are never hashed; with the size pre-filter, neither are
// files whose size no other candidate shares.
func (s *Scanner) selectForHashing(candidates []*FileRecord, skipped *SkipCounts) []int {
	sizeCount := make(map[int64]int)
	for _, rec := range candidates {
		if rec.Size > 0 {
			sizeCount[rec.Size]++
		}
	}

	var indices []int
	for i, rec := range candidates {
		switch {
		case rec.Size == 0:
			skipped.Empty++
		case s.opts.SizePrefilter && sizeCount[rec.Size] < 2:
			skipped.UniqueSize++
		default:
			indices = append(indices, i)
		}
	}
	return indices
}

// ============================================================================
// FILESYSTEM SCANNING FUNCTIONS
// ============================================================================

// walk traverses root in sorted order and streams results as they're found.
// Symlinks and special files are never followed.
func (s *Scanner) walk(ctx context.Context, root, ignoreFile string, ignore *IgnoreManager, skipped *SkipCounts, out chan<- walkItem) {
	defer close(out)

	pathQueue := []string{root}

	for len(pathQueue) > 0 {
		if ctx.Err() != nil {
			out <- walkItem{cancelled: true}
			return
		}

		// Always process the lexicographically smallest path
		currentPath := pathQueue[0]
		pathQueue = pathQueue[1:]

		var info os.FileInfo
		var err error
		if currentPath == root {
			info, err = os.Stat(currentPath)
		} else {
			info, err = os.Lstat(currentPath)
		}
		if err != nil {
			out <- walkItem{err: classifyOSError(currentPath, err)}
			continue
		}

		relPath, err := filepath.Rel(root, currentPath)
		if err != nil {
			out <- walkItem{err: newFileError(KindIO, currentPath, err)}
			continue
		}

		mode := info.Mode()
		switch {
		case mode.IsDir():
			if currentPath != root && ignore.ShouldIgnore(relPath+"/") {
				out <- walkItem{skip: &skipped.Ignored}
				continue
			}

			entries, err := os.ReadDir(currentPath)
			if err != nil {
				out <- walkItem{err: classifyOSError(currentPath, err)}
				continue
			}

			newPaths := make([]string, 0, len(entries))
			for _, entry := range entries {
				newPaths = append(newPaths, filepath.Join(currentPath, entry.Name()))
			}
			pathQueue = insertSorted(pathQueue, newPaths)

		case mode.IsRegular():
			if currentPath == ignoreFile || ignore.ShouldIgnore(relPath) {
				out <- walkItem{skip: &skipped.Ignored}
				continue
			}
			if !s.extensionAllowed(currentPath) {
				out <- walkItem{skip: &skipped.Extension}
				continue
			}
			if s.opts.MaxFileSize > 0 && info.Size() > s.opts.MaxFileSize {
				s.log.Info().Str("path", currentPath).Int64("size", info.Size()).Msg("File too large, skipping")
				out <- walkItem{skip: &skipped.TooLarge}
				continue
			}

			debugEvent(s.log, s.debug, DebugScan).Str("path", relPath).Int64("size", info.Size()).Msg("found file")
			out <- walkItem{record: newFileRecord(currentPath, info)}

		default:
			// symlinks, sockets, devices, pipes
			debugEvent(s.log, s.debug, DebugScan).Str("path", relPath).Str("mode", mode.Type().String()).Msg("skipping special file")
			out <- walkItem{skip: &skipped.Special}
		}
	}
}

func (s *Scanner) extensionAllowed(path string) bool {
	if s.extensions == nil {
		return true
	}
	_, ok := s.extensions[FileRecord{Path: path}.Extension()]
	return ok
}

// insertSorted inserts new paths into an existing sorted slice maintaining order
func insertSorted(existing []string, newPaths []string) []string {
	if len(newPaths) == 0 {
		return existing
	}
	sort.Strings(newPaths)
	if len(existing) == 0 {
		return newPaths
	}

	// Merge the two sorted slices
	result := make([]string, 0, len(existing)+len(newPaths))
	i, j := 0, 0
	for i < len(existing) && j < len(newPaths) {
		if existing[i] <= newPaths[j] {
			result = append(result, existing[i])
			i++
		} else {
			result = append(result, newPaths[j])
			j++
		}
	}
	result = append(result, existing[i:]...)
	result = append(result, newPaths[j:]...)

	return result
}

// ============================================================================
// HASH JOB MANAGEMENT
// ============================================================================

// hashAll fingerprints the selected candidates on a bounded worker pool.
// Results come back in completion order; callers place them by index.
func (s *Scanner) hashAll(ctx context.Context, candidates []*FileRecord, indices []int) []hashResult {
	workers := s.opts.Workers
	if workers > len(indices) {
		workers = len(indices)
	}

	jobs := make(chan hashJob, workers*2)
	results := make(chan hashResult, workers*2)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go s.hashWorker(ctx, jobs, results, &wg)
	}

	go func() {
		defer close(jobs)
		for _, idx := range indices {
			select {
			case jobs <- hashJob{index: idx, record: candidates[idx]}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]hashResult, 0, len(indices))
	for r := range results {
		collected = append(collected, r)
	}
	return collected
}

// hashWorker processes hash jobs until the job channel closes
func (s *Scanner) hashWorker(ctx context.Context, jobs <-chan hashJob, results chan<- hashResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for job := range jobs {
		if err := ctx.Err(); err != nil {
			results <- hashResult{index: job.index, err: newFileError(KindCancelled, job.record.Path, err)}
			continue
		}

		debugEvent(s.log, s.debug, DebugHash).Str("path", job.record.Path).Msg("hashing file")

		digest, n, err := s.fingerprinter.Fingerprint(ctx, job.record.Path)
		if err == nil && n != job.record.Size {
			// size moved between the walk and the read
			err = newFileError(KindIO, job.record.Path,
				fmt.Errorf("%w: stat said %d bytes, read %d", ErrChangedDuringRead, job.record.Size, n))
		}

		if err != nil {
			debugEvent(s.log, s.debug, DebugHash).Str("path", job.record.Path).Err(err).Msg("hash failed")
		}
		results <- hashResult{index: job.index, digest: digest, err: err}
	}
}

// ============================================================================
// ROOT VALIDATION
// ============================================================================

// RootInfo describes a directory that can be scanned
type RootInfo struct {
	Path      string `json:"path"`
	FileCount int    `json:"file_count"`
	DirCount  int    `json:"dir_count"`
}

// ValidateRootPath cleans root into an absolute path and checks that it is an
// existing directory
func ValidateRootPath(root string) (string, error) {
	if root == "" {
		return "", &InvalidRootError{Path: root, Reason: "path is empty"}
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", &InvalidRootError{Path: root, Reason: "cannot resolve path", Err: err}
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		if isNotExist(err) {
			return "", &InvalidRootError{Path: absRoot, Reason: "directory does not exist", Err: err}
		}
		return "", &InvalidRootError{Path: absRoot, Reason: "cannot stat path", Err: err}
	}
	if !info.IsDir() {
		return "", &InvalidRootError{Path: absRoot, Reason: "path is not a directory"}
	}
	return absRoot, nil
}

// ValidateRoot checks root and counts its immediate files and directories
func ValidateRoot(root string) (*RootInfo, error) {
	absRoot, err := ValidateRootPath(root)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(absRoot)
	if err != nil {
		return nil, &InvalidRootError{Path: absRoot, Reason: "directory contents cannot be read", Err: err}
	}

	info := &RootInfo{Path: absRoot}
	for _, entry := range entries {
		switch {
		case entry.IsDir():
			info.DirCount++
		case entry.Type().IsRegular():
			info.FileCount++
		}
	}
	return info, nil
}
