package dupsweep

import (
	"context"

	"github.com/rs/zerolog"
)

// This file defines the public entry point used by the commands and the server

// EngineOptions configures an Engine
type EngineOptions struct {
	Defaults ScanOptions
	Delete   DeleteOptions
	Remover  Remover // nil uses os.Remove
	Logger   zerolog.Logger
	Debug    DebugFlags
}

// Engine ties scanning, grouping and deletion together. It only holds
// immutable collaborators; every scan builds its own state.
type Engine struct {
	defaults ScanOptions
	deleteOp DeleteOptions
	remover  Remover
	executor *DeletionExecutor
	log      zerolog.Logger
	debug    DebugFlags
}

// NewEngine creates an engine
func NewEngine(opts EngineOptions) *Engine {
	return &Engine{
		defaults: opts.Defaults,
		deleteOp: opts.Delete,
		remover:  opts.Remover,
		executor: NewDeletionExecutor(opts.Remover, opts.Delete, opts.Logger, opts.Debug),
		log:      opts.Logger,
		debug:    opts.Debug,
	}
}

// NewEngineFromConfig builds an engine from a loaded configuration file
func NewEngineFromConfig(cfg *Config, log zerolog.Logger) *Engine {
	del := cfg.GetDeleteConfig()
	return NewEngine(EngineOptions{
		Defaults: cfg.ScanOptions(),
		Delete:   DeleteOptions{Workers: del.Workers, DryRun: del.DryRun},
		Logger:   log,
		Debug:    ParseDebugFlags(cfg.GetVerboseConfig().Debug),
	})
}

// DefaultScanOptions returns the options the engine was configured with
func (e *Engine) DefaultScanOptions() ScanOptions {
	opts := e.defaults
	opts.Extensions = append([]string(nil), e.defaults.Extensions...)
	opts.IgnorePatterns = append([]string(nil), e.defaults.IgnorePatterns...)
	return opts
}

// WithDryRun returns an engine sharing this one's settings with dry-run set
func (e *Engine) WithDryRun(dryRun bool) *Engine {
	del := e.deleteOp
	del.DryRun = dryRun
	return &Engine{
		defaults: e.defaults,
		deleteOp: del,
		remover:  e.remover,
		executor: NewDeletionExecutor(e.remover, del, e.log, e.debug),
		log:      e.log,
		debug:    e.debug,
	}
}

// DryRun reports whether deletions are simulated
func (e *Engine) DryRun() bool {
	return e.executor.DryRun()
}

// Scan walks root, fingerprints candidates and groups duplicates. The only
// error is an invalid root or invalid options; everything else is reported
// in the result.
func (e *Engine) Scan(ctx context.Context, root string, opts ScanOptions) (*ScanResult, error) {
	scanner, err := NewScanner(opts, e.log, e.debug)
	if err != nil {
		return nil, err
	}

	selector, err := NewOriginalSelector(scanner.Options().KeepPolicy)
	if err != nil {
		return nil, err
	}

	out, err := scanner.Scan(ctx, root)
	if err != nil {
		return nil, err
	}

	return NewDuplicateIndex(selector, e.log).Build(out), nil
}

// DeleteOne removes a single file after the safety checks
func (e *Engine) DeleteOne(ctx context.Context, path string) DeletionOutcome {
	return e.executor.DeleteOne(ctx, path)
}

// DeleteMany removes each path independently
func (e *Engine) DeleteMany(ctx context.Context, paths []string) *DeletionReport {
	return e.executor.DeleteMany(ctx, paths)
}

// DeleteDuplicates removes every non-original file in result
func (e *Engine) DeleteDuplicates(ctx context.Context, result *ScanResult) *DeletionReport {
	return e.executor.DeleteDuplicates(ctx, result)
}
