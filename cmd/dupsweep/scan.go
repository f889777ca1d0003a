package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	dupsweep "github.com/mattkeenan/dupsweep/pkg"
)

// scanFlags are shared by every command that runs a scan. Only flags the user
// set override the configured defaults.
type scanFlags struct {
	extensions  []string
	maxSize     string
	chunkSize   string
	workers     int
	hash        string
	keep        string
	ignore      []string
	noPrefilter bool
}

func (f *scanFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringSliceVar(&f.extensions, "ext", nil, "only scan these extensions (e.g. jpg,png)")
	flags.StringVar(&f.maxSize, "max-size", "", "skip files larger than this (e.g. 100M, 0 for no limit)")
	flags.StringVar(&f.chunkSize, "chunk-size", "", "hashing read size (e.g. 64K)")
	flags.IntVarP(&f.workers, "workers", "j", 0, "number of hashing workers")
	flags.StringVar(&f.hash, "hash", "", "hash algorithm: sha256 or sha512")
	flags.StringVar(&f.keep, "keep", "", "which copy to keep: oldest, newest or path")
	flags.StringArrayVar(&f.ignore, "ignore", nil, "regex of relative paths to skip, may repeat")
	flags.BoolVar(&f.noPrefilter, "no-prefilter", false, "hash every file, even those with a unique size")
}

// apply folds the changed flags into opts
func (f *scanFlags) apply(cmd *cobra.Command, opts *dupsweep.ScanOptions) error {
	flags := cmd.Flags()
	if flags.Changed("ext") {
		opts.Extensions = dupsweep.NormaliseExtensions(f.extensions)
	}
	if flags.Changed("max-size") {
		if f.maxSize == "0" || f.maxSize == "none" {
			opts.MaxFileSize = 0
		} else {
			size, err := dupsweep.ParseHumanSize(f.maxSize)
			if err != nil {
				return fail("invalid --max-size: %w", err)
			}
			opts.MaxFileSize = size
		}
	}
	if flags.Changed("chunk-size") {
		size, err := dupsweep.ParseHumanSize(f.chunkSize)
		if err != nil {
			return fail("invalid --chunk-size: %w", err)
		}
		opts.ChunkSize = int(size)
	}
	if flags.Changed("workers") {
		opts.Workers = f.workers
	}
	if flags.Changed("hash") {
		opts.HashAlgorithm = f.hash
	}
	if flags.Changed("keep") {
		opts.KeepPolicy = f.keep
	}
	if flags.Changed("ignore") {
		opts.IgnorePatterns = append(opts.IgnorePatterns, f.ignore...)
	}
	if f.noPrefilter {
		opts.SizePrefilter = false
	}
	return nil
}

// runScan scans root with the configured defaults plus any flag overrides
func (a *app) runScan(ctx context.Context, cmd *cobra.Command, sf *scanFlags, root string) (*dupsweep.ScanResult, error) {
	opts := a.engine.DefaultScanOptions()
	if err := sf.apply(cmd, &opts); err != nil {
		return nil, err
	}

	a.log.Info().Str("root", root).Str("hash", opts.HashAlgorithm).Int("workers", opts.Workers).Msg("Scanning")
	result, err := a.engine.Scan(ctx, root, opts)
	if err != nil {
		return nil, err
	}
	a.log.Info().
		Int("files", result.TotalFiles).
		Int("groups", result.Stats.DuplicateGroups).
		Int64("wasted", result.Stats.SpaceWasted).
		Dur("duration", result.Duration).
		Msg("Scan complete")
	return result, nil
}

func newScanCommand(a *app) *cobra.Command {
	var sf scanFlags
	var exportPath string

	cmd := &cobra.Command{
		Use:   "scan [directory]",
		Short: "Report groups of identical files",
		Long: `Scan a directory tree and report every set of files with identical
content. Nothing is modified.

Use --export to save the result for a later 'prune --from'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupSignalContext(cmd.Context())
			defer cancel()

			result, err := a.runScan(ctx, cmd, &sf, args[0])
			if err != nil {
				return err
			}

			if exportPath != "" {
				if err := dupsweep.ExportResult(result, exportPath); err != nil {
					return fail("export failed: %w", err)
				}
				a.log.Info().Str("path", exportPath).Msg("Result exported")
			}

			if a.jsonOutput() {
				return writeJSON(os.Stdout, result)
			}
			printScanResult(os.Stdout, result)
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().StringVar(&exportPath, "export", "", "write the result to this file for later pruning")
	return cmd
}

func newSuggestCommand(a *app) *cobra.Command {
	var sf scanFlags

	cmd := &cobra.Command{
		Use:   "suggest [directory]",
		Short: "List redundant copies that could be removed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupSignalContext(cmd.Context())
			defer cancel()

			result, err := a.runScan(ctx, cmd, &sf, args[0])
			if err != nil {
				return err
			}

			if a.jsonOutput() {
				return writeJSON(os.Stdout, map[string]any{
					"directory":         result.Root,
					"suggestions":       result.Suggestions(),
					"total_space_saved": result.TotalReclaimable(),
				})
			}
			printSuggestions(os.Stdout, result)
			return nil
		},
	}

	sf.register(cmd)
	return cmd
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status [export]",
		Short: "Check whether a saved scan result still matches the disk",
		Long: `Re-check every file in a result saved with 'scan --export' and list the
ones that were modified or deleted since. 'prune --from' skips changed files,
and whole groups whose original changed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupSignalContext(cmd.Context())
			defer cancel()

			result, err := dupsweep.LoadResult(args[0])
			if err != nil {
				return fail("cannot load %s: %w", args[0], err)
			}

			status := result.Status(ctx)
			if !status.Complete {
				a.log.Warn().Msg("Status check interrupted, results are partial")
			}
			if a.jsonOutput() {
				return writeJSON(os.Stdout, status)
			}
			printStatus(os.Stdout, status)
			return nil
		},
	}
}
