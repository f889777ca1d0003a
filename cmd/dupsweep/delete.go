package main

import (
	"os"

	"github.com/spf13/cobra"

	dupsweep "github.com/mattkeenan/dupsweep/pkg"
)

// finishDeletion prints the report and turns any problem into a non-zero exit
func (a *app) finishDeletion(report *dupsweep.DeletionReport) error {
	if a.jsonOutput() {
		if err := writeJSON(os.Stdout, report); err != nil {
			return err
		}
	} else {
		printDeletionReport(os.Stdout, report)
	}

	if !report.OK() {
		return fail("%d of %d targets were not deleted", report.Skipped+report.Failed, len(report.Outcomes))
	}
	return nil
}

func newRmCommand(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "rm [file...]",
		Short: "Delete specific files",
		Long: `Delete the named files after checking each one is still a regular file
in a writable directory. Each path is handled on its own; one failure does not
stop the rest.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupSignalContext(cmd.Context())
			defer cancel()

			engine := a.engine
			if cmd.Flags().Changed("dry-run") {
				engine = engine.WithDryRun(dryRun)
			}
			return a.finishDeletion(engine.DeleteMany(ctx, args))
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "show what would be deleted without deleting")
	return cmd
}

func newPruneCommand(a *app) *cobra.Command {
	var (
		sf     scanFlags
		dryRun bool
		yes    bool
		from   string
	)

	cmd := &cobra.Command{
		Use:   "prune [directory]",
		Short: "Delete every redundant copy, keeping one original per group",
		Long: `Scan a directory (or load a result saved with 'scan --export') and delete
every file that is not its group's original.

Each target is re-checked before removal. Files that changed since the scan are
skipped, and a group whose original is missing or changed is left alone.

Run with --dry-run first; a real run requires --yes.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if from != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupSignalContext(cmd.Context())
			defer cancel()

			engine := a.engine
			if cmd.Flags().Changed("dry-run") {
				engine = engine.WithDryRun(dryRun)
			}
			if !engine.DryRun() && !yes {
				return fail("refusing to delete without --yes (use --dry-run to preview)")
			}

			var result *dupsweep.ScanResult
			var err error
			if from != "" {
				result, err = dupsweep.LoadResult(from)
				if err != nil {
					return fail("cannot load %s: %w", from, err)
				}
				a.log.Info().Str("path", from).Str("root", result.Root).Int("groups", len(result.Groups)).Msg("Loaded scan result")
			} else {
				result, err = a.runScan(ctx, cmd, &sf, args[0])
				if err != nil {
					return err
				}
			}

			if result.Cancelled {
				return fail("scan of %s was interrupted, nothing deleted", result.Root)
			}
			return a.finishDeletion(engine.DeleteDuplicates(ctx, result))
		},
	}

	sf.register(cmd)
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "show what would be deleted without deleting")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	cmd.Flags().StringVar(&from, "from", "", "prune from a result saved with 'scan --export'")
	return cmd
}
