package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	dupsweep "github.com/mattkeenan/dupsweep/pkg"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

// app carries what every subcommand needs once the root has loaded config
type app struct {
	configPath string
	verbose    int
	debug      string
	format     string
	overrides  []string

	cfg    *dupsweep.Config
	log    zerolog.Logger
	engine *dupsweep.Engine
}

func main() {
	if err := newRootCommand(&app{}).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "dupsweep",
		Short: "Find and remove duplicate files by content hash",
		Long: `dupsweep finds byte-identical files under a directory and removes
redundant copies, always keeping one original per set.

Examples:
  dupsweep scan ~/Pictures               # Report duplicate groups
  dupsweep suggest ~/Pictures            # List files that could go
  dupsweep prune --dry-run ~/Pictures    # Preview a bulk removal
  dupsweep prune --yes ~/Pictures        # Remove every non-original
  dupsweep status saved.jsonl            # Check a saved result is current
  dupsweep serve --listen :5000          # HTTP API`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", defaultConfigPath(), "configuration file or directory")
	flags.CountVarP(&a.verbose, "verbose", "v", "increase verbosity (repeat for more)")
	flags.StringVar(&a.debug, "debug", "", "comma-separated debug flags (scan,hash,delete,all)")
	flags.StringVar(&a.format, "format", "", "output format: human or json")
	flags.StringArrayVarP(&a.overrides, "set", "o", nil, "override a config value (key:value), may repeat")

	root.AddCommand(
		newScanCommand(a),
		newSuggestCommand(a),
		newRmCommand(a),
		newPruneCommand(a),
		newStatusCommand(a),
		newServeCommand(a),
		newConfigCommand(a),
	)
	return root
}

// defaultConfigPath returns the per-user config directory
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".dupsweep")
	}
	return filepath.Join(dir, "dupsweep")
}

// init loads configuration, applies overrides and builds the engine
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := dupsweep.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyOverrides(a.overrides); err != nil {
		return err
	}
	a.cfg = cfg

	verboseConfig := cfg.GetVerboseConfig()
	level := verboseConfig.Level
	if cmd.Flags().Changed("verbose") {
		level = a.verbose
	}
	if a.debug == "" {
		a.debug = verboseConfig.Debug
	}

	if a.format == "" {
		a.format = cfg.GetOutputConfig().Format
	}
	if err := dupsweep.ValidateOutputFormat(a.format); err != nil {
		return err
	}

	a.log = dupsweep.NewLogger(os.Stderr, level, true)
	debugFlags := dupsweep.ParseDebugFlags(a.debug)
	if len(debugFlags) > 0 && level < 2 {
		// debug flags imply debug level
		a.log = a.log.Level(zerolog.DebugLevel)
	}

	del := cfg.GetDeleteConfig()
	a.engine = dupsweep.NewEngine(dupsweep.EngineOptions{
		Defaults: cfg.ScanOptions(),
		Delete:   dupsweep.DeleteOptions{Workers: del.Workers, DryRun: del.DryRun},
		Logger:   a.log,
		Debug:    debugFlags,
	})

	a.log.Debug().Str("config", cfg.Path()).Str("debug", debugFlags.String()).Msg("Configuration loaded")
	return nil
}

func (a *app) jsonOutput() bool {
	return a.format == "json"
}

func fail(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
