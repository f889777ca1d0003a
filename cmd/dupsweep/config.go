package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	dupsweep "github.com/mattkeenan/dupsweep/pkg"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change persistent settings",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print every setting",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				values := map[string]string{}
				for _, key := range dupsweep.ConfigKeys() {
					v, _ := a.cfg.Get(key)
					values[key] = v
				}
				if a.jsonOutput() {
					return writeJSON(os.Stdout, values)
				}
				fmt.Println(subtitleStyle.Render(a.cfg.Path()))
				for _, key := range dupsweep.ConfigKeys() {
					fmt.Printf("%s %s\n", titleStyle.Width(16).Render(key), values[key])
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "get [key]",
			Short: "Print one setting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := a.cfg.Get(args[0])
				if err != nil {
					return err
				}
				fmt.Println(v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set [key] [value]",
			Short: "Validate and store one setting",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				// reload so --set overrides are not persisted
				cfg, err := dupsweep.LoadConfig(a.cfg.Path())
				if err != nil {
					return err
				}
				if err := cfg.Set(args[0], args[1]); err != nil {
					return err
				}
				if err := cfg.Save(); err != nil {
					return err
				}
				a.log.Info().Str("key", args[0]).Str("value", args[1]).Str("config", cfg.Path()).Msg("Setting saved")
				return nil
			},
		},
	)
	return cmd
}
