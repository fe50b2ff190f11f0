// Package app provides the commands of the rigcore CLI.
package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/radio-control/rigcore/internal/versions"
)

// NewRootCmd creates the root command with all subcommands. Every call
// returns an independent command tree with its own flag bindings.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:               "rigcore",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Radio transceiver control core",
		Long: `rigcore connects to an amateur radio transceiver through a CAT backend and
controls its frequency, mode and PTT.

Settings are read from rigcore.yaml (or --config), RIGCORE_* environment
variables and the flags below, in increasing order of precedence.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to configuration file (YAML)")
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("backend", "", "CAT backend (rigctld or fake)")
	flags.String("rig", "", `Rig to control, as "<manufacturer> <model>"`)
	flags.String("port", "", "Serial port of the rig")
	flags.Int("baud", 0, "Serial speed of the rig (0 keeps the backend default)")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	for _, name := range []string{"config", "debug", "backend", "rig", "port", "baud", "log-level"} {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind %s flag: %v", name, err))
		}
	}

	rootCmd.AddCommand(
		newListCmd(v),
		newTuneCmd(v),
		newMonitorCmd(v),
		newServeCmd(v),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format version info as JSON: %w", err)
				}
				_, err = fmt.Fprintln(out, string(output))
				return err
			}
			_, err = fmt.Fprintf(out, "rigcore %s (commit %s, built %s, %s %s)\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
			return err
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}
