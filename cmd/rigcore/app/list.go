package app

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newListCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the rig models supported by the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newEnv(v)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), rt.cfg.Timing.DiscoverTimeout())
			defer cancel()
			rigs, err := rt.registry.Discover(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format, _ := cmd.Flags().GetString("format"); format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rigs)
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tMANUFACTURER\tMODEL")
			for _, r := range rigs {
				fmt.Fprintf(w, "%d\t%s\t%s\n", r.ID, r.Manufacturer, r.Model)
			}
			return w.Flush()
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}
