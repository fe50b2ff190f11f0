package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/radio-control/rigcore/internal/telemetry"
)

func newMonitorCmd(v *viper.Viper) *cobra.Command {
	var (
		poll        time.Duration
		metricsAddr string
		format      string
	)
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Connect and print rig events until interrupted",
		Long: `Connect to the rig and print every event it reports. With --poll the
frequency and mode are read periodically. A configured PTT line follows the
transmitter and, with monitorInput, keys it from CTS. Metrics are served on
--metrics-addr. SIGINT or SIGTERM disconnects and exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newEnv(v)
			if err != nil {
				return err
			}
			defer rt.Close()
			if metricsAddr == "" {
				metricsAddr = rt.cfg.Metrics.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hub := telemetry.NewHub(&rt.cfg.Timing, telemetry.WithLogger(rt.logger))
			defer hub.Stop()
			sub, err := hub.Subscribe(context.Background(), "", 0)
			if err != nil {
				return err
			}

			c, closeLine, err := rt.withPttLine(hub)
			if err != nil {
				return err
			}
			c.Connect()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return printEvents(cmd.OutOrStdout(), sub.Events, format)
			})
			if poll > 0 {
				g.Go(func() error { return pollFreqMode(gctx, c, poll) })
			}
			if metricsAddr != "" {
				srv := &http.Server{Addr: metricsAddr, Handler: rt.metricsHandler(), ReadHeaderTimeout: 10 * time.Second}
				rt.logger.Infof("Serving metrics on %s", metricsAddr)
				g.Go(func() error { return serveHTTP(gctx, srv) })
			}

			<-gctx.Done()
			rt.logger.Infof("Shutting down %s", c.Name())
			closeErr := errors.Join(rt.closeController(c), closeLine())
			// Ends printEvents once the teardown events are out.
			hub.Stop()
			return errors.Join(g.Wait(), closeErr)
		},
	}
	cmd.Flags().DurationVar(&poll, "poll", 0, "Frequency and mode polling interval (0 disables)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Listen address of /metrics (defaults to metrics.addr)")
	cmd.Flags().StringVar(&format, "format", "text", "Event output format (text or json)")
	return cmd
}

func printEvents(out io.Writer, events <-chan telemetry.Event, format string) error {
	enc := json.NewEncoder(out)
	for e := range events {
		var err error
		if format == "json" {
			err = enc.Encode(e)
		} else {
			_, err = fmt.Fprintf(out, "%s %-16s %s %s\n", e.Time.Format("15:04:05.000"), e.Type, e.Rig, formatData(e.Data))
		}
		if err != nil {
			return fmt.Errorf("failed to print event: %w", err)
		}
	}
	return nil
}

// formatData renders event data as sorted key=value pairs.
func formatData(data map[string]any) string {
	parts := make([]string, 0, len(data))
	for _, k := range slices.Sorted(maps.Keys(data)) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, data[k]))
	}
	return strings.Join(parts, " ")
}
