package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/radio-control/rigcore/internal/api"
	"github.com/radio-control/rigcore/internal/auth"
	"github.com/radio-control/rigcore/internal/rig"
	"github.com/radio-control/rigcore/internal/telemetry"
	"github.com/radio-control/rigcore/internal/versions"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	var (
		addr    string
		poll    time.Duration
		connect bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP control API",
		Long: `Serve the HTTP control API of the configured rig, with the event stream at
/api/v1/telemetry and Prometheus metrics at /metrics. Bearer token
authentication is enabled with api.auth in the configuration file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newEnv(v)
			if err != nil {
				return err
			}
			defer rt.Close()
			if addr == "" {
				addr = rt.cfg.API.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hub := telemetry.NewHub(&rt.cfg.Timing, telemetry.WithLogger(rt.logger))
			defer hub.Stop()
			state := api.NewState(rt.cfg.Rig.Name)

			c, closeLine, err := rt.withPttLine(hub, state)
			if err != nil {
				return err
			}
			srv, err := rt.newAPIServer(c, hub, state)
			if err != nil {
				return errors.Join(err, rt.closeController(c), closeLine())
			}
			if connect {
				c.Connect()
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Start(addr) })
			if poll > 0 {
				g.Go(func() error { return pollFreqMode(gctx, c, poll) })
			}

			<-gctx.Done()
			rt.logger.Infof("Shutting down %s", c.Name())
			closeErr := errors.Join(rt.closeController(c), closeLine())
			// Event streams hold their requests open until the hub stops.
			hub.Stop()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return errors.Join(srv.Stop(shutdownCtx), g.Wait(), closeErr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to api.addr)")
	cmd.Flags().DurationVar(&poll, "poll", 0, "Frequency and mode polling interval (0 disables)")
	cmd.Flags().BoolVar(&connect, "connect", true, "Connect to the rig at start-up")
	return cmd
}

// newAPIServer builds the API server for c, with authentication when
// configured.
func (rt *env) newAPIServer(c *rig.Controller, hub *telemetry.Hub, state *api.State) (*api.Server, error) {
	opts := []api.Option{
		api.WithLogger(rt.logger),
		api.WithMetricsHandler(rt.metricsHandler()),
		api.WithHeartbeat(rt.cfg.Timing.Heartbeat()),
		api.WithVersion(versions.GetVersionInfo().Version),
	}
	if rt.cfg.API.Auth.Enabled {
		verifier, err := auth.LoadVerifier(rt.cfg.API.Auth)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize authentication: %w", err)
		}
		opts = append(opts, api.WithAuth(auth.NewMiddleware(verifier, rt.logger)))
		rt.logger.Infof("API authentication enabled (%s)", rt.cfg.API.Auth.Algorithm)
	}
	return api.NewServer(c, rt.registry, hub, state, opts...), nil
}
