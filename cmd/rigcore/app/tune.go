package app

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/radio-control/rigcore/internal/rig"
)

// tuneResult collects what the controller reports during one tune run.
type tuneResult struct {
	mu   sync.Mutex
	hz   uint64
	mode rig.Mode
	seen bool
	errs []error
}

func (r *tuneResult) listener() rig.Listener {
	return rig.ListenerFuncs{
		OnRigError: func(_ *rig.Controller, err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, err)
		},
		OnFreqModeChanged: func(_ *rig.Controller, hz uint64, mode rig.Mode) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.hz, r.mode, r.seen = hz, mode, true
		},
	}
}

func newTuneCmd(v *viper.Viper) *cobra.Command {
	var (
		freq     uint64
		modeName string
	)
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Set frequency and mode, then print what the rig reports",
		Long: `Connect to the rig, apply --freq and --mode, read the frequency and mode
back and disconnect. Without flags the current settings are printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var mode rig.Mode
			if modeName != "" {
				m, err := rig.ParseMode(modeName)
				if err != nil {
					return err
				}
				mode = m
			}

			rt, err := newEnv(v)
			if err != nil {
				return err
			}
			defer rt.Close()

			result := &tuneResult{}
			c := rt.newController(result.listener())
			c.Connect()
			if freq > 0 {
				c.SetFrequency(freq)
			}
			if mode != rig.ModeUnknown {
				c.SetMode(mode)
			}
			c.RequestCurrentFrequencyMode()
			closeErr := rt.closeController(c)

			result.mu.Lock()
			defer result.mu.Unlock()
			if err := errors.Join(result.errs...); err != nil {
				return err
			}
			if closeErr != nil {
				return closeErr
			}
			if !result.seen {
				return fmt.Errorf("%s reported no frequency", c.Name())
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d Hz %s\n", c.Name(), result.hz, result.mode)
			return err
		},
	}
	cmd.Flags().Uint64Var(&freq, "freq", 0, "Frequency in Hz")
	cmd.Flags().StringVar(&modeName, "mode", "", "Mode (USB, LSB, DIGU, DIGL, FM, DIGFM, AM)")
	return cmd
}
