// cmd/simulate.go
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wanderer/internal/observability"
	"github.com/xkilldash9x/wanderer/internal/simulator"
)

func newSimulateCmd() *cobra.Command {
	simulateCmd := &cobra.Command{
		Use:   "simulate <url>",
		Short: "Open a page and perform weighted random actions on it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("weights") {
				raw, _ := cmd.Flags().GetString("weights")
				weights, err := parseWeights(raw)
				if err != nil {
					return err
				}
				cfg.SetSimulationActionWeights(weights)
			}

			simCfg, err := simulator.ConfigFromSettings(cfg.Simulation())
			if err != nil {
				return err
			}
			if err := simCfg.Validate(); err != nil {
				return err
			}

			sim, cleanup, err := newSimulator(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := sim.Run(ctx, args[0], simCfg)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			if !res.Completed() {
				logger.Warn("Simulation terminated early.", zap.String("reason", res.Reason))
			}
			return nil
		},
	}

	flags := simulateCmd.Flags()
	flags.Int("max-actions", 0, "number of actions to perform")
	annotateFlag(flags, "max-actions", "simulation.max_actions")
	flags.Float64("min-delay", 0, "minimum delay between actions, in seconds")
	annotateFlag(flags, "min-delay", "simulation.min_delay_seconds")
	flags.Float64("max-delay", 0, "maximum delay between actions, in seconds")
	annotateFlag(flags, "max-delay", "simulation.max_delay_seconds")
	flags.Duration("max-duration", 0, "stop after this much wall time (0 = unbounded)")
	annotateFlag(flags, "max-duration", "simulation.max_duration")
	flags.String("scope", "", "links Navigate may follow: same-site, same-host or any")
	annotateFlag(flags, "scope", "simulation.navigate_scope")
	flags.String("journal", "", "record the run in this SQLite database")
	annotateFlag(flags, "journal", "journal.path")
	flags.Bool("headful", false, "show the browser window")
	flags.String("weights", "", "action weights, e.g. scroll=0.45,pause=0.25,click=0.2,navigate=0.1")

	simulateCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		// --headful is the inverse of browser.headless and is applied by hand.
		if headful, _ := cmd.Flags().GetBool("headful"); headful {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			cfg.SetBrowserHeadless(false)
		}
		return nil
	}
	return simulateCmd
}
