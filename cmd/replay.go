// cmd/replay.go
package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wanderer/internal/analytics"
	"github.com/xkilldash9x/wanderer/internal/archive"
	"github.com/xkilldash9x/wanderer/internal/observability"
	"github.com/xkilldash9x/wanderer/internal/simulator"
)

func newReplayCmd() *cobra.Command {
	var (
		ef       exportFlags
		input    string
		startURL string
		mobile   bool
	)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Reproduce recorded sessions from exported events in a browser",
		Long: `Replay projects analytics events onto browser steps (page, viewport, scroll
offset, mouse position) and performs them in a fresh session, waiting out the
recorded gaps between events.

Events come either from the export API (--from/--to) or from an archive
written by fetch --out (--input).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			if input != "" && (ef.from != "" || ef.to != "") {
				return errors.New("--input cannot be combined with --from/--to")
			}

			schema := analytics.SchemaFromConfig(cfg.Replay().Schema)
			if err := schema.Validate(); err != nil {
				return err
			}

			var events *analytics.Events
			if input != "" {
				events, err = archive.New(cfg.Archive(), logger).Load(ctx, input)
			} else {
				events, err = fetchEvents(ctx, cfg, logger, &ef)
			}
			if err != nil {
				return err
			}

			steps := schema.Project(events)
			if len(steps) == 0 {
				return errors.New("no replayable events found")
			}
			logger.Info("Events projected for replay.",
				zap.Int("events", events.Len()),
				zap.Int("steps", len(steps)))

			rc := cfg.Replay()
			opts := simulator.ReplayOptions{
				StaticDelay:   rc.StaticDelay,
				FallbackDelay: rc.FallbackDelay,
				MaxGap:        rc.MaxGap,
				StartURL:      startURL,
				PixelRatio:    rc.PixelRatio,
				Mobile:        mobile,
			}
			if mobile {
				opts.UserAgent = rc.MobileUserAgent
			}

			sim, cleanup, err := newSimulator(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := sim.Replay(ctx, steps, opts)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	flags := replayCmd.Flags()
	ef.register(flags)
	flags.StringVar(&input, "input", "", "replay an archive instead of calling the export API")
	flags.StringVar(&startURL, "start-url", "", "page to open when no event carries one")
	flags.BoolVar(&mobile, "mobile", false, "emulate a phone with the configured mobile user agent")
	flags.Duration("static-delay", 0, "wait this long between every step instead of the recorded gaps")
	annotateFlag(flags, "static-delay", "replay.static_delay")
	flags.Duration("max-gap", 0, "cap recorded gaps at this duration")
	annotateFlag(flags, "max-gap", "replay.max_gap")
	flags.String("journal", "", "record the replay in this SQLite database")
	annotateFlag(flags, "journal", "journal.path")
	return replayCmd
}
