// cmd/fetch.go
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wanderer/internal/analytics"
	"github.com/xkilldash9x/wanderer/internal/archive"
	"github.com/xkilldash9x/wanderer/internal/config"
	"github.com/xkilldash9x/wanderer/internal/observability"
)

// exportFlags are the export selection flags shared by fetch and replay.
type exportFlags struct {
	from   string
	to     string
	events []string
	where  string
	limit  int
}

func (f *exportFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.from, "from", "", "first day to export (YYYY-MM-DD)")
	fs.StringVar(&f.to, "to", "", "last day to export (YYYY-MM-DD)")
	fs.StringArrayVar(&f.events, "event", nil, "only export this event name (repeatable)")
	fs.StringVar(&f.where, "where", "", "segmentation expression")
	fs.IntVar(&f.limit, "limit", 0, "maximum number of events to export")
	fs.String("credentials", "", "service account credentials file (yaml, json or env)")
	annotateFlag(fs, "credentials", "mixpanel.credentials_file")
}

func (f *exportFlags) params() (analytics.ExportParams, error) {
	if f.from == "" || f.to == "" {
		return analytics.ExportParams{}, errors.New("both --from and --to are required")
	}
	r, err := analytics.ParseDateRange(f.from, f.to)
	if err != nil {
		return analytics.ExportParams{}, err
	}
	p := analytics.ExportParams{Range: r, Limit: f.limit, Events: f.events, Where: f.where}
	return p, p.Validate()
}

// fetchEvents validates everything locally, then runs the export under the
// configured retry policy.
func fetchEvents(ctx context.Context, cfg *config.Config, logger *zap.Logger, f *exportFlags) (*analytics.Events, error) {
	params, err := f.params()
	if err != nil {
		return nil, err
	}
	creds, err := analytics.LoadCredentials(cfg.Mixpanel())
	if err != nil {
		return nil, err
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	client, err := newAnalyticsClient(cfg.Mixpanel(), logger)
	if err != nil {
		return nil, err
	}
	return analytics.FetchWithRetry(ctx, func(ctx context.Context) (*analytics.Events, error) {
		return client.FetchEvents(ctx, creds, params)
	}, analytics.RetryPolicyFromConfig(cfg.Mixpanel().Retry))
}

func newFetchCmd() *cobra.Command {
	var (
		ef          exportFlags
		printEvents bool
	)

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download raw events from the Mixpanel export API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			events, err := fetchEvents(ctx, cfg, logger, &ef)
			if err != nil {
				return err
			}

			if dest := cfg.Archive().Path; dest != "" {
				if err := archive.New(cfg.Archive(), logger).Save(ctx, dest, events); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if printEvents {
				enc := json.NewEncoder(out)
				for ev := range events.All() {
					if err := enc.Encode(ev.Record()); err != nil {
						return fmt.Errorf("failed to print event: %w", err)
					}
				}
			}
			printSummary(out, events)
			return nil
		},
	}

	flags := fetchCmd.Flags()
	ef.register(flags)
	flags.String("out", "", "write the events to a file or s3://bucket/key (.gz compresses)")
	annotateFlag(flags, "out", "archive.path")
	flags.BoolVar(&printEvents, "print", false, "print every event as a JSON line")
	return fetchCmd
}
