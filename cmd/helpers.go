// cmd/helpers.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wanderer/internal/analytics"
	"github.com/xkilldash9x/wanderer/internal/browser/session"
	"github.com/xkilldash9x/wanderer/internal/config"
	"github.com/xkilldash9x/wanderer/internal/journal"
	"github.com/xkilldash9x/wanderer/internal/simulator"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Function variables so tests can swap the browser and the export endpoint.
var (
	newSessionFactory = func(cfg config.BrowserConfig, logger *zap.Logger) simulator.SessionFactory {
		return session.NewFactory(cfg, logger)
	}
	newAnalyticsClient = func(cfg config.MixpanelConfig, logger *zap.Logger) (*analytics.Client, error) {
		return analytics.NewClient(cfg, logger)
	}
)

// newSimulator wires the session factory and, when a journal path is
// configured, the SQLite recorder. The returned cleanup closes the journal.
func newSimulator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*simulator.Simulator, func(), error) {
	opts := []simulator.Option{}
	cleanup := func() {}

	if path := cfg.Journal().Path; path != "" {
		j, err := journal.Open(ctx, path, logger)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, simulator.WithRecorder(j))
		cleanup = func() {
			if err := j.Close(); err != nil {
				logger.Warn("Failed to close journal.", zap.Error(err))
			}
		}
	}
	return simulator.New(newSessionFactory(cfg.Browser(), logger), logger, opts...), cleanup, nil
}

// parseWeights reads "scroll=0.5,click=0.2" into a weight table.
func parseWeights(s string) (map[string]float64, error) {
	out := map[string]float64{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid weight %q: expected kind=weight", part)
		}
		kind, err := simulator.ParseActionKind(name)
		if err != nil {
			return nil, err
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight for %s: %w", kind, err)
		}
		out[string(kind)] = w
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no weights given")
	}
	return out, nil
}

func printResult(w io.Writer, res *simulator.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run:\t%s\n", res.RunID)
	fmt.Fprintf(tw, "Target:\t%s\n", res.Target)
	fmt.Fprintf(tw, "Status:\t%s\n", res.Status)
	if res.Reason != "" {
		fmt.Fprintf(tw, "Reason:\t%s\n", res.Reason)
	}
	fmt.Fprintf(tw, "Executed:\t%d\n", res.ActionsExecuted)
	fmt.Fprintf(tw, "Skipped:\t%d\n", res.Skipped)
	fmt.Fprintf(tw, "Failed:\t%d\n", res.Failed)
	tw.Flush()
}

// printSummary writes one line per event name, most frequent first.
func printSummary(w io.Writer, events *analytics.Events) {
	counts := events.CountByName()
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		if counts[a] != counts[b] {
			return counts[b] - counts[a]
		}
		return strings.Compare(a, b)
	})

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "EVENT\tCOUNT\n")
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%d\n", name, counts[name])
	}
	fmt.Fprintf(tw, "TOTAL\t%d\n", events.Len())
	if skipped := events.Skipped(); skipped > 0 {
		fmt.Fprintf(tw, "SKIPPED\t%d\n", skipped)
	}
	tw.Flush()
}
