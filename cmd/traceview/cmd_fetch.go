package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/evalview/traceview/internal/fetch"
	"github.com/evalview/traceview/internal/projectconfig"
)

func newFetchCommand() *cobra.Command {
	var withTasks bool
	var workers int

	cmd := &cobra.Command{
		Use:   "fetch [dataset...]",
		Short: "Materialize datasets into the in-process cache and report stats",
		Long: `Fetch one or more datasets and print a materialization summary.

This is a dry-run of what the dashboard does on first request: every page is
fetched, rows are validated and normalized, and the per-dataset statistics
(rows kept, rows dropped, flags) are printed. Without arguments, the dataset
from .traceview.yaml is fetched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := projectconfig.Load(".")
			if err != nil {
				return err
			}

			datasets := args
			if len(datasets) == 0 {
				if cfg.Dataset == "" {
					return fmt.Errorf("no dataset given and none configured in .traceview.yaml")
				}
				datasets = []string{cfg.Dataset}
			}

			logger := slog.Default()
			svcs, err := buildServices(cfg, logger)
			if err != nil {
				return err
			}

			traceStats := make([]fetch.Stats, len(datasets))
			taskStats := make([]fetch.Stats, len(datasets))

			eg, ctx := errgroup.WithContext(cmd.Context())
			eg.SetLimit(workers)
			for i, ds := range datasets {
				eg.Go(func() error {
					traceStats[i] = svcs.traces.Prefetch(ctx, ds)
					if withTasks {
						taskStats[i] = svcs.tasks.Prefetch(ctx, ds)
					}
					return ctx.Err()
				})
			}
			if err := eg.Wait(); err != nil {
				return err
			}

			printFetchSummary(cmd.OutOrStdout(), datasets, traceStats, taskStats, withTasks)
			return nil
		},
	}

	cmd.Flags().BoolVar(&withTasks, "tasks", false, "Also materialize task archives")
	cmd.Flags().IntVar(&workers, "workers", 4, "Concurrent dataset fetches")

	return cmd
}

const (
	colRows    = 12
	colPages   = 8
	colDropped = 10
)

func printFetchSummary(w io.Writer, datasets []string, traceStats, taskStats []fetch.Stats, withTasks bool) {
	p := message.NewPrinter(language.English)

	nameWidth := len("DATASET")
	for _, ds := range datasets {
		if n := runewidth.StringWidth(ds); n > nameWidth {
			nameWidth = n
		}
	}

	fmt.Fprintf(w, "%s  %s  %s  %s  %s\n", //nolint:errcheck
		padRight("DATASET", nameWidth),
		padRight("ROWS", colRows),
		padRight("PAGES", colPages),
		padRight("DROPPED", colDropped),
		"FLAGS")

	for i, ds := range datasets {
		st := traceStats[i]
		if withTasks {
			st.Rows += taskStats[i].Rows
			st.Pages += taskStats[i].Pages
			st.Dropped += taskStats[i].Dropped
			st.Truncated = st.Truncated || taskStats[i].Truncated
			st.Exhausted = st.Exhausted || taskStats[i].Exhausted
		}

		var flags []string
		if st.Truncated {
			flags = append(flags, "truncated")
		}
		if st.Exhausted {
			flags = append(flags, "partial")
		}
		flagStr := strings.Join(flags, ",")
		if flagStr == "" {
			flagStr = "-"
		}

		fmt.Fprintf(w, "%s  %s  %s  %s  %s\n", //nolint:errcheck
			padRight(ds, nameWidth),
			padRight(p.Sprintf("%d", st.Rows), colRows),
			padRight(p.Sprintf("%d", st.Pages), colPages),
			padRight(p.Sprintf("%d", st.Dropped), colDropped),
			flagStr)
	}
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
