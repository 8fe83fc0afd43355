package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evalview/traceview/internal/projectconfig"
	"github.com/evalview/traceview/internal/webapi"
	"github.com/evalview/traceview/internal/webserver"
)

func newServeCommand() *cobra.Command {
	var port int
	var noBrowser bool
	var warmDataset string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server",
		Long: `Start the local dashboard server.

The server exposes the REST API under /api and serves the embedded web UI.
Traces and tasks are fetched from the configured dataset source on first
request and cached in memory until refreshed.

Set HF_TOKEN to access gated datasets and OPENAI_API_KEY to enable the
LLM judge endpoint.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := projectconfig.Load(".")
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			logger := slog.Default()
			svcs, err := buildServices(cfg, logger)
			if err != nil {
				return err
			}

			// A typed nil *judge.Judge must not end up in the interface;
			// the handlers treat a nil interface as "not configured".
			var judgeIface webapi.TraceJudge
			if svcs.judge != nil {
				judgeIface = svcs.judge
			} else {
				logger.Info("OPENAI_API_KEY not set; judge endpoint disabled")
			}

			srv, err := webserver.New(webserver.Config{
				Port:      cfg.Server.Port,
				NoBrowser: noBrowser,
				Logger:    logger,
				Traces:    svcs.traces,
				Tasks:     svcs.tasks,
				Judge:     judgeIface,
			})
			if err != nil {
				return fmt.Errorf("starting server: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if warmDataset == "" {
				warmDataset = cfg.Dataset
			}
			if warmDataset != "" {
				go func() {
					stats := svcs.traces.Prefetch(ctx, warmDataset)
					logger.Info("warmed trace cache",
						"dataset", warmDataset, "rows", stats.Rows, "pages", stats.Pages)
				}()
			}

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default from config)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not open the browser automatically")
	cmd.Flags().StringVar(&warmDataset, "dataset", "", "Dataset to prefetch on startup")

	return cmd
}
