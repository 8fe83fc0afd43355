package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/evalview/traceview/internal/projectconfig"
	"github.com/evalview/traceview/internal/webapi"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the dataset cache of a running server",
		Long: `Manage the in-memory dataset cache of a running traceview server.

The server caches materialized trace and task collections per dataset. Use
"cache clear" to invalidate them so the next request refetches from the
remote source.`,
	}

	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheClearCommand() *cobra.Command {
	var port int
	var dataset string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Invalidate cached datasets on a running server",
		Long: `Invalidate cached datasets on a running traceview server.

With --dataset, only that dataset's caches are dropped. Without it, every
cached dataset is cleared.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := projectconfig.Load(".")
			if err != nil {
				return err
			}
			if port == 0 {
				port = cfg.Server.Port
			}

			body, err := json.Marshal(webapi.RefreshRequest{Dataset: dataset})
			if err != nil {
				return err
			}

			url := fmt.Sprintf("http://localhost:%d/api/refresh", port)
			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Post(url, "application/json", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("reaching server at %s (is it running?): %w", url, err)
			}
			defer resp.Body.Close() //nolint:errcheck

			if resp.StatusCode != http.StatusOK {
				var apiErr webapi.ErrorResponse
				if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
					return fmt.Errorf("server refused: %s", apiErr.Error)
				}
				return fmt.Errorf("server returned status %d", resp.StatusCode)
			}

			var cleared webapi.RefreshResponse
			if err := json.NewDecoder(resp.Body).Decode(&cleared); err != nil {
				return fmt.Errorf("decoding server response: %w", err)
			}

			if len(cleared.Cleared) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Cache was already empty")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", strings.Join(cleared.Cleared, ", "))
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Server port (default from config)")
	cmd.Flags().StringVar(&dataset, "dataset", "", "Only clear this dataset")

	return cmd
}
