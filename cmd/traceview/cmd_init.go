package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/evalview/traceview/internal/projectconfig"
	"github.com/evalview/traceview/internal/wizard"
)

func newInitCommand() *cobra.Command {
	var interactive bool
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dataset]",
		Short: "Write a .traceview.yaml project configuration",
		Long: `Write a .traceview.yaml in the current directory.

Without flags, a config with defaults (plus the given dataset, if any) is
written. Use --interactive to run a guided wizard that collects the dataset,
split, port, judge model, and optional blob task source.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return initCommandE(cmd, args, interactive, force)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run the guided configuration wizard")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing .traceview.yaml")

	return cmd
}

func initCommandE(cmd *cobra.Command, args []string, interactive, force bool) error {
	dataset := ""
	if len(args) > 0 {
		dataset = args[0]
	}

	path := filepath.Join(".", ".traceview.yaml")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := projectconfig.New()
	cfg.Dataset = dataset

	if interactive {
		var err error
		cfg, err = wizard.RunConfigWizard(cmd.InOrStdin(), cmd.OutOrStdout(), dataset)
		if err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path) //nolint:errcheck
	if cfg.Dataset == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Set `dataset` in the file or pass one to `traceview serve --dataset`") //nolint:errcheck
	}
	return nil
}
