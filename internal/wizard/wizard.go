// Package wizard collects project configuration interactively.
package wizard

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/evalview/traceview/internal/projectconfig"
)

// RunConfigWizard runs an interactive huh form to collect the project
// configuration for a new .traceview.yaml. If initialDataset is non-empty,
// it pre-populates the dataset field.
func RunConfigWizard(in io.Reader, out io.Writer, initialDataset string) (*projectconfig.ProjectConfig, error) {
	var (
		dataset     = initialDataset
		split       = projectconfig.DefaultSplit
		portRaw     = strconv.Itoa(projectconfig.DefaultServerPort)
		judgeModel  string
		blobAccount string
		blobCont    string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Dataset").
				Description("Dataset identifier, e.g. acme/agent-evals").
				Placeholder("owner/dataset").
				Value(&dataset).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("dataset is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Split").
				Options(
					huh.NewOption("train", "train"),
					huh.NewOption("validation", "validation"),
					huh.NewOption("test", "test"),
				).
				Value(&split),
			huh.NewInput().
				Title("Dashboard port").
				Value(&portRaw).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n < 1 || n > 65535 {
						return fmt.Errorf("port must be between 1 and 65535")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Judge model").
				Description("Model used for trace summaries and verdicts").
				Options(
					huh.NewOption("gpt-4o-mini (default)", ""),
					huh.NewOption("gpt-4o", "gpt-4o"),
					huh.NewOption("gpt-4.1", "gpt-4.1"),
				).
				Value(&judgeModel),
			huh.NewInput().
				Title("Blob account URL").
				Description("Optional storage account for task archives; leave empty to use the dataset rows").
				Placeholder("https://myaccount.blob.core.windows.net").
				Value(&blobAccount),
			huh.NewInput().
				Title("Blob container").
				Description("Container holding the .tar.gz task archives").
				Value(&blobCont).
				Validate(func(s string) error {
					if strings.TrimSpace(blobAccount) != "" && strings.TrimSpace(s) == "" {
						return fmt.Errorf("container is required when an account URL is set")
					}
					return nil
				}),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	return buildConfig(dataset, split, portRaw, judgeModel, blobAccount, blobCont)
}

// buildConfig turns the collected answers into a ProjectConfig on top of the
// defaults. Validation beyond what the form enforces happens here so the
// function stays usable without a terminal.
func buildConfig(dataset, split, portRaw, judgeModel, blobAccount, blobCont string) (*projectconfig.ProjectConfig, error) {
	dataset = strings.TrimSpace(dataset)
	if dataset == "" {
		return nil, fmt.Errorf("dataset is required")
	}

	port, err := strconv.Atoi(strings.TrimSpace(portRaw))
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("port must be between 1 and 65535")
	}

	blobAccount = strings.TrimSpace(blobAccount)
	blobCont = strings.TrimSpace(blobCont)
	if blobAccount != "" && blobCont == "" {
		return nil, fmt.Errorf("container is required when an account URL is set")
	}

	cfg := projectconfig.New()
	cfg.Dataset = dataset
	cfg.Hub.Split = split
	cfg.Server.Port = port
	if judgeModel != "" {
		cfg.Judge.Model = judgeModel
	}
	cfg.Blob.AccountURL = blobAccount
	cfg.Blob.Container = blobCont
	return cfg, nil
}
