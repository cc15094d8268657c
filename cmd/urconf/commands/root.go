package commands

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/knyar/urconf/internal/declfile"
	"github.com/knyar/urconf/internal/logging"
	"github.com/knyar/urconf/pkg/uptimerobot"
	"github.com/knyar/urconf/pkg/urconf"
)

const envAPIKey = "UPTIMEROBOT_API_KEY"

var (
	configPath string
	apiURL     string
	verbose    bool
)

func Execute(ctx context.Context) error {
	root := &cobra.Command{
		Use:           "urconf",
		Short:         "Declarative Uptime Robot configuration",
		Long:          "urconf declares alert contacts and uptime monitors in a YAML file and reconciles an Uptime Robot account to match.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "urconf.yaml", "path to the declaration file")
	root.PersistentFlags().StringVar(&apiURL, "api-url", "", "Uptime Robot API base URL override")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every API call and mutation")

	root.AddCommand(planCmd(), applyCmd())
	return root.ExecuteContext(ctx)
}

// runSync loads the declaration file, wires a provider client, and performs
// one sync. plan mode passes dryRun=true.
func runSync(ctx context.Context, dryRun bool) (*urconf.SyncReport, error) {
	file, err := declfile.Load(configPath)
	if err != nil {
		return nil, err
	}

	apiKey := os.Getenv(envAPIKey)
	if apiKey == "" {
		apiKey = file.APIKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no API key: set %s or api_key in %s", envAPIKey, configPath)
	}

	baseURL := apiURL
	if baseURL == "" {
		baseURL = file.BaseURL
	}

	logger := log.New(io.Discard, "", 0)
	if verbose {
		logger = logging.New()
	}

	cfg, err := uptimerobot.NewConfig(
		uptimerobot.Config{APIKey: apiKey, BaseURL: baseURL},
		uptimerobot.Dependencies{Logger: logger},
		urconf.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	if err := file.Apply(cfg); err != nil {
		return nil, err
	}
	return cfg.Sync(ctx, dryRun)
}

func printReport(w io.Writer, report *urconf.SyncReport) {
	for _, a := range report.Planned {
		fmt.Fprintf(w, "would %s\n", a)
	}
	for _, a := range report.Created {
		fmt.Fprintf(w, "created: %s\n", a)
	}
	for _, a := range report.Updated {
		fmt.Fprintf(w, "updated: %s\n", a)
	}
	for _, a := range report.Deleted {
		fmt.Fprintf(w, "deleted: %s\n", a)
	}
	for _, f := range report.Failed {
		fmt.Fprintf(w, "FAILED: %v\n", f)
	}
	for _, s := range report.Skipped {
		fmt.Fprintf(w, "skipped: %s (%s)\n", s.Action, s.Reason)
	}
	fmt.Fprintln(w, report.Summary())
}
