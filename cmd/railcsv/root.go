package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/railcsv/internal/application"
	"github.com/JonMunkholm/railcsv/internal/config"
	"github.com/JonMunkholm/railcsv/internal/logging"
)

// globalFlags override the environment configuration for one invocation.
type globalFlags struct {
	driver   string
	url      string
	logLevel string
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rc := &cobra.Command{
		Use:   "railcsv",
		Short: "Ingest rail-inspection CSV exports",
		Long: `railcsv normalizes, validates and stores CSV exports produced by the
track measurement systems (AMS, OHL, PI, RC, RP, TG, TSIGHT).

Storage settings come from the environment (DB_DRIVER, DATABASE_URL)
and may be overridden with flags.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(flags.logLevel, "text")
		},
	}

	rc.PersistentFlags().StringVar(&flags.driver, "db-driver", "", "storage backend: postgres or sqlite")
	rc.PersistentFlags().StringVar(&flags.url, "db-url", "", "PostgreSQL connection string or SQLite file path")
	rc.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	rc.AddCommand(newIngestCommand(flags))
	rc.AddCommand(newDirCommand(flags))
	rc.AddCommand(newPreviewCommand())
	rc.AddCommand(newSystemsCommand())
	rc.AddCommand(newNormalizeHeaderCommand())
	rc.AddCommand(newDeleteReportCommand(flags))

	return rc
}

// loadConfig reads the environment and applies flag overrides before
// validating.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	return config.LoadWith(func(cfg *config.Config) {
		if f.driver != "" {
			cfg.Database.Driver = f.driver
		}
		if f.url != "" {
			cfg.Database.URL = f.url
		}
	})
}

// openApp builds the application from the effective configuration.
func (f *globalFlags) openApp(ctx context.Context) (*application.App, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}
	return application.New(ctx, cfg)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
