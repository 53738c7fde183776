package commands

import (
	"context"
	"os"

	"fabriq-content/internal/app"
	"fabriq-content/internal/telemetry"
	libtelemetry "fabriq-content/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool

	config app.Config
	tel    telemetry.API = telemetry.NewSlogAPI()
)

var rootCmd = &cobra.Command{
	Use:   "content-pipeline",
	Short: "content-pipeline rebuilds the style catalog from the factory sites.",
	Long: `content-pipeline fetches every catalog page listed in the sources document,
extracts style cards, downloads their images and rewrites the catalog and
run report. Without a subcommand it performs a run.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		libtelemetry.InitSlog(os.Stderr, verbose)

		cfg, err := app.LoadConfig(configPath)
		if err != nil {
			return err
		}
		config = cfg
		return nil
	},
	RunE: runPipeline,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", app.DefaultConfigPath, "The pipeline config file, local overrides are merged in.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging.")
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
