package commands

import (
	"log/slog"
	"os"

	"fabriq-content/internal/app"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs the pipeline once over every source.",
	RunE:  runPipeline,
}

func runPipeline(cmd *cobra.Command, args []string) error {
	rep, err := app.Run(cmd.Context(), app.Options{
		Config:    config,
		Telemetry: tel,
	})
	if err != nil {
		return err
	}

	slog.Info(
		"run finished",
		"sources", len(rep.Sources),
		"warnings", len(rep.Warnings),
		"duration", rep.FinishedAt.Sub(rep.StartedAt).String(),
	)
	renderReport(os.Stdout, rep)
	return nil
}
