package commands

import (
	"errors"
	"log/slog"

	"fabriq-content/internal/app"
	"fabriq-content/internal/chrono"

	"github.com/spf13/cobra"
)

var scheduleSpec string

func init() {
	scheduleCmd.Flags().StringVar(&scheduleSpec, "cron", "0 4 * * *", "The cron expression runs are started on.")
	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule [--cron <expr>]",
	Short: "Keeps running the pipeline on a cron schedule until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cron := chrono.NewStandardCron(tel)
		defer cron.Stop()

		err := cron.Cron(scheduleSpec, func() {
			rep, err := app.Run(ctx, app.Options{Config: config, Telemetry: tel})
			if errors.Is(err, app.ErrLocked) {
				slog.Warn("skipping scheduled run", "err", err)
				return
			}
			if err != nil {
				slog.Error("scheduled run failed", "err", err)
				return
			}
			slog.Info("scheduled run finished", "sources", len(rep.Sources), "warnings", len(rep.Warnings))
		})
		if err != nil {
			return err
		}

		slog.Info("waiting for scheduled runs", "cron", scheduleSpec)
		<-ctx.Done()
		return nil
	},
}
