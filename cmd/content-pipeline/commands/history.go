package commands

import (
	"errors"
	"os"

	"fabriq-content/internal/history"

	"github.com/spf13/cobra"
)

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "The number of runs to list.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--limit <n>]",
	Short: "Lists recent runs from the history database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.HistoryDB == "" {
			return errors.New("no history_db configured")
		}
		store, err := history.Open(config.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.Recent(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		renderHistory(os.Stdout, runs)
		return nil
	},
}
