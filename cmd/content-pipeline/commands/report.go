package commands

import (
	"os"

	"fabriq-content/internal/report"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Prints the report of the last run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := report.Read(config.Report)
		if err != nil {
			return err
		}
		renderReport(os.Stdout, r)
		return nil
	},
}
