package commands

import (
	"os"

	"fabriq-content/internal/sources"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Validates the sources document and prints it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := sources.Load(config.Sources)
		if err != nil {
			return err
		}
		renderSources(os.Stdout, list)
		return nil
	},
}
