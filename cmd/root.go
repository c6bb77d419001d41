// Package cmd implements the harvester command-line interface.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	cmdcrawl "github.com/jonesrussell/harvester/cmd/crawl"
	cmdselectors "github.com/jonesrussell/harvester/cmd/selectors"
	cmdserve "github.com/jonesrussell/harvester/cmd/serve"
	cmdsources "github.com/jonesrussell/harvester/cmd/sources"
)

var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "A configurable multi-source content crawler",
	Long: `Harvester crawls configured websites on demand or on a schedule,
extracts articles with per-source CSS selectors, deduplicates them by
content fingerprint and stores them for search.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().String(
		"config",
		"",
		"config file (default is ./config.yaml or ./config/config.yaml)",
	)

	rootCmd.AddCommand(cmdcrawl.Command())
	rootCmd.AddCommand(cmdserve.Command())
	rootCmd.AddCommand(cmdsources.Command())
	rootCmd.AddCommand(cmdselectors.Command())
}
