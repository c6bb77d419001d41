// Package selectors implements selector diagnostic commands.
package selectors

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/harvester/cmd/common"
	"github.com/jonesrussell/harvester/internal/domain"
)

// Command returns the selectors command with its subcommands.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selectors",
		Short: "Selector diagnostics",
	}
	cmd.AddCommand(testCommand())
	return cmd
}

// testCommand evaluates one selector expression against a live page.
func testCommand() *cobra.Command {
	var (
		rawURL      string
		expression  string
		backendKind string
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test a CSS selector against a live page",
		Long: `Fetch the page and report how many elements the selector matches,
with sample text. Failures are categorized with a remediation
suggestion instead of a raw error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			deps, err := common.NewCommandDeps(cfgFile)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := common.OpenDatabase(ctx, deps)
			if err != nil {
				return err
			}
			defer db.Close()

			engine, err := common.BuildEngine(deps, db)
			if err != nil {
				return err
			}
			defer engine.Shutdown()

			result, err := engine.Crawl.TestSelector(ctx, domain.Backend(backendKind), rawURL, expression)
			if err != nil {
				return fmt.Errorf("selector test failed: %w", err)
			}

			if result.Error != "" {
				fmt.Printf("error: %s\ncategory: %s\nsuggestion: %s\n",
					result.Error, result.Category, result.Suggestion)
				return nil
			}

			fmt.Printf("matched %d element(s)\n", result.Count)
			for i, sample := range result.Samples {
				fmt.Printf("  %d. %s\n", i+1, sample)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rawURL, "url", "", "page URL to fetch")
	cmd.Flags().StringVar(&expression, "expr", "", "CSS selector expression")
	cmd.Flags().StringVar(&backendKind, "backend", string(domain.BackendStatic), "fetch backend: static or browser")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("expr")

	return cmd
}
