// Package sources implements source management commands.
package sources

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/harvester/cmd/common"
	"github.com/jonesrussell/harvester/internal/domain"
	"github.com/jonesrussell/harvester/internal/storage"
)

// Command returns the sources command with its subcommands.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage content sources",
	}
	cmd.AddCommand(listCommand())
	return cmd
}

// listCommand prints all configured sources in a table.
func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configured sources",
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

			sources, err := storage.NewSourceRepository(db).List(ctx)
			if err != nil {
				return err
			}

			if len(sources) == 0 {
				deps.Logger.Info("No sources configured")
				return nil
			}

			renderTable(sources)
			return nil
		},
	}
}

func renderTable(sources []*domain.Source) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"ID", "Name", "URL", "Backend", "Active", "Selectors"})
	for _, source := range sources {
		t.AppendRow(table.Row{
			source.ID,
			source.Name,
			source.BaseURL,
			source.Backend,
			source.Active,
			len(source.Selectors),
		})
	}

	t.Render()
}
