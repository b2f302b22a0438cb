package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/dbstate-harness-go/dbstate/postgresengine"
)

func newTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the schema with their primary key column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, store *postgresengine.Store) error {
				tableNames, err := store.TableNames(ctx)
				if err != nil {
					return err
				}

				pkeys, err := store.PrimaryKeys(ctx)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "TABLE\tPRIMARY KEY")
				for _, tableName := range tableNames {
					fmt.Fprintf(w, "%s\t%s\n", tableName, pkeys[tableName])
				}

				return w.Flush()
			})
		},
	}
}
