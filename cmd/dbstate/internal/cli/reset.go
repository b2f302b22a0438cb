package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/dbstate-harness-go/dbstate/postgresengine"
)

func newResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Truncate every table of the schema",
		Long: `reset truncates every table of the schema except the ignored ones.
It only runs when YES_PLEASE_DELETE_ALL_MY_DATA_VERY_OFTEN is set to the confirmation phrase.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, store *postgresengine.Store) error {
				if err := store.ResetAll(ctx); err != nil {
					return err
				}

				_, err := fmt.Fprintf(cmd.OutOrStdout(), "reset schema %q\n", store.Schema())

				return err
			})
		},
	}
}
