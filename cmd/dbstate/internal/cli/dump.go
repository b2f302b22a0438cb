package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/dbstate-harness-go/dbstate"
	"github.com/AntonStoeckl/dbstate-harness-go/dbstate/postgresengine"
)

const snapshotFileMode = 0o644

func newDumpCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write a JSON snapshot of every table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, store *postgresengine.Store) error {
				snapshot, err := store.Dump(ctx)
				if err != nil {
					return err
				}

				pkeys, err := store.PrimaryKeys(ctx)
				if err != nil {
					return err
				}

				data, err := dbstate.EncodeSnapshotDocument(dbstate.NewSnapshotDocument(store.Schema(), snapshot, pkeys))
				if err != nil {
					return fmt.Errorf("encode snapshot: %w", err)
				}
				data = append(data, '\n')

				if out == "" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}

				if err := os.WriteFile(out, data, snapshotFileMode); err != nil {
					return fmt.Errorf("write snapshot: %w", err)
				}

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "file to write the snapshot to instead of stdout")

	return cmd
}
