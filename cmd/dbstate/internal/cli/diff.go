package cli

import (
	"errors"
	"fmt"
	"maps"
	"os"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/dbstate-harness-go/dbstate"
)

func newDiffCommand() *cobra.Command {
	var (
		compact  bool
		exitCode bool
	)

	cmd := &cobra.Command{
		Use:   "diff BEFORE.json AFTER.json",
		Short: "Show the row changes between two snapshot files",
		Long: `diff compares two files written by "dbstate dump" and prints the inserts, updates
and deletes per table as JSON. Tables without changes are left out.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := diffSnapshotFiles(args[0], args[1])
			if err != nil {
				return err
			}

			var data []byte
			if compact {
				data, err = result.Compact().JSON()
			} else {
				data, err = result.JSON()
			}
			if err != nil {
				return fmt.Errorf("render diff: %w", err)
			}

			if _, err := fmt.Fprintln(cmd.OutOrStdout(), string(data)); err != nil {
				return err
			}

			if exitCode && !result.IsEmpty() {
				return ErrDifferencesFound
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "print [inserts, updates, deletes] counts per table")
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "exit with status 1 when the snapshots differ")

	return cmd
}

func diffSnapshotFiles(beforePath, afterPath string) (dbstate.DiffResult, error) {
	before, err := readSnapshotFile(beforePath)
	if err != nil {
		return nil, err
	}

	after, err := readSnapshotFile(afterPath)
	if err != nil {
		return nil, err
	}

	if !maps.Equal(before.PrimaryKeys, after.PrimaryKeys) {
		return nil, errors.Join(dbstate.ErrSchemaDrift, fmt.Errorf("primary keys differ between %s and %s", beforePath, afterPath))
	}

	beforeSnapshot, err := before.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", beforePath, err)
	}

	afterSnapshot, err := after.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", afterPath, err)
	}

	return dbstate.Diff(beforeSnapshot, afterSnapshot, before.PrimaryKeys)
}

func readSnapshotFile(path string) (dbstate.SnapshotDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return dbstate.SnapshotDocument{}, fmt.Errorf("read snapshot: %w", err)
	}

	doc, err := dbstate.DecodeSnapshotDocument(data)
	if err != nil {
		return dbstate.SnapshotDocument{}, fmt.Errorf("%s: %w", path, err)
	}

	return doc, nil
}
