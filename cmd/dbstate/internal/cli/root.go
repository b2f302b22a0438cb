package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/dbstate-harness-go/dbstate"
)

const (
	exitDifferences     = 1
	exitFailure         = 2
	exitSafetyViolation = 3
)

// ErrDifferencesFound is returned by diff --exit-code when the snapshots differ.
var ErrDifferencesFound = errors.New("snapshots differ")

// NewRootCommand creates the dbstate command tree.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dbstate",
		Short: "Inspect, snapshot, diff and reset a PostgreSQL test schema",
		Long: `dbstate works on the schema a test suite runs against.

Database commands read their connection settings from flags or DBSTATE_ environment
variables. reset refuses to run unless YES_PLEASE_DELETE_ALL_MY_DATA_VERY_OFTEN holds
the confirmation phrase.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	addConfigFlags(cmd)

	cmd.AddCommand(newTablesCommand())
	cmd.AddCommand(newDumpCommand())
	cmd.AddCommand(newDiffCommand())
	cmd.AddCommand(newResetCommand())

	return cmd
}

// ExitCode maps a command error onto the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrDifferencesFound):
		return exitDifferences
	case errors.Is(err, dbstate.ErrSafetyViolation):
		return exitSafetyViolation
	default:
		return exitFailure
	}
}
