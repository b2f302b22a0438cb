// Command dbstate inspects, snapshots, diffs and resets a PostgreSQL schema used by test suites.
package main

import (
	"fmt"
	"os"

	"github.com/AntonStoeckl/dbstate-harness-go/cmd/dbstate/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dbstate:", err)
		os.Exit(cli.ExitCode(err))
	}
}
