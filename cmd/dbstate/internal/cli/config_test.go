package cli

import (
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDSN = "postgres://nobody@127.0.0.1:1/none?sslmode=disable"

func givenParsedCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()

	cmd := &cobra.Command{Use: "test"}
	addConfigFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))

	return cmd
}

func Test_LoadConfig_Applies_Defaults(t *testing.T) {
	// arrange
	cmd := givenParsedCommand(t, "--dsn", testDSN)

	// act
	cfg, err := LoadConfig(cmd)

	// assert
	require.NoError(t, err)
	assert.Equal(t, testDSN, cfg.DSN)
	assert.Equal(t, adapterPGXPool, cfg.Adapter)
	assert.Equal(t, "public", cfg.Schema)
	assert.Empty(t, cfg.IgnoreTables)
	assert.False(t, cfg.RestartIdentity)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}

func Test_LoadConfig_Reads_Environment(t *testing.T) {
	// setup
	t.Setenv("DBSTATE_DSN", testDSN)
	t.Setenv("DBSTATE_ADAPTER", adapterSQLX)
	t.Setenv("DBSTATE_SCHEMA", "harness")
	t.Setenv("DBSTATE_IGNORE_TABLES", "goose_db_version,audit_log")
	t.Setenv("DBSTATE_RESTART_IDENTITY", "true")
	t.Setenv("DBSTATE_LOG_LEVEL", "debug")

	// arrange
	cmd := givenParsedCommand(t)

	// act
	cfg, err := LoadConfig(cmd)

	// assert
	require.NoError(t, err)
	assert.Equal(t, testDSN, cfg.DSN)
	assert.Equal(t, adapterSQLX, cfg.Adapter)
	assert.Equal(t, "harness", cfg.Schema)
	assert.Equal(t, []string{"goose_db_version", "audit_log"}, cfg.IgnoreTables)
	assert.True(t, cfg.RestartIdentity)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func Test_LoadConfig_Explicit_Flags_Win_Over_Environment(t *testing.T) {
	// setup
	t.Setenv("DBSTATE_DSN", testDSN)
	t.Setenv("DBSTATE_SCHEMA", "from_env")

	// arrange
	cmd := givenParsedCommand(t, "--schema", "from_flag")

	// act
	cfg, err := LoadConfig(cmd)

	// assert
	require.NoError(t, err)
	assert.Equal(t, "from_flag", cfg.Schema)
}

func Test_LoadConfig_Rejects_Invalid_Settings(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{name: "missing dsn", args: nil},
		{name: "dsn is not a url", args: []string{"--dsn", "not a dsn"}},
		{name: "unknown adapter", args: []string{"--dsn", testDSN, "--adapter", "mysql"}},
		{name: "schema with quote", args: []string{"--dsn", testDSN, "--schema", `public"; DROP`}},
		{name: "ignored table with dot", args: []string{"--dsn", testDSN, "--ignore-tables", "public.widgets"}},
		{name: "unknown log level", args: []string{"--dsn", testDSN, "--log-level", "trace"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			cmd := givenParsedCommand(t, tc.args...)

			// act
			_, err := LoadConfig(cmd)

			// assert
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
