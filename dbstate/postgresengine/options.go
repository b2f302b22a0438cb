package postgresengine

import (
	"github.com/AntonStoeckl/dbstate-harness-go/dbstate"
)

// Option defines a functional option for configuring Store.
type Option func(*Store) error

// WithSchema sets the database schema whose tables the store manages. Default is "public".
func WithSchema(schemaName string) Option {
	return func(s *Store) error {
		if schemaName == "" {
			return dbstate.ErrEmptySchemaName
		}

		if err := dbstate.ValidateIdentifier("schema", schemaName); err != nil {
			return err
		}

		s.schema = schemaName

		return nil
	}
}

// WithIgnoredTables excludes tables from introspection, dumps and resets,
// e.g. the bookkeeping table of a migration tool.
func WithIgnoredTables(tableNames ...string) Option {
	return func(s *Store) error {
		for _, tableName := range tableNames {
			if err := dbstate.ValidateIdentifier("ignored table", tableName); err != nil {
				return err
			}

			s.ignoredTables[tableName] = struct{}{}
		}

		return nil
	}
}

// WithRestartIdentity makes ResetAll also reset the sequences owned by the truncated tables.
func WithRestartIdentity() Option {
	return func(s *Store) error {
		s.restartIdentity = true
		return nil
	}
}

// WithEnvLookup replaces os.LookupEnv as the source of the reset confirmation token.
func WithEnvLookup(lookup dbstate.EnvLookup) Option {
	return func(s *Store) error {
		s.guard = dbstate.NewResetGuard(lookup)
		return nil
	}
}

// WithLogger sets the logger for the Store.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: rows loaded, tables dumped or truncated, durations
// Warn level: Non-critical issues like cleanup failures
// Error level: Critical failures that cause operation failures, including refused resets.
func WithLogger(logger dbstate.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Store.
// It receives the same messages as the Logger, together with the operation's context,
// which enables trace correlation when tracing is enabled.
func WithContextualLogger(logger dbstate.ContextualLogger) Option {
	return func(s *Store) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Store.
// The collector receives operation durations, row counts, errors and refused resets.
func WithMetrics(collector dbstate.MetricsCollector) Option {
	return func(s *Store) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Store.
// Every public Store operation runs inside its own span.
func WithTracing(collector dbstate.TracingCollector) Option {
	return func(s *Store) error {
		s.tracingCollector = collector
		return nil
	}
}
