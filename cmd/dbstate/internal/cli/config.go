package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AntonStoeckl/dbstate-harness-go/dbstate"
)

const (
	envPrefix = "DBSTATE"

	keyDSN             = "dsn"
	keyAdapter         = "adapter"
	keySchema          = "schema"
	keyIgnoreTables    = "ignore-tables"
	keyRestartIdentity = "restart-identity"
	keyLogLevel        = "log-level"

	adapterPGXPool = "pgx.pool"
	adapterSQLDB   = "sql.db"
	adapterSQLX    = "sqlx.db"

	tagIdentifier = "identifier"
)

// ErrInvalidConfig is returned when flags and environment do not form a usable configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the connection and store configuration shared by the database commands.
// Every field can be given as a flag or as a DBSTATE_ prefixed environment variable,
// e.g. DBSTATE_DSN or DBSTATE_IGNORE_TABLES.
type Config struct {
	DSN             string   `mapstructure:"dsn" validate:"required,url"`
	Adapter         string   `mapstructure:"adapter" validate:"oneof=pgx.pool sql.db sqlx.db"`
	Schema          string   `mapstructure:"schema" validate:"required,identifier"`
	IgnoreTables    []string `mapstructure:"ignore-tables" validate:"dive,identifier"`
	RestartIdentity bool     `mapstructure:"restart-identity"`
	LogLevel        string   `mapstructure:"log-level" validate:"oneof=debug info warn error"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// RegisterValidation only fails for empty tags or reserved names.
	_ = v.RegisterValidation(tagIdentifier, func(fl validator.FieldLevel) bool {
		return dbstate.IsValidIdentifier(fl.Field().String())
	})

	return v
}

func addConfigFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String(keyDSN, "", "PostgreSQL connection string")
	flags.String(keyAdapter, adapterPGXPool, "database adapter: pgx.pool, sql.db or sqlx.db")
	flags.String(keySchema, "public", "schema to operate on")
	flags.StringSlice(keyIgnoreTables, nil, "tables to leave out of dumps and resets")
	flags.Bool(keyRestartIdentity, false, "restart identity sequences on reset")
	flags.String(keyLogLevel, "warn", "log level: debug, info, warn or error")
}

// LoadConfig merges the command's flags with DBSTATE_ environment variables and validates the result.
// Flags that were set explicitly win over the environment.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, describeValidationError(err))
	}

	return cfg, nil
}

func describeValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	problems := make([]error, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		problems = append(problems, fmt.Errorf("%s fails %q (got %q)", fieldErr.Namespace(), fieldErr.Tag(), fmt.Sprint(fieldErr.Value())))
	}

	return errors.Join(problems...)
}

// SlogLevel maps the configured log level onto slog.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
