package main

import (
	"database/sql"
	"io"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/natours-api/go-auth"
)

// NewRootCmd creates the root command for the natours-auth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "natours-auth",
		Short: "Natours authentication service",
		Long: `natours-auth serves the user account API: signup, login, password
reset and role based access for the Natours tours backend.`,
		SilenceUsage: true,
	}

	defaults := auth.DefaultConfig()
	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("signing-key", defaults.SigningKey, "HMAC key used to sign session tokens")
	flags.String("issuer", defaults.Issuer, "token issuer")
	flags.Duration("token-ttl", defaults.TokenTTL, "session token lifetime")
	flags.Int("hash-cost", defaults.HashCost, "bcrypt work factor")
	flags.Duration("reset-token-ttl", defaults.ResetTokenTTL, "password reset token lifetime")
	flags.String("reset-url-base", defaults.ResetURLBase, "base URL placed in reset emails")
	flags.String("database-dsn", defaults.DatabaseDSN, "sqlite data source name")
	flags.String("listen-addr", defaults.ListenAddr, "HTTP listen address")
	flags.String("log-format", defaults.LogFormat, "log format (json or text)")
	flags.String("log-level", defaults.LogLevel, "log level")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

func loadConfig(cmd *cobra.Command) (auth.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return auth.Config{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	return auth.LoadConfig(path, cmd.Flags())
}

func newLogger(cfg auth.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return auth.NewLogger(cfg.LogFormat, w, level)
}

func openDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("dsn", dsn).Wrap(err)
	}
	// sqlite allows a single writer
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}
