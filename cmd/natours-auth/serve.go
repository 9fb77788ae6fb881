package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	auth "github.com/natours-api/go-auth"
	"github.com/natours-api/go-auth/activitymap"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API on the configured address. Reset emails are
written to stdout.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cfg, os.Stderr)

	db, err := openDB(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := auth.Migrate(ctx, db); err != nil {
		return oops.Code("MIGRATION_FAILED").Wrap(err)
	}

	reg := prometheus.NewRegistry()
	app, auther, err := newApp(cfg, auth.NewUsersRepository(db), reg, logger, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer auther.Close()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr)
		errCh <- app.Listen(cfg.ListenAddr)
	}()

	select {
	case err := <-errCh:
		return oops.Code("SERVER_FAILED").With("addr", cfg.ListenAddr).Wrap(err)
	case <-ctx.Done():
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	}
}

// newApp wires the store, the authenticator and the HTTP routes.
func newApp(cfg auth.Config, users auth.Users, reg *prometheus.Registry, logger *slog.Logger, outbox io.Writer) (*fiber.App, *auth.Auther, error) {
	metrics, err := auth.NewMetricsSink(reg)
	if err != nil {
		return nil, nil, err
	}

	authLogger := auth.NewSlogLogger(logger)
	auther, err := auth.NewAuthenticator(cfg, users, auth.NewWriterDispatcher(outbox),
		auth.WithLogger(authLogger),
		auth.WithActivitySink(activitymap.NewLogSink(logger)),
		auth.WithMetrics(metrics),
	)
	if err != nil {
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          auth.ErrorHandler(authLogger),
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	auth.RegisterAuthRoutes(app.Group("/api/v1/users"), auther,
		auth.WithControllerLogger(authLogger),
		auth.WithListUsersHandler(listUsers(users)),
	)

	return app, auther, nil
}

func listUsers(users auth.Users) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 10*time.Second)
		defer cancel()

		records, err := users.List(ctx)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"status":  "success",
			"results": len(records),
			"data": fiber.Map{
				"users": records,
			},
		})
	}
}
