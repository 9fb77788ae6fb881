package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/natours-api/go-auth"
)

const testSigningKey = "cli-signing-key-0123456789-abcdefghij"

func TestRootCommandWiring(t *testing.T) {
	cmd := NewRootCmd()

	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "migrate")

	for _, flag := range []string{"config", "signing-key", "token-ttl", "hash-cost", "database-dsn", "listen-addr", "log-format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestMigrateCommand(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "natours.db")

	for i := 0; i < 2; i++ {
		cmd := NewRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs([]string{"migrate", "--database-dsn", dsn})

		require.NoError(t, cmd.ExecuteContext(context.Background()), out.String())
		assert.Contains(t, out.String(), "Migrations completed successfully")
	}

	db, err := openDB(dsn)
	require.NoError(t, err)
	defer db.Close()

	_, err = auth.NewUsersRepository(db).List(context.Background())
	assert.NoError(t, err)
}

func TestLoadConfigFromFlags(t *testing.T) {
	cmd := NewRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--signing-key", testSigningKey, "--log-format", "text"}))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, testSigningKey, cfg.SigningKey)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, auth.DefaultConfig().Issuer, cfg.Issuer)
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	cfg := auth.DefaultConfig()
	cfg.LogLevel = "chatty"

	logger := newLogger(cfg, &buf)
	logger.Debug("hidden")
	logger.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
}

func TestNewAppServesAPIAndMetrics(t *testing.T) {
	db, err := openDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, auth.Migrate(context.Background(), db))

	cfg := auth.DefaultConfig()
	cfg.SigningKey = testSigningKey
	cfg.HashCost = bcrypt.MinCost

	var outbox bytes.Buffer
	app, auther, err := newApp(cfg, auth.NewUsersRepository(db), prometheus.NewRegistry(), slog.New(slog.NewTextHandler(io.Discard, nil)), &outbox)
	require.NoError(t, err)
	t.Cleanup(func() { _ = auther.Close() })

	signup, err := json.Marshal(map[string]string{
		"name":            "Ann",
		"email":           "ann@example.com",
		"password":        "pass1234",
		"passwordConfirm": "pass1234",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/signup", bytes.NewReader(signup))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	forgot := strings.NewReader(`{"email":"ann@example.com"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/forgotPassword", forgot)
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, outbox.String(), "ann@example.com")
	assert.Contains(t, outbox.String(), cfg.ResetURLBase+"/")

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/users", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), fmt.Sprintf("auth_activity_events_total{event=%q} 1", auth.ActivityEventSignup))
	assert.Contains(t, string(body), `auth_access_decisions_total{state="rejected"} 1`)
}

func TestNewAppRecoversHandlerPanics(t *testing.T) {
	db, err := openDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, auth.Migrate(context.Background(), db))

	cfg := auth.DefaultConfig()
	cfg.SigningKey = testSigningKey
	cfg.HashCost = bcrypt.MinCost

	app, auther, err := newApp(cfg, auth.NewUsersRepository(db), prometheus.NewRegistry(), slog.New(slog.NewTextHandler(io.Discard, nil)), io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = auther.Close() })

	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("nil map write")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "something went wrong", body["message"])
	assert.NotContains(t, body["message"], "nil map write")
}
