package auth_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/natours-api/go-auth"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := auth.DefaultConfig()
	assert.Equal(t, 90*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.ResetTokenTTL)
	assert.Equal(t, time.Second, cfg.PasswordChangeSkew)
	assert.Equal(t, auth.DefaultHashCost, cfg.HashCost)
	assert.Equal(t, 8, cfg.MinPasswordLength)
	assert.Empty(t, cfg.SigningKey)

	assert.ErrorIs(t, cfg.Validate(), auth.ErrValidation)

	cfg.SigningKey = testSigningKey
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigWithoutSources(t *testing.T) {
	cfg, err := auth.LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, auth.DefaultConfig(), cfg)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfigFile(t, `
signing_key: file-signing-key-0123456789-abcdefghij
issuer: natours-test
token_ttl: 1h
reset_token_ttl: 15m
hash_cost: 10
listen_addr: ":8080"
`)

	cfg, err := auth.LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "file-signing-key-0123456789-abcdefghij", cfg.SigningKey)
	assert.Equal(t, "natours-test", cfg.Issuer)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 15*time.Minute, cfg.ResetTokenTTL)
	assert.Equal(t, 10, cfg.HashCost)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	// untouched keys keep their defaults
	assert.Equal(t, auth.DefaultConfig().ResetURLBase, cfg.ResetURLBase)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := writeConfigFile(t, `
signing_key: file-signing-key-0123456789-abcdefghij
issuer: natours-test
token_ttl: 1h
`)

	defaults := auth.DefaultConfig()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("issuer", defaults.Issuer, "")
	flags.Duration("token-ttl", defaults.TokenTTL, "")
	flags.String("listen-addr", defaults.ListenAddr, "")
	require.NoError(t, flags.Parse([]string{"--token-ttl=2h", "--listen-addr=:9090"}))

	cfg, err := auth.LoadConfig(path, flags)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	// an unset flag does not clobber the file
	assert.Equal(t, "natours-test", cfg.Issuer)
	assert.Equal(t, "file-signing-key-0123456789-abcdefghij", cfg.SigningKey)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := auth.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	path := writeConfigFile(t, "signing_key: [unterminated")
	_, err = auth.LoadConfig(path, nil)
	assert.Error(t, err)
}

func TestConfigValidateFields(t *testing.T) {
	cfg := testConfig()
	cfg.SigningKey = "short"
	cfg.PasswordChangeSkew = -time.Second

	err := cfg.Validate()
	require.ErrorIs(t, err, auth.ErrValidation)

	var verr *auth.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "signing_key")
	assert.Contains(t, verr.Fields, "password_change_skew")
}
