package config_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/carepath/internal/config"
	"github.com/aretw0/carepath/pkg/persistence"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	config.RegisterFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return config.Load(cmd)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, config.ScopeSubscription, cfg.Scope)
	assert.Equal(t, persistence.DefaultTTL, cfg.TTL)
	assert.Equal(t, "carepath:", cfg.Redis.Prefix)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.EncryptionKey)
}

func TestLoad_EnvironmentAndFlags(t *testing.T) {
	t.Setenv("CAREPATH_REDIS_ADDR", "redis:6379")
	t.Setenv("CAREPATH_TTL", "2h")
	t.Setenv("CAREPATH_LOG_LEVEL", "debug")
	t.Setenv("CRM_HOST", "https://crm.example.com")
	t.Setenv("CRM_USERNAME", "portal")
	t.Setenv("CRM_PASSWORD", "c2VjcmV0")

	cfg, err := load(t, "--log-level", "warn", "--scope", "shared")
	require.NoError(t, err)

	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2*time.Hour, cfg.TTL)
	assert.Equal(t, "warn", cfg.LogLevel, "flags win over the environment")
	assert.Equal(t, config.ScopeShared, cfg.Scope)
	assert.Equal(t, "https://crm.example.com", cfg.CRM.Host)
	assert.Equal(t, "portal", cfg.CRM.Username)
	assert.Equal(t, "c2VjcmV0", cfg.CRM.Password)

	_, expiry := persistence.NewRepository(nil, persistence.WithScope(cfg.ScopeFunc())).Keys("sub_1")
	assert.Equal(t, persistence.ExpiryKey, expiry)
}

func TestLoad_PrefixedCRMWins(t *testing.T) {
	t.Setenv("CRM_HOST", "https://bare.example.com")
	t.Setenv("CAREPATH_CRM_HOST", "https://prefixed.example.com")

	cfg, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, "https://prefixed.example.com", cfg.CRM.Host)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(file, []byte("CAREPATH_SUBMISSION_URL=https://hooks.example.com/flow\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CAREPATH_SUBMISSION_URL") })

	cfg, err := load(t, "--env-file", file)
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.example.com/flow", cfg.SubmissionURL)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "carepath.yaml")
	content := strings.Join([]string{
		"listen-addr: \":9090\"",
		"crm-endpoints:",
		"  - /api/login",
		"  - /login",
		"redis:",
		"  addr: cache:6379",
		"  db: 2",
	}, "\n")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	cfg, err := load(t, "--config-file", file)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, []string{"/api/login", "/login"}, cfg.CRMEndpoints)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := load(t, "--config-file", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

	t.Run("Valid", func(t *testing.T) {
		cfg := &config.Config{Scope: config.ScopeSubscription, TTL: time.Hour, EncryptionKey: key, FallbackKeys: []string{key}}
		require.NoError(t, cfg.Validate())
		keys, err := cfg.Keys()
		require.NoError(t, err)
		assert.Len(t, keys, 2)
	})

	t.Run("AllProblemsReported", func(t *testing.T) {
		cfg := &config.Config{Scope: "tab", TTL: 0, EncryptionKey: base64.StdEncoding.EncodeToString([]byte("short"))}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scope")
		assert.Contains(t, err.Error(), "ttl")
		assert.Contains(t, err.Error(), "32 bytes")
	})

	t.Run("NotBase64", func(t *testing.T) {
		cfg := &config.Config{Scope: config.ScopeShared, TTL: time.Hour, EncryptionKey: "%%%"}
		assert.Error(t, cfg.Validate())
	})
}
