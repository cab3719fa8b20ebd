package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/survey3/auth"
)

var testSecret string

func secret(t *testing.T) string {
	t.Helper()
	if testSecret == "" {
		s, err := auth.GenerateSecret(1024)
		require.NoError(t, err)
		testSecret = s
	}
	return testSecret
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("PORT", "8080")
	t.Setenv("BASE_URL", "http://localhost:8080")
	t.Setenv("DATABASE_URL", "sqlite://survey3.sqlite")
	t.Setenv("API_SECRET", secret(t))
	t.Setenv("WEB3_STORAGE_API_TOKEN", "w3-token")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.Env)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, "http://localhost:8080", cfg.Url())
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "w3s.link", cfg.Gateway)
	assert.Equal(t, 1, cfg.FanOut)
	assert.Equal(t, 2, cfg.Retries)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.NotNil(t, cfg.SigningKey)
}

func TestLoadDevelopmentEnablesDebug(t *testing.T) {
	setRequired(t)
	t.Setenv("ENV", "development")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.IsDevelopment())
	assert.True(t, cfg.Debug)
}

func TestLoadFallsBackToMongoURI(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017", cfg.DatabaseURL)
}

func TestLoadEnvFile(t *testing.T) {
	setRequired(t)
	os.Unsetenv("PORT")
	t.Setenv("GATEWAY_CONCURRENCY", "")
	os.Unsetenv("GATEWAY_CONCURRENCY")

	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("PORT=9090\nGATEWAY_CONCURRENCY=4\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("PORT") })

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 4, cfg.FanOut)
}

func TestLoadMissingEnvFile(t *testing.T) {
	setRequired(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"env":         {"ENV", "staging"},
		"port":        {"PORT", "0"},
		"base url":    {"BASE_URL", "not a url"},
		"database":    {"DATABASE_URL", ""},
		"gateway":     {"IPFS_GATEWAY", "https://w3s.link/ipfs"},
		"concurrency": {"GATEWAY_CONCURRENCY", "0"},
		"retries":     {"GATEWAY_RETRIES", "-1"},
		"token ttl":   {"ACCESS_TOKEN_EXPIRES_IN", "0s"},
		"secret":      {"API_SECRET", "bm90IGEga2V5"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(kv[0], kv[1])

			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	setRequired(t)
	os.Unsetenv("API_SECRET")

	_, err := Load("")
	assert.Error(t, err)
}
