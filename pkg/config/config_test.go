package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port     int    `env:"TEST_CFG_PORT" envDefault:"8010"`
	Host     string `env:"TEST_CFG_HOST" envDefault:"localhost"`
	LogLevel string `env:"TEST_CFG_LOG_LEVEL" envDefault:"info"`
	Strict   bool   `env:"TEST_CFG_STRICT" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8010, cfg.Port)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Strict)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_HOST", "0.0.0.0")
	t.Setenv("TEST_CFG_LOG_LEVEL", "debug")
	t.Setenv("TEST_CFG_STRICT", "true")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Strict)
}

type requiredConfig struct {
	Bootstrap string `env:"TEST_CFG_BOOTSTRAP,required"`
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg requiredConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_MissingDotenvIgnored(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg, filepath.Join(t.TempDir(), "absent.env")))
	assert.Equal(t, 8010, cfg.Port)
}

func TestLoad_DotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.env")
	require.NoError(t, os.WriteFile(path, []byte("TEST_CFG_DOTENV_HOST=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TEST_CFG_DOTENV_HOST") })

	var cfg struct {
		Host string `env:"TEST_CFG_DOTENV_HOST" envDefault:"localhost"`
	}
	require.NoError(t, Load(&cfg, path))
	assert.Equal(t, "from-file", cfg.Host)
}

func TestLoad_EnvironmentWinsOverDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.env")
	require.NoError(t, os.WriteFile(path, []byte("TEST_CFG_HOST=from-file\n"), 0o600))
	t.Setenv("TEST_CFG_HOST", "from-env")

	var cfg testConfig
	require.NoError(t, Load(&cfg, path))
	assert.Equal(t, "from-env", cfg.Host)
}
