package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"ENV", "LOG_LEVEL", "DATA_PATH", "STORE_BACKEND",
	"SERVER_PORT", "SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT", "SERVER_IDLE_TIMEOUT", "CORS_ALLOWED_ORIGINS",
	"AUTH_SIGNING_KEY", "AUTH_SIGNING_KEY_FILE", "ACCESS_TOKEN_DURATION", "REFRESH_TOKEN_DURATION",
	"AUTH_RATE_LIMIT", "AUTH_RATE_BURST", "METRICS_ENABLED",
}

// clearConfigEnv blanks every config variable for the duration of the test.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
	}
}

// loadArgs points Load at a .env file that does not exist.
func loadArgs(t *testing.T, args ...string) []string {
	t.Helper()
	return append([]string{"-env-file", filepath.Join(t.TempDir(), "missing.env")}, args...)
}

func validConfig() *Config {
	return &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Storage: StorageConfig{DataPath: "/data", Backend: BackendBadger},
		Server:  ServerConfig{Port: "8080"},
		Auth: AuthConfig{
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 168 * time.Hour,
			RateLimitPerMinute:   20,
			RateLimitBurst:       10,
		},
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(loadArgs(t))
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, filepath.Join(home, "Shelfwise", "data"), cfg.Storage.DataPath)
	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenDuration)
	assert.Equal(t, 20, cfg.Auth.RateLimitPerMinute)
	assert.Equal(t, 10, cfg.Auth.RateLimitBurst)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Empty(t, cfg.Auth.SigningKey)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearConfigEnv(t)
	dataDir := t.TempDir()

	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DATA_PATH", dataDir)
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("AUTH_SIGNING_KEY", "abc123")
	t.Setenv("ACCESS_TOKEN_DURATION", "5m")
	t.Setenv("REFRESH_TOKEN_DURATION", "24h")
	t.Setenv("AUTH_RATE_LIMIT", "60")
	t.Setenv("METRICS_ENABLED", "no")

	cfg, err := Load(loadArgs(t))
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, dataDir, cfg.Storage.DataPath)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(dataDir, "shelfwise.db"), cfg.DatabasePath())
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "abc123", cfg.Auth.SigningKey)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, 24*time.Hour, cfg.Auth.RefreshTokenDuration)
	assert.Equal(t, 60, cfg.Auth.RateLimitPerMinute)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_FlagsBeatEnvironment(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(loadArgs(t, "-port", "7070", "-log-level", "debug", "-store", "sqlite"))
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
}

func TestLoad_EnvFile(t *testing.T) {
	clearConfigEnv(t)
	dataDir := t.TempDir()

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "# local settings\nDATA_PATH=" + dataDir + "\nexport SERVER_PORT=\"6060\"\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	cfg, err := Load([]string{"-env-file", envFile})
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.Storage.DataPath)
	assert.Equal(t, "6060", cfg.Server.Port)
	assert.Equal(t, filepath.Join(dataDir, "badger"), cfg.DatabasePath())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad duration", "ACCESS_TOKEN_DURATION", "soon"},
		{"bad timeout", "SERVER_READ_TIMEOUT", "15"},
		{"bad rate limit", "AUTH_RATE_LIMIT", "lots"},
		{"unknown backend", "STORE_BACKEND", "postgres"},
		{"unknown environment", "ENV", "test"},
		{"port out of range", "SERVER_PORT", "70000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load(loadArgs(t))
			assert.Error(t, err)
		})
	}
}

func TestLoad_UnknownFlag(t *testing.T) {
	clearConfigEnv(t)

	_, err := Load(loadArgs(t, "-no-such-flag"))
	assert.Error(t, err)
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true}, // case insensitive
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_TokenDurations(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.AccessTokenDuration = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Auth.AccessTokenDuration = cfg.Auth.RefreshTokenDuration
	assert.Error(t, cfg.Validate())
}

func TestValidate_RateLimit(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.RateLimitBurst = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_EmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.DataPath = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "data path")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)

	got, err = expandPath("~/books", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "books"), got)

	got, err = expandPath("/srv/shelfwise/", "")
	require.NoError(t, err)
	assert.Equal(t, "/srv/shelfwise", got)

	got, err = expandPath("relative/path", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
	assert.Contains(t, got, "relative/path")
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("TEST_ENV_KEY", "env-value")

	assert.Equal(t, "flag-value", getConfigValue("flag-value", "TEST_ENV_KEY", "default-value"))
	assert.Equal(t, "env-value", getConfigValue("", "TEST_ENV_KEY", "default-value"))
	assert.Equal(t, "default-value", getConfigValue("", "NONEXISTENT_KEY", "default-value"))
}

func TestGetBoolConfigValue(t *testing.T) {
	assert.True(t, getBoolConfigValue("", "NONEXISTENT_KEY", true))
	assert.True(t, getBoolConfigValue("YES", "NONEXISTENT_KEY", false))
	assert.True(t, getBoolConfigValue("1", "NONEXISTENT_KEY", false))
	assert.False(t, getBoolConfigValue("off", "NONEXISTENT_KEY", true))
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")

	content := `# Test env file
ENV=staging
LOG_LEVEL=debug
# Comment line
QUOTED_VALUE="some value"
SINGLE_QUOTED='another value'

  KEY_WITH_SPACES  =  value with spaces
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	for _, key := range []string{"ENV", "LOG_LEVEL", "QUOTED_VALUE", "SINGLE_QUOTED", "KEY_WITH_SPACES"} {
		t.Setenv(key, "")
	}

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "staging", os.Getenv("ENV"))
	assert.Equal(t, "debug", os.Getenv("LOG_LEVEL"))
	assert.Equal(t, "some value", os.Getenv("QUOTED_VALUE"))
	assert.Equal(t, "another value", os.Getenv("SINGLE_QUOTED"))
	assert.Equal(t, "value with spaces", os.Getenv("KEY_WITH_SPACES"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")

	content := `VALID_KEY=valid_value
INVALID LINE WITHOUT EQUALS
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))
	t.Setenv("VALID_KEY", "")

	err := loadEnvFile(envFile)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLoadEnvFile_NonExistentFile(t *testing.T) {
	assert.Error(t, loadEnvFile("/nonexistent/file/.env"))
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	t.Setenv("TEST_VAR", "original-value")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`TEST_VAR=new-value`), 0o644))

	require.NoError(t, loadEnvFile(envFile))
	assert.Equal(t, "original-value", os.Getenv("TEST_VAR"))
}
