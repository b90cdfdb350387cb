package config

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccessSecret  = "access-secret-0123456789"
	testRefreshSecret = "refresh-secret-0123456789"
)

// setSecrets provides the only settings without usable defaults.
func setSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("ACCESS_TOKEN_SECRET", testAccessSecret)
	t.Setenv("REFRESH_TOKEN_SECRET", testRefreshSecret)
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
}

func TestLoad_Defaults(t *testing.T) {
	setSecrets(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 240*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, int64(16<<10), cfg.Server.MaxJSONBytes)
	assert.Equal(t, testAccessSecret, cfg.Auth.AccessTokenSecret)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	setSecrets(t)
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ORIGIN", "https://a.example, https://b.example")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "30m")
	t.Setenv("VIDEOTUBE_DB_DRIVER", "mongo")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("DB_NAME", "tube")
	t.Setenv("VIDEOTUBE_COOKIE_SAME_SITE", "strict")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Database.MongoURI)
	assert.Equal(t, "tube", cfg.Database.MongoDatabase)
	assert.Equal(t, http.SameSiteStrictMode, cfg.Auth.SameSite())
}

func TestLoad_FileThenEnv(t *testing.T) {
	setSecrets(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "server:\n  port: 7000\nlogging:\n  level: debug\n  format: json\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("VIDEOTUBE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "warn", cfg.Logging.Level, "env should win over the file")
}

func TestLoad_MissingSecretsFail(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "")
	t.Setenv("REFRESH_TOKEN_SECRET", "")
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_token_secret")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Auth.AccessTokenSecret = testAccessSecret
		cfg.Auth.RefreshTokenSecret = testRefreshSecret
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }, "database.driver"},
		{"mongo without uri", func(c *Config) { c.Database.Driver = DriverMongo }, "mongo_uri"},
		{"short secret", func(c *Config) { c.Auth.AccessTokenSecret = "short" }, "access_token_secret"},
		{"shared secret", func(c *Config) { c.Auth.RefreshTokenSecret = testAccessSecret }, "must differ"},
		{"access outlives refresh", func(c *Config) { c.Auth.AccessTokenTTL = 300 * time.Hour }, "shorter"},
		{"bcrypt cost", func(c *Config) { c.Auth.BcryptCost = 2 }, "bcrypt_cost"},
		{"same site none needs secure", func(c *Config) {
			c.Auth.CookieSameSite = "none"
			c.Auth.CookieSecure = false
		}, "cookie_secure"},
		{"no bucket", func(c *Config) { c.Storage.Bucket = "" }, "storage.bucket"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "unknown level"},
		{"rate limit window", func(c *Config) { c.RateLimit.Window = 0 }, "rate_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
