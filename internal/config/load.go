package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/videotube/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute, // video uploads
			IdleTimeout:     2 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{"http://localhost:3000"},
			MaxJSONBytes:    16 << 10,
			MaxUploadBytes:  512 << 20,
		},
		Database: DatabaseConfig{
			Driver:        DriverSQLite,
			Path:          "videotube.db",
			MongoDatabase: "videotube",
		},
		Auth: AuthConfig{
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 240 * time.Hour,
			Issuer:          "videotube",
			BcryptCost:      10,
			CookieSecure:    true,
			CookieSameSite:  "lax",
		},
		Storage: StorageConfig{
			Bucket: "videotube",
			Region: "us-east-1",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 20,
			Window:   time.Minute,
		},
	}
}

// Load builds the configuration from defaults, the optional config file and
// the environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names onto config paths.
// The unprefixed names are the ones existing deployments already set.
var envMappings = map[string]string{
	"port":                 "server.port",
	"cors_origin":          "server.cors_origins",
	"mongodb_uri":          "database.mongo_uri",
	"db_name":              "database.mongo_database",
	"access_token_secret":  "auth.access_token_secret",
	"access_token_expiry":  "auth.access_token_ttl",
	"refresh_token_secret": "auth.refresh_token_secret",
	"refresh_token_expiry": "auth.refresh_token_ttl",

	"videotube_read_timeout":      "server.read_timeout",
	"videotube_write_timeout":     "server.write_timeout",
	"videotube_idle_timeout":      "server.idle_timeout",
	"videotube_shutdown_timeout":  "server.shutdown_timeout",
	"videotube_max_json_bytes":    "server.max_json_bytes",
	"videotube_max_upload_bytes":  "server.max_upload_bytes",
	"videotube_db_driver":         "database.driver",
	"videotube_db_path":           "database.path",
	"videotube_token_issuer":      "auth.issuer",
	"videotube_bcrypt_cost":       "auth.bcrypt_cost",
	"videotube_cookie_secure":     "auth.cookie_secure",
	"videotube_cookie_same_site":  "auth.cookie_same_site",
	"videotube_s3_bucket":         "storage.bucket",
	"videotube_s3_region":         "storage.region",
	"videotube_s3_endpoint":       "storage.endpoint",
	"videotube_s3_public_url":     "storage.public_base_url",
	"videotube_s3_access_key_id":  "storage.access_key_id",
	"videotube_s3_secret_key":     "storage.secret_access_key",
	"videotube_s3_path_style":     "storage.use_path_style",
	"videotube_log_level":         "logging.level",
	"videotube_log_format":        "logging.format",
	"videotube_ratelimit_enabled": "rate_limit.enabled",
	"videotube_ratelimit_count":   "rate_limit.requests",
	"videotube_ratelimit_window":  "rate_limit.window",
}

// envTransformFunc returns "" for variables that are not configuration, which
// makes koanf skip them.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
