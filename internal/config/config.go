// Package config loads the server configuration.
//
// Sources are layered with koanf, later layers overriding earlier ones:
//
//  1. Defaults (defaultConfig)
//  2. An optional YAML file (CONFIG_PATH, or config.yaml in the working directory)
//  3. Environment variables (see envMappings)
package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/videotube/internal/logging"
)

// Config is the root configuration tree.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Auth      AuthConfig      `koanf:"auth"`
	Storage   StorageConfig   `koanf:"storage"`
	Logging   LoggingConfig   `koanf:"logging"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	MaxJSONBytes    int64         `koanf:"max_json_bytes"`
	MaxUploadBytes  int64         `koanf:"max_upload_bytes"`
}

// Database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

type DatabaseConfig struct {
	Driver        string `koanf:"driver"`
	Path          string `koanf:"path"` // sqlite file, or ":memory:"
	MongoURI      string `koanf:"mongo_uri"`
	MongoDatabase string `koanf:"mongo_database"`
}

type AuthConfig struct {
	AccessTokenSecret  string        `koanf:"access_token_secret"`
	AccessTokenTTL     time.Duration `koanf:"access_token_ttl"`
	RefreshTokenSecret string        `koanf:"refresh_token_secret"`
	RefreshTokenTTL    time.Duration `koanf:"refresh_token_ttl"`
	Issuer             string        `koanf:"issuer"`
	BcryptCost         int           `koanf:"bcrypt_cost"`
	CookieSecure       bool          `koanf:"cookie_secure"`
	CookieSameSite     string        `koanf:"cookie_same_site"` // lax, strict or none
}

// SameSite converts CookieSameSite to its net/http value.
func (a AuthConfig) SameSite() http.SameSite {
	switch strings.ToLower(a.CookieSameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// StorageConfig points at the S3-compatible bucket holding avatars, cover
// images, video files and thumbnails.
type StorageConfig struct {
	Bucket          string `koanf:"bucket"`
	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint"`        // set for MinIO and other S3-compatible services
	PublicBaseURL   string `koanf:"public_base_url"` // prefix of the URLs handed to clients
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	UsePathStyle    bool   `koanf:"use_path_style"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// RateLimitConfig applies to the unauthenticated account endpoints
// (register, login, refresh-token).
type RateLimitConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
}

const minSecretLength = 16

// Validate checks the loaded configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxJSONBytes <= 0 {
		errs = append(errs, errors.New("server.max_json_bytes must be positive"))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.max_upload_bytes must be positive"))
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			errs = append(errs, errors.New("database.path is required for the sqlite driver"))
		}
	case DriverMongo:
		if strings.TrimSpace(c.Database.MongoURI) == "" {
			errs = append(errs, errors.New("database.mongo_uri is required for the mongo driver"))
		}
		if strings.TrimSpace(c.Database.MongoDatabase) == "" {
			errs = append(errs, errors.New("database.mongo_database is required for the mongo driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverMongo, c.Database.Driver))
	}

	if len(c.Auth.AccessTokenSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("auth.access_token_secret must be at least %d characters", minSecretLength))
	}
	if len(c.Auth.RefreshTokenSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("auth.refresh_token_secret must be at least %d characters", minSecretLength))
	}
	if c.Auth.AccessTokenSecret != "" && c.Auth.AccessTokenSecret == c.Auth.RefreshTokenSecret {
		errs = append(errs, errors.New("auth.access_token_secret and auth.refresh_token_secret must differ"))
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("auth token TTLs must be positive"))
	} else if c.Auth.AccessTokenTTL >= c.Auth.RefreshTokenTTL {
		errs = append(errs, errors.New("auth.access_token_ttl must be shorter than auth.refresh_token_ttl"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost must be between 4 and 31, got %d", c.Auth.BcryptCost))
	}
	switch strings.ToLower(c.Auth.CookieSameSite) {
	case "lax", "strict":
	case "none":
		if !c.Auth.CookieSecure {
			errs = append(errs, errors.New("auth.cookie_same_site=none requires auth.cookie_secure=true"))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.cookie_same_site must be lax, strict or none, got %q", c.Auth.CookieSameSite))
	}

	if strings.TrimSpace(c.Storage.Bucket) == "" {
		errs = append(errs, errors.New("storage.bucket is required"))
	}
	if strings.TrimSpace(c.Storage.Region) == "" {
		errs = append(errs, errors.New("storage.region is required"))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}

	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		errs = append(errs, errors.New("rate_limit.requests and rate_limit.window must be positive when enabled"))
	}

	return errors.Join(errs...)
}
