package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the survey portal server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Survey    SurveyConfig
	MoveMgmt  MoveMgmtConfig
	Auth      AuthConfig
	Upload    UploadConfig
	Review    ReviewConfig
	RateLimit RateLimitConfig
	Admin     AdminConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// SurveyConfig points at the upload/analysis backend.
type SurveyConfig struct {
	BaseURL    string
	APIVersion string
	Timeout    time.Duration
}

// MoveMgmtConfig points at the move management backend.
type MoveMgmtConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AuthConfig configures how the portal obtains its bearer token. Either
// AccessToken is set, or the full password-grant set is.
type AuthConfig struct {
	AccessToken string
	ProjectURL  string
	AnonKey     string
	Email       string
	Password    string
}

// UsesPasswordGrant reports whether tokens come from the auth provider rather
// than a static access token.
func (a AuthConfig) UsesPasswordGrant() bool {
	return a.AccessToken == ""
}

type UploadConfig struct {
	MaxBytes        int64
	PollInterval    time.Duration
	SpoolDir        string
	TransferTimeout time.Duration
}

type ReviewConfig struct {
	SessionTTL time.Duration
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

// AdminConfig seeds the first admin API key. BootstrapKey is only used while the
// default partner has no keys.
type AdminConfig struct {
	BootstrapKey string
}

// Load reads configuration from environment variables and returns a validated Config.
// A .env file in the working directory is loaded first; it never overrides variables
// already present in the environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("PORTAL_PORT", 8080),
			Env:  envString("PORTAL_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Survey: SurveyConfig{
			BaseURL:    strings.TrimRight(os.Getenv("SURVEY_API_BASE_URL"), "/"),
			APIVersion: envString("SURVEY_API_VERSION", "1"),
			Timeout:    envDuration("SURVEY_API_TIMEOUT", 30*time.Second),
		},
		MoveMgmt: MoveMgmtConfig{
			BaseURL: strings.TrimRight(os.Getenv("MOVEMGMT_BASE_URL"), "/"),
			Timeout: envDuration("MOVEMGMT_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			AccessToken: os.Getenv("AUTH_ACCESS_TOKEN"),
			ProjectURL:  strings.TrimRight(os.Getenv("AUTH_PROJECT_URL"), "/"),
			AnonKey:     os.Getenv("AUTH_ANON_KEY"),
			Email:       os.Getenv("AUTH_EMAIL"),
			Password:    os.Getenv("AUTH_PASSWORD"),
		},
		Upload: UploadConfig{
			MaxBytes:        envInt64("UPLOAD_MAX_BYTES", 500<<20),
			PollInterval:    envDuration("UPLOAD_POLL_INTERVAL", 5*time.Second),
			SpoolDir:        envString("UPLOAD_SPOOL_DIR", os.TempDir()),
			TransferTimeout: envDuration("UPLOAD_TRANSFER_TIMEOUT", 30*time.Minute),
		},
		Review: ReviewConfig{
			SessionTTL: envDuration("REVIEW_SESSION_TTL", 30*time.Minute),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		Admin: AdminConfig{
			BootstrapKey: os.Getenv("ADMIN_BOOTSTRAP_KEY"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if err := requireHTTPURL("SURVEY_API_BASE_URL", c.Survey.BaseURL); err != nil {
		return err
	}
	if err := requireHTTPURL("MOVEMGMT_BASE_URL", c.MoveMgmt.BaseURL); err != nil {
		return err
	}

	if c.Auth.UsesPasswordGrant() {
		if err := requireHTTPURL("AUTH_PROJECT_URL", c.Auth.ProjectURL); err != nil {
			return fmt.Errorf("%w (or set AUTH_ACCESS_TOKEN)", err)
		}
		if c.Auth.AnonKey == "" {
			return fmt.Errorf("AUTH_ANON_KEY is required when AUTH_ACCESS_TOKEN is not set")
		}
		if c.Auth.Email == "" || c.Auth.Password == "" {
			return fmt.Errorf("AUTH_EMAIL and AUTH_PASSWORD are required when AUTH_ACCESS_TOKEN is not set")
		}
	}

	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.Upload.MaxBytes)
	}
	if c.Upload.PollInterval <= 0 {
		return fmt.Errorf("UPLOAD_POLL_INTERVAL must be positive, got %s", c.Upload.PollInterval)
	}

	if k := c.Admin.BootstrapKey; k != "" && (!strings.HasPrefix(k, "sp_") || len(k) < 24) {
		return fmt.Errorf("ADMIN_BOOTSTRAP_KEY must start with sp_ and be at least 24 characters")
	}

	return nil
}

func requireHTTPURL(key, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", key)
	}
	if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
		return fmt.Errorf("%s must start with http:// or https://, got %q", key, v)
	}
	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
