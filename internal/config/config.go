// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database. Empty means in-memory stores (development only).
	DatabaseURL string `koanf:"database_url"`

	// Redis. Empty means the in-memory challenge store.
	RedisURL string `koanf:"redis_url"`

	// Administration
	AdminAddress string `koanf:"admin_address"`

	// Document sealing
	EncryptionSecret string `koanf:"encryption_secret"`

	// Challenge lifetime in seconds
	ChallengeTTLSeconds int `koanf:"challenge_ttl_seconds"`

	// S3-compatible blob storage. Empty group means the in-memory store.
	S3BucketName      string `koanf:"s3_bucket_name"`
	S3AccessKeyID     string `koanf:"s3_access_key_id"`
	S3SecretAccessKey string `koanf:"s3_secret_access_key"`
	S3Endpoint        string `koanf:"s3_endpoint"`

	// Upload limit
	MaxUploadSizeMB int `koanf:"max_upload_size_mb"`

	// Tracing. Empty disables the OTLP exporter.
	OTLPEndpoint string `koanf:"otel_exporter_otlp_endpoint"`

	// CORS. Empty list disables cross-origin access.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// Configuration validation errors.
var (
	ErrMissingAdminAddress     = errors.New("ADMIN_ADDRESS is required")
	ErrInvalidAdminAddress     = errors.New("ADMIN_ADDRESS must be a 0x-prefixed hex address")
	ErrMissingEncryptionSecret = errors.New("ENCRYPTION_SECRET is required")
	ErrMissingS3BucketName     = errors.New("S3_BUCKET_NAME is required")
	ErrMissingS3AccessKeyID    = errors.New("S3_ACCESS_KEY_ID is required")
	ErrMissingS3SecretKey      = errors.New("S3_SECRET_ACCESS_KEY is required")
	ErrMissingS3Endpoint       = errors.New("S3_ENDPOINT is required")
	ErrInvalidPort             = errors.New("PORT must be a valid integer")
	ErrInvalidChallengeTTL     = errors.New("CHALLENGE_TTL_SECONDS must be positive")
)

// Default values for non-secret configuration.
const (
	DefaultPort                = 8080
	DefaultEnv                 = "development"
	DefaultChallengeTTLSeconds = 300
	DefaultMaxUploadSizeMB     = 15
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefaultMulti([]string{"DOCLEDGER_PORT", "PORT"}, k.Int("port"), DefaultPort, ErrInvalidPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	challengeTTL, ttlErr := getEnvIntOrDefaultMulti([]string{"CHALLENGE_TTL_SECONDS"}, k.Int("challenge_ttl_seconds"), DefaultChallengeTTLSeconds, ErrInvalidChallengeTTL)
	if ttlErr != nil {
		loadErrs = append(loadErrs, ttlErr)
	}

	maxUploadSize, uploadSizeErr := getEnvIntOrDefaultMulti([]string{"MAX_UPLOAD_SIZE_MB"}, k.Int("max_upload_size_mb"), DefaultMaxUploadSizeMB, errors.New("MAX_UPLOAD_SIZE_MB must be a valid integer"))
	if uploadSizeErr != nil {
		loadErrs = append(loadErrs, uploadSizeErr)
	}

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:                port,
		Env:                 getEnvOrDefaultMulti([]string{"DOCLEDGER_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:         getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:            getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		AdminAddress:        getEnvOrKoanf("ADMIN_ADDRESS", k, "admin_address"),
		EncryptionSecret:    getEnvOrKoanf("ENCRYPTION_SECRET", k, "encryption_secret"),
		ChallengeTTLSeconds: challengeTTL,
		S3BucketName:        getEnvOrKoanf("S3_BUCKET_NAME", k, "s3_bucket_name"),
		S3AccessKeyID:       getEnvOrKoanf("S3_ACCESS_KEY_ID", k, "s3_access_key_id"),
		S3SecretAccessKey:   getEnvOrKoanf("S3_SECRET_ACCESS_KEY", k, "s3_secret_access_key"),
		S3Endpoint:          getEnvOrKoanf("S3_ENDPOINT", k, "s3_endpoint"),
		MaxUploadSizeMB:     maxUploadSize,
		OTLPEndpoint:        getEnvOrKoanf("OTEL_EXPORTER_OTLP_ENDPOINT", k, "otel_exporter_otlp_endpoint"),
		CORSAllowedOrigins:  splitList(getEnvOrKoanf("CORS_ALLOWED_ORIGINS", k, "cors_allowed_origins")),
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Returns parseErr wrapped if an environment variable is set but not an integer.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int, parseErr error) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s: %w", key, parseErr)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.AdminAddress == "" {
		errs = append(errs, ErrMissingAdminAddress)
	} else if !isHexAddress(c.AdminAddress) {
		errs = append(errs, ErrInvalidAdminAddress)
	}
	if c.EncryptionSecret == "" {
		errs = append(errs, ErrMissingEncryptionSecret)
	}
	if c.ChallengeTTLSeconds <= 0 {
		errs = append(errs, ErrInvalidChallengeTTL)
	}

	// S3 configuration is optional. Only validate fields if any S3 value is set.
	if c.S3BucketName != "" || c.S3AccessKeyID != "" || c.S3SecretAccessKey != "" || c.S3Endpoint != "" {
		if c.S3BucketName == "" {
			errs = append(errs, ErrMissingS3BucketName)
		}
		if c.S3AccessKeyID == "" {
			errs = append(errs, ErrMissingS3AccessKeyID)
		}
		if c.S3SecretAccessKey == "" {
			errs = append(errs, ErrMissingS3SecretKey)
		}
		if c.S3Endpoint == "" {
			errs = append(errs, ErrMissingS3Endpoint)
		}
	}

	return errs
}

// S3Enabled reports whether blob storage should use the S3 backend.
func (c *Config) S3Enabled() bool {
	return c.S3BucketName != ""
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                  fmt.Sprintf("%d", c.Port),
		"env":                   c.Env,
		"database_url":          maskDatabaseURL(c.DatabaseURL),
		"redis_url":             maskDatabaseURL(c.RedisURL),
		"admin_address":         c.AdminAddress,
		"encryption_secret":     maskSecret(c.EncryptionSecret),
		"challenge_ttl_seconds": fmt.Sprintf("%d", c.ChallengeTTLSeconds),
		"s3_bucket_name":        c.S3BucketName,
		"s3_access_key_id":      maskSecret(c.S3AccessKeyID),
		"s3_secret_access_key":  maskSecret(c.S3SecretAccessKey),
		"s3_endpoint":           c.S3Endpoint,
		"max_upload_size_mb":    fmt.Sprintf("%d", c.MaxUploadSizeMB),
		"otlp_endpoint":         c.OTLPEndpoint,
	}
}

// splitList parses a comma-separated list, dropping empty items.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// isHexAddress reports whether s looks like a 20-byte 0x-prefixed hex address.
func isHexAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, r := range s[2:] {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
