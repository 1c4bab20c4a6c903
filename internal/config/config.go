package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bind8/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BIND8_"

// Load loads configuration from an optional .env file, a YAML file and
// environment variables, in that order of increasing precedence.
func Load(configPath string) (*models.Config, error) {
	return LoadWithEnvFile(configPath, ".env")
}

// LoadWithEnvFile is Load with an explicit dotenv path. A missing dotenv file
// is not an error; variables already set in the process win over it.
func LoadWithEnvFile(configPath, envFile string) (*models.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	// Start with default configuration
	config := models.NewDefaultConfig()

	// Load from file if provided and exists
	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Override with environment variables
	loadFromEnvironment(config)

	if err := RequireEnv(config); err != nil {
		return nil, err
	}

	// Validate the final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// RequireEnv reports, in a single error, every setting the selected backends
// need but that is still empty, named by its environment variable.
func RequireEnv(config *models.Config) error {
	var errs []error

	switch config.Storage.Type {
	case models.StorageTypePostgres, models.StorageTypeSQLite:
		if config.Storage.Database.DSN == "" {
			errs = append(errs, fmt.Errorf("%sDATABASE_DSN is required when storage type is %s",
				EnvPrefix, config.Storage.Type))
		}
	}

	if config.RateLimit.Enabled && config.RateLimit.Store == models.RateLimitStoreRedis &&
		config.RateLimit.Redis.Addr == "" {
		errs = append(errs, fmt.Errorf("%sREDIS_ADDR is required when the rate limit store is redis", EnvPrefix))
	}

	if len(errs) > 0 {
		return fmt.Errorf("missing required environment: %w", errors.Join(errs...))
	}
	return nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(config *models.Config, filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

func env(name string) string {
	return os.Getenv(EnvPrefix + name)
}

func envString(name string, dst *string) {
	if v := env(name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	v := env(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Ignoring malformed environment variable", "name", EnvPrefix+name, "value", v)
		return
	}
	*dst = n
}

func envFloat(name string, dst *float64) {
	v := env(name)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("Ignoring malformed environment variable", "name", EnvPrefix+name, "value", v)
		return
	}
	*dst = f
}

func envDuration(name string, dst *time.Duration) {
	v := env(name)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("Ignoring malformed environment variable", "name", EnvPrefix+name, "value", v)
		return
	}
	*dst = d
}

func envBool(name string, dst *bool) {
	if v := env(name); v != "" {
		*dst = strings.ToLower(v) == "true"
	}
}

// loadFromEnvironment loads configuration from BIND8_* environment variables
func loadFromEnvironment(config *models.Config) {
	// Server configuration
	envInt("PORT", &config.Server.Port)
	envString("HOST", &config.Server.Host)
	envDuration("READ_TIMEOUT", &config.Server.ReadTimeout)
	envDuration("WRITE_TIMEOUT", &config.Server.WriteTimeout)
	envDuration("IDLE_TIMEOUT", &config.Server.IdleTimeout)
	envBool("TLS_ENABLED", &config.Server.TLSEnabled)
	envString("TLS_CERT_FILE", &config.Server.TLSCertFile)
	envString("TLS_KEY_FILE", &config.Server.TLSKeyFile)

	// Storage configuration
	envString("STORAGE_TYPE", &config.Storage.Type)
	envString("DATABASE_DSN", &config.Storage.Database.DSN)
	envInt("DATABASE_MAX_OPEN_CONNS", &config.Storage.Database.MaxOpenConns)
	envInt("DATABASE_MAX_IDLE_CONNS", &config.Storage.Database.MaxIdleConns)
	envDuration("DATABASE_CONN_MAX_LIFETIME", &config.Storage.Database.ConnMaxLifetime)

	// Bootstrap key from environment
	envString("BOOTSTRAP_KEY", &config.Security.BootstrapKey)

	// Rate limiting
	envBool("RATE_LIMIT_ENABLED", &config.RateLimit.Enabled)
	envString("RATE_LIMIT_STORE", &config.RateLimit.Store)
	envString("REDIS_ADDR", &config.RateLimit.Redis.Addr)
	envString("REDIS_PASSWORD", &config.RateLimit.Redis.Password)
	envInt("REDIS_DB", &config.RateLimit.Redis.DB)
	envString("REDIS_KEY_PREFIX", &config.RateLimit.Redis.KeyPrefix)

	// Expiration sweeps
	envInt("PURGE_BATCH_LIMIT", &config.Expiration.PurgeBatchLimit)
	envFloat("PURGE_RATE", &config.Expiration.PurgeRate)

	// Logging configuration
	envString("LOG_LEVEL", &config.Logging.Level)
	envString("LOG_FORMAT", &config.Logging.Format)
	envString("LOG_OUTPUT", &config.Logging.Output)
	envString("LOG_FILE_PATH", &config.Logging.FilePath)

	// Metrics configuration
	envBool("METRICS_ENABLED", &config.Metrics.Enabled)
	envString("METRICS_PATH", &config.Metrics.Path)
	envInt("METRICS_PORT", &config.Metrics.Port)

	// Tracing
	envString("SERVICE_NAME", &config.Observability.ServiceName)
	envBool("TRACING_ENABLED", &config.Observability.Tracing.Enabled)
	envString("TRACING_EXPORTER", &config.Observability.Tracing.Exporter)
	envString("OTLP_ENDPOINT", &config.Observability.Tracing.OTLPEndpoint)
	envFloat("TRACING_SAMPLE_RATE", &config.Observability.Tracing.SampleRate)
}

// SaveExample saves an example configuration file
func SaveExample(filePath string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	config := models.NewDefaultConfig()

	config.Security.APIKeys = []models.APIKeyConfig{{
		Name:        "ops",
		KeyHash:     models.HashAPIKey("b8_replace-me"),
		Permissions: []string{"admin"},
		Enabled:     true,
	}}
	config.RateLimit.Policies = map[string]models.PolicyConfig{
		"auth":   {MaxRequests: 5, Window: 15 * time.Minute},
		"api":    {MaxRequests: 100, Window: time.Minute},
		"upload": {MaxRequests: 10, Window: time.Minute},
	}

	// Example TLS configuration
	config.Server.TLSEnabled = false
	config.Server.TLSCertFile = "/path/to/cert.pem"
	config.Server.TLSKeyFile = "/path/to/key.pem"

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
