package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Import configuration
	Import ImportConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	MigrationsPath string
}

// ImportConfig holds import and commit settings
type ImportConfig struct {
	MaxUploadSize         int64 // in bytes
	ProcessorInterval     time.Duration
	MaxWorkers            int
	CommitRetryMaxElapsed time.Duration
}

// LogConfig holds logging settings
type LogConfig struct {
	Level       string
	Format      string // "json" or "pretty"
	Environment string
}

var defaults = map[string]interface{}{
	"PORT":                      "8080",
	"SERVER_READ_TIMEOUT":       30 * time.Second,
	"SERVER_WRITE_TIMEOUT":      60 * time.Second,
	"SERVER_SHUTDOWN_TIMEOUT":   30 * time.Second,
	"DB_HOST":                   "localhost",
	"DB_PORT":                   "5432",
	"DB_USER":                   "postgres",
	"DB_PASSWORD":               "postgres",
	"DB_NAME":                   "crm_leads",
	"DB_SSLMODE":                "disable",
	"DB_MAX_OPEN_CONNS":         25,
	"DB_MAX_IDLE_CONNS":         5,
	"DB_MAX_LIFETIME":           5 * time.Minute,
	"MIGRATIONS_PATH":           "./migrations",
	"MAX_UPLOAD_SIZE":           int64(10 * 1024 * 1024), // 10MB
	"IMPORT_PROCESSOR_INTERVAL": 2 * time.Second,
	"IMPORT_MAX_WORKERS":        0,
	"COMMIT_RETRY_MAX_ELAPSED":  10 * time.Second,
	"LOG_LEVEL":                 "info",
	"LOG_FORMAT":                "json",
	"ENV":                       "production",
}

// Load reads configuration from environment variables, optionally layered
// over a config file named by CONFIG_FILE
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("PORT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:           v.GetString("DB_HOST"),
			Port:           v.GetString("DB_PORT"),
			User:           v.GetString("DB_USER"),
			Password:       v.GetString("DB_PASSWORD"),
			Name:           v.GetString("DB_NAME"),
			SSLMode:        v.GetString("DB_SSLMODE"),
			MaxOpenConns:   v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:   v.GetInt("DB_MAX_IDLE_CONNS"),
			MaxLifetime:    v.GetDuration("DB_MAX_LIFETIME"),
			MigrationsPath: v.GetString("MIGRATIONS_PATH"),
		},
		Import: ImportConfig{
			MaxUploadSize:         v.GetInt64("MAX_UPLOAD_SIZE"),
			ProcessorInterval:     v.GetDuration("IMPORT_PROCESSOR_INTERVAL"),
			MaxWorkers:            v.GetInt("IMPORT_MAX_WORKERS"),
			CommitRetryMaxElapsed: v.GetDuration("COMMIT_RETRY_MAX_ELAPSED"),
		},
		Log: LogConfig{
			Level:       v.GetString("LOG_LEVEL"),
			Format:      v.GetString("LOG_FORMAT"),
			Environment: v.GetString("ENV"),
		},
	}

	if cfg.Import.MaxWorkers <= 0 {
		cfg.Import.MaxWorkers = defaultWorkers()
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Import.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}
	if c.Import.ProcessorInterval <= 0 {
		return fmt.Errorf("IMPORT_PROCESSOR_INTERVAL must be positive")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// defaultWorkers sizes the commit worker pool for I/O-bound work:
// more workers than cores, clamped to [4, 32]
func defaultWorkers() int {
	n := runtime.NumCPU() * 4
	if n < 4 {
		n = 4
	}
	if n > 32 {
		n = 32
	}
	return n
}
