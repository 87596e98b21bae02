package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Empty values are treated as unset
	for _, key := range []string{"CONFIG_FILE", "PORT", "MAX_UPLOAD_SIZE", "IMPORT_PROCESSOR_INTERVAL", "IMPORT_MAX_WORKERS", "MIGRATIONS_PATH"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Import.MaxUploadSize != 10*1024*1024 {
		t.Errorf("Expected 10MB upload limit, got %d", cfg.Import.MaxUploadSize)
	}
	if cfg.Import.ProcessorInterval != 2*time.Second {
		t.Errorf("Expected 2s processor interval, got %v", cfg.Import.ProcessorInterval)
	}
	if cfg.Import.MaxWorkers < 4 || cfg.Import.MaxWorkers > 32 {
		t.Errorf("Expected workers in [4, 32], got %d", cfg.Import.MaxWorkers)
	}
	if cfg.Database.MigrationsPath != "./migrations" {
		t.Errorf("Expected default migrations path, got %s", cfg.Database.MigrationsPath)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_NAME", "leads_test")
	t.Setenv("MAX_UPLOAD_SIZE", "2048")
	t.Setenv("IMPORT_PROCESSOR_INTERVAL", "500ms")
	t.Setenv("IMPORT_MAX_WORKERS", "7")
	t.Setenv("LOG_FORMAT", "pretty")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Database.Name != "leads_test" {
		t.Errorf("Expected db leads_test, got %s", cfg.Database.Name)
	}
	if cfg.Import.MaxUploadSize != 2048 {
		t.Errorf("Expected upload limit 2048, got %d", cfg.Import.MaxUploadSize)
	}
	if cfg.Import.ProcessorInterval != 500*time.Millisecond {
		t.Errorf("Expected 500ms interval, got %v", cfg.Import.ProcessorInterval)
	}
	if cfg.Import.MaxWorkers != 7 {
		t.Errorf("Expected 7 workers, got %d", cfg.Import.MaxWorkers)
	}
	if cfg.Log.Format != "pretty" {
		t.Errorf("Expected pretty log format, got %s", cfg.Log.Format)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "PORT: \"7070\"\nDB_HOST: db.internal\nLOG_LEVEL: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("Expected port from file, got %s", cfg.Server.Port)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Expected host from file, got %s", cfg.Database.Host)
	}
	// Environment wins over the file
	if cfg.Log.Level != "warn" {
		t.Errorf("Expected env log level, got %s", cfg.Log.Level)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Error("Expected error for a missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Host: "localhost", Name: "crm_leads"},
			Import:   ImportConfig{MaxUploadSize: 1024, ProcessorInterval: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing host", func(c *Config) { c.Database.Host = "" }, "DB_HOST"},
		{"missing db name", func(c *Config) { c.Database.Name = "" }, "DB_NAME"},
		{"zero upload size", func(c *Config) { c.Import.MaxUploadSize = 0 }, "MAX_UPLOAD_SIZE"},
		{"zero interval", func(c *Config) { c.Import.ProcessorInterval = 0 }, "IMPORT_PROCESSOR_INTERVAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGetDSN(t *testing.T) {
	db := DatabaseConfig{Host: "h", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}

	want := "host=h port=5432 user=u password=p dbname=n sslmode=disable"
	if got := db.GetDSN(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestDefaultWorkers(t *testing.T) {
	if n := defaultWorkers(); n < 4 || n > 32 {
		t.Errorf("Expected workers in [4, 32], got %d", n)
	}
}
