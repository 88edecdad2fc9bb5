package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d", cfg.Server.Port)
	}
	if cfg.Translator.Timeout != 60*time.Second {
		t.Errorf("translator.timeout = %v", cfg.Translator.Timeout)
	}
	if cfg.Refresh.PollInterval != 30*time.Second {
		t.Errorf("refresh.poll_interval = %v", cfg.Refresh.PollInterval)
	}
	if cfg.Notifications.TTL != 5*time.Second {
		t.Errorf("notifications.ttl = %v", cfg.Notifications.TTL)
	}
	if cfg.Form.DefaultFromLang != "pl" || cfg.Form.DefaultToLang != "en" {
		t.Errorf("form languages = %s -> %s", cfg.Form.DefaultFromLang, cfg.Form.DefaultToLang)
	}
	if cfg.Form.MaxFileSize != 20<<20 {
		t.Errorf("form.max_file_size = %d", cfg.Form.MaxFileSize)
	}
	if strings.Join(cfg.Form.AllowedExtensions, ",") != ".txt,.pdf,.docx,.doc" {
		t.Errorf("form.allowed_extensions = %v", cfg.Form.AllowedExtensions)
	}
	if cfg.Storage.Type != "local" || cfg.Database.Driver != "sqlite" {
		t.Errorf("storage/database = %s/%s", cfg.Storage.Type, cfg.Database.Driver)
	}
}

func TestLoadFileValues(t *testing.T) {
	path := writeConfig(t, `
translator:
  base_url: https://gateway.example.com/translation-service
  timeout: 15s
refresh:
  poll_interval: 0s
storage:
  type: minio
  endpoint: localhost:9000
  bucket: staged
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Translator.BaseURL != "https://gateway.example.com/translation-service" {
		t.Errorf("base_url = %q", cfg.Translator.BaseURL)
	}
	if cfg.Translator.Timeout != 15*time.Second {
		t.Errorf("timeout = %v", cfg.Translator.Timeout)
	}
	if cfg.Refresh.PollInterval != 0 {
		t.Errorf("poll_interval = %v, want polling disabled", cfg.Refresh.PollInterval)
	}
	if cfg.Storage.Type != "minio" || cfg.Storage.Bucket != "staged" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TRANSLATOR_API_KEY", "from-env")
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("STORAGE_REGION", "eu-central-1")

	cfg, err := Load(writeConfig(t, "translator:\n  api_key: from-file\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Translator.APIKey != "from-env" {
		t.Errorf("api_key = %q, want env override", cfg.Translator.APIKey)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("server.port = %d", cfg.Server.Port)
	}
	if cfg.Storage.Region != "eu-central-1" {
		t.Errorf("storage.region = %q", cfg.Storage.Region)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"base url without scheme": "translator:\n  base_url: gateway.example.com\n",
		"unknown driver":          "database:\n  driver: mysql\n",
		"negative poll interval":  "refresh:\n  poll_interval: -1s\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDSN(t *testing.T) {
	sqlite := DatabaseConfig{Driver: "sqlite", Path: "./data/x.db"}
	if sqlite.DSN() != "./data/x.db" {
		t.Errorf("sqlite DSN = %q", sqlite.DSN())
	}

	pg := DatabaseConfig{
		Driver: "postgres", Host: "db", Port: 5432,
		User: "app", Password: "p@ss", DBName: "doctranslate", SSLMode: "require",
	}
	if got := pg.DSN(); got != "postgres://app:p%40ss@db:5432/doctranslate?sslmode=require" {
		t.Errorf("postgres DSN = %q", got)
	}
}
