package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eyeluxe.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Type != StoreBolt || cfg.Web.Port != 9091 || cfg.Reports.ExpiryWindowDays != 30 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Reports.WeekStartDay() != time.Sunday {
		t.Fatalf("expected sunday weeks")
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := writeFile(t, `
system:
  workdir: /tmp/eyeluxe
web:
  port: 8080
database:
  type: postgres
  host: db
  name: shop
  user: shop
reports:
  week_start: Monday
`)
	t.Setenv("EYELUXE_WEB_PORT", "9999")
	t.Setenv("EYELUXE_WEB_CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("EYELUXE_DB_MAX_TX_ATTEMPTS", "12")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Web.Port != 9999 {
		t.Fatalf("env must override file, got %d", cfg.Web.Port)
	}
	if len(cfg.Web.CORSOrigins) != 2 || cfg.Web.CORSOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins %v", cfg.Web.CORSOrigins)
	}
	if cfg.Database.MaxTxAttempts != 12 || cfg.Database.Name != "shop" {
		t.Fatalf("unexpected database %+v", cfg.Database)
	}
	if cfg.Reports.WeekStartDay() != time.Monday {
		t.Fatalf("expected monday weeks")
	}
	if cfg.BackupDir() != "/tmp/eyeluxe/backups" || cfg.BoltPath() != "/tmp/eyeluxe/eyeluxe.db" {
		t.Fatalf("unexpected paths %s %s", cfg.BackupDir(), cfg.BoltPath())
	}
}

func TestValidate_FailsFast(t *testing.T) {
	cases := map[string]func(c *AppConfig){
		"unknown store":   func(c *AppConfig) { c.Database.Type = "firestore" },
		"postgres host":   func(c *AppConfig) { c.Database.Type = StorePostgres; c.Database.Host = "" },
		"bolt path":       func(c *AppConfig) { c.Database.Path = "" },
		"tx attempts":     func(c *AppConfig) { c.Database.MaxTxAttempts = 0 },
		"week start":      func(c *AppConfig) { c.Reports.WeekStart = "someday" },
		"port":            func(c *AppConfig) { c.Web.Port = 0 },
		"log file":        func(c *AppConfig) { c.Logger.FileEnable = true; c.Logger.Filename = "" },
		"location":        func(c *AppConfig) { c.System.Location = "Mars/Olympus" },
		"negative window": func(c *AppConfig) { c.Reports.ExpiryWindowDays = -1 },
	}
	for name, mutate := range cases {
		cfg := defaultConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	if _, err := LoadConfig(writeFile(t, "web: [")); err == nil {
		t.Fatalf("expected parse error")
	}
}
