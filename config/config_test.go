package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig("")
	if cfg.Web.Port != 1850 {
		t.Fatalf("Web.Port = %d, want 1850", cfg.Web.Port)
	}
	if cfg.Database.Type != "postgres" {
		t.Fatalf("Database.Type = %q, want postgres", cfg.Database.Type)
	}
	if cfg.System.Appid != "wadash" {
		t.Fatalf("System.Appid = %q, want wadash", cfg.System.Appid)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	cfile := filepath.Join(dir, "wadash.yml")
	data := []byte("web:\n  host: 10.0.0.1\n  port: 9090\ndatabase:\n  name: waprod\n")
	if err := os.WriteFile(cfile, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := LoadConfig(cfile)
	if cfg.Web.Host != "10.0.0.1" || cfg.Web.Port != 9090 {
		t.Fatalf("web = %s:%d, want 10.0.0.1:9090", cfg.Web.Host, cfg.Web.Port)
	}
	if cfg.Database.Name != "waprod" {
		t.Fatalf("Database.Name = %q, want waprod", cfg.Database.Name)
	}
	// untouched sections keep defaults
	if cfg.System.Location == "" {
		t.Fatal("System.Location lost its default")
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("WADASH_WEB_PORT", "2851")
	t.Setenv("WADASH_DB_HOST", "db.internal")
	t.Setenv("WADASH_GATEWAY_URL", "http://gateway:8080")

	cfg := LoadConfig("")
	if cfg.Web.Port != 2851 {
		t.Fatalf("Web.Port = %d, want env override 2851", cfg.Web.Port)
	}
	if cfg.Database.Host != "db.internal" {
		t.Fatalf("Database.Host = %q, want db.internal", cfg.Database.Host)
	}
	if cfg.Gateway.URL != "http://gateway:8080" {
		t.Fatalf("Gateway.URL = %q, want env override", cfg.Gateway.URL)
	}
}
