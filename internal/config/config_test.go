package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
notion:
  token: secret_abc
  posts_data_source: ds-posts
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want development", cfg.Env)
	}
	if got := cfg.PostTTL(); got != 30*time.Minute {
		t.Errorf("PostTTL = %v, want 30m", got)
	}
	if got := cfg.PreviewTTL(); got != 24*time.Hour {
		t.Errorf("PreviewTTL = %v, want 24h", got)
	}
	if cfg.Resolver.Concurrency != 3 {
		t.Errorf("Concurrency = %d, want 3", cfg.Resolver.Concurrency)
	}
	if cfg.Cache.AssetDir == "" || cfg.Cache.PreviewDir == "" {
		t.Error("cache directories should have defaults")
	}
}

func TestLoadYAMLValues(t *testing.T) {
	path := writeConfig(t, `
port: 8080
env: production
site_origin: https://blog.example.com
allowed_origins:
  - https://blog.example.com
notion:
  token: secret_abc
  posts_data_source: ds-posts
  author_data_source: ds-authors
cache:
  post_ttl_seconds: 60
  asset_dir: /var/cache/images
resolver:
  concurrency: 5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction() = false, want true")
	}
	if cfg.SiteOrigin != "https://blog.example.com" {
		t.Errorf("SiteOrigin = %q", cfg.SiteOrigin)
	}
	if got := cfg.PostTTL(); got != time.Minute {
		t.Errorf("PostTTL = %v, want 1m", got)
	}
	if cfg.Cache.AssetDir != "/var/cache/images" {
		t.Errorf("AssetDir = %q", cfg.Cache.AssetDir)
	}
	if cfg.Resolver.Concurrency != 5 {
		t.Errorf("Concurrency = %d, want 5", cfg.Resolver.Concurrency)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
notion:
  token: from-file
  posts_data_source: ds-posts
`)
	t.Setenv("NOTION_TOKEN", "from-env")
	t.Setenv("REVALIDATE_SECRET", "purge-me")
	t.Setenv("PORT", "9000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notion.Token != "from-env" {
		t.Errorf("Token = %q, want from-env", cfg.Notion.Token)
	}
	if cfg.RevalidateSecret != "purge-me" {
		t.Errorf("RevalidateSecret = %q", cfg.RevalidateSecret)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
}

func TestMissingFileEnvOnly(t *testing.T) {
	t.Setenv("NOTION_TOKEN", "secret_env")
	t.Setenv("NOTION_POSTS_DATA_SOURCE", "ds-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notion.Token != "secret_env" || cfg.Notion.PostsDataSource != "ds-env" {
		t.Errorf("env-only config not applied: %+v", cfg.Notion)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		path := writeConfig(t, "notion:\n  posts_data_source: ds\n")
		if _, err := Load(path); err == nil {
			t.Error("want error for missing token")
		}
	})
	t.Run("missing data source", func(t *testing.T) {
		path := writeConfig(t, "notion:\n  token: abc\n")
		if _, err := Load(path); err == nil {
			t.Error("want error for missing data source")
		}
	})
	t.Run("invalid yaml", func(t *testing.T) {
		path := writeConfig(t, "port: [not a port\n")
		if _, err := Load(path); err == nil {
			t.Error("want parse error")
		}
	})
}
