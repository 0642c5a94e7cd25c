// Package config loads runtime configuration from YAML with
// environment variable overrides for the secrets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort        = 3000
	defaultEnv         = "development"
	defaultPostTTL     = 30 * time.Minute
	defaultAuthorTTL   = 5 * time.Minute
	defaultPreviewTTL  = 24 * time.Hour
	defaultConcurrency = 3
	defaultAssetDir    = ".cache/notion-images"
	defaultPreviewDir  = ".cache/og-metadata"
)

// AppConfig holds startup configuration. Env is "development" or
// "production".
type AppConfig struct {
	Port           int            `yaml:"port"`
	Env            string         `yaml:"env"`
	SiteOrigin     string         `yaml:"site_origin"`
	AllowedOrigins []string       `yaml:"allowed_origins"`
	RedisURL       string         `yaml:"redis_url"`
	Notion         NotionConfig   `yaml:"notion"`
	Cache          CacheConfig    `yaml:"cache"`
	Resolver       ResolverConfig `yaml:"resolver"`

	// RevalidateSecret guards the cache purge endpoint.
	RevalidateSecret string `yaml:"revalidate_secret"`
}

// NotionConfig identifies the upstream document source.
type NotionConfig struct {
	Token            string `yaml:"token"`
	PostsDataSource  string `yaml:"posts_data_source"`
	AuthorDataSource string `yaml:"author_data_source"`
}

// CacheConfig tunes TTLs and on-disk cache locations.
type CacheConfig struct {
	PostTTLSeconds    int    `yaml:"post_ttl_seconds"`
	AuthorTTLSeconds  int    `yaml:"author_ttl_seconds"`
	PreviewTTLSeconds int    `yaml:"preview_ttl_seconds"`
	AssetDir          string `yaml:"asset_dir"`
	PreviewDir        string `yaml:"preview_dir"`
}

// ResolverConfig bounds block tree resolution.
type ResolverConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// Load reads the YAML file at path, applies environment overrides and
// fills in defaults. A missing file is not an error; the environment
// alone can configure a deployment.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env and defaults
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if cfg.Notion.Token == "" {
		return nil, fmt.Errorf("notion token is required (set notion.token or NOTION_TOKEN)")
	}
	if cfg.Notion.PostsDataSource == "" {
		return nil, fmt.Errorf("posts data source is required (set notion.posts_data_source or NOTION_POSTS_DATA_SOURCE)")
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	setString(&cfg.Notion.Token, "NOTION_TOKEN")
	setString(&cfg.Notion.PostsDataSource, "NOTION_POSTS_DATA_SOURCE")
	setString(&cfg.Notion.AuthorDataSource, "NOTION_AUTHOR_DATA_SOURCE")
	setString(&cfg.RevalidateSecret, "REVALIDATE_SECRET")
	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.SiteOrigin, "SITE_ORIGIN")
	setString(&cfg.Env, "APP_ENV")
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.Cache.PostTTLSeconds <= 0 {
		cfg.Cache.PostTTLSeconds = int(defaultPostTTL / time.Second)
	}
	if cfg.Cache.AuthorTTLSeconds <= 0 {
		cfg.Cache.AuthorTTLSeconds = int(defaultAuthorTTL / time.Second)
	}
	if cfg.Cache.PreviewTTLSeconds <= 0 {
		cfg.Cache.PreviewTTLSeconds = int(defaultPreviewTTL / time.Second)
	}
	if cfg.Cache.AssetDir == "" {
		cfg.Cache.AssetDir = defaultAssetDir
	}
	if cfg.Cache.PreviewDir == "" {
		cfg.Cache.PreviewDir = defaultPreviewDir
	}
	if cfg.Resolver.Concurrency <= 0 {
		cfg.Resolver.Concurrency = defaultConcurrency
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// PostTTL returns the post snapshot TTL as a duration.
func (c *AppConfig) PostTTL() time.Duration {
	return time.Duration(c.Cache.PostTTLSeconds) * time.Second
}

// AuthorTTL returns the author snapshot TTL as a duration.
func (c *AppConfig) AuthorTTL() time.Duration {
	return time.Duration(c.Cache.AuthorTTLSeconds) * time.Second
}

// PreviewTTL returns the link preview TTL as a duration.
func (c *AppConfig) PreviewTTL() time.Duration {
	return time.Duration(c.Cache.PreviewTTLSeconds) * time.Second
}

// IsProduction reports whether the server runs in production mode.
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}
