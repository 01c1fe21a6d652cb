// FILE: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds runtime settings read from the environment.
type Config struct {
	App struct {
		Env       string `env:"APP_ENV" env-default:"development"`
		Port      int    `env:"PORT" env-default:"8080"`
		SentryDSN string `env:"SENTRY_DSN"`
	}
	Graph struct {
		// AccessToken is shared by both platforms. Without it the feed is not configured.
		AccessToken string `env:"FB_ACCESS_TOKEN"`
		PageID      string `env:"FB_PAGE_ID"`
		IGUserID    string `env:"IG_USER_ID"`
		BaseURL     string `env:"GRAPH_API_URL" env-default:"https://graph.facebook.com/v18.0"`
	}
	Feed struct {
		CacheTTL       time.Duration `env:"FEED_CACHE_TTL" env-default:"5m"`
		MaxPosts       int           `env:"FEED_MAX_POSTS" env-default:"12"`
		PlatformLimit  int           `env:"FEED_PLATFORM_LIMIT" env-default:"6"`
		RefreshTimeout time.Duration `env:"FEED_REFRESH_TIMEOUT" env-default:"15s"`
		WarmInterval   time.Duration `env:"FEED_WARM_INTERVAL" env-default:"0s"`
		Title          string        `env:"FEED_TITLE" env-default:"Social Feed"`
		Link           string        `env:"FEED_LINK"`
	}
	Upstream struct {
		Timeout  time.Duration `env:"UPSTREAM_TIMEOUT" env-default:"5s"`
		RetryMax int           `env:"UPSTREAM_RETRY_MAX" env-default:"2"`
	}
	RateLimit struct {
		RPS   float64 `env:"RATE_LIMIT_RPS" env-default:"5"`
		Burst int     `env:"RATE_LIMIT_BURST" env-default:"20"`

		// TrustedProxies is how many reverse proxies in front of the service
		// append to X-Forwarded-For. Zero keys clients on the socket address.
		TrustedProxies int `env:"RATE_LIMIT_TRUSTED_PROXIES" env-default:"0"`
	}
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		help, _ := cleanenv.GetDescription(cfg, nil)
		return nil, fmt.Errorf("read env: %w\n%s", err, help)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Configured reports whether the shared Graph API credential is present.
func (c *Config) Configured() bool {
	return c.Graph.AccessToken != ""
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c *Config) validate() error {
	if c.Feed.CacheTTL <= 0 {
		return fmt.Errorf("FEED_CACHE_TTL must be positive, got %s", c.Feed.CacheTTL)
	}
	if c.Feed.MaxPosts < 1 {
		return fmt.Errorf("FEED_MAX_POSTS must be at least 1, got %d", c.Feed.MaxPosts)
	}
	if c.Feed.PlatformLimit < 1 || c.Feed.PlatformLimit > 100 {
		return fmt.Errorf("FEED_PLATFORM_LIMIT must be between 1 and 100, got %d", c.Feed.PlatformLimit)
	}
	if c.RateLimit.TrustedProxies < 0 {
		return fmt.Errorf("RATE_LIMIT_TRUSTED_PROXIES must not be negative, got %d", c.RateLimit.TrustedProxies)
	}
	if c.Upstream.RetryMax < 0 {
		return fmt.Errorf("UPSTREAM_RETRY_MAX must not be negative, got %d", c.Upstream.RetryMax)
	}
	return nil
}
