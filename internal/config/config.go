package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"coursescout/internal/urlutil"
)

// Supported storage backends.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the application's configuration values.
type Config struct {
	DatabaseDriver string
	DatabaseURL    string

	RedditUserAgent  string
	RedditSubreddits []string
	RedditPostLimit  int

	URLFilter    string
	FallbackURLs []string

	HTTPTimeout   time.Duration
	MaxRetries    int
	RetryBackoff  time.Duration
	SnippetLength int
	CacheTTL      time.Duration

	CheckInterval time.Duration
	HTTPPort      string
	ShutdownGrace time.Duration
	LogLevel      string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_driver", DriverSQLite)
	v.SetDefault("database_url", "coursescout.db")
	v.SetDefault("reddit_user_agent", "CourseScoutAgent/0.1")
	v.SetDefault("reddit_subreddits", "udemyfreebies,FreeUdemyCoupons")
	v.SetDefault("reddit_post_limit", 50)
	v.SetDefault("url_filter", "udemy.com")
	v.SetDefault("fallback_urls", "")
	v.SetDefault("http_timeout", 10*time.Second)
	v.SetDefault("max_retries", 2)
	v.SetDefault("retry_backoff", 500*time.Millisecond)
	v.SetDefault("snippet_length", 2000)
	v.SetDefault("cache_ttl", 24*time.Hour)
	v.SetDefault("check_interval", time.Hour)
	v.SetDefault("http_port", "8080")
	v.SetDefault("shutdown_grace", 10*time.Second)
	v.SetDefault("log_level", "info")
}

// Load reads configuration from defaults, the optional config file and the
// environment, in increasing order of precedence. An empty configFile skips
// the file.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		DatabaseDriver:   strings.ToLower(strings.TrimSpace(v.GetString("database_driver"))),
		DatabaseURL:      v.GetString("database_url"),
		RedditUserAgent:  v.GetString("reddit_user_agent"),
		RedditSubreddits: listValue(v, "reddit_subreddits"),
		RedditPostLimit:  v.GetInt("reddit_post_limit"),
		URLFilter:        v.GetString("url_filter"),
		FallbackURLs:     listValue(v, "fallback_urls"),
		HTTPTimeout:      v.GetDuration("http_timeout"),
		MaxRetries:       v.GetInt("max_retries"),
		RetryBackoff:     v.GetDuration("retry_backoff"),
		SnippetLength:    v.GetInt("snippet_length"),
		CacheTTL:         v.GetDuration("cache_ttl"),
		CheckInterval:    v.GetDuration("check_interval"),
		HTTPPort:         v.GetString("http_port"),
		ShutdownGrace:    v.GetDuration("shutdown_grace"),
		LogLevel:         v.GetString("log_level"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// listValue accepts either a comma-separated string or a list in the config file.
func listValue(v *viper.Viper, key string) []string {
	switch raw := v.Get(key).(type) {
	case string:
		return urlutil.ParseList(raw)
	case []any:
		parts := make([]string, 0, len(raw))
		for _, p := range raw {
			parts = append(parts, fmt.Sprint(p))
		}
		return urlutil.ParseList(strings.Join(parts, ","))
	default:
		return urlutil.ParseList(v.GetString(key))
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.DatabaseDriver))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.RedditPostLimit <= 0 {
		errs = append(errs, errors.New("REDDIT_POST_LIMIT must be positive"))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("MAX_RETRIES must not be negative"))
	}
	if c.SnippetLength <= 0 {
		errs = append(errs, errors.New("SNIPPET_LENGTH must be positive"))
	}
	for name, d := range map[string]time.Duration{
		"HTTP_TIMEOUT":   c.HTTPTimeout,
		"RETRY_BACKOFF":  c.RetryBackoff,
		"CACHE_TTL":      c.CacheTTL,
		"CHECK_INTERVAL": c.CheckInterval,
		"SHUTDOWN_GRACE": c.ShutdownGrace,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be a positive duration", name))
		}
	}
	return errors.Join(errs...)
}
