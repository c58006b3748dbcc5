package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Cache      CacheConfig
	Database   DatabaseConfig
	Logging    LoggingConfig
	Feeds      FeedsConfig
	Summarizer SummarizerConfig
}

// ServerConfig holds HTTP/MCP server configuration
type ServerConfig struct {
	HTTPAddr       string
	MCPMode        bool
	RequestTimeout time.Duration
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Backend       string // "memory" or "redis"
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
}

// DatabaseConfig holds PostgreSQL configuration for the article archive
type DatabaseConfig struct {
	ArchiveEnabled bool
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	SSLMode        string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// FeedsConfig controls the feed catalog and upstream fetching
type FeedsConfig struct {
	ConfigPath   string
	FetchTimeout time.Duration
	MaxItems     int
	Retries      int
	RetryDelay   time.Duration
	Concurrency  int
	RateLimitDur time.Duration
	UserAgent    string
}

// SummarizerConfig holds the Gemini settings. An empty APIKey disables
// summarization.
type SummarizerConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Load parses flags and environment variables to build configuration.
// Environment variables win over flags.
func Load() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.Server.HTTPAddr, "http", ":8080", "HTTP server address")
	flag.BoolVar(&cfg.Server.MCPMode, "mcp", false, "Run in MCP stdio mode")
	flag.DurationVar(&cfg.Server.RequestTimeout, "request-timeout", 30*time.Second, "Upper bound for one API request")

	flag.StringVar(&cfg.Cache.Backend, "cache-backend", "memory", "Cache backend: memory or redis")
	flag.DurationVar(&cfg.Cache.TTL, "cache-ttl", 10*time.Minute, "Cache TTL for aggregated articles")
	flag.StringVar(&cfg.Cache.RedisAddr, "redis-addr", "localhost:6379", "Redis server address")

	flag.BoolVar(&cfg.Database.ArchiveEnabled, "archive", false, "Archive articles in PostgreSQL")
	flag.StringVar(&cfg.Database.Host, "db-host", "localhost", "PostgreSQL host")
	flag.IntVar(&cfg.Database.Port, "db-port", 5432, "PostgreSQL port")
	flag.StringVar(&cfg.Database.User, "db-user", "postgres", "PostgreSQL user")
	flag.StringVar(&cfg.Database.Password, "db-password", "postgres", "PostgreSQL password")
	flag.StringVar(&cfg.Database.Database, "db-name", "dailylens", "PostgreSQL database name")
	flag.StringVar(&cfg.Database.SSLMode, "db-sslmode", "disable", "PostgreSQL SSL mode")

	flag.StringVar(&cfg.Logging.Level, "log-level", "info", "Log level (debug, info, warn, error)")

	flag.StringVar(&cfg.Feeds.ConfigPath, "feeds-config", "", "Path to the feed catalog (feeds.yaml)")
	flag.DurationVar(&cfg.Feeds.FetchTimeout, "fetch-timeout", 10*time.Second, "Timeout for one feed request")
	flag.IntVar(&cfg.Feeds.MaxItems, "fetch-max-items", 50, "Maximum items kept per feed")
	flag.IntVar(&cfg.Feeds.Retries, "fetch-retries", 2, "Attempts per feed before it counts as failed")
	flag.DurationVar(&cfg.Feeds.RetryDelay, "fetch-retry-delay", 500*time.Millisecond, "Delay before the first retry")
	flag.IntVar(&cfg.Feeds.Concurrency, "fetch-concurrency", 8, "Maximum feeds fetched at once per request")
	flag.DurationVar(&cfg.Feeds.RateLimitDur, "rate-limit", 0, "Minimum delay between requests to same host")
	flag.StringVar(&cfg.Feeds.UserAgent, "user-agent", "", "User-Agent sent to feed hosts")

	flag.StringVar(&cfg.Summarizer.Model, "gemini-model", "gemini-1.5-flash", "Gemini model used for summaries")
	flag.DurationVar(&cfg.Summarizer.Timeout, "summarize-timeout", 30*time.Second, "Timeout for one summary")

	flag.Parse()

	applyEnvOverrides(cfg)

	return cfg
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.HTTPAddr, "HTTP_ADDR")
	setBool(&cfg.Server.MCPMode, "MCP_MODE")
	setDuration(&cfg.Server.RequestTimeout, "REQUEST_TIMEOUT")

	setString(&cfg.Cache.Backend, "CACHE_BACKEND")
	setDuration(&cfg.Cache.TTL, "CACHE_TTL")
	setString(&cfg.Cache.RedisAddr, "REDIS_ADDR")
	setString(&cfg.Cache.RedisPassword, "REDIS_PASSWORD")

	setBool(&cfg.Database.ArchiveEnabled, "ARCHIVE_ENABLED")
	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Database, "DB_NAME")
	setString(&cfg.Database.SSLMode, "DB_SSLMODE")

	setString(&cfg.Logging.Level, "LOG_LEVEL")

	setString(&cfg.Feeds.ConfigPath, "FEEDS_CONFIG_PATH")
	setDuration(&cfg.Feeds.FetchTimeout, "FETCH_TIMEOUT")
	setInt(&cfg.Feeds.MaxItems, "FETCH_MAX_ITEMS")
	setInt(&cfg.Feeds.Retries, "FETCH_RETRIES")
	setDuration(&cfg.Feeds.RetryDelay, "FETCH_RETRY_DELAY")
	setInt(&cfg.Feeds.Concurrency, "FETCH_CONCURRENCY")
	setDuration(&cfg.Feeds.RateLimitDur, "RATE_LIMIT")
	setString(&cfg.Feeds.UserAgent, "FETCH_USER_AGENT")

	setString(&cfg.Summarizer.APIKey, "GEMINI_API_KEY")
	setString(&cfg.Summarizer.Model, "GEMINI_MODEL")
	setDuration(&cfg.Summarizer.Timeout, "SUMMARIZE_TIMEOUT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setBool accepts true/1 and false/0; anything else leaves dst alone.
func setBool(dst *bool, key string) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1":
		*dst = true
	case "false", "0":
		*dst = false
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
