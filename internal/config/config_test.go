package config

import (
	"flag"
	"io"
	"os"
	"testing"
	"time"
)

func loadWithArgs(t *testing.T, args ...string) *Config {
	t.Helper()

	if len(args) == 0 {
		args = []string{"test"}
	}

	oldCommandLine := flag.CommandLine
	oldArgs := os.Args

	flag.CommandLine = flag.NewFlagSet(args[0], flag.ContinueOnError)
	flag.CommandLine.SetOutput(io.Discard)
	os.Args = args

	t.Cleanup(func() {
		flag.CommandLine = oldCommandLine
		os.Args = oldArgs
	})

	return Load()
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "CACHE_BACKEND", "CACHE_TTL", "FETCH_RETRIES", "GEMINI_API_KEY", "ARCHIVE_ENABLED", "MCP_MODE"} {
		t.Setenv(key, "")
	}

	cfg := loadWithArgs(t, "test")

	if cfg.Server.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Server.MCPMode {
		t.Error("MCPMode should default to false")
	}
	if cfg.Cache.Backend != "memory" || cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Feeds.Retries != 2 || cfg.Feeds.Concurrency != 8 || cfg.Feeds.FetchTimeout != 10*time.Second {
		t.Errorf("Feeds = %+v", cfg.Feeds)
	}
	if cfg.Database.ArchiveEnabled {
		t.Error("archive should be disabled by default")
	}
	if cfg.Summarizer.APIKey != "" || cfg.Summarizer.Model != "gemini-1.5-flash" {
		t.Errorf("Summarizer = %+v", cfg.Summarizer)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("MCP_MODE", "1")
	t.Setenv("REQUEST_TIMEOUT", "45s")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("CACHE_TTL", "2m")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("ARCHIVE_ENABLED", "true")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("FEEDS_CONFIG_PATH", "/etc/dailylens/feeds.yaml")
	t.Setenv("FETCH_MAX_ITEMS", "25")
	t.Setenv("FETCH_RETRIES", "3")
	t.Setenv("FETCH_RETRY_DELAY", "1s")
	t.Setenv("FETCH_CONCURRENCY", "4")
	t.Setenv("RATE_LIMIT", "250ms")
	t.Setenv("FETCH_USER_AGENT", "test-agent")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("GEMINI_MODEL", "gemini-2.0-flash")
	t.Setenv("SUMMARIZE_TIMEOUT", "5s")

	cfg := loadWithArgs(t, "test")

	if cfg.Server.HTTPAddr != ":9090" || !cfg.Server.MCPMode || cfg.Server.RequestTimeout != 45*time.Second {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.TTL != 2*time.Minute || cfg.Cache.RedisPassword != "secret" {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if !cfg.Database.ArchiveEnabled || cfg.Database.Port != 6543 {
		t.Errorf("Database = %+v", cfg.Database)
	}

	want := FeedsConfig{
		ConfigPath:   "/etc/dailylens/feeds.yaml",
		FetchTimeout: 10 * time.Second,
		MaxItems:     25,
		Retries:      3,
		RetryDelay:   time.Second,
		Concurrency:  4,
		RateLimitDur: 250 * time.Millisecond,
		UserAgent:    "test-agent",
	}
	if cfg.Feeds != want {
		t.Errorf("Feeds = %+v, want %+v", cfg.Feeds, want)
	}

	if cfg.Summarizer.APIKey != "key" || cfg.Summarizer.Model != "gemini-2.0-flash" || cfg.Summarizer.Timeout != 5*time.Second {
		t.Errorf("Summarizer = %+v", cfg.Summarizer)
	}
}

func TestLoad_FromFlags(t *testing.T) {
	t.Setenv("MCP_MODE", "")
	t.Setenv("FETCH_CONCURRENCY", "")

	cfg := loadWithArgs(t, "test", "-mcp", "-fetch-concurrency", "2", "-feeds-config", "custom.yaml")
	if !cfg.Server.MCPMode {
		t.Error("expected MCPMode=true when -mcp is provided")
	}
	if cfg.Feeds.Concurrency != 2 {
		t.Errorf("Concurrency = %d, want 2", cfg.Feeds.Concurrency)
	}
	if cfg.Feeds.ConfigPath != "custom.yaml" {
		t.Errorf("ConfigPath = %q", cfg.Feeds.ConfigPath)
	}
}

func TestLoad_EnvOverridesFlags(t *testing.T) {
	t.Run("false env disables flag", func(t *testing.T) {
		t.Setenv("MCP_MODE", "false")
		cfg := loadWithArgs(t, "test", "-mcp")
		if cfg.Server.MCPMode {
			t.Fatal("expected MCP_MODE=false to win over -mcp")
		}
	})

	t.Run("invalid values are ignored", func(t *testing.T) {
		t.Setenv("FETCH_RETRIES", "many")
		t.Setenv("CACHE_TTL", "soon")
		cfg := loadWithArgs(t, "test", "-fetch-retries", "4")
		if cfg.Feeds.Retries != 4 {
			t.Errorf("Retries = %d, want 4", cfg.Feeds.Retries)
		}
		if cfg.Cache.TTL != 10*time.Minute {
			t.Errorf("TTL = %v, want default", cfg.Cache.TTL)
		}
	})
}
