package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/johnrirwin/dailylens/internal/aggregator"
	"github.com/johnrirwin/dailylens/internal/archive"
	"github.com/johnrirwin/dailylens/internal/cache"
	"github.com/johnrirwin/dailylens/internal/config"
	"github.com/johnrirwin/dailylens/internal/database"
	"github.com/johnrirwin/dailylens/internal/httpapi"
	"github.com/johnrirwin/dailylens/internal/logging"
	"github.com/johnrirwin/dailylens/internal/mcp"
	"github.com/johnrirwin/dailylens/internal/normalize"
	"github.com/johnrirwin/dailylens/internal/ratelimit"
	"github.com/johnrirwin/dailylens/internal/registry"
	"github.com/johnrirwin/dailylens/internal/sources"
	"github.com/johnrirwin/dailylens/internal/summarize"
)

// App holds all application dependencies
type App struct {
	Config     *config.Config
	Logger     *logging.Logger
	Cache      cache.Cache
	Registry   *registry.Registry
	Aggregator *aggregator.Aggregator
	Archive    archive.Store
	Summarizer *summarize.Service
	HTTPServer *httpapi.Server
	MCPServer  *mcp.Server
	db         *database.DB
	gemini     *summarize.GeminiGenerator
}

// New creates and initializes a new App instance. Redis, PostgreSQL and
// Gemini are optional; when one is unavailable the app falls back or
// disables the feature and logs why.
func New(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	app.Logger = logging.New(logging.ParseLevel(cfg.Logging.Level))
	app.Cache = app.initCache()

	reg, rules, err := app.initRegistry()
	if err != nil {
		return nil, err
	}
	app.Registry = reg

	app.Archive = app.initArchive()
	app.Summarizer = app.initSummarizer()

	limiter := ratelimit.New(cfg.Feeds.RateLimitDur)
	fetcher := sources.NewRSSFetcher(limiter, app.fetcherConfig())

	app.Aggregator = aggregator.New(reg, fetcher, normalize.New(rules), app.Cache, app.Archive, aggregator.Config{
		Concurrency: cfg.Feeds.Concurrency,
		CacheTTL:    cfg.Cache.TTL,
	}, app.Logger)

	app.initServers()

	return app, nil
}

// Run starts the application in the appropriate mode
func (a *App) Run(ctx context.Context) error {
	if a.Config.Server.MCPMode {
		return a.runMCPMode(ctx)
	}
	return a.runHTTPMode(ctx)
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", logging.WithField("error", err.Error()))
		}
	}

	if a.gemini != nil {
		if err := a.gemini.Close(); err != nil {
			a.Logger.Warn("Gemini client close error", logging.WithField("error", err.Error()))
		}
	}

	switch c := a.Cache.(type) {
	case *cache.RedisCache:
		if err := c.Close(); err != nil {
			a.Logger.Warn("Redis close error", logging.WithField("error", err.Error()))
		}
	case *cache.MemoryCache:
		c.Stop()
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Error("Database close error", logging.WithField("error", err.Error()))
		}
	}

	return nil
}

func (a *App) initCache() cache.Cache {
	switch a.Config.Cache.Backend {
	case "redis":
		a.Logger.Info("Using Redis cache backend", logging.WithField("addr", a.Config.Cache.RedisAddr))
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Addr:     a.Config.Cache.RedisAddr,
			Password: a.Config.Cache.RedisPassword,
			Prefix:   cache.DefaultPrefix,
		}, a.Config.Cache.TTL)
		if err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory cache", logging.WithField("error", err.Error()))
			return cache.NewMemory(a.Config.Cache.TTL)
		}
		return redisCache
	default:
		a.Logger.Info("Using in-memory cache backend")
		return cache.NewMemory(a.Config.Cache.TTL)
	}
}

// initRegistry loads the configured catalog, then any catalog found in the
// usual locations, then the embedded one. An explicit path that cannot be
// loaded is fatal.
func (a *App) initRegistry() (*registry.Registry, []normalize.Rule, error) {
	file := registry.Default()
	source := "embedded"

	path := a.Config.Feeds.ConfigPath
	if path == "" {
		path = registry.FindConfig("")
	}
	if path != "" {
		loaded, err := registry.LoadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load feed catalog %s: %w", path, err)
		}
		file, source = loaded, path
	}

	reg, err := registry.New(file)
	if err != nil {
		return nil, nil, fmt.Errorf("build registry from %s catalog: %w", source, err)
	}

	rules, err := normalize.RulesFromConfig(file.Quirks.SuppressSources, file.Quirks.ContentImageSources, file.Quirks.TitleBoilerplate)
	if err != nil {
		return nil, nil, fmt.Errorf("compile quirks from %s catalog: %w", source, err)
	}

	a.Logger.Info("Loaded feed catalog", logging.WithFields(map[string]interface{}{
		"source":   source,
		"sections": len(reg.Sections()),
		"quirks":   len(rules),
	}))
	return reg, rules, nil
}

func (a *App) initArchive() archive.Store {
	if !a.Config.Database.ArchiveEnabled {
		a.Logger.Info("Using in-memory article archive")
		return archive.NewMemoryStore(archive.DefaultMemoryCapacity)
	}

	dbConfig := database.DefaultConfig()
	dbConfig.Host = a.Config.Database.Host
	dbConfig.Port = a.Config.Database.Port
	dbConfig.User = a.Config.Database.User
	dbConfig.Password = a.Config.Database.Password
	dbConfig.Database = a.Config.Database.Database
	dbConfig.SSLMode = a.Config.Database.SSLMode

	db, err := database.New(dbConfig)
	if err != nil {
		a.Logger.Warn("Failed to connect to PostgreSQL, using in-memory article archive", logging.WithField("error", err.Error()))
		return archive.NewMemoryStore(archive.DefaultMemoryCapacity)
	}

	if err := db.Migrate(context.Background()); err != nil {
		a.Logger.Warn("Failed to run migrations, using in-memory article archive", logging.WithField("error", err.Error()))
		db.Close()
		return archive.NewMemoryStore(archive.DefaultMemoryCapacity)
	}

	a.Logger.Info("Connected to PostgreSQL article archive")
	a.db = db
	return database.NewArticleStore(db)
}

// initSummarizer returns nil when no Gemini key is configured.
func (a *App) initSummarizer() *summarize.Service {
	if a.Config.Summarizer.APIKey == "" {
		a.Logger.Info("GEMINI_API_KEY not set, summarization disabled")
		return nil
	}

	gen, err := summarize.NewGemini(context.Background(), a.Config.Summarizer.APIKey, a.Config.Summarizer.Model)
	if err != nil {
		a.Logger.Warn("Failed to create Gemini client, summarization disabled", logging.WithField("error", err.Error()))
		return nil
	}
	a.gemini = gen

	summarizeConfig := summarize.DefaultConfig()
	if a.Config.Summarizer.Timeout > 0 {
		summarizeConfig.Timeout = a.Config.Summarizer.Timeout
	}
	a.Logger.Info("Summarization enabled", logging.WithField("model", a.Config.Summarizer.Model))
	return summarize.NewService(gen, a.Cache, summarizeConfig, a.Logger)
}

func (a *App) fetcherConfig() sources.FetcherConfig {
	fc := sources.DefaultConfig()
	if a.Config.Feeds.FetchTimeout > 0 {
		fc.Timeout = a.Config.Feeds.FetchTimeout
	}
	if a.Config.Feeds.MaxItems > 0 {
		fc.MaxItems = a.Config.Feeds.MaxItems
	}
	if a.Config.Feeds.Retries > 0 {
		fc.MaxAttempts = a.Config.Feeds.Retries
	}
	if a.Config.Feeds.RetryDelay > 0 {
		fc.RetryDelay = a.Config.Feeds.RetryDelay
	}
	if a.Config.Feeds.UserAgent != "" {
		fc.UserAgent = a.Config.Feeds.UserAgent
	}
	return fc
}

func (a *App) initServers() {
	// A nil *Service must not reach the handlers as a non-nil interface.
	var summarizer summarize.Summarizer
	if a.Summarizer != nil {
		summarizer = a.Summarizer
	}

	a.HTTPServer = httpapi.New(a.Aggregator, a.Archive, summarizer, a.Config.Server.RequestTimeout, a.Logger)
	a.MCPServer = mcp.NewServer(mcp.NewHandler(a.Aggregator, a.Archive, summarizer, a.Logger), a.Logger)
}

func (a *App) runMCPMode(ctx context.Context) error {
	a.Logger.Info("Starting MCP server in stdio mode")
	return a.MCPServer.Run(ctx)
}

func (a *App) runHTTPMode(ctx context.Context) error {
	a.Logger.Info("Starting HTTP server", logging.WithField("addr", a.Config.Server.HTTPAddr))

	err := a.HTTPServer.Start(a.Config.Server.HTTPAddr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
