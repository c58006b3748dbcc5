package aggregator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/johnrirwin/dailylens/internal/archive"
	"github.com/johnrirwin/dailylens/internal/cache"
	"github.com/johnrirwin/dailylens/internal/logging"
	"github.com/johnrirwin/dailylens/internal/models"
	"github.com/johnrirwin/dailylens/internal/normalize"
	"github.com/johnrirwin/dailylens/internal/registry"
	"github.com/johnrirwin/dailylens/internal/sources"
)

// ErrAggregation is returned when a selection cannot be aggregated at all.
// Individual feed failures are logged and never surface as this error.
var ErrAggregation = errors.New("aggregation failed")

type Config struct {
	Concurrency int
	CacheTTL    time.Duration
}

func DefaultConfig() Config {
	return Config{
		Concurrency: 8,
		CacheTTL:    10 * time.Minute,
	}
}

type Aggregator struct {
	registry   *registry.Registry
	fetcher    sources.Fetcher
	normalizer *normalize.Normalizer
	cache      cache.Cache
	archive    archive.Store
	config     Config
	logger     *logging.Logger
}

// New wires an aggregator. The cache and archive are optional.
func New(reg *registry.Registry, fetcher sources.Fetcher, normalizer *normalize.Normalizer, c cache.Cache, store archive.Store, config Config, logger *logging.Logger) *Aggregator {
	defaults := DefaultConfig()
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = defaults.CacheTTL
	}
	return &Aggregator{
		registry:   reg,
		fetcher:    fetcher,
		normalizer: normalizer,
		cache:      c,
		archive:    store,
		config:     config,
		logger:     logger,
	}
}

func (a *Aggregator) Registry() *registry.Registry {
	return a.registry
}

// Select resolves a selector against the registry and aggregates its feeds.
// Registry errors are returned unchanged so callers can map them to 400s.
func (a *Aggregator) Select(ctx context.Context, section, language, category string) (registry.Resolution, []models.Article, error) {
	res, err := a.registry.Resolve(section, language, category)
	if err != nil {
		return registry.Resolution{}, nil, err
	}
	articles, err := a.Aggregate(ctx, res.URLs, res.Category, res.Section, res.Language)
	if err != nil {
		return res, nil, err
	}
	return res, articles, nil
}

type entry struct {
	article models.Article
	at      time.Time
}

// Aggregate fetches every URL concurrently and merges the normalized items
// into one list, newest first. Feeds that fail contribute nothing. The
// returned slice is never nil.
func (a *Aggregator) Aggregate(ctx context.Context, urls []string, category, section, language string) ([]models.Article, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: no feeds registered for %s/%s/%s", ErrAggregation, section, language, category)
	}

	key := cacheKey(section, language, category, urls)
	var cached []models.Article
	if cache.GetJSON(ctx, a.cache, key, &cached) && cached != nil {
		a.logger.Debug("Serving articles from cache", logging.WithFields(map[string]interface{}{
			"section":  section,
			"language": language,
			"category": category,
			"count":    len(cached),
		}))
		return cached, nil
	}

	start := time.Now()
	results := a.fetchAll(ctx, urls)

	entries := make([]entry, 0)
	failed := 0
	for _, result := range results {
		if result.Error != nil {
			failed++
			a.logger.Warn("Failed to fetch feed", logging.WithFields(map[string]interface{}{
				"url":      result.URL,
				"category": category,
				"error":    result.Error.Error(),
			}))
			continue
		}

		for i, item := range result.Feed.Items {
			entries = append(entries, entry{
				article: a.normalizer.Normalize(item, i, section, category),
				at:      publishedTime(item),
			})
		}
	}

	entries = deduplicate(entries)
	sortByDate(entries)

	articles := make([]models.Article, len(entries))
	for i, e := range entries {
		articles[i] = e.article
	}

	a.logger.Info("Aggregation complete", logging.WithFields(map[string]interface{}{
		"section":     section,
		"language":    language,
		"category":    category,
		"feeds":       len(urls),
		"failed":      failed,
		"articles":    len(articles),
		"duration_ms": time.Since(start).Milliseconds(),
	}))

	if failed < len(urls) {
		if err := cache.SetJSON(ctx, a.cache, key, articles, a.config.CacheTTL); err != nil {
			a.logger.Warn("Failed to cache articles", logging.WithField("error", err.Error()))
		}
		a.store(ctx, section, language, articles)
	}

	return articles, nil
}

func (a *Aggregator) store(ctx context.Context, section, language string, articles []models.Article) {
	if a.archive == nil || len(articles) == 0 {
		return
	}
	if err := a.archive.SaveArticles(ctx, section, language, articles); err != nil {
		a.logger.Warn("Failed to archive articles", logging.WithFields(map[string]interface{}{
			"section":  section,
			"language": language,
			"error":    err.Error(),
		}))
	}
}

// fetchAll fans out one fetch per URL, bounded by Concurrency. Results keep
// the order of urls.
func (a *Aggregator) fetchAll(ctx context.Context, urls []string) []sources.FetchResult {
	results := make([]sources.FetchResult, len(urls))

	var g errgroup.Group
	g.SetLimit(a.config.Concurrency)
	for i, u := range urls {
		g.Go(func() error {
			results[i] = a.fetchOne(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (a *Aggregator) fetchOne(ctx context.Context, feedURL string) (result sources.FetchResult) {
	result.URL = feedURL
	defer func() {
		if r := recover(); r != nil {
			result.Feed = nil
			result.Error = &sources.FetchError{URL: feedURL, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	feed, err := a.fetcher.Fetch(ctx, feedURL)
	if err == nil && feed == nil {
		err = &sources.FetchError{URL: feedURL, Err: errors.New("no feed returned")}
	}
	result.Feed, result.Error = feed, err
	return result
}

// deduplicate keeps the first article per link. Articles without a link are
// keyed by id instead.
func deduplicate(entries []entry) []entry {
	seen := make(map[string]bool, len(entries))
	out := make([]entry, 0, len(entries))
	for _, e := range entries {
		key := "link:" + e.article.Link
		if e.article.Link == normalize.NoLink {
			key = "id:" + e.article.ID
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

// sortByDate orders newest first. Undated items carry the zero time and
// sink to the end; ties keep merge order.
func sortByDate(entries []entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].at.After(entries[j].at)
	})
}

func publishedTime(item models.RawFeedItem) time.Time {
	if item.PublishedAt == nil {
		return time.Time{}
	}
	return *item.PublishedAt
}

// cacheKey names a selector together with the exact URL set it was built
// from, so callers passing their own URLs never share an entry.
func cacheKey(section, language, category string, urls []string) string {
	sum := sha256.Sum256([]byte(strings.Join(urls, "\n")))
	return "rss:" + section + ":" + language + ":" + category + ":" + hex.EncodeToString(sum[:8])
}
