package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mmcdole/gofeed"

	"github.com/johnrirwin/dailylens/internal/models"
	"github.com/johnrirwin/dailylens/internal/ratelimit"
	"github.com/johnrirwin/dailylens/internal/retry"
)

const acceptHeader = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5"

// RSSFetcher fetches RSS 2.0 and Atom feeds over HTTP.
type RSSFetcher struct {
	client  *http.Client
	limiter *ratelimit.Limiter
	config  FetcherConfig
}

func NewRSSFetcher(limiter *ratelimit.Limiter, config FetcherConfig) *RSSFetcher {
	defaults := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}

	return &RSSFetcher{
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: limiter,
		config:  config,
	}
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// Fetch downloads feedURL and parses it. Every failure is returned as a
// *FetchError. Client errors (4xx other than 429) are not retried.
func (f *RSSFetcher) Fetch(ctx context.Context, feedURL string) (*models.ParsedFeed, error) {
	var (
		body        []byte
		contentType string
	)

	cfg := retry.Config{
		MaxAttempts: f.config.MaxAttempts,
		Delay:       f.config.RetryDelay,
		Backoff:     true,
	}
	err := retry.Do(ctx, cfg, func(attempt int) error {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx, feedURL); err != nil {
				return retry.Permanent(err)
			}
		}

		b, ct, err := f.download(ctx, feedURL)
		if err != nil {
			return err
		}
		body, contentType = b, ct
		return nil
	})
	if err != nil {
		return nil, newFetchError(feedURL, err)
	}

	body, err = toUTF8(body, contentType)
	if err != nil {
		return nil, newFetchError(feedURL, err)
	}

	// gofeed parsers keep per-parse state, so each fetch gets its own.
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, newFetchError(feedURL, fmt.Errorf("failed to parse feed: %w", err))
	}

	return convertFeed(feedURL, feed, f.config.MaxItems), nil
}

func (f *RSSFetcher) download(ctx context.Context, feedURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, "", retry.Permanent(fmt.Errorf("invalid feed url: %w", err))
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", retry.Permanent(err)
		}
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		statusErr := &statusError{code: resp.StatusCode}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, "", retry.Permanent(statusErr)
		}
		return nil, "", statusErr
	}

	limit := f.config.MaxBodyBytes
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, "", retry.Permanent(fmt.Errorf("response exceeds %d bytes", limit))
	}

	return data, resp.Header.Get("Content-Type"), nil
}

func newFetchError(feedURL string, err error) *FetchError {
	fe := &FetchError{URL: feedURL, Err: err}
	var se *statusError
	if errors.As(err, &se) {
		fe.StatusCode = se.code
	}
	return fe
}
