package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/johnrirwin/dailylens/internal/models"
)

// Fetcher downloads and parses one feed URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*models.ParsedFeed, error)
}

type FetchResult struct {
	URL   string
	Feed  *models.ParsedFeed
	Error error
}

type FetcherConfig struct {
	Timeout      time.Duration
	MaxItems     int
	UserAgent    string
	MaxAttempts  int
	RetryDelay   time.Duration
	MaxBodyBytes int64
}

func DefaultConfig() FetcherConfig {
	return FetcherConfig{
		Timeout:      10 * time.Second,
		MaxItems:     50,
		UserAgent:    "DailyLens/1.0 (+https://github.com/johnrirwin/dailylens)",
		MaxAttempts:  2,
		RetryDelay:   500 * time.Millisecond,
		MaxBodyBytes: 10 << 20,
	}
}

// FetchError reports a feed that could not be downloaded or parsed.
// StatusCode is set when the upstream answered with a non-2xx status.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
