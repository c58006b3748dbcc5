package ratelimit

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Limiter enforces a minimum delay between requests to the same host.
// Keys may be full URLs or bare host names; URLs are reduced to their host.
type Limiter struct {
	mu          sync.Mutex
	hosts       map[string]time.Time
	minInterval time.Duration
}

func New(minInterval time.Duration) *Limiter {
	return &Limiter{
		hosts:       make(map[string]time.Time),
		minInterval: minInterval,
	}
}

// Allow reports whether a request may go out now and records it if so.
// A refused call does not move the host's timestamp.
func (l *Limiter) Allow(key string) bool {
	host := HostKey(key)
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if last, ok := l.hosts[host]; ok && now.Sub(last) < l.minInterval {
		return false
	}
	l.hosts[host] = now
	return true
}

// Wait reserves the next free slot for the host and sleeps until it arrives.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	host := HostKey(key)
	now := time.Now()

	l.mu.Lock()
	next := now
	if last, ok := l.hosts[host]; ok {
		if slot := last.Add(l.minInterval); slot.After(now) {
			next = slot
		}
	}
	l.hosts[host] = next
	l.mu.Unlock()

	delay := next.Sub(now)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.hosts, HostKey(key))
}

func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hosts = make(map[string]time.Time)
}

// HostKey lowercases the host of a URL, or returns the key itself when it is
// not an absolute URL.
func HostKey(key string) string {
	if u, err := url.Parse(key); err == nil && u.Host != "" {
		return strings.ToLower(u.Host)
	}
	return strings.ToLower(key)
}
