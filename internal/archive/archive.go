// Package archive keeps recently served articles so they can be looked up
// by slug after the feed that produced them has moved on.
package archive

import (
	"context"
	"errors"
	"sync"

	"github.com/johnrirwin/dailylens/internal/models"
)

var ErrNotFound = errors.New("article not found")

// Store persists normalized articles. Saving an article whose slug is
// already stored replaces the previous entry.
type Store interface {
	SaveArticles(ctx context.Context, section, language string, articles []models.Article) error
	GetBySlug(ctx context.Context, slug string) (*models.Article, error)
}

const DefaultMemoryCapacity = 5000

// MemoryStore is a bounded Store that evicts the oldest slugs first.
type MemoryStore struct {
	mu       sync.RWMutex
	bySlug   map[string]models.Article
	order    []string
	capacity int
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{
		bySlug:   make(map[string]models.Article),
		capacity: capacity,
	}
}

func (s *MemoryStore) SaveArticles(_ context.Context, _, _ string, articles []models.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range articles {
		if a.Slug == "" {
			continue
		}
		if _, exists := s.bySlug[a.Slug]; !exists {
			s.order = append(s.order, a.Slug)
		}
		s.bySlug[a.Slug] = a
	}

	for len(s.order) > s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.bySlug, oldest)
	}
	return nil
}

func (s *MemoryStore) GetBySlug(_ context.Context, slug string) (*models.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.bySlug[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bySlug)
}

var _ Store = (*MemoryStore)(nil)
