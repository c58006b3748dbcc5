package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/johnrirwin/dailylens/internal/archive"
	"github.com/johnrirwin/dailylens/internal/models"
)

// ArticleStore persists served articles in Postgres.
type ArticleStore struct {
	db *DB
}

func NewArticleStore(db *DB) *ArticleStore {
	return &ArticleStore{db: db}
}

type articleRow struct {
	ID          string    `db:"id"`
	Slug        string    `db:"slug"`
	Section     string    `db:"section"`
	Language    string    `db:"language"`
	Category    string    `db:"category"`
	Title       string    `db:"title"`
	Author      string    `db:"author"`
	Source      string    `db:"source"`
	PublishedAt time.Time `db:"published_at"`
	ImageURL    string    `db:"image_url"`
	ImageHint   string    `db:"image_hint"`
	Content     string    `db:"content"`
	Summary     string    `db:"summary"`
	Link        string    `db:"link"`
}

func (r articleRow) toArticle() models.Article {
	return models.Article{
		ID:          r.ID,
		Slug:        r.Slug,
		Title:       r.Title,
		Author:      r.Author,
		Source:      r.Source,
		PublishedAt: r.PublishedAt.UTC().Format(time.RFC3339),
		Category:    r.Category,
		ImageURL:    r.ImageURL,
		ImageHint:   r.ImageHint,
		Content:     r.Content,
		Summary:     r.Summary,
		Link:        r.Link,
	}
}

func rowFromArticle(section, language string, a models.Article) articleRow {
	published, err := time.Parse(time.RFC3339, a.PublishedAt)
	if err != nil {
		published = time.Now().UTC()
	}
	return articleRow{
		ID:          a.ID,
		Slug:        a.Slug,
		Section:     section,
		Language:    language,
		Category:    a.Category,
		Title:       a.Title,
		Author:      a.Author,
		Source:      a.Source,
		PublishedAt: published,
		ImageURL:    a.ImageURL,
		ImageHint:   a.ImageHint,
		Content:     a.Content,
		Summary:     a.Summary,
		Link:        a.Link,
	}
}

const upsertArticle = `
	INSERT INTO articles (
		id, slug, section, language, category,
		title, author, source, published_at,
		image_url, image_hint, content, summary, link,
		created_at, updated_at
	) VALUES (
		:id, :slug, :section, :language, :category,
		:title, :author, :source, :published_at,
		:image_url, :image_hint, :content, :summary, :link,
		NOW(), NOW()
	)
	ON CONFLICT (id) DO UPDATE SET
		slug = EXCLUDED.slug,
		section = EXCLUDED.section,
		language = EXCLUDED.language,
		category = EXCLUDED.category,
		title = EXCLUDED.title,
		author = EXCLUDED.author,
		source = EXCLUDED.source,
		published_at = EXCLUDED.published_at,
		image_url = EXCLUDED.image_url,
		image_hint = EXCLUDED.image_hint,
		content = EXCLUDED.content,
		summary = EXCLUDED.summary,
		link = EXCLUDED.link,
		updated_at = NOW()
`

func (s *ArticleStore) SaveArticles(ctx context.Context, section, language string, articles []models.Article) error {
	if len(articles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareNamedContext(ctx, upsertArticle)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, a := range articles {
		if _, err := stmt.ExecContext(ctx, rowFromArticle(section, language, a)); err != nil {
			return fmt.Errorf("upsert article %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetBySlug returns the most recently stored article with the slug.
func (s *ArticleStore) GetBySlug(ctx context.Context, slug string) (*models.Article, error) {
	var row articleRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, slug, section, language, category, title, author, source,
		       published_at, image_url, image_hint, content, summary, link
		FROM articles
		WHERE slug = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, archive.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article %s: %w", slug, err)
	}

	a := row.toArticle()
	return &a, nil
}

var _ archive.Store = (*ArticleStore)(nil)
