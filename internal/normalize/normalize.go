// Package normalize maps raw feed items to Article records. Every Article it
// returns has a non-empty id, slug, publishedAt, imageUrl, content, summary
// and link.
package normalize

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/johnrirwin/dailylens/internal/htmltext"
	"github.com/johnrirwin/dailylens/internal/models"
)

// Sentinels substituted when a feed omits data. The summarizer refuses to
// run on NoContent and NoSummary.
const (
	NoTitle   = "No title"
	NoSummary = "No summary available."
	NoContent = "No content available."
	NoLink    = "#"
)

type Normalizer struct {
	rules []Rule
	now   func() time.Time
}

func New(rules []Rule) *Normalizer {
	return &Normalizer{rules: rules, now: time.Now}
}

func (n *Normalizer) Rules() []Rule {
	return n.rules
}

// Normalize builds an Article from one raw item. index is the item's
// position within its feed and only feeds the id fallback.
func (n *Normalizer) Normalize(item models.RawFeedItem, index int, section, category string) models.Article {
	source := item.FeedTitle
	id := ArticleID(item, index)

	return models.Article{
		ID:          id,
		Slug:        Slug(item.Link, id),
		Title:       n.cleanTitle(item.Title, source),
		Author:      firstNonBlank(item.Creator, source),
		Source:      n.cleanSource(source),
		PublishedAt: n.publishedAt(item.PublishedAt),
		Category:    category,
		ImageURL:    ResolveImage(item, n.rules),
		ImageHint:   ImageHint(section),
		Content:     contentOf(item),
		Summary:     summaryOf(item),
		Link:        firstNonBlank(item.Link, NoLink),
	}
}

// ArticleID qualifies the item key with its feed title so that equal guids
// from different publishers stay distinct after merging.
func ArticleID(item models.RawFeedItem, index int) string {
	key := firstNonBlank(item.GUID, item.Link)
	if key == "" {
		key = item.Title + "-" + strconv.Itoa(index)
	}
	return item.FeedTitle + ":" + key
}

// Slug is the last non-empty path segment of link, or article-<id>.
func Slug(link, id string) string {
	if link = strings.TrimSpace(link); link != "" {
		if u, err := url.Parse(link); err == nil {
			segments := strings.Split(u.EscapedPath(), "/")
			for i := len(segments) - 1; i >= 0; i-- {
				if segments[i] != "" {
					return segments[i]
				}
			}
		}
	}
	return "article-" + url.PathEscape(id)
}

func ImageHint(section string) string {
	switch section {
	case "photography":
		return "photography camera"
	case "journals":
		return "science abstract"
	default:
		return "news article"
	}
}

func (n *Normalizer) cleanTitle(title, source string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = NoTitle
	}
	title = norm.NFC.String(title)

	for _, r := range n.rules {
		if r.CleanTitle != nil && r.matches(source) {
			title = r.CleanTitle(title)
		}
	}
	return strings.TrimSpace(title)
}

func (n *Normalizer) cleanSource(source string) string {
	source = strings.TrimSpace(source)
	for _, r := range n.rules {
		if r.CleanSource != nil && r.matches(source) {
			source = r.CleanSource(source)
		}
	}
	return source
}

func (n *Normalizer) publishedAt(t *time.Time) string {
	if t == nil || t.IsZero() {
		return n.now().UTC().Format(time.RFC3339)
	}
	return t.UTC().Format(time.RFC3339)
}

func contentOf(item models.RawFeedItem) string {
	return firstNonBlank(item.ContentSnippet, item.Content, NoContent)
}

func summaryOf(item models.RawFeedItem) string {
	for _, candidate := range []string{item.ContentSnippet, item.Content, item.FullContent} {
		if text := htmltext.Text(candidate); text != "" {
			return text
		}
	}
	return NoSummary
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
