package sources

import (
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/johnrirwin/dailylens/internal/htmltext"
	"github.com/johnrirwin/dailylens/internal/models"
)

func convertFeed(feedURL string, feed *gofeed.Feed, maxItems int) *models.ParsedFeed {
	parsed := &models.ParsedFeed{
		URL:   feedURL,
		Title: strings.TrimSpace(feed.Title),
	}

	items := feed.Items
	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}

	parsed.Items = make([]models.RawFeedItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		parsed.Items = append(parsed.Items, convertItem(item, parsed.Title, feed.FeedType == "atom"))
	}
	return parsed
}

// convertItem maps a gofeed item onto the loosely typed raw item. Content is
// the RSS description, or the Atom summary falling back to the Atom content.
// FullContent is content:encoded (Atom content) and is never used as Content
// for RSS, so images found only there stay behind the publisher rules.
// ContentSnippet is Content reduced to plain text.
func convertItem(item *gofeed.Item, feedTitle string, atom bool) models.RawFeedItem {
	content := item.Description
	if atom && strings.TrimSpace(content) == "" {
		content = item.Content
	}

	return models.RawFeedItem{
		Title:          item.Title,
		Link:           itemLink(item),
		GUID:           item.GUID,
		PublishedAt:    itemTime(item),
		Content:        content,
		ContentSnippet: htmltext.Text(content),
		FullContent:    item.Content,
		Creator:        itemCreator(item),
		Enclosure:      itemEnclosure(item),
		MediaContent:   mediaContent(item.Extensions),
		MediaThumbnail: mediaThumbnail(item.Extensions),
		FeedTitle:      feedTitle,
	}
}

func itemLink(item *gofeed.Item) string {
	if item.Link != "" {
		return item.Link
	}
	for _, l := range item.Links {
		if strings.TrimSpace(l) != "" {
			return l
		}
	}
	return ""
}

func itemTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil && !item.PublishedParsed.IsZero() {
		return item.PublishedParsed
	}
	if item.UpdatedParsed != nil && !item.UpdatedParsed.IsZero() {
		return item.UpdatedParsed
	}
	return nil
}

func itemCreator(item *gofeed.Item) string {
	if item.DublinCoreExt != nil {
		for _, c := range item.DublinCoreExt.Creator {
			if c = strings.TrimSpace(c); c != "" {
				return c
			}
		}
	}
	if item.Author != nil && strings.TrimSpace(item.Author.Name) != "" {
		return item.Author.Name
	}
	for _, a := range item.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			return a.Name
		}
	}
	return ""
}

func itemEnclosure(item *gofeed.Item) *models.Enclosure {
	for _, e := range item.Enclosures {
		if e != nil && e.URL != "" {
			return &models.Enclosure{URL: e.URL, Type: e.Type}
		}
	}
	return nil
}

// mediaContent collects media:content entries, including those nested in
// media:group, in document order.
func mediaContent(exts ext.Extensions) []models.MediaContent {
	media, ok := exts["media"]
	if !ok {
		return nil
	}

	var out []models.MediaContent
	add := func(list []ext.Extension) {
		for _, e := range list {
			u := strings.TrimSpace(e.Attrs["url"])
			if u == "" {
				continue
			}
			out = append(out, models.MediaContent{
				URL:    u,
				Medium: e.Attrs["medium"],
				Type:   e.Attrs["type"],
			})
		}
	}

	add(media["content"])
	for _, group := range media["group"] {
		add(group.Children["content"])
	}
	return out
}

// mediaThumbnail returns the first media:thumbnail URL at item level, inside
// media:group, or nested in media:content. gofeed's Item.Image is not used:
// it also draws on itunes:image and <img> tags in the item body.
func mediaThumbnail(exts ext.Extensions) string {
	media, ok := exts["media"]
	if !ok {
		return ""
	}
	if u := firstAttr(media["thumbnail"], "url"); u != "" {
		return u
	}
	for _, group := range media["group"] {
		if u := firstAttr(group.Children["thumbnail"], "url"); u != "" {
			return u
		}
	}
	for _, c := range media["content"] {
		if u := firstAttr(c.Children["thumbnail"], "url"); u != "" {
			return u
		}
	}
	return ""
}

func firstAttr(list []ext.Extension, attr string) string {
	for _, e := range list {
		if v := strings.TrimSpace(e.Attrs[attr]); v != "" {
			return v
		}
	}
	return ""
}
