package normalize

import (
	"net/url"
	"strings"

	"github.com/johnrirwin/dailylens/internal/htmltext"
	"github.com/johnrirwin/dailylens/internal/models"
)

const PlaceholderImage = "https://placehold.co/600x400.png"

type imageCandidate func(item models.RawFeedItem) string

// imageCandidates are tried in order; the first valid URL wins.
var imageCandidates = []imageCandidate{
	fromMediaContent,
	fromImageEnclosure,
	fromMediaThumbnail,
	fromContentImage,
}

// ResolveImage picks the display image for an item. Publisher rules are
// consulted only after the generic candidates, and the placeholder is
// returned when nothing valid is found.
func ResolveImage(item models.RawFeedItem, rules []Rule) string {
	for _, candidate := range imageCandidates {
		if u := strings.TrimSpace(candidate(item)); validImageURL(u) {
			return u
		}
	}

	for _, r := range rules {
		if r.ImageFallback == nil || !r.matches(item.FeedTitle) {
			continue
		}
		if u := strings.TrimSpace(r.ImageFallback(item)); validImageURL(u) {
			return u
		}
	}

	return PlaceholderImage
}

func fromMediaContent(item models.RawFeedItem) string {
	for _, mc := range item.MediaContent {
		if strings.EqualFold(mc.Medium, "image") && mc.URL != "" {
			return mc.URL
		}
	}
	if len(item.MediaContent) == 1 {
		return item.MediaContent[0].URL
	}
	return ""
}

func fromImageEnclosure(item models.RawFeedItem) string {
	if item.Enclosure == nil {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(item.Enclosure.Type), "image") {
		return ""
	}
	return item.Enclosure.URL
}

func fromMediaThumbnail(item models.RawFeedItem) string {
	return item.MediaThumbnail
}

func fromContentImage(item models.RawFeedItem) string {
	return htmltext.FirstImageSrc(item.Content)
}

// validImageURL rejects empty, non-http and audio/flash URLs.
func validImageURL(raw string) bool {
	if raw == "" || !strings.HasPrefix(strings.ToLower(raw), "http") {
		return false
	}

	check := strings.ToLower(raw)
	if u, err := url.Parse(raw); err == nil {
		check = strings.ToLower(u.Path)
	}
	for _, ext := range []string{".swf", ".mp3"} {
		if strings.HasSuffix(check, ext) || strings.HasSuffix(strings.ToLower(raw), ext) {
			return false
		}
	}
	return true
}
