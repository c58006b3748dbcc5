// Package htmltext turns feed HTML fragments into plain text and finds
// embedded images.
package htmltext

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	imgSrcRe   = regexp.MustCompile(`<img[^>]+src="([^">]+)"`)
	tagRe      = regexp.MustCompile(`<[^>]*>?`)
	breakTagRe = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|li|h[1-6])>`)
)

// Text strips markup, decodes entities and collapses whitespace. Script and
// style bodies are dropped.
func Text(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	if !strings.ContainsAny(fragment, "<&") {
		return collapse(fragment)
	}

	// Block boundaries become spaces so adjacent paragraphs do not fuse.
	spaced := breakTagRe.ReplaceAllString(fragment, "$0 ")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(spaced))
	if err != nil {
		return collapse(tagRe.ReplaceAllString(fragment, " "))
	}
	doc.Find("script, style, noscript").Remove()
	return collapse(doc.Text())
}

// FirstImageSrc returns the src of the first double-quoted <img> tag, or "".
func FirstImageSrc(fragment string) string {
	m := imgSrcRe.FindStringSubmatch(fragment)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
