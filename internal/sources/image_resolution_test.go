package sources

import (
	"context"
	"fmt"
	"testing"

	"github.com/johnrirwin/dailylens/internal/normalize"
	"github.com/johnrirwin/dailylens/internal/testutil"
)

// rssWithItem wraps one <item> body in a channel titled channelTitle.
func rssWithItem(channelTitle, item string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"
  xmlns:content="http://purl.org/rss/1.0/modules/content/"
  xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd"
  xmlns:media="http://search.yahoo.com/mrss/">
<channel>
  <title>%s</title>
  <link>https://feeds.example.com</link>
  <item>
    <title>Story</title>
    <link>https://feeds.example.com/story</link>
%s
  </item>
</channel>
</rss>`, channelTitle, item)
}

func TestFetchAndNormalize_ImageResolution(t *testing.T) {
	tests := []struct {
		name          string
		channel       string
		item          string
		wantThumbnail string
		wantImage     string
	}{
		{
			name:    "description image beats content:encoded image",
			channel: "Some Blog",
			item: `    <description><![CDATA[<p>Lead</p><img src="http://a.example/desc.jpg">]]></description>
    <content:encoded><![CDATA[<img src="http://b.example/full.jpg">]]></content:encoded>`,
			wantImage: "http://a.example/desc.jpg",
		},
		{
			name:    "content:encoded image ignored for unlisted publisher",
			channel: "Some Blog",
			item: `    <description>Text only</description>
    <content:encoded><![CDATA[<p>Body</p><img src="http://b.example/only-full.jpg">]]></content:encoded>`,
			wantImage: normalize.PlaceholderImage,
		},
		{
			name:      "content:encoded only without description",
			channel:   "Some Blog",
			item:      `    <content:encoded><![CDATA[<img src="http://b.example/only-full.jpg">]]></content:encoded>`,
			wantImage: normalize.PlaceholderImage,
		},
		{
			name:    "content:encoded image used for listed publisher",
			channel: "This is Colossal",
			item: `    <description>Text only</description>
    <content:encoded><![CDATA[<figure><img src="https://colossal.example.com/art.jpg"></figure>]]></content:encoded>`,
			wantImage: "https://colossal.example.com/art.jpg",
		},
		{
			name:      "itunes:image is not a thumbnail",
			channel:   "Some Podcast",
			item:      `    <itunes:image href="https://pod.example.com/cover.jpg"/>`,
			wantImage: normalize.PlaceholderImage,
		},
		{
			name:    "media:thumbnail beats description image",
			channel: "Some Blog",
			item: `    <description><![CDATA[<img src="http://a.example/desc.jpg">]]></description>
    <media:thumbnail url="https://cdn.example.com/thumb.jpg"/>`,
			wantThumbnail: "https://cdn.example.com/thumb.jpg",
			wantImage:     "https://cdn.example.com/thumb.jpg",
		},
	}

	n := normalize.New(testutil.CatalogRules(t))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serveFeed(t, "application/rss+xml", rssWithItem(tt.channel, tt.item))

			feed, err := newTestFetcher(DefaultConfig()).Fetch(context.Background(), srv.URL)
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if len(feed.Items) != 1 {
				t.Fatalf("len(Items) = %d, want 1", len(feed.Items))
			}

			raw := feed.Items[0]
			if raw.MediaThumbnail != tt.wantThumbnail {
				t.Errorf("MediaThumbnail = %q, want %q", raw.MediaThumbnail, tt.wantThumbnail)
			}

			article := n.Normalize(raw, 0, "news", "Blogs")
			if article.ImageURL != tt.wantImage {
				t.Errorf("ImageURL = %q, want %q", article.ImageURL, tt.wantImage)
			}
		})
	}
}

func TestFetch_RSSContentIsDescriptionOnly(t *testing.T) {
	srv := serveFeed(t, "application/rss+xml", rssWithItem("Some Blog",
		`    <content:encoded><![CDATA[<p>Full body</p>]]></content:encoded>`))

	feed, err := newTestFetcher(DefaultConfig()).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	item := feed.Items[0]
	if item.Content != "" || item.ContentSnippet != "" {
		t.Errorf("Content = %q, ContentSnippet = %q, want empty", item.Content, item.ContentSnippet)
	}
	if item.FullContent != "<p>Full body</p>" {
		t.Errorf("FullContent = %q", item.FullContent)
	}

	article := normalize.New(nil).Normalize(item, 0, "news", "Blogs")
	if article.Summary != "Full body" {
		t.Errorf("Summary = %q, want text from content:encoded", article.Summary)
	}
}
