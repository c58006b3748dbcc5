package models

import "time"

// Article is the normalized, UI-facing record. Every field is populated with
// real data or a defined fallback.
type Article struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Source      string `json:"source"`
	PublishedAt string `json:"publishedAt"`
	Category    string `json:"category"`
	ImageURL    string `json:"imageUrl"`
	ImageHint   string `json:"imageHint"`
	Content     string `json:"content"`
	Summary     string `json:"summary"`
	Link        string `json:"link"`
}

// RawFeedItem is a parsed feed entry before normalization. Optional upstream
// fields are pointers or empty values.
type RawFeedItem struct {
	Title          string
	Link           string
	GUID           string
	PublishedAt    *time.Time
	Content        string // item description (RSS) or summary (Atom), may hold HTML
	ContentSnippet string // Content with markup stripped
	FullContent    string // content:encoded (RSS) or content (Atom)
	Creator        string
	Enclosure      *Enclosure
	MediaContent   []MediaContent
	MediaThumbnail string
	FeedTitle      string
}

type Enclosure struct {
	URL  string
	Type string
}

type MediaContent struct {
	URL    string
	Medium string
	Type   string
}

// ParsedFeed is the result of fetching one feed URL.
type ParsedFeed struct {
	URL   string
	Title string
	Items []RawFeedItem
}

// SummaryRequest is the input accepted by the summarization collaborator.
type SummaryRequest struct {
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

type SummaryResult struct {
	Summary   string `json:"summary"`
	Sentiment string `json:"sentiment,omitempty"`
}
