package collect

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// Entry is one parsed feed item. Missing fields are left empty.
type Entry struct {
	Title     string
	Link      string
	Published string
	Summary   string
}

// Source returns the entries of a feed in document order.
type Source interface {
	Fetch(ctx context.Context, url string) ([]Entry, error)
}

// FeedSource parses RSS/Atom feeds with gofeed.
type FeedSource struct {
	parser *gofeed.Parser
}

// NewFeedSource creates a feed source whose HTTP client gives up after timeout.
func NewFeedSource(timeout time.Duration) *FeedSource {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = "NewsDigest/1.0 (news aggregator)"
	return &FeedSource{parser: parser}
}

// Fetch downloads and parses the feed at url.
func (s *FeedSource) Fetch(ctx context.Context, url string) ([]Entry, error) {
	feed, err := s.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		entries = append(entries, parseItem(item))
	}
	return entries, nil
}

func parseItem(item *gofeed.Item) Entry {
	if item == nil {
		return Entry{}
	}

	summary := item.Description
	if summary == "" {
		summary = item.Content
	}

	published := item.Published
	if published == "" {
		published = item.Updated
	}

	return Entry{
		Title:     strings.TrimSpace(item.Title),
		Link:      strings.TrimSpace(item.Link),
		Published: published,
		Summary:   stripHTML(summary),
	}
}

// stripHTML reduces feed markup to plain text with normalized whitespace.
func stripHTML(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return strings.Join(strings.Fields(text), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return strings.Join(strings.Fields(text), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
