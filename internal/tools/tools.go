// Package tools adapts web search and page scraping backends into the
// evidence-gathering calls made by the researcher.
package tools

import (
	"context"
	"time"
	"unicode/utf8"
)

// Snippet is one search result
type Snippet struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
	Rank  int    `json:"rank"` // 1-based position in the backend's results
}

// Page is scraped page content
type Page struct {
	URL       string    `json:"url"`
	FinalURL  string    `json:"final_url,omitempty"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	Format    string    `json:"format"` // markdown or text
	Truncated bool      `json:"truncated,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Searcher runs web searches
type Searcher interface {
	Search(ctx context.Context, query string) ([]Snippet, error)
}

// Scraper fetches page content
type Scraper interface {
	Scrape(ctx context.Context, uri string) (*Page, error)
}

// Adapter is the evidence tool surface consumed by research. Every
// failure is a *ToolError.
type Adapter interface {
	Searcher
	Scraper
}

// Toolset joins a Searcher and a Scraper into an Adapter
type Toolset struct {
	Searcher Searcher
	Scraper  Scraper
}

// Search delegates to the searcher
func (t *Toolset) Search(ctx context.Context, query string) ([]Snippet, error) {
	return t.Searcher.Search(ctx, query)
}

// Scrape delegates to the scraper
func (t *Toolset) Scrape(ctx context.Context, uri string) (*Page, error) {
	return t.Scraper.Scrape(ctx, uri)
}

// TruncateContent cuts s to at most max bytes on a rune boundary.
// max <= 0 disables truncation.
func TruncateContent(s string, max int) (string, bool) {
	if max <= 0 || len(s) <= max {
		return s, false
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}
