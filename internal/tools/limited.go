package tools

import (
	"context"
	"net/url"

	"github.com/ppiankov/factcheck/internal/worker"
)

// RateLimitedAdapter spaces calls per host. Searches are limited on the
// search endpoint's host, scrapes on the target page's host.
type RateLimitedAdapter struct {
	next       Adapter
	limiter    *worker.Limiter
	searchHost string
}

// NewRateLimitedAdapter wraps next with limiter. searchEndpoint is the
// URL whose host search calls are charged to.
func NewRateLimitedAdapter(next Adapter, limiter *worker.Limiter, searchEndpoint string) *RateLimitedAdapter {
	host := "search.invalid"
	if u, err := url.Parse(searchEndpoint); err == nil && u.Host != "" {
		host = u.Host
	}
	return &RateLimitedAdapter{next: next, limiter: limiter, searchHost: "https://" + host}
}

// Search waits for the search host's limiter, then searches
func (a *RateLimitedAdapter) Search(ctx context.Context, query string) ([]Snippet, error) {
	if err := a.limiter.Wait(ctx, a.searchHost); err != nil {
		return nil, newToolError(ToolSearch, "ratelimit", query, 0, err)
	}
	return a.next.Search(ctx, query)
}

// Scrape waits for the page host's limiter, then scrapes
func (a *RateLimitedAdapter) Scrape(ctx context.Context, uri string) (*Page, error) {
	if err := a.limiter.Wait(ctx, uri); err != nil {
		return nil, newToolError(ToolScrape, "ratelimit", uri, 0, err)
	}
	return a.next.Scrape(ctx, uri)
}
