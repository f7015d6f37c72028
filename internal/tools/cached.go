package tools

import (
	"context"
	"time"

	"github.com/ppiankov/factcheck/internal/cache"
)

// CachedAdapter serves repeated searches and scrapes from a cache.
// Failures and empty search results are never cached.
type CachedAdapter struct {
	next      Adapter
	cache     cache.Cache
	namespace string // separates backends sharing one cache
	ttl       time.Duration
	now       func() time.Time
}

// NewCachedAdapter wraps next with c. A zero ttl uses the cache default.
func NewCachedAdapter(next Adapter, c cache.Cache, namespace string, ttl time.Duration) *CachedAdapter {
	return &CachedAdapter{next: next, cache: c, namespace: namespace, ttl: ttl, now: time.Now}
}

// Search returns cached results for query when present
func (a *CachedAdapter) Search(ctx context.Context, query string) ([]Snippet, error) {
	key := cache.Key("search", a.namespace, query)

	var snippets []Snippet
	if cache.GetJSON(a.cache, key, &snippets) {
		return snippets, nil
	}

	snippets, err := a.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(snippets) > 0 {
		_ = cache.SetJSON(a.cache, key, snippets, a.ttl)
	}
	return snippets, nil
}

// Scrape returns the cached page for uri when present. A cached page is
// stamped with the time it was served.
func (a *CachedAdapter) Scrape(ctx context.Context, uri string) (*Page, error) {
	key := cache.Key("scrape", a.namespace, uri)

	var page Page
	if cache.GetJSON(a.cache, key, &page) {
		page.FetchedAt = a.now().UTC()
		return &page, nil
	}

	p, err := a.next.Scrape(ctx, uri)
	if err != nil {
		return nil, err
	}
	_ = cache.SetJSON(a.cache, key, p, a.ttl)
	return p, nil
}
