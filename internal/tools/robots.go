package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsChecker answers robots.txt questions per host, caching each
// host's rules for the checker's lifetime
type RobotsChecker struct {
	cache      map[string]*robotstxt.RobotsData
	mu         sync.RWMutex
	httpClient *http.Client
	userAgent  string
	agentToken string
}

// NewRobotsChecker creates a checker fetching robots.txt with client
func NewRobotsChecker(client *http.Client, userAgent string) *RobotsChecker {
	return &RobotsChecker{
		cache:      make(map[string]*robotstxt.RobotsData),
		httpClient: client,
		userAgent:  userAgent,
		agentToken: normalizeUserAgent(userAgent),
	}
}

// CanFetch reports whether rawURL may be fetched and the host's crawl delay.
// An unreachable or unparsable robots.txt allows everything.
func (r *RobotsChecker) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Host == "" {
		return false, 0, fmt.Errorf("no host in %q", rawURL)
	}

	data := r.rules(ctx, parsed)

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}

	group := data.FindGroup(r.agentToken)
	if group == nil {
		return true, 0, nil
	}
	return group.Test(path), group.CrawlDelay, nil
}

func (r *RobotsChecker) rules(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	host := strings.ToLower(u.Host)

	r.mu.RLock()
	data, ok := r.cache[host]
	r.mu.RUnlock()
	if ok {
		return data
	}

	data = r.fetch(ctx, fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host))
	if ctx.Err() != nil {
		// don't cache allow-all because the caller gave up
		return data
	}

	r.mu.Lock()
	r.cache[host] = data
	r.mu.Unlock()
	return data
}

func (r *RobotsChecker) fetch(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	allowAll, _ := robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return allowAll
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return allowAll
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return allowAll
	}

	// 5xx means "disallow all" to robotstxt; treat server trouble as unknown instead
	status := resp.StatusCode
	if status >= 500 {
		return allowAll
	}
	data, err := robotstxt.FromStatusAndBytes(status, body)
	if err != nil {
		return allowAll
	}
	return data
}

// normalizeUserAgent extracts the product token used for robots.txt matching
func normalizeUserAgent(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) == 0 {
		return ua
	}
	return strings.Split(parts[0], "/")[0]
}
