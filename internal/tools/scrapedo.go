package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultScrapeDoURL = "https://api.scrape.do"

// ScrapeDoScraper fetches rendered pages as markdown through scrape.do
type ScrapeDoScraper struct {
	client     *http.Client
	endpoint   string
	token      string
	geoCode    string
	super      bool
	maxContent int
	maxBytes   int64
	now        func() time.Time
}

// ScrapeDoOptions configures a ScrapeDoScraper
type ScrapeDoOptions struct {
	Endpoint         string
	Token            string
	GeoCode          string
	Super            bool // residential proxies
	MaxContentLength int
	MaxBodyBytes     int64
}

// NewScrapeDoScraper creates a scrape.do scraper
func NewScrapeDoScraper(client *http.Client, opts ScrapeDoOptions) (*ScrapeDoScraper, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("scrape.do token is required")
	}
	if opts.Endpoint == "" {
		opts.Endpoint = defaultScrapeDoURL
	}
	geo := strings.ToUpper(opts.GeoCode)
	if geo == "" {
		geo = "US"
	}
	return &ScrapeDoScraper{
		client:     client,
		endpoint:   strings.TrimSuffix(opts.Endpoint, "/"),
		token:      opts.Token,
		geoCode:    geo,
		super:      opts.Super,
		maxContent: opts.MaxContentLength,
		maxBytes:   opts.MaxBodyBytes,
		now:        time.Now,
	}, nil
}

// Scrape fetches uri rendered and converted to markdown
func (s *ScrapeDoScraper) Scrape(ctx context.Context, uri string) (*Page, error) {
	params := url.Values{}
	params.Set("token", s.token)
	params.Set("url", uri)
	params.Set("geoCode", s.geoCode)
	params.Set("output", "markdown")
	params.Set("render", "true")
	if s.super {
		params.Set("super", "true")
	}

	body, _, status, err := getBody(ctx, s.client, s.endpoint+"/?"+params.Encode(), nil, s.maxBytes)
	if err != nil {
		return nil, newToolError(ToolScrape, "scrapedo", uri, status, err)
	}

	content, truncated := TruncateContent(strings.TrimSpace(string(body)), s.maxContent)
	return &Page{
		URL:       uri,
		Title:     markdownTitle(content),
		Content:   content,
		Format:    "markdown",
		Truncated: truncated,
		FetchedAt: s.now().UTC(),
	}, nil
}

// markdownTitle returns the first level-1 heading, if any
func markdownTitle(md string) string {
	for _, line := range strings.SplitN(md, "\n", 50) {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}
