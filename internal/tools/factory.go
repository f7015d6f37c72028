package tools

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/factcheck/internal/cache"
	"github.com/ppiankov/factcheck/internal/model"
	"github.com/ppiankov/factcheck/internal/util"
	"github.com/ppiankov/factcheck/internal/worker"
)

// Options carries the shared infrastructure decorating an Adapter
type Options struct {
	Cache    cache.Cache     // nil = no caching
	CacheTTL time.Duration   // 0 = cache default
	Limiter  *worker.Limiter // nil = no rate limiting
}

// New builds the configured search and scrape backends, wrapped in rate
// limiting and caching
func New(cfg model.ToolsConfig, opts Options) (Adapter, error) {
	client := util.NewHTTPClient(util.HTTPOptions{
		Timeout:    cfg.Timeout,
		HTTPProxy:  cfg.HTTPProxy,
		HTTPSProxy: cfg.HTTPSProxy,
		NoProxy:    cfg.NoProxy,
	})

	searcher, searchEndpoint, err := newSearcher(cfg, client)
	if err != nil {
		return nil, err
	}
	scraper, err := newScraper(cfg, client)
	if err != nil {
		return nil, err
	}

	var adapter Adapter = &Toolset{Searcher: searcher, Scraper: scraper}
	if opts.Limiter != nil {
		adapter = NewRateLimitedAdapter(adapter, opts.Limiter, searchEndpoint)
	}
	if opts.Cache != nil {
		ns := strings.ToLower(cfg.SearchBackend + "+" + cfg.ScrapeBackend)
		adapter = NewCachedAdapter(adapter, opts.Cache, ns, opts.CacheTTL)
	}
	return adapter, nil
}

func newSearcher(cfg model.ToolsConfig, client *http.Client) (Searcher, string, error) {
	switch strings.ToLower(cfg.SearchBackend) {
	case "brave", "":
		key := cfg.SearchAPIKey
		if key == "" {
			key = os.Getenv("BRAVE_API_KEY")
		}
		endpoint := cfg.SearchURL
		if endpoint == "" {
			endpoint = defaultBraveURL
		}
		s, err := NewBraveSearcher(client, endpoint, key, cfg.MaxResults)
		return s, endpoint, err

	case "searxng":
		s, err := NewSearxNGSearcher(client, cfg.SearchURL, cfg.MaxResults)
		return s, cfg.SearchURL, err

	default:
		return nil, "", fmt.Errorf("unknown search backend: %s (supported: brave, searxng)", cfg.SearchBackend)
	}
}

func newScraper(cfg model.ToolsConfig, client *http.Client) (Scraper, error) {
	switch strings.ToLower(cfg.ScrapeBackend) {
	case "direct", "":
		return NewDirectScraper(client, DirectOptions{
			UserAgent:        cfg.UserAgent,
			RespectRobots:    cfg.RespectRobots,
			MaxContentLength: cfg.MaxContentLength,
			MaxBodyBytes:     cfg.MaxBodyBytes,
		}), nil

	case "scrapedo", "scrape.do":
		token := cfg.ScrapeToken
		if token == "" {
			token = os.Getenv("SCRAPEDO_TOKEN")
		}
		return NewScrapeDoScraper(client, ScrapeDoOptions{
			Endpoint:         cfg.ScrapeURL,
			Token:            token,
			GeoCode:          cfg.GeoCode,
			Super:            true,
			MaxContentLength: cfg.MaxContentLength,
			MaxBodyBytes:     cfg.MaxBodyBytes,
		})

	default:
		return nil, fmt.Errorf("unknown scrape backend: %s (supported: direct, scrapedo)", cfg.ScrapeBackend)
	}
}
