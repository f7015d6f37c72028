package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// SearxNGSearcher queries a SearxNG instance's JSON API
type SearxNGSearcher struct {
	client     *http.Client
	baseURL    string
	maxResults int
}

type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// NewSearxNGSearcher creates a SearxNG searcher for baseURL
func NewSearxNGSearcher(client *http.Client, baseURL string, maxResults int) (*SearxNGSearcher, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("searxng base URL is required")
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	return &SearxNGSearcher{
		client:     client,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		maxResults: maxResults,
	}, nil
}

// Search runs one web search
func (s *SearxNGSearcher) Search(ctx context.Context, query string) ([]Snippet, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")

	var resp searxngResponse
	status, err := getJSON(ctx, s.client, s.baseURL+"/search?"+params.Encode(), nil, &resp)
	if err != nil {
		return nil, newToolError(ToolSearch, "searxng", query, status, err)
	}

	snippets := make([]Snippet, 0, len(resp.Results))
	for _, r := range resp.Results {
		if len(snippets) >= s.maxResults {
			break
		}
		snippets = append(snippets, Snippet{
			Title: strings.TrimSpace(r.Title),
			URL:   r.URL,
			Text:  strings.TrimSpace(r.Content),
			Rank:  len(snippets) + 1,
		})
	}
	return snippets, nil
}
