package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

const defaultBraveURL = "https://api.search.brave.com/res/v1/web/search"

// BraveSearcher queries the Brave Search web API
type BraveSearcher struct {
	client     *http.Client
	endpoint   string
	apiKey     string
	maxResults int
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title         string   `json:"title"`
			URL           string   `json:"url"`
			Description   string   `json:"description"`
			ExtraSnippets []string `json:"extra_snippets"`
		} `json:"results"`
	} `json:"web"`
}

// NewBraveSearcher creates a Brave searcher. An empty endpoint uses the public API.
func NewBraveSearcher(client *http.Client, endpoint, apiKey string, maxResults int) (*BraveSearcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("brave search API key is required")
	}
	if endpoint == "" {
		endpoint = defaultBraveURL
	}
	if maxResults <= 0 || maxResults > 20 {
		maxResults = 10
	}
	return &BraveSearcher{
		client:     client,
		endpoint:   endpoint,
		apiKey:     apiKey,
		maxResults: maxResults,
	}, nil
}

// Search runs one web search
func (b *BraveSearcher) Search(ctx context.Context, query string) ([]Snippet, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(b.maxResults))

	var resp braveResponse
	status, err := getJSON(ctx, b.client, b.endpoint+"?"+params.Encode(), map[string]string{
		"X-Subscription-Token": b.apiKey,
	}, &resp)
	if err != nil {
		return nil, newToolError(ToolSearch, "brave", query, status, err)
	}

	snippets := make([]Snippet, 0, len(resp.Web.Results))
	for _, r := range resp.Web.Results {
		text := stripTags(r.Description)
		if len(r.ExtraSnippets) > 0 {
			text = strings.TrimSpace(text + " " + stripTags(strings.Join(r.ExtraSnippets, " ")))
		}
		snippets = append(snippets, Snippet{
			Title: stripTags(r.Title),
			URL:   r.URL,
			Text:  text,
			Rank:  len(snippets) + 1,
		})
	}
	return snippets, nil
}

// stripTags removes inline markup such as <strong> highlighting
func stripTags(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}
