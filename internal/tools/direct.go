package tools

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DirectScraper fetches pages itself, honoring robots.txt, and converts
// sanitized HTML to markdown
type DirectScraper struct {
	client     *http.Client
	userAgent  string
	robots     *RobotsChecker // nil = robots.txt ignored
	policy     *bluemonday.Policy
	selectors  *SelectorRegistry
	maxContent int
	maxBytes   int64
	now        func() time.Time
}

// DirectOptions configures a DirectScraper
type DirectOptions struct {
	UserAgent        string
	RespectRobots    bool
	MaxContentLength int
	MaxBodyBytes     int64
}

// NewDirectScraper creates a direct scraper
func NewDirectScraper(client *http.Client, opts DirectOptions) *DirectScraper {
	s := &DirectScraper{
		client:     client,
		userAgent:  opts.UserAgent,
		policy:     bluemonday.UGCPolicy(),
		selectors:  NewSelectorRegistry(),
		maxContent: opts.MaxContentLength,
		maxBytes:   opts.MaxBodyBytes,
		now:        time.Now,
	}
	if opts.RespectRobots {
		s.robots = NewRobotsChecker(client, opts.UserAgent)
	}
	return s
}

// Scrape fetches uri and returns its main text as markdown
func (s *DirectScraper) Scrape(ctx context.Context, uri string) (*Page, error) {
	if s.robots != nil {
		allowed, _, err := s.robots.CanFetch(ctx, uri)
		if err != nil {
			return nil, newToolError(ToolScrape, "direct", uri, 0, err)
		}
		if !allowed {
			return nil, newToolError(ToolScrape, "direct", uri, 0, ErrRobotsDisallowed)
		}
	}

	body, resp, status, err := getBody(ctx, s.client, uri, map[string]string{
		"User-Agent":      s.userAgent,
		"Accept":          "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5",
		"Accept-Language": "en-US,en;q=0.9",
	}, s.maxBytes)
	if err != nil {
		return nil, newToolError(ToolScrape, "direct", uri, status, err)
	}

	page := &Page{
		URL:       uri,
		FinalURL:  resp.Request.URL.String(),
		FetchedAt: s.now().UTC(),
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch {
	case mediaType == "text/plain":
		page.Format = "text"
		page.Content = strings.TrimSpace(string(body))
	case mediaType == "" || mediaType == "text/html" || mediaType == "application/xhtml+xml":
		title, md, err := s.htmlToMarkdown(page.FinalURL, body)
		if err != nil {
			return nil, newToolError(ToolScrape, "direct", uri, 0, err)
		}
		page.Title = title
		page.Format = "markdown"
		page.Content = md
	default:
		return nil, newToolError(ToolScrape, "direct", uri, 0, fmt.Errorf("%w: %s", ErrUnsupportedContent, mediaType))
	}

	page.Content, page.Truncated = TruncateContent(page.Content, s.maxContent)
	return page, nil
}

// htmlToMarkdown extracts the title, renders only the content root picked
// for pageURL, sanitizes it and converts the result to markdown
func (s *DirectScraper) htmlToMarkdown(pageURL string, raw []byte) (string, string, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}

	title := ""
	if n := findElement(doc, atom.Title); n != nil {
		title = strings.Join(strings.Fields(textContent(n)), " ")
	}

	root := s.selectors.contentRoot(pageURL, doc)
	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return "", "", fmt.Errorf("render html: %w", err)
	}

	md, err := htmltomarkdown.ConvertString(s.policy.Sanitize(buf.String()))
	if err != nil {
		return "", "", fmt.Errorf("convert to markdown: %w", err)
	}
	return title, strings.TrimSpace(md), nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
