package tools

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ContentSelector picks the part of a page that carries its text, so page
// chrome (navigation, infoboxes, footers) does not reach the evidence
type ContentSelector interface {
	// Name returns the selector name
	Name() string

	// CanHandle checks if this selector applies to the page URL
	CanHandle(u *url.URL) bool

	// Select returns the content root of doc, or nil when not found
	Select(doc *html.Node) *html.Node
}

// SelectorRegistry finds the content selector for a URL
type SelectorRegistry struct {
	selectors []ContentSelector
	generic   ContentSelector
}

// NewSelectorRegistry creates a registry with the built-in selectors
func NewSelectorRegistry() *SelectorRegistry {
	r := &SelectorRegistry{generic: genericSelector{}}
	r.Register(wikipediaSelector{})
	r.Register(newLegalSelector())
	return r
}

// Register registers a new selector. Earlier registrations win.
func (r *SelectorRegistry) Register(s ContentSelector) {
	r.selectors = append(r.selectors, s)
}

// Find returns the first selector handling rawURL, or the generic one
func (r *SelectorRegistry) Find(rawURL string) ContentSelector {
	u, err := url.Parse(rawURL)
	if err == nil {
		for _, s := range r.selectors {
			if s.CanHandle(u) {
				return s
			}
		}
	}
	return r.generic
}

// contentRoot applies the selector for rawURL, falling back to the generic
// selection and then to the whole document
func (r *SelectorRegistry) contentRoot(rawURL string, doc *html.Node) *html.Node {
	if n := r.Find(rawURL).Select(doc); n != nil {
		return n
	}
	if n := r.generic.Select(doc); n != nil {
		return n
	}
	return doc
}

// genericSelector prefers <main>, then <article>, then <body>
type genericSelector struct{}

func (genericSelector) Name() string { return "generic" }

func (genericSelector) CanHandle(*url.URL) bool { return true }

func (genericSelector) Select(doc *html.Node) *html.Node {
	for _, a := range []atom.Atom{atom.Main, atom.Article, atom.Body} {
		if n := findElement(doc, a); n != nil {
			return n
		}
	}
	return nil
}

// wikipediaSelector keeps the article body and drops infoboxes, navboxes,
// edit links and reference markers
type wikipediaSelector struct{}

func (wikipediaSelector) Name() string { return "wikipedia" }

func (wikipediaSelector) CanHandle(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	return host == "wikipedia.org" || strings.HasSuffix(host, ".wikipedia.org")
}

func (wikipediaSelector) Select(doc *html.Node) *html.Node {
	content := findFirst(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Div && hasClass(n, "mw-parser-output")
	})
	if content == nil {
		content = findFirst(doc, func(n *html.Node) bool {
			return n.DataAtom == atom.Div && attr(n, "id") == "mw-content-text"
		})
	}
	if content == nil {
		return nil
	}

	removeAll(content, func(n *html.Node) bool {
		switch {
		case n.DataAtom == atom.Table && (hasClass(n, "infobox") || hasClass(n, "navbox") || hasClass(n, "sidebar")):
			return true
		case hasClass(n, "mw-editsection"), hasClass(n, "reflist"), hasClass(n, "navbox"), hasClass(n, "hatnote"):
			return true
		case n.DataAtom == atom.Sup && hasClass(n, "reference"):
			return true
		}
		return false
	})
	return content
}

// legalSelector handles legislation sites, whose text sits in the main
// content container
type legalSelector struct {
	domains []string
}

func newLegalSelector() legalSelector {
	return legalSelector{domains: []string{
		"legislation.gov.uk",
		"law.cornell.edu",
		"justice.gov",
		"eur-lex.europa.eu",
	}}
}

func (legalSelector) Name() string { return "legal" }

func (s legalSelector) CanHandle(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	for _, d := range s.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func (legalSelector) Select(doc *html.Node) *html.Node {
	n := findFirst(doc, func(n *html.Node) bool {
		id := attr(n, "id")
		return id == "viewLegContents" || id == "content" || id == "main-content"
	})
	if n == nil {
		return nil
	}
	removeAll(n, func(n *html.Node) bool {
		return n.DataAtom == atom.Nav || hasClass(n, "breadcrumb")
	})
	return n
}

func hasClass(n *html.Node, className string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, class := range strings.Fields(attr(n, "class")) {
		if class == className {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// findFirst returns the first element node matching predicate, depth first
func findFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && predicate(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, predicate); found != nil {
			return found
		}
	}
	return nil
}

// removeAll detaches every element below n matching predicate
func removeAll(n *html.Node, predicate func(*html.Node) bool) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && predicate(c) {
			n.RemoveChild(c)
		} else {
			removeAll(c, predicate)
		}
		c = next
	}
}
