package extractor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// MaxHTMLSize limits HTML input to 10MB to prevent memory exhaustion
const MaxHTMLSize = 10 * 1024 * 1024

// Document is a parsed, read-only product page.
// The same node tree serves CSS selectors (goquery) and XPath queries (htmlquery).
type Document struct {
	Query    *goquery.Document
	Root     *html.Node
	Raw      string
	Location *url.URL
}

// NewDocument parses page HTML served from location
func NewDocument(rawHTML string, location *url.URL) (*Document, error) {
	if len(rawHTML) > MaxHTMLSize {
		return nil, fmt.Errorf("html exceeds maximum size of %d bytes", MaxHTMLSize)
	}
	if location == nil {
		return nil, fmt.Errorf("document location is required")
	}

	q, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var root *html.Node
	if len(q.Nodes) > 0 {
		root = q.Nodes[0]
	}

	return &Document{
		Query:    q,
		Root:     root,
		Raw:      rawHTML,
		Location: location,
	}, nil
}

// Hostname returns the page host without a leading "www."
func (d *Document) Hostname() string {
	return strings.TrimPrefix(d.Location.Hostname(), "www.")
}

// Resolve turns a possibly relative reference into an absolute URL
func (d *Document) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return d.Location.ResolveReference(u).String()
}
