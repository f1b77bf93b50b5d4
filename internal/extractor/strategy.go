package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
)

// Strategy is one rule for locating a field value in a document
type Strategy interface {
	TryExtract(doc *Document) (string, bool)
}

// FirstMatch evaluates strategies in priority order and returns the first
// non-empty trimmed value.
func FirstMatch(doc *Document, strategies []Strategy) (string, bool) {
	for _, s := range strategies {
		if v, ok := s.TryExtract(doc); ok {
			return v, true
		}
	}
	return "", false
}

// Selector reads the text content of the first element matching a CSS selector
type Selector struct {
	Expr    string
	matcher cascadia.Selector
	err     error
}

// CSS compiles a selector strategy. A selector that fails to compile is kept
// in the cascade but never matches.
func CSS(expr string) *Selector {
	m, err := cascadia.Compile(expr)
	return &Selector{Expr: expr, matcher: m, err: err}
}

func (s *Selector) find(doc *Document) *goquery.Selection {
	if s.err != nil || doc == nil || doc.Query == nil {
		return nil
	}
	sel := doc.Query.FindMatcher(s.matcher)
	if sel.Length() == 0 {
		return nil
	}
	return sel
}

func (s *Selector) TryExtract(doc *Document) (string, bool) {
	sel := s.find(doc)
	if sel == nil {
		return "", false
	}
	return nonEmpty(sel.First().Text())
}

// Meta reads the content attribute of the first element matching a selector
type Meta struct {
	*Selector
}

// MetaContent compiles a meta tag strategy such as meta[property="og:title"]
func MetaContent(expr string) *Meta {
	return &Meta{Selector: CSS(expr)}
}

func (m *Meta) TryExtract(doc *Document) (string, bool) {
	sel := m.find(doc)
	if sel == nil {
		return "", false
	}
	return nonEmpty(sel.First().AttrOr("content", ""))
}

// XPath reads the text content of the first node matching an XPath expression.
// Used for markup that CSS cannot address, such as a value following a labelled sibling.
type XPath struct {
	Expr string
}

func (x XPath) TryExtract(doc *Document) (string, bool) {
	if doc == nil || doc.Root == nil {
		return "", false
	}
	node, err := htmlquery.Query(doc.Root, x.Expr)
	if err != nil || node == nil {
		return "", false
	}
	return nonEmpty(htmlquery.InnerText(node))
}

// JSONLD reads one field of the first schema.org Product embedded as JSON-LD
type JSONLD struct {
	Field ProductField
}

func (j JSONLD) TryExtract(doc *Document) (string, bool) {
	if doc == nil || doc.Query == nil {
		return "", false
	}
	product := findJSONLDProduct(doc.Query)
	if product == nil {
		return "", false
	}
	return nonEmpty(j.Field(product))
}

func nonEmpty(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}
