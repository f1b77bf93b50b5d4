package extractor

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
)

// Aspect ratio bounds; anything outside is a banner or decorative strip
const (
	maxAspectRatio = 4.0
	minAspectRatio = 0.25
)

// logoKeywords mark site chrome rather than product photos
var logoKeywords = []string{
	"logo",
	"brand-logo",
	"site-logo",
	"header-logo",
	"footer-logo",
	"icon",
	"favicon",
	"sprite",
	"banner",
	"badge",
	"seal",
	"trust",
	"payment",
	"shipping",
	"delivery",
}

// isLogoText reports whether s contains a logo-related keyword (case-insensitive)
func isLogoText(s string) bool {
	if s == "" {
		return false
	}
	lower := strings.ToLower(s)
	for _, kw := range logoKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// isLogoElement checks src, alt, class and id of an image element
func isLogoElement(img *goquery.Selection, src string) bool {
	return isLogoText(src) ||
		isLogoText(img.AttrOr("alt", "")) ||
		isLogoText(img.AttrOr("class", "")) ||
		isLogoText(img.AttrOr("id", ""))
}

// imageElementSrc returns the loaded source of an <img>, resolved against the page.
// Inline data URIs and placeholders are rejected.
func imageElementSrc(doc *Document, img *goquery.Selection) string {
	src := img.AttrOr(AttrCurrentSrc, "")
	if src == "" {
		src = img.AttrOr("src", "")
	}
	src = strings.TrimSpace(src)
	if src == "" || strings.Contains(src, "data:image") || strings.Contains(src, "placeholder") {
		return ""
	}
	return doc.Resolve(src)
}

// imageSrc is a best-image strategy: the first match of its selector, read as
// an <img> source or a <meta> content attribute.
type imageSrc struct {
	sel *Selector
}

func (s imageSrc) TryExtract(doc *Document) (string, bool) {
	found := s.sel.find(doc)
	if found == nil {
		return "", false
	}
	el := found.First()
	switch goquery.NodeName(el) {
	case "img":
		return nonEmpty(imageElementSrc(doc, el))
	case "meta":
		return nonEmpty(doc.Resolve(el.AttrOr("content", "")))
	}
	return "", false
}

// imageCollector accumulates unique image URLs in encounter order up to a limit
type imageCollector struct {
	seen  map[string]struct{}
	urls  []string
	limit int
}

func newImageCollector(limit int) *imageCollector {
	return &imageCollector{seen: make(map[string]struct{}), limit: limit}
}

func (c *imageCollector) add(u string) {
	if u == "" || c.full() {
		return
	}
	if _, dup := c.seen[u]; dup {
		return
	}
	c.seen[u] = struct{}{}
	c.urls = append(c.urls, u)
}

func (c *imageCollector) full() bool {
	return len(c.urls) >= c.limit
}

// extractImages collects candidate product images from the gallery cascade plus
// the og:image fallback.
func (e *Extractor) extractImages(ctx context.Context, doc *Document) []string {
	images := newImageCollector(e.maxImages)

	for _, sel := range imageSetSelectors {
		found := sel.find(doc)
		if found == nil {
			continue
		}
		found.EachWithBreak(func(_ int, img *goquery.Selection) bool {
			if goquery.NodeName(img) != "img" {
				return true
			}
			src := imageElementSrc(doc, img)
			if src == "" {
				return true
			}
			if _, dup := images.seen[src]; dup {
				return true
			}
			if e.isProductImage(ctx, img, src) {
				images.add(src)
			}
			return !images.full()
		})
		if images.full() {
			break
		}
	}

	if og := e.openGraphImage(doc); og != "" && !isLogoText(og) {
		images.add(og)
	}

	if images.urls == nil {
		return []string{}
	}
	return images.urls
}

// isProductImage applies the keyword, size and aspect ratio filters
func (e *Extractor) isProductImage(ctx context.Context, img *goquery.Selection, src string) bool {
	if isLogoElement(img, src) {
		return false
	}
	w, h, ok := e.sizer.Size(ctx, img, src)
	if !ok || w < e.minImageSize || h < e.minImageSize {
		return false
	}
	ratio := float64(w) / float64(h)
	return ratio >= minAspectRatio && ratio <= maxAspectRatio
}

// openGraphImage returns the first og:image of the page, resolved against its location
func (e *Extractor) openGraphImage(doc *Document) string {
	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(strings.NewReader(doc.Raw)); err != nil {
		e.logger.Debug("open graph parse failed")
		return ""
	}
	for _, img := range og.Images {
		if img != nil && strings.TrimSpace(img.URL) != "" {
			return doc.Resolve(img.URL)
		}
	}
	return ""
}
