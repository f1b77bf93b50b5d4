// Package extractor turns a product page into a best-effort RawRecord by
// walking ordered cascades of location strategies per field.
package extractor

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/smartkanban/backend/internal/domain"
	"github.com/smartkanban/backend/internal/normalize"
)

// Compiled regex patterns for field fallbacks
var (
	// Matches currency markers in short text nodes during the price fallback scan
	currencyMarkerPattern = regexp.MustCompile(`€|EUR|\$|USD|£|GBP`)

	// Matches quantities like "500g", "1,5 l", "16 Stück" inside a title
	titleQuantityPattern = regexp.MustCompile(`(?i)\d+[.,]?\d*\s*(?:g|kg|ml|l|stück|stuck|pieces|pcs|count)`)

	// Matches the byline prefixes Amazon and eBay put in front of a brand
	supplierPrefixPattern = regexp.MustCompile(`(?i)^(?:von\s+|by\s+|marke:\s*)`)

	digitPattern = regexp.MustCompile(`\d`)
)

// maxPriceScanLength bounds the text length of elements considered by the price fallback scan
const maxPriceScanLength = 30

// DefaultMinImageSize is the smallest natural width and height accepted for product images
const DefaultMinImageSize = 200

// Config holds configuration for the extractor
type Config struct {
	MinImageSize int
	MaxImages    int
	Sizer        ImageSizer
	Now          func() time.Time
}

// Extractor locates product fields in a document
type Extractor struct {
	sizer        ImageSizer
	minImageSize int
	maxImages    int
	now          func() time.Time
	logger       *zap.Logger
}

// New creates an extractor. A nil sizer falls back to reading markup attributes only.
func New(cfg Config, logger *zap.Logger) *Extractor {
	if cfg.Sizer == nil {
		cfg.Sizer = AttributeSizer{}
	}
	if cfg.MinImageSize <= 0 {
		cfg.MinImageSize = DefaultMinImageSize
	}
	if cfg.MaxImages <= 0 || cfg.MaxImages > domain.MaxProductImages {
		cfg.MaxImages = domain.MaxProductImages
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Extractor{
		sizer:        cfg.Sizer,
		minImageSize: cfg.MinImageSize,
		maxImages:    cfg.MaxImages,
		now:          cfg.Now,
		logger:       logger.Named("extractor"),
	}
}

// Extract builds a RawRecord from the document. It never fails: fields that
// cannot be located are left empty.
func (e *Extractor) Extract(ctx context.Context, doc *Document) domain.RawRecord {
	title := e.extractTitle(doc)

	record := domain.RawRecord{
		Title:       title,
		Price:       e.extractPrice(doc),
		Images:      e.extractImages(ctx, doc),
		ImageURL:    e.extractBestImage(doc),
		Quantity:    e.extractQuantity(doc, title),
		Supplier:    e.extractSupplier(doc),
		ProductURL:  normalize.ShortenURL(doc.Location.String()),
		Domain:      doc.Location.Hostname(),
		ExtractedAt: e.now().UTC(),
	}

	e.logger.Debug("extracted product data",
		zap.String("url", doc.Location.String()),
		zap.Bool("title", record.Title != ""),
		zap.Bool("price", record.Price != ""),
		zap.Int("images", len(record.Images)),
		zap.Bool("quantity", record.Quantity != ""),
	)

	return record
}

func (e *Extractor) extractTitle(doc *Document) string {
	title, _ := FirstMatch(doc, titleStrategies)
	return title
}

// extractPrice runs the price cascade, then scans short text nodes for a currency marker
func (e *Extractor) extractPrice(doc *Document) string {
	if text, ok := FirstMatch(doc, priceStrategies); ok {
		return normalize.CleanPrice(text)
	}

	var price string
	doc.Query.Find("span, div, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if utf8.RuneCountInString(text) >= maxPriceScanLength || !currencyMarkerPattern.MatchString(text) {
			return true
		}
		if cleaned := normalize.CleanPrice(text); digitPattern.MatchString(cleaned) {
			price = cleaned
			return false
		}
		return true
	})
	return price
}

func (e *Extractor) extractBestImage(doc *Document) string {
	img, _ := FirstMatch(doc, bestImageStrategies)
	return img
}

// extractQuantity runs the quantity cascade, falling back to a size pattern in the title
func (e *Extractor) extractQuantity(doc *Document, title string) string {
	if q, ok := FirstMatch(doc, quantityStrategies); ok {
		return q
	}
	return titleQuantityPattern.FindString(title)
}

// extractSupplier runs the supplier cascade, falling back to the page host
func (e *Extractor) extractSupplier(doc *Document) string {
	if s, ok := FirstMatch(doc, supplierStrategies); ok {
		return strings.TrimSpace(supplierPrefixPattern.ReplaceAllString(s, ""))
	}
	return doc.Hostname()
}
