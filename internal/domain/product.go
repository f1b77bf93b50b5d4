package domain

import "time"

// DefaultStockPolicy is used for reorder level and order quantity when
// nothing better is known.
const DefaultStockPolicy = "1 package"

// MaxProductImages caps the candidate image set offered to the user
const MaxProductImages = 8

// RawRecord represents unvalidated fields scraped directly from a product page
type RawRecord struct {
	Title       string    `json:"title"`
	Price       string    `json:"price"`
	Quantity    string    `json:"quantity"`
	Supplier    string    `json:"supplier"`
	Images      []string  `json:"images"`
	ImageURL    string    `json:"image_url"` // Best single image, picked independently of Images
	ProductURL  string    `json:"product_url"`
	Domain      string    `json:"domain"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// NormalizedRecord is the schema-conformant, fully defaulted record used for card rendering.
// Missing data is always an empty string, never omitted.
type NormalizedRecord struct {
	TitleShort    string `json:"title_short"`
	Price         string `json:"price"`
	QuantityUnit  string `json:"quantity_unit"`
	Supplier      string `json:"supplier"`
	ImageURL      string `json:"image_url"`
	ProductURL    string `json:"product_url"`
	ReorderLevel  string `json:"reorder_level"`
	OrderQuantity string `json:"order_quantity"`
	Notes         string `json:"notes"`
}

// ProductData is a normalized record together with the raw record it came from
type ProductData struct {
	NormalizedRecord
	Raw RawRecord `json:"raw"`
}

// CacheEntry is the persisted form of a cached pipeline result
type CacheEntry struct {
	Timestamp time.Time   `json:"timestamp"`
	Data      ProductData `json:"data"`
}

// Credentials carries the caller's key for the normalization service
type Credentials struct {
	APIKey string
}

// ExtractRequest represents a request to run the extraction pipeline for one page
type ExtractRequest struct {
	URL          string `json:"url" binding:"required"`
	HTML         string `json:"html,omitempty"`
	ForceRefresh bool   `json:"force_refresh,omitempty"`
	APIKey       string `json:"api_key,omitempty"`
}

// ExtractResult is returned by a pipeline run
type ExtractResult struct {
	Data       ProductData `json:"data"`
	Cached     bool        `json:"cached"`
	URLTooLong bool        `json:"url_too_long"`
}

// PrintData is the user-edited card record handed to the print page
type PrintData struct {
	NormalizedRecord
}

// Settings holds the user preferences shared across devices
type Settings struct {
	OpenAIAPIKey string `json:"openai_api_key"`
	Language     string `json:"language"`
}

// Supported UI languages
const (
	LanguageEnglish = "en"
	LanguageGerman  = "de"
)
