package domain

import (
	"context"
	"net/url"
)

// ProductCache defines the interface for the URL-keyed result cache.
// Keys are the exact page URL; no normalization is applied.
type ProductCache interface {
	Get(ctx context.Context, pageURL string) (*ProductData, error)
	Put(ctx context.Context, pageURL string, data *ProductData) error
	Invalidate(ctx context.Context, pageURL string) error
}

// SettingsRepository stores the synced user settings
type SettingsRepository interface {
	Load(ctx context.Context) (*Settings, error)
	Save(ctx context.Context, settings *Settings) error
}

// PrintRepository holds the single pending print record
type PrintRepository interface {
	Put(ctx context.Context, data *PrintData) error
	// Take returns the pending record and removes it
	Take(ctx context.Context) (*PrintData, error)
}

// Normalizer defines the interface for the model-backed normalization client
type Normalizer interface {
	Normalize(ctx context.Context, raw RawRecord, creds Credentials) (*NormalizedRecord, error)
	VerifyKey(ctx context.Context, creds Credentials) error
}

// Page is a fetched document ready for extraction
type Page struct {
	URL  *url.URL
	HTML string
}

// PageFetcher retrieves a page when the caller did not post its HTML
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*Page, error)
}
