package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/smartkanban/backend/internal/domain"
	"github.com/smartkanban/backend/internal/extractor"
)

// MaxRecommendedURLLength is the longest product URL that still yields a
// comfortably scannable QR code on the smallest card
const MaxRecommendedURLLength = 50

// apiKeyPrefix is the prefix every OpenAI secret key starts with
const apiKeyPrefix = "sk-"

// RecordExtractor locates product fields in a parsed page
type RecordExtractor interface {
	Extract(ctx context.Context, doc *extractor.Document) domain.RawRecord
}

// ProductServiceConfig holds configuration for the product service
type ProductServiceConfig struct {
	// DefaultAPIKey is used when neither the request nor the stored settings carry a key
	DefaultAPIKey string
	// Fetcher loads pages for requests without posted HTML; nil disables fetching
	Fetcher domain.PageFetcher
}

// ProductService runs the extraction pipeline and owns the user-facing stores
type ProductService struct {
	extractor     RecordExtractor
	normalizer    domain.Normalizer
	cache         domain.ProductCache
	settings      domain.SettingsRepository
	prints        domain.PrintRepository
	fetcher       domain.PageFetcher
	defaultAPIKey string
	logger        *zap.Logger
}

// NewProductService creates a new product service with dependencies
func NewProductService(
	ext RecordExtractor,
	normalizer domain.Normalizer,
	cache domain.ProductCache,
	settings domain.SettingsRepository,
	prints domain.PrintRepository,
	config ProductServiceConfig,
	logger *zap.Logger,
) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		extractor:     ext,
		normalizer:    normalizer,
		cache:         cache,
		settings:      settings,
		prints:        prints,
		fetcher:       config.Fetcher,
		defaultAPIKey: strings.TrimSpace(config.DefaultAPIKey),
		logger:        logger.Named("product_service"),
	}
}

// Extract runs the pipeline for one page.
// Flow: validate -> cache (unless forced) -> document -> extract -> normalize -> cache -> return
func (s *ProductService) Extract(ctx context.Context, req *domain.ExtractRequest) (*domain.ExtractResult, error) {
	if req == nil {
		return nil, domain.ErrInvalidRequest
	}

	pageURL, err := validatePageURL(req.URL)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With(zap.String("url", req.URL))

	if req.ForceRefresh {
		if err := s.cache.Invalidate(ctx, req.URL); err != nil {
			logger.Warn("failed to invalidate cache entry", zap.Error(err))
		}
	} else {
		cached, err := s.cache.Get(ctx, req.URL)
		if err == nil {
			logger.Debug("serving cached product data")
			return newExtractResult(cached, true), nil
		}
		if !errors.Is(err, domain.ErrCacheMiss) {
			logger.Warn("cache read failed", zap.Error(err))
		}
	}

	doc, err := s.loadDocument(ctx, req, pageURL)
	if err != nil {
		return nil, err
	}

	raw := s.extractor.Extract(ctx, doc)

	creds, err := s.resolveCredentials(ctx, req.APIKey)
	if err != nil {
		return nil, err
	}

	normalized, err := s.normalizer.Normalize(ctx, raw, creds)
	if err != nil {
		logger.Warn("normalization failed", zap.Error(err))
		return nil, err
	}

	data := &domain.ProductData{NormalizedRecord: *normalized, Raw: raw}

	if err := s.cache.Put(ctx, req.URL, data); err != nil {
		// a failed write only costs a future cache miss
		logger.Warn("failed to cache product data", zap.Error(err))
	}

	logger.Info("extracted product",
		zap.String("domain", raw.Domain),
		zap.Int("images", len(raw.Images)),
	)
	return newExtractResult(data, false), nil
}

// NormalizeRaw normalizes a record that was extracted elsewhere, e.g. by a content script
func (s *ProductService) NormalizeRaw(ctx context.Context, raw domain.RawRecord, apiKey string) (*domain.NormalizedRecord, error) {
	creds, err := s.resolveCredentials(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return s.normalizer.Normalize(ctx, raw, creds)
}

// InvalidateCache drops the cached result for pageURL
func (s *ProductService) InvalidateCache(ctx context.Context, pageURL string) error {
	if strings.TrimSpace(pageURL) == "" {
		return fmt.Errorf("%w: url is required", domain.ErrInvalidRequest)
	}
	return s.cache.Invalidate(ctx, pageURL)
}

// SavePrintData stores the record the print page will render
func (s *ProductService) SavePrintData(ctx context.Context, data *domain.PrintData) error {
	if data == nil {
		return fmt.Errorf("%w: print data is required", domain.ErrInvalidRequest)
	}
	return s.prints.Put(ctx, data)
}

// TakePrintData returns the pending print record and clears it
func (s *ProductService) TakePrintData(ctx context.Context) (*domain.PrintData, error) {
	return s.prints.Take(ctx)
}

// GetSettings returns the stored settings with the API key masked
func (s *ProductService) GetSettings(ctx context.Context) (*domain.Settings, error) {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.Settings{
		OpenAIAPIKey: MaskAPIKey(settings.OpenAIAPIKey),
		Language:     settings.Language,
	}, nil
}

// SaveSettings validates and stores settings. Empty fields, and a key equal
// to the masked form of the stored one, keep their current values.
func (s *ProductService) SaveSettings(ctx context.Context, update *domain.Settings) (*domain.Settings, error) {
	if update == nil {
		return nil, domain.ErrInvalidRequest
	}

	current, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}

	next := *current

	if key := strings.TrimSpace(update.OpenAIAPIKey); key != "" && key != MaskAPIKey(current.OpenAIAPIKey) {
		if !strings.HasPrefix(key, apiKeyPrefix) {
			return nil, fmt.Errorf("%w: API key should start with %q", domain.ErrInvalidRequest, apiKeyPrefix)
		}
		next.OpenAIAPIKey = key
	}

	if lang := strings.ToLower(strings.TrimSpace(update.Language)); lang != "" {
		if lang != domain.LanguageEnglish && lang != domain.LanguageGerman {
			return nil, fmt.Errorf("%w: unsupported language %q", domain.ErrInvalidRequest, update.Language)
		}
		next.Language = lang
	}
	if next.Language == "" {
		next.Language = domain.LanguageEnglish
	}

	if err := s.settings.Save(ctx, &next); err != nil {
		return nil, err
	}

	next.OpenAIAPIKey = MaskAPIKey(next.OpenAIAPIKey)
	return &next, nil
}

// VerifyAPIKey checks apiKey, or the resolved key when apiKey is empty, against the API
func (s *ProductService) VerifyAPIKey(ctx context.Context, apiKey string) error {
	creds, err := s.resolveCredentials(ctx, apiKey)
	if err != nil {
		return err
	}
	return s.normalizer.VerifyKey(ctx, creds)
}

// resolveCredentials picks the request key, then the stored key, then the configured default
func (s *ProductService) resolveCredentials(ctx context.Context, requestKey string) (domain.Credentials, error) {
	if key := strings.TrimSpace(requestKey); key != "" {
		return domain.Credentials{APIKey: key}, nil
	}

	settings, err := s.settings.Load(ctx)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("load settings: %w", err)
	}
	if key := strings.TrimSpace(settings.OpenAIAPIKey); key != "" {
		return domain.Credentials{APIKey: key}, nil
	}

	// may be empty; the normalizer reports the missing key
	return domain.Credentials{APIKey: s.defaultAPIKey}, nil
}

// loadDocument parses posted HTML or fetches the page
func (s *ProductService) loadDocument(ctx context.Context, req *domain.ExtractRequest, pageURL *url.URL) (*extractor.Document, error) {
	if req.HTML != "" {
		doc, err := extractor.NewDocument(req.HTML, pageURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
		}
		return doc, nil
	}

	if s.fetcher == nil {
		return nil, fmt.Errorf("%w: html is required when page fetching is disabled", domain.ErrInvalidRequest)
	}

	page, err := s.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	location := page.URL
	if location == nil {
		location = pageURL
	}
	doc, err := extractor.NewDocument(page.HTML, location)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	return doc, nil
}

// validatePageURL accepts absolute http(s) URLs and rejects browser-internal pages
func validatePageURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: url is required", domain.ErrInvalidRequest)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	case "chrome", "chrome-extension":
		return nil, domain.ErrInvalidPage
	default:
		return nil, fmt.Errorf("%w: unsupported url scheme %q", domain.ErrInvalidRequest, u.Scheme)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("%w: url has no host", domain.ErrInvalidRequest)
	}
	return u, nil
}

func newExtractResult(data *domain.ProductData, cached bool) *domain.ExtractResult {
	return &domain.ExtractResult{
		Data:       *data,
		Cached:     cached,
		URLTooLong: len(data.ProductURL) > MaxRecommendedURLLength,
	}
}

// MaskAPIKey hides all but the prefix and the last four characters of a key
func MaskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:3] + "..." + key[len(key)-4:]
}
