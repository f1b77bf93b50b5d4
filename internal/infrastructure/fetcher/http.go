// Package fetcher retrieves product pages for requests that only carry a URL.
package fetcher

import (
	"context"
	"errors"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/smartkanban/backend/internal/domain"
	"github.com/smartkanban/backend/internal/extractor"
	"github.com/smartkanban/backend/internal/infrastructure/hostlimit"
)

const (
	DefaultUserAgent  = "Mozilla/5.0 (compatible; SmartKanban/1.0)"
	DefaultTimeout    = 15 * time.Second
	DefaultPerHostRPS = 1
)

// Config holds configuration shared by the fetchers
type Config struct {
	UserAgent  string
	Timeout    time.Duration
	PerHostRPS float64
}

func (c *Config) applyDefaults() {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PerHostRPS <= 0 {
		c.PerHostRPS = DefaultPerHostRPS
	}
}

// HTTPFetcher downloads static page HTML with colly
type HTTPFetcher struct {
	userAgent string
	timeout   time.Duration
	limiter   *hostlimit.Limiter
	logger    *zap.Logger
}

// NewHTTPFetcher creates a static page fetcher
func NewHTTPFetcher(cfg Config, logger *zap.Logger) *HTTPFetcher {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPFetcher{
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		limiter:   hostlimit.New(cfg.PerHostRPS, 2),
		logger:    logger.Named("http_fetcher"),
	}
}

// Fetch downloads pageURL, following redirects. The returned page URL is the final one.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*domain.Page, error) {
	if err := f.limiter.Wait(ctx, pageURL); err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	c := f.newCollector(ctx)

	var page *domain.Page
	status := 0
	var reqErr error

	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		page = &domain.Page{
			URL:  r.Request.URL,
			HTML: decodeBody(r.Body, r.Headers.Get("Content-Type")),
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		reqErr = err
	})

	start := time.Now()
	err := c.Visit(pageURL)
	if err == nil {
		err = reqErr
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err == nil && page == nil {
		err = errors.New("empty response")
	}
	if err != nil {
		f.logger.Warn("page fetch failed",
			zap.String("url", pageURL),
			zap.Int("status", status),
			zap.Error(err),
		)
		return nil, &FetchError{URL: pageURL, Status: status, Err: err}
	}

	f.logger.Debug("fetched page",
		zap.String("url", page.URL.String()),
		zap.Int("status", status),
		zap.Int("bytes", len(page.HTML)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return page, nil
}

func (f *HTTPFetcher) newCollector(ctx context.Context) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(f.userAgent),
		colly.MaxBodySize(extractor.MaxHTMLSize),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(f.timeout)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("Accept", "text/html,application/xhtml+xml")
	})

	return c
}
