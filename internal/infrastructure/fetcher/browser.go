package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/smartkanban/backend/internal/domain"
	"github.com/smartkanban/backend/internal/extractor"
	"github.com/smartkanban/backend/internal/infrastructure/hostlimit"
)

// DefaultSettleTime bounds how long a rendered page may keep changing before it is serialized
const DefaultSettleTime = 3 * time.Second

// annotateImagesJS records what the browser knows about each image as
// attributes, so the serialized HTML carries natural sizes and the loaded source.
var annotateImagesJS = fmt.Sprintf(`() => {
	const imgs = Array.from(document.images);
	for (const img of imgs) {
		img.setAttribute(%q, String(img.naturalWidth || 0));
		img.setAttribute(%q, String(img.naturalHeight || 0));
		if (img.currentSrc) {
			img.setAttribute(%q, img.currentSrc);
		}
	}
	return imgs.length;
}`, extractor.AttrNaturalWidth, extractor.AttrNaturalHeight, extractor.AttrCurrentSrc)

// BrowserFetcher renders pages in headless Chrome via rod
type BrowserFetcher struct {
	browser    *rod.Browser
	userAgent  string
	timeout    time.Duration
	settleTime time.Duration
	limiter    *hostlimit.Limiter
	logger     *zap.Logger
}

// NewBrowserFetcher launches a headless browser and connects to it
func NewBrowserFetcher(cfg Config, logger *zap.Logger) (*BrowserFetcher, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	u, err := launcher.New().
		Headless(true).
		Set("no-sandbox").
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	return &BrowserFetcher{
		browser:    browser,
		userAgent:  cfg.UserAgent,
		timeout:    cfg.Timeout,
		settleTime: DefaultSettleTime,
		limiter:    hostlimit.New(cfg.PerHostRPS, 2),
		logger:     logger.Named("browser_fetcher"),
	}, nil
}

// Fetch renders pageURL and returns its DOM with image elements annotated
func (f *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (*domain.Page, error) {
	if err := f.limiter.Wait(ctx, pageURL); err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	start := time.Now()

	page, err := f.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	defer page.Close()

	page = page.Timeout(f.timeout)

	if f.userAgent != "" {
		_ = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: f.userAgent})
	}

	if err := page.Navigate(pageURL); err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	if err := page.WaitLoad(); err != nil {
		f.logger.Debug("page load event not seen", zap.String("url", pageURL), zap.Error(err))
	}
	if err := page.WaitStable(f.settleTime); err != nil {
		// lazy galleries keep mutating; serialize what we have
		f.logger.Debug("page did not settle", zap.String("url", pageURL), zap.Error(err))
	}

	if _, err := page.Eval(annotateImagesJS); err != nil {
		f.logger.Warn("image annotation failed", zap.String("url", pageURL), zap.Error(err))
	}

	finalURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	if info, err := page.Info(); err == nil && info.URL != "" {
		if u, err := url.Parse(info.URL); err == nil {
			finalURL = u
		}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	f.logger.Debug("rendered page",
		zap.String("url", finalURL.String()),
		zap.Int("bytes", len(html)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &domain.Page{URL: finalURL, HTML: html}, nil
}

// Close shuts the browser down
func (f *BrowserFetcher) Close() error {
	if f.browser != nil {
		return f.browser.Close()
	}
	return nil
}
