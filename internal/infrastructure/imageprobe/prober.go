// Package imageprobe reads the pixel dimensions of remote images by
// downloading just enough of the file to decode its header.
package imageprobe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"github.com/smartkanban/backend/internal/infrastructure/hostlimit"
)

// ErrNotImage is returned when the response body cannot be decoded as a supported image
var ErrNotImage = errors.New("not a decodable image")

const (
	DefaultTimeout    = 5 * time.Second
	DefaultMaxBytes   = 256 * 1024
	DefaultPerHostRPS = 5
)

// Config holds configuration for the prober
type Config struct {
	Timeout    time.Duration
	UserAgent  string
	MaxBytes   int64
	PerHostRPS float64
	Retries    int
}

// Prober fetches image headers over HTTP
type Prober struct {
	client   *resty.Client
	limiter  *hostlimit.Limiter
	maxBytes int64
	logger   *zap.Logger
}

// New creates a prober
func New(cfg Config, logger *zap.Logger) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.PerHostRPS <= 0 {
		cfg.PerHostRPS = DefaultPerHostRPS
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	// Connection errors and 5xx responses are retried below resty; once
	// retries run out the last response is handed back so its status is reported.
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = time.Second
	retryClient.Logger = nil
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetTransport(&retryablehttp.RoundTripper{Client: retryClient})
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &Prober{
		client:   client,
		limiter:  hostlimit.New(cfg.PerHostRPS, 2),
		maxBytes: cfg.MaxBytes,
		logger:   logger.Named("imageprobe"),
	}
}

// Dimensions returns the width and height of the image at imageURL
func (p *Prober) Dimensions(ctx context.Context, imageURL string) (int, int, error) {
	if err := p.limiter.Wait(ctx, imageURL); err != nil {
		return 0, 0, err
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Range", fmt.Sprintf("bytes=0-%d", p.maxBytes-1)).
		SetDoNotParseResponse(true).
		Get(imageURL)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch image: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if status := resp.StatusCode(); status != http.StatusOK && status != http.StatusPartialContent {
		return 0, 0, fmt.Errorf("fetch image: status %d", status)
	}

	head, err := io.ReadAll(io.LimitReader(body, p.maxBytes))
	if err != nil {
		return 0, 0, fmt.Errorf("read image: %w", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(head))
	if err != nil {
		p.logger.Debug("image header not decodable", zap.String("url", imageURL), zap.Error(err))
		return 0, 0, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	p.logger.Debug("probed image",
		zap.String("url", imageURL),
		zap.String("format", format),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
	)
	return cfg.Width, cfg.Height, nil
}
