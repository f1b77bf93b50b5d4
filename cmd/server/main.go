package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/smartkanban/backend/config"
	httpDelivery "github.com/smartkanban/backend/internal/delivery/http"
	"github.com/smartkanban/backend/internal/domain"
	"github.com/smartkanban/backend/internal/extractor"
	"github.com/smartkanban/backend/internal/infrastructure/cache"
	"github.com/smartkanban/backend/internal/infrastructure/fetcher"
	"github.com/smartkanban/backend/internal/infrastructure/imageprobe"
	"github.com/smartkanban/backend/internal/infrastructure/openai"
	"github.com/smartkanban/backend/internal/logging"
	"github.com/smartkanban/backend/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.Development = cfg.Log.Development || cfg.Server.Environment == "development"
	logger, err := logging.New(logCfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting Smart Kanban backend",
		zap.String("version", "1.0.0"),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("cache", cfg.Cache.Type),
		zap.Duration("cache_ttl", cfg.Cache.TTL),
		zap.String("fetcher", cfg.Fetcher.Type),
	)

	// Initialize infrastructure dependencies
	backend, closeBackend, err := newCacheBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend.Close()

	pageFetcher, closeFetcher, err := newPageFetcher(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFetcher.Close()

	sizer := extractor.ImageSizer(extractor.AttributeSizer{})
	if cfg.Images.Probe {
		prober := imageprobe.New(imageprobe.Config{
			Timeout:   cfg.Images.ProbeTimeout,
			Retries:   cfg.Images.ProbeRetries,
			UserAgent: cfg.Fetcher.UserAgent,
		}, logger)
		sizer = extractor.NewProbingSizer(prober)
		logger.Info("image size probing enabled",
			zap.Duration("timeout", cfg.Images.ProbeTimeout),
			zap.Int("retries", cfg.Images.ProbeRetries))
	}

	normalizer := openai.NewClient(openai.Config{
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		Timeout:     cfg.OpenAI.Timeout,
	}, logger)

	if cfg.OpenAI.APIKey == "" {
		logger.Info("no server-side OpenAI key configured; requests must supply one")
	} else {
		logger.Info("server-side OpenAI key configured", zap.String("key", usecase.MaskAPIKey(cfg.OpenAI.APIKey)))
	}

	// Initialize usecase layer
	productService := usecase.NewProductService(
		extractor.New(extractor.Config{MinImageSize: cfg.Images.MinSize, Sizer: sizer}, logger),
		normalizer,
		cache.NewProductCache(backend, logger, cache.WithTTL(cfg.Cache.TTL)),
		cache.NewSettingsStore(backend),
		cache.NewPrintStore(backend),
		usecase.ProductServiceConfig{
			DefaultAPIKey: cfg.OpenAI.APIKey,
			Fetcher:       pageFetcher,
		},
		logger,
	)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(productService, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newCacheBackend(ctx context.Context, cfg *config.Config) (cache.Backend, io.Closer, error) {
	if cfg.Cache.Type == config.CacheRedis {
		redisCache, err := cache.NewRedisCache(ctx, cfg.Cache.RedisURL, "smartkanban:")
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return redisCache, redisCache, nil
	}
	return cache.NewMemoryCache(), nopCloser{}, nil
}

func newPageFetcher(cfg *config.Config, logger *zap.Logger) (domain.PageFetcher, io.Closer, error) {
	fetchCfg := fetcher.Config{
		UserAgent:  cfg.Fetcher.UserAgent,
		Timeout:    cfg.Fetcher.Timeout,
		PerHostRPS: cfg.Fetcher.PerHostRPS,
	}

	switch cfg.Fetcher.Type {
	case config.FetcherHTTP:
		return fetcher.NewHTTPFetcher(fetchCfg, logger), nopCloser{}, nil
	case config.FetcherBrowser:
		browser, err := fetcher.NewBrowserFetcher(fetchCfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return browser, browser, nil
	default:
		return nil, nopCloser{}, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
