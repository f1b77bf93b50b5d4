package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smartkanban/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger *zap.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger.Named("access")))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		products := v1.Group("/products")
		{
			products.POST("/extract", handler.ExtractProduct)
			products.POST("/normalize", handler.NormalizeProduct)
			products.DELETE("/cache", handler.InvalidateCache)
		}

		settings := v1.Group("/settings")
		{
			settings.GET("", handler.GetSettings)
			settings.PUT("", handler.SaveSettings)
			settings.POST("/verify", handler.VerifyAPIKey)
		}

		prints := v1.Group("/print")
		{
			prints.POST("", handler.SavePrintData)
			prints.GET("", handler.TakePrintData)
		}
	}

	return router
}
