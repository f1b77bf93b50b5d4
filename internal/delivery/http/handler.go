package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smartkanban/backend/internal/domain"
)

// Error kinds reported in ErrorResponse.Kind
const (
	KindConfiguration  = "configuration"
	KindUpstream       = "upstream"
	KindSchema         = "schema"
	KindInvalidRequest = "invalid_request"
	KindInvalidPage    = "invalid_page"
	KindFetchFailed    = "fetch_failed"
	KindNotFound       = "not_found"
	KindRateLimited    = "rate_limited"
	KindInternal       = "internal"
)

// ProductUsecase is the application logic behind the product endpoints
type ProductUsecase interface {
	Extract(ctx context.Context, req *domain.ExtractRequest) (*domain.ExtractResult, error)
	NormalizeRaw(ctx context.Context, raw domain.RawRecord, apiKey string) (*domain.NormalizedRecord, error)
	InvalidateCache(ctx context.Context, pageURL string) error
	SavePrintData(ctx context.Context, data *domain.PrintData) error
	TakePrintData(ctx context.Context) (*domain.PrintData, error)
	GetSettings(ctx context.Context) (*domain.Settings, error)
	SaveSettings(ctx context.Context, update *domain.Settings) (*domain.Settings, error)
	VerifyAPIKey(ctx context.Context, apiKey string) error
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
}

// NormalizeRequest carries a record extracted outside the server
type NormalizeRequest struct {
	Raw    domain.RawRecord `json:"raw"`
	APIKey string           `json:"api_key,omitempty"`
}

// VerifyKeyRequest carries the key to check; empty means the resolved key
type VerifyKeyRequest struct {
	APIKey string `json:"api_key,omitempty"`
}

// VerifyKeyResponse reports whether the normalization API accepted the key
type VerifyKeyResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	products ProductUsecase
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(products ProductUsecase, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		products: products,
		logger:   logger.Named("http"),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "smartkanban-backend",
		"version": "1.0.0",
	})
}

// ExtractProduct runs the extraction pipeline for the posted page
func (h *Handler) ExtractProduct(c *gin.Context) {
	var req domain.ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, invalidBody(err))
		return
	}
	if req.APIKey == "" {
		req.APIKey = bearerToken(c)
	}

	result, err := h.products.Extract(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// NormalizeProduct normalizes a record extracted by the extension itself
func (h *Handler) NormalizeProduct(c *gin.Context) {
	var req NormalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, invalidBody(err))
		return
	}
	if req.APIKey == "" {
		req.APIKey = bearerToken(c)
	}

	record, err := h.products.NormalizeRaw(c.Request.Context(), req.Raw, req.APIKey)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// InvalidateCache drops the cached result for ?url=
func (h *Handler) InvalidateCache(c *gin.Context) {
	if err := h.products.InvalidateCache(c.Request.Context(), c.Query("url")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSettings returns the stored settings with the key masked
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.products.GetSettings(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// SaveSettings updates the stored settings
func (h *Handler) SaveSettings(c *gin.Context) {
	var req domain.Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, invalidBody(err))
		return
	}

	settings, err := h.products.SaveSettings(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// VerifyAPIKey checks a key against the normalization API. A rejected key is
// a normal answer, not a failed request.
func (h *Handler) VerifyAPIKey(c *gin.Context) {
	var req VerifyKeyRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.respondError(c, invalidBody(err))
			return
		}
	}
	if req.APIKey == "" {
		req.APIKey = bearerToken(c)
	}

	err := h.products.VerifyAPIKey(c.Request.Context(), req.APIKey)
	var upstream *domain.UpstreamError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, VerifyKeyResponse{Valid: true})
	case errors.As(err, &upstream) && upstream.StatusCode != 0:
		c.JSON(http.StatusOK, VerifyKeyResponse{Valid: false, Error: upstream.Reason})
	default:
		h.respondError(c, err)
	}
}

// SavePrintData stores the card the print page will render
func (h *Handler) SavePrintData(c *gin.Context) {
	var req domain.PrintData
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, invalidBody(err))
		return
	}

	if err := h.products.SavePrintData(c.Request.Context(), &req); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TakePrintData hands the pending card to the print page exactly once
func (h *Handler) TakePrintData(c *gin.Context) {
	data, err := h.products.TakePrintData(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// respondError maps domain errors onto status codes and a stable kind
func (h *Handler) respondError(c *gin.Context, err error) {
	writeError(c, h.logger, err)
}

// writeError aborts the request with the status and kind err maps to.
// Internal failures are logged and their message is masked.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status, kind := classifyError(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed",
				zap.String("path", c.FullPath()),
				zap.String("request_id", requestID(c)),
				zap.Error(err),
			)
		}
		message = "internal server error"
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     message,
		Kind:      kind,
		RequestID: requestID(c),
	})
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusPreconditionFailed, KindConfiguration
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway, KindUpstream
	case errors.Is(err, domain.ErrSchema):
		return http.StatusBadGateway, KindSchema
	case errors.Is(err, domain.ErrFetchFailed):
		return http.StatusBadGateway, KindFetchFailed
	case errors.Is(err, domain.ErrInvalidPage):
		return http.StatusBadRequest, KindInvalidPage
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, KindInvalidRequest
	case errors.Is(err, domain.ErrPrintDataNotFound):
		return http.StatusNotFound, KindNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, KindRateLimited
	default:
		return http.StatusInternalServerError, KindInternal
	}
}

// bearerToken returns the token of an "Authorization: Bearer" header
func bearerToken(c *gin.Context) string {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func invalidBody(err error) error {
	return &bindError{err: err}
}

// bindError wraps request decoding failures as invalid requests
type bindError struct {
	err error
}

func (e *bindError) Error() string {
	return "invalid request body: " + e.err.Error()
}

func (e *bindError) Unwrap() []error {
	return []error{domain.ErrInvalidRequest, e.err}
}
