// Package openai implements the normalization client on top of the
// chat-completions API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/smartkanban/backend/internal/domain"
)

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.1
	DefaultTimeout     = 30 * time.Second
)

// MissingKeyMessage is shown to the user when no API key is configured
const MissingKeyMessage = "OpenAI API key not configured. Please add it in the settings."

// Config holds configuration for the normalization client
type Config struct {
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client normalizes raw product records with a chat-completion model.
// The API key is supplied per call; the client itself holds none.
type Client struct {
	api         sdk.Client
	model       string
	temperature float64
	logger      *zap.Logger
}

// NewClient creates a normalization client. Retries are disabled: a failed
// normalization is retried by the user, not by the client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		api:         sdk.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger.Named("normalizer"),
	}
}

// Normalize sends one chat-completion request for raw and merges the reply
// with fallbacks from raw. Errors are *domain.ConfigurationError,
// *domain.UpstreamError or *domain.SchemaError.
func (c *Client) Normalize(ctx context.Context, raw domain.RawRecord, creds domain.Credentials) (*domain.NormalizedRecord, error) {
	apiKey := strings.TrimSpace(creds.APIKey)
	if apiKey == "" {
		return nil, &domain.ConfigurationError{Message: MissingKeyMessage}
	}

	params := sdk.ChatCompletionNewParams{
		Model: c.model,
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.SystemMessage(systemPrompt),
			sdk.UserMessage(buildUserPrompt(raw)),
		},
		Temperature: sdk.Float(c.temperature),
		ResponseFormat: sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, params, option.WithAPIKey(apiKey))
	if err != nil {
		c.logger.Warn("normalization request failed",
			zap.String("domain", raw.Domain),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, upstreamError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, &domain.SchemaError{Detail: "no content in response"}
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &fields); err != nil {
		return nil, &domain.SchemaError{Detail: err.Error(), Err: err}
	}
	if fields == nil {
		return nil, &domain.SchemaError{Detail: "response is not a JSON object"}
	}

	c.logger.Debug("normalized product data",
		zap.String("domain", raw.Domain),
		zap.String("model", c.model),
		zap.Duration("elapsed", time.Since(start)),
	)

	normalized := MergeWithFallbacks(fields, raw)
	return &normalized, nil
}

// VerifyKey checks a key by listing the models it can access
func (c *Client) VerifyKey(ctx context.Context, creds domain.Credentials) error {
	apiKey := strings.TrimSpace(creds.APIKey)
	if apiKey == "" {
		return &domain.ConfigurationError{Message: MissingKeyMessage}
	}

	if _, err := c.api.Models.List(ctx, option.WithAPIKey(apiKey)); err != nil {
		return upstreamError(err)
	}
	return nil
}

// upstreamError maps SDK and transport failures to *domain.UpstreamError
func upstreamError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		reason := apiErr.Message
		if reason == "" {
			reason = http.StatusText(apiErr.StatusCode)
		}
		return &domain.UpstreamError{StatusCode: apiErr.StatusCode, Reason: reason, Err: err}
	}
	return &domain.UpstreamError{Reason: err.Error(), Err: err}
}
