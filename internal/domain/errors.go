package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCacheMiss is returned when data is not found in cache or has expired
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInvalidPage is returned for browser-internal pages that cannot be scraped
	ErrInvalidPage = errors.New("page cannot be scraped")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrPrintDataNotFound is returned when no print data is waiting to be consumed
	ErrPrintDataNotFound = errors.New("no print data available")

	// ErrFetchFailed is returned when a page could not be fetched
	ErrFetchFailed = errors.New("page fetch failed")

	// ErrConfiguration matches every ConfigurationError
	ErrConfiguration = errors.New("configuration error")

	// ErrUpstream matches every UpstreamError
	ErrUpstream = errors.New("upstream error")

	// ErrSchema matches every SchemaError
	ErrSchema = errors.New("schema error")
)

// ConfigurationError reports a missing or invalid credential. The message is
// meant to be shown to the user verbatim.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// UpstreamError reports a transport failure or non-2xx response from the
// normalization service.
type UpstreamError struct {
	StatusCode int // 0 for transport failures
	Reason     string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("normalization API request failed: %s", e.Reason)
	}
	return fmt.Sprintf("normalization API error: %d - %s", e.StatusCode, e.Reason)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// SchemaError reports a response body that does not have the expected shape
type SchemaError struct {
	Detail string
	Err    error
}

func (e *SchemaError) Error() string {
	return "invalid response from normalization API: " + e.Detail
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}
