package fetcher

import (
	"fmt"

	"github.com/smartkanban/backend/internal/domain"
)

// FetchError describes a failed page fetch. It matches domain.ErrFetchFailed.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s (status %d)", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s (status %d): %v", e.URL, e.Status, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	return target == domain.ErrFetchFailed
}
