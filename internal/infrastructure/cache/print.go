package cache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/smartkanban/backend/internal/domain"
)

const printKey = "printData"

// PrintStore holds the single record waiting to be printed.
// Take consumes it, so a second read finds nothing.
type PrintStore struct {
	backend Backend
}

// NewPrintStore creates a print store on top of backend
func NewPrintStore(backend Backend) *PrintStore {
	return &PrintStore{backend: backend}
}

// Put replaces the pending record
func (s *PrintStore) Put(ctx context.Context, data *domain.PrintData) error {
	if data == nil {
		return errors.New("print: nil data")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.backend.Set(ctx, printKey, raw)
}

// Take returns and removes the pending record, or domain.ErrPrintDataNotFound
func (s *PrintStore) Take(ctx context.Context) (*domain.PrintData, error) {
	raw, err := s.backend.GetDel(ctx, printKey)
	if errors.Is(err, domain.ErrCacheMiss) {
		return nil, domain.ErrPrintDataNotFound
	}
	if err != nil {
		return nil, err
	}

	var data domain.PrintData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
