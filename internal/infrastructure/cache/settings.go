package cache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/smartkanban/backend/internal/domain"
)

const settingsKey = "settings"

// SettingsStore keeps the synced user settings
type SettingsStore struct {
	backend Backend
}

// NewSettingsStore creates a settings store on top of backend
func NewSettingsStore(backend Backend) *SettingsStore {
	return &SettingsStore{backend: backend}
}

// Load returns the stored settings, or defaults when nothing was saved yet
func (s *SettingsStore) Load(ctx context.Context) (*domain.Settings, error) {
	raw, err := s.backend.Get(ctx, settingsKey)
	if errors.Is(err, domain.ErrCacheMiss) {
		return &domain.Settings{Language: domain.LanguageEnglish}, nil
	}
	if err != nil {
		return nil, err
	}

	var settings domain.Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, err
	}
	if settings.Language == "" {
		settings.Language = domain.LanguageEnglish
	}
	return &settings, nil
}

// Save replaces the stored settings
func (s *SettingsStore) Save(ctx context.Context, settings *domain.Settings) error {
	if settings == nil {
		return errors.New("settings: nil value")
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return s.backend.Set(ctx, settingsKey, raw)
}
