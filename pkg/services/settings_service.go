package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
)

type SettingsRepository interface {
	Get(ctx context.Context, ownerID int64) (*domain.Settings, error)
	Save(ctx context.Context, settings domain.Settings) error
}

type settingsService struct {
	repo         SettingsRepository
	defaultModel string
	memorySize   int
}

func NewSettingsService(repo SettingsRepository, defaultModel string, memorySize int) *settingsService {
	return &settingsService{
		repo:         repo,
		defaultModel: defaultModel,
		memorySize:   memorySize,
	}
}

// Get returns the stored settings of the owner or the defaults when the
// owner never changed anything.
func (s *settingsService) Get(ctx context.Context, ownerID int64) (domain.Settings, error) {
	settings, err := s.repo.Get(ctx, ownerID)
	if errors.Is(err, domain.ErrNotFound) {
		return s.Defaults(ownerID), nil
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("getting settings: %w", err)
	}

	return *settings, nil
}

func (s *settingsService) Save(ctx context.Context, settings domain.Settings) error {
	return s.repo.Save(ctx, settings)
}

func (s *settingsService) Defaults(ownerID int64) domain.Settings {
	settings := domain.DefaultSettings(ownerID, s.memorySize)
	if s.defaultModel != "" {
		settings.Model = s.defaultModel
	}
	return settings
}
