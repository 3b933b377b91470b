package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
)

type settingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *settingsRepository {
	return &settingsRepository{db: db}
}

func (s *settingsRepository) Save(ctx context.Context, settings domain.Settings) error {
	const query = `
		INSERT INTO settings (owner_id, model, temperature, max_tokens, memory_enabled, memory_size)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (owner_id)
		DO UPDATE SET
			model = EXCLUDED.model,
			temperature = EXCLUDED.temperature,
			max_tokens = EXCLUDED.max_tokens,
			memory_enabled = EXCLUDED.memory_enabled,
			memory_size = EXCLUDED.memory_size
	`

	_, err := s.db.ExecContext(ctx, query, settings.OwnerID, settings.Model, settings.Temperature,
		settings.MaxTokens, settings.MemoryEnabled, settings.MemorySize)
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}

	return nil
}

func (s *settingsRepository) Get(ctx context.Context, ownerID int64) (*domain.Settings, error) {
	const query = `
		SELECT owner_id, model, temperature, max_tokens, memory_enabled, memory_size
		FROM settings
		WHERE owner_id = $1
	`

	var settings domain.Settings
	err := s.db.QueryRowContext(ctx, query, ownerID).
		Scan(&settings.OwnerID, &settings.Model, &settings.Temperature, &settings.MaxTokens,
			&settings.MemoryEnabled, &settings.MemorySize)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("fetching settings by owner: %w", err)
	}

	return &settings, nil
}
