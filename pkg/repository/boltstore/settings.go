package boltstore

import (
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
)

type settingsRepository struct {
	db *bolt.DB
}

func (r *settingsRepository) Save(_ context.Context, settings domain.Settings) error {
	err := r.db.Update(func(tx *bolt.Tx) error {
		return put(tx.Bucket(settingsBucket), ownerKey(settings.OwnerID), settings)
	})
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}

	return nil
}

func (r *settingsRepository) Get(_ context.Context, ownerID int64) (*domain.Settings, error) {
	var settings *domain.Settings
	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(settingsBucket).Get(ownerKey(ownerID))
		if v == nil {
			return domain.ErrNotFound
		}

		settings = &domain.Settings{}
		return json.Unmarshal(v, settings)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching settings by owner: %w", err)
	}

	return settings, nil
}
