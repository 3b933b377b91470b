package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
)

type conversationRepository struct {
	db *sql.DB
}

func NewConversationRepository(db *sql.DB) *conversationRepository {
	return &conversationRepository{db: db}
}

// Current returns the most recently created conversation of the owner.
func (r *conversationRepository) Current(ctx context.Context, ownerID int64) (*domain.Conversation, error) {
	const query = `
		SELECT id, owner_id, topic, summary, created_at, updated_at
		FROM conversations
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var c domain.Conversation
	err := r.db.QueryRowContext(ctx, query, ownerID).
		Scan(&c.ID, &c.OwnerID, &c.Topic, &c.Summary, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("fetching current conversation: %w", err)
	}

	return &c, nil
}

func (r *conversationRepository) Save(ctx context.Context, c *domain.Conversation) error {
	const query = `
		INSERT INTO conversations (id, owner_id, topic, summary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id)
		DO UPDATE SET
			topic = EXCLUDED.topic,
			summary = EXCLUDED.summary,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query, c.ID, c.OwnerID, c.Topic, c.Summary, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}

	return nil
}

// Delete removes the conversation; its turns go with it through the foreign key.
func (r *conversationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM conversations WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}

	return nil
}
