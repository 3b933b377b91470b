package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
)

type turnRepository struct {
	db *sql.DB
}

func NewTurnRepository(db *sql.DB) *turnRepository {
	return &turnRepository{db: db}
}

func (r *turnRepository) Add(ctx context.Context, t *domain.Turn) error {
	const query = `
		INSERT INTO turns (conversation_id, owner_id, display_name, request, response, prompt_tokens, completion_tokens, kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		t.ConversationID, t.OwnerID, t.DisplayName, t.Request, t.Response,
		t.PromptTokens, t.CompletionTokens, string(t.Kind), t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("inserting turn: %w", err)
	}

	return nil
}

// UpdateResponse overwrites the answer and usage of an existing turn in place.
func (r *turnRepository) UpdateResponse(ctx context.Context, t domain.Turn) error {
	const query = `
		UPDATE turns
		SET response = $2, prompt_tokens = $3, completion_tokens = $4
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query, t.ID, t.Response, t.PromptTokens, t.CompletionTokens)
	if err != nil {
		return fmt.Errorf("updating turn: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// List returns the turns of a conversation in chronological order.
func (r *turnRepository) List(ctx context.Context, conversationID uuid.UUID) ([]domain.Turn, error) {
	const query = `
		SELECT id, conversation_id, owner_id, display_name, request, response, prompt_tokens, completion_tokens, kind, created_at
		FROM turns
		WHERE conversation_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var turns []domain.Turn
	for rows.Next() {
		var (
			t    domain.Turn
			kind string
		)
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.OwnerID, &t.DisplayName, &t.Request, &t.Response,
			&t.PromptTokens, &t.CompletionTokens, &kind, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		t.Kind = domain.ContentKind(kind)
		turns = append(turns, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turns: %w", err)
	}

	return turns, nil
}
