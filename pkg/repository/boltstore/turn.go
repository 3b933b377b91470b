package boltstore

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
)

type turnRepository struct {
	db *bolt.DB
}

func (r *turnRepository) Add(_ context.Context, t *domain.Turn) error {
	err := r.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(conversationsBucket).Get(t.ConversationID[:]) == nil {
			return fmt.Errorf("conversation %s: %w", t.ConversationID, domain.ErrNotFound)
		}

		root := tx.Bucket(turnsBucket)
		b, err := root.CreateBucketIfNotExists(t.ConversationID[:])
		if err != nil {
			return err
		}

		// ids come from the root bucket so they are unique across conversations
		id, err := root.NextSequence()
		if err != nil {
			return err
		}
		t.ID = int64(id)

		return put(b, itob(id), t)
	})
	if err != nil {
		return fmt.Errorf("inserting turn: %w", err)
	}

	return nil
}

func (r *turnRepository) UpdateResponse(_ context.Context, t domain.Turn) error {
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(turnsBucket).Bucket(t.ConversationID[:])
		if b == nil {
			return domain.ErrNotFound
		}

		key := itob(uint64(t.ID))
		v := b.Get(key)
		if v == nil {
			return domain.ErrNotFound
		}

		var stored domain.Turn
		if err := json.Unmarshal(v, &stored); err != nil {
			return err
		}
		stored.Response = t.Response
		stored.PromptTokens = t.PromptTokens
		stored.CompletionTokens = t.CompletionTokens

		return put(b, key, stored)
	})
	if err != nil {
		return fmt.Errorf("updating turn: %w", err)
	}

	return nil
}

func (r *turnRepository) List(_ context.Context, conversationID uuid.UUID) ([]domain.Turn, error) {
	var turns []domain.Turn
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(turnsBucket).Bucket(conversationID[:])
		if b == nil {
			return nil
		}

		return b.ForEach(func(_, v []byte) error {
			var t domain.Turn
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}
			turns = append(turns, t)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}

	slices.SortStableFunc(turns, func(a, b domain.Turn) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return turns, nil
}
