package boltstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
)

type conversationRepository struct {
	db *bolt.DB
}

func ownerKey(ownerID int64) []byte {
	return itob(uint64(ownerID))
}

func indexKey(c *domain.Conversation) []byte {
	return append(itob(uint64(c.CreatedAt.UnixNano())), c.ID[:]...)
}

func (r *conversationRepository) Current(_ context.Context, ownerID int64) (*domain.Conversation, error) {
	var c *domain.Conversation
	err := r.db.View(func(tx *bolt.Tx) error {
		owner := tx.Bucket(ownersBucket).Bucket(ownerKey(ownerID))
		if owner == nil {
			return domain.ErrNotFound
		}

		k, _ := owner.Cursor().Last()
		if k == nil {
			return domain.ErrNotFound
		}

		v := tx.Bucket(conversationsBucket).Get(k[8:])
		if v == nil {
			return domain.ErrNotFound
		}

		c = &domain.Conversation{}
		return json.Unmarshal(v, c)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching current conversation: %w", err)
	}

	return c, nil
}

func (r *conversationRepository) Save(_ context.Context, c *domain.Conversation) error {
	err := r.db.Update(func(tx *bolt.Tx) error {
		owner, err := tx.Bucket(ownersBucket).CreateBucketIfNotExists(ownerKey(c.OwnerID))
		if err != nil {
			return err
		}

		conversations := tx.Bucket(conversationsBucket)
		if prev := conversations.Get(c.ID[:]); prev != nil {
			var stored domain.Conversation
			if err := json.Unmarshal(prev, &stored); err != nil {
				return err
			}
			// identity and creation time never change after the first save
			c.OwnerID, c.CreatedAt = stored.OwnerID, stored.CreatedAt
		} else if err := owner.Put(indexKey(c), c.ID[:]); err != nil {
			return err
		}

		return put(conversations, c.ID[:], c)
	})
	if err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}

	return nil
}

// Delete removes the conversation together with its turns.
func (r *conversationRepository) Delete(_ context.Context, id uuid.UUID) error {
	err := r.db.Update(func(tx *bolt.Tx) error {
		conversations := tx.Bucket(conversationsBucket)

		v := conversations.Get(id[:])
		if v == nil {
			return nil
		}

		var c domain.Conversation
		if err := json.Unmarshal(v, &c); err != nil {
			return err
		}

		if owner := tx.Bucket(ownersBucket).Bucket(ownerKey(c.OwnerID)); owner != nil {
			if err := owner.Delete(indexKey(&c)); err != nil {
				return err
			}
		}

		turns := tx.Bucket(turnsBucket)
		if turns.Bucket(id[:]) != nil {
			if err := turns.DeleteBucket(id[:]); err != nil {
				return err
			}
		}

		return conversations.Delete(id[:])
	})
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}

	return nil
}
