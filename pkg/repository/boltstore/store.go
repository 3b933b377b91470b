package boltstore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	conversationsBucket = []byte("conversations")
	ownersBucket        = []byte("owners")
	turnsBucket         = []byte("turns")
	settingsBucket      = []byte("settings")
)

// Store keeps conversations, turns and settings in a single bbolt file.
//
//	conversations: id -> conversation
//	owners/<owner>: created_at|id -> id, the last key is the current conversation
//	turns/<conversation>: turn id -> turn
//	settings: owner -> settings
type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{conversationsBucket, ownersBucket, turnsBucket, settingsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Conversations() *conversationRepository {
	return &conversationRepository{db: s.db}
}

func (s *Store) Turns() *turnRepository {
	return &turnRepository{db: s.db}
}

func (s *Store) Settings() *settingsRepository {
	return &settingsRepository{db: s.db}
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func put(b *bolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}
