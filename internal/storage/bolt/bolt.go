package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"winkcloud/auth"
)

var (
	bucketCredentials = []byte("credentials")
	keyCurrent        = []byte("current")
)

// BoltStore implements auth.CredentialStore using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// New opens or creates a BoltDB credential store
func New(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCredentials)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Load(ctx context.Context) (auth.Credentials, error) {
	var creds auth.Credentials
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCredentials)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketCredentials)
		}
		data := b.Get(keyCurrent)
		if data == nil {
			return auth.ErrNoCredentials
		}
		return json.Unmarshal(data, &creds)
	})
	if err != nil {
		return auth.Credentials{}, err
	}
	return creds, nil
}

func (s *BoltStore) Save(ctx context.Context, creds auth.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCredentials)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketCredentials)
		}
		return b.Put(keyCurrent, data)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
