package fallback

import (
	"fmt"

	"go.etcd.io/bbolt"
)

// entriesBucket is the BoltDB bucket holding stored values.
var entriesBucket = []byte("entries")

// BoltStore is a durable Store backed by BoltDB. Unlike FileStore it
// does not rewrite the whole file per write, and concurrent readers
// never block writers, so it suits long-lived host-side processes.
type BoltStore struct {
	db   *bbolt.DB
	path string
}

// NewBoltStore opens or creates the database file at path and ensures
// the entries bucket exists.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(entriesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create entries bucket: %w", err)
	}

	return &BoltStore{db: db, path: path}, nil
}

// Get returns the stored value and whether the key exists.
func (s *BoltStore) Get(key string) (string, bool, error) {
	var value string
	var found bool

	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(entriesBucket).Get([]byte(key))
		if v != nil {
			value = string(v)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return value, found, nil
}

// Set stores value under key.
func (s *BoltStore) Set(key, value string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(entriesBucket).Put([]byte(key), []byte(value))
	})
}

// Remove deletes key.
func (s *BoltStore) Remove(key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(entriesBucket).Delete([]byte(key))
	})
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *BoltStore) Path() string {
	return s.path
}

// Compile-time interface satisfaction check.
var _ Store = (*BoltStore)(nil)
