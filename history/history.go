// Package history persists per-root scan summaries in a bbolt database
// so consecutive scans can report growth without keeping old trees
// around.
package history

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketScans = []byte("scans")

type Entry struct {
	Root      string
	Status    string
	TotalSize uint64
	Files     int64
	Dirs      int64
	Errors    int64
	ElapsedMS int64
	When      time.Time
}

type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketScans)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put records the latest scan for its root, replacing any prior entry.
func (s *Store) Put(e Entry) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketScans).Put([]byte(e.Root), buf.Bytes())
	})
}

// Get returns the recorded scan for root, if any.
func (s *Store) Get(root string) (Entry, bool, error) {
	var e Entry
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketScans).Get([]byte(root))
		if data == nil {
			return nil
		}
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&e); err != nil {
			return err
		}
		found = true
		return nil
	})
	return e, found, err
}

// List returns every recorded scan, in key order.
func (s *Store) List() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketScans).ForEach(func(_, data []byte) error {
			var e Entry
			if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&e); err != nil {
				return err
			}
			entries = append(entries, e)
			return nil
		})
	})
	return entries, err
}

// Delete removes the entry for root, if present.
func (s *Store) Delete(root string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketScans).Delete([]byte(root))
	})
}
