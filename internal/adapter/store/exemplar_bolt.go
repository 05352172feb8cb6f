package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"profilematch/internal/domain"
)

var bucketExemplars = []byte("exemplars")

// BoltExemplarStore persists per-code exemplar sets locally. Each key is a
// catalog code; the value is the JSON-encoded set, oldest first, bounded at
// domain.MaxExemplarsPerCode by Put.
type BoltExemplarStore struct {
	db *bbolt.DB
}

// NewBoltExemplarStore opens (or creates) the local exemplar database.
func NewBoltExemplarStore(path string) (*BoltExemplarStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open exemplar store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketExemplars)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create exemplars bucket: %w", err)
	}

	return &BoltExemplarStore{db: db}, nil
}

// Put inserts an exemplar for a code as a read-modify-write, evicting the
// oldest entry past the bound.
func (s *BoltExemplarStore) Put(code string, e domain.Exemplar) error {
	if err := e.Embedding.Validate(0); err != nil {
		return fmt.Errorf("exemplar for %s: %w", code, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketExemplars)

		var set domain.ExemplarSet
		if data := b.Get([]byte(code)); data != nil {
			if err := json.Unmarshal(data, &set); err != nil {
				// Corrupted entry: replace rather than fail the commit.
				set = nil
			}
		}

		set = set.Add(e)

		data, err := json.Marshal(set)
		if err != nil {
			return err
		}
		return b.Put([]byte(code), data)
	})
}

// Get returns the exemplar set for a code, oldest first.
func (s *BoltExemplarStore) Get(code string) (domain.ExemplarSet, error) {
	var set domain.ExemplarSet
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketExemplars).Get([]byte(code))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &set)
	})
	return set, err
}

// All returns the exemplar map keyed by code.
func (s *BoltExemplarStore) All() (map[string]domain.ExemplarSet, error) {
	out := make(map[string]domain.ExemplarSet)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketExemplars).ForEach(func(k, v []byte) error {
			var set domain.ExemplarSet
			if err := json.Unmarshal(v, &set); err != nil {
				return nil // Skip corrupted entries
			}
			out[string(k)] = set
			return nil
		})
	})
	return out, err
}

func (s *BoltExemplarStore) Close() error {
	return s.db.Close()
}
