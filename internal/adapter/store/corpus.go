package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"profilematch/internal/domain"
)

// Corpus is the append-only embedding store: a JSON array of
// {code, image, embedding} records on disk, key-indexed by code in memory.
// The file format is shared with other readers of the store, which key-index
// it the same way and assume no particular ordering.
//
// Records preserves append order, which the similarity engine relies on for
// stable tie-breaking.
type Corpus struct {
	path string

	mu      sync.RWMutex
	records []domain.Record
	byCode  map[string]int
}

// Open loads an existing embedding store. A missing or corrupt file is a
// fatal corpus error, distinct from an empty result set.
func Open(path string) (*Corpus, error) {
	c, err := load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorpusUnavailable, err)
	}
	return c, nil
}

// OpenOrCreate loads the store if present, otherwise starts empty. Used by
// the indexer, where a missing store means a fresh run.
func OpenOrCreate(path string) (*Corpus, error) {
	c, err := load(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Corpus{path: path, byCode: make(map[string]int)}, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrCorpusUnavailable, err)
	}
	return c, nil
}

func load(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []domain.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	byCode := make(map[string]int, len(records))
	for i, r := range records {
		if _, dup := byCode[r.Code]; dup {
			return nil, fmt.Errorf("duplicate code %q in %s", r.Code, filepath.Base(path))
		}
		byCode[r.Code] = i
	}

	return &Corpus{path: path, records: records, byCode: byCode}, nil
}

// Append adds a new record. Malformed vectors and duplicate codes are
// rejected before they reach storage.
func (c *Corpus) Append(rec domain.Record) error {
	if rec.Code == "" {
		return fmt.Errorf("record has empty code")
	}
	if err := rec.Embedding.Validate(0); err != nil {
		return fmt.Errorf("record %s: %w", rec.Code, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byCode[rec.Code]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateCode, rec.Code)
	}

	c.byCode[rec.Code] = len(c.records)
	c.records = append(c.records, rec)
	return nil
}

// Flush writes the store durably. The write is atomic (temp file + rename)
// so a crash mid-flush never leaves a corrupt store behind.
func (c *Corpus) Flush() error {
	c.mu.RLock()
	data, err := json.Marshal(c.records)
	c.mu.RUnlock()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}

// Records returns all records in corpus order.
func (c *Corpus) Records() []domain.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Record, len(c.records))
	copy(out, c.records)
	return out
}

// Get returns the record for a code.
func (c *Corpus) Get(code string) (domain.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byCode[code]
	if !ok {
		return domain.Record{}, false
	}
	return c.records[i], true
}

// Has reports whether a code is already indexed.
func (c *Corpus) Has(code string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.byCode[code]
	return ok
}

// Len returns the number of records.
func (c *Corpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
