package port

import (
	"context"
	"time"

	"profilematch/internal/domain"
)

// CorpusStore is the read surface of the embedding store. The indexer is the
// only writer and never runs concurrently with the live application.
type CorpusStore interface {
	// Records returns all catalog records in corpus order.
	Records() []domain.Record

	// Get returns the record for a code.
	Get(code string) (domain.Record, bool)

	// Has reports whether a code is already indexed.
	Has(code string) bool

	// Len returns the number of records.
	Len() int
}

// Capture is one synced user capture row as the remote store returns it.
type Capture struct {
	Code      string
	Embedding domain.Vector
	ImageURL  string
	CreatedAt time.Time
}

// ExemplarSync is the multi-device exemplar store collaborator. Transport
// details (protocol, auth) are opaque to the core.
type ExemplarSync interface {
	// Upload stores a captured image and returns its public URL.
	Upload(ctx context.Context, code string, imageJPEG []byte) (string, error)

	// SaveMetadata appends a capture row for a code.
	SaveMetadata(ctx context.Context, code, imageURL string, embedding domain.Vector) error

	// FetchAll returns every capture row, newest first.
	FetchAll(ctx context.Context) ([]Capture, error)

	// Subscribe invokes onInsert for each new capture until ctx is done.
	Subscribe(ctx context.Context, onInsert func(Capture)) error
}

// ExemplarStore is the local per-code exemplar collection, FIFO-bounded at
// domain.MaxExemplarsPerCode entries per code.
type ExemplarStore interface {
	// Put inserts an exemplar for a code, evicting the oldest past the bound.
	Put(code string, e domain.Exemplar) error

	// Get returns the exemplar set for a code, oldest first.
	Get(code string) (domain.ExemplarSet, error)

	// All returns the exemplar map keyed by code.
	All() (map[string]domain.ExemplarSet, error)

	Close() error
}
