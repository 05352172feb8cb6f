package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrExtractorUnavailable means the feature extractor failed to load or
	// is unreachable. Fatal for any matching operation.
	ErrExtractorUnavailable = errors.New("feature extractor unavailable")

	// ErrCorpusUnavailable means the embedding store is missing or corrupt.
	// Distinct from a query that ran and found no good matches.
	ErrCorpusUnavailable = errors.New("embedding store unavailable")

	// ErrUnknownCode means a code does not exist in the catalog corpus.
	ErrUnknownCode = errors.New("unknown catalog code")

	// ErrDuplicateCode means a record for the code is already in the store.
	ErrDuplicateCode = errors.New("code already indexed")
)

// Vector is an embedding produced by the feature extractor.
type Vector []float32

// Validate rejects malformed vectors before they reach storage or ranking.
// A valid vector is non-empty, matches the expected dimension (when dim > 0)
// and contains no NaN or Inf components.
func (v Vector) Validate(dim int) error {
	if len(v) == 0 {
		return errors.New("empty embedding vector")
	}
	if dim > 0 && len(v) != dim {
		return fmt.Errorf("embedding dimension mismatch: expected %d, got %d", dim, len(v))
	}
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("embedding component %d is not finite", i)
		}
	}
	return nil
}

// Record is one catalog entry in the embedding store. Created once by the
// indexer, immutable thereafter.
type Record struct {
	Code      string `json:"code"`
	Image     string `json:"image"`
	Embedding Vector `json:"embedding"`
}

// Exemplar is a user-contributed capture for a catalog code.
type Exemplar struct {
	Embedding Vector    `json:"embedding"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

// MaxExemplarsPerCode bounds each code's exemplar set. Inserting beyond the
// bound evicts the oldest entry.
const MaxExemplarsPerCode = 2

// ExemplarSet is the ordered exemplar collection for one code, oldest first.
type ExemplarSet []Exemplar

// Add appends an exemplar, evicting the oldest entry when the set is full.
func (s ExemplarSet) Add(e Exemplar) ExemplarSet {
	out := append(s, e)
	if len(out) > MaxExemplarsPerCode {
		out = out[len(out)-MaxExemplarsPerCode:]
	}
	return out
}

// Provenance identifies which comparison produced a candidate's best score.
type Provenance int

const (
	CatalogOriginal Provenance = iota
	CatalogMirrored
	UserExemplar
	UserExemplarMirrored
)

func (p Provenance) String() string {
	switch p {
	case CatalogOriginal:
		return "catalog"
	case CatalogMirrored:
		return "catalog-mirrored"
	case UserExemplar:
		return "exemplar"
	case UserExemplarMirrored:
		return "exemplar-mirrored"
	default:
		return "unknown"
	}
}

// Mirrored reports whether the winning comparison used the horizontally
// mirrored query vector.
func (p Provenance) Mirrored() bool {
	return p == CatalogMirrored || p == UserExemplarMirrored
}

// MatchCandidate is one ranked result of a similarity query. Ephemeral,
// recomputed per query.
type MatchCandidate struct {
	Code           string     `json:"code"`
	Score          float64    `json:"score"`
	MatchedAgainst Provenance `json:"matched_against"`
}
