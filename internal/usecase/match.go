package usecase

import (
	"context"
	"fmt"
	"image"
	"sort"

	"go.uber.org/zap"

	"profilematch/internal/adapter/imaging"
	"profilematch/internal/domain"
)

// Matcher ranks catalog codes against a query photo. Each record is scored
// with the query embedding and its horizontally mirrored variant, and with
// any user exemplars contributed for the record's code; the best score wins
// and carries its provenance.
type Matcher struct {
	res *Resources
	log *zap.Logger
}

func NewMatcher(res *Resources, log *zap.Logger) *Matcher {
	return &Matcher{res: res, log: log}
}

// MatchResult carries the ranked candidates and the query embedding. The
// caller persists InputVector as a new exemplar if the user confirms a
// match.
type MatchResult struct {
	Candidates  []domain.MatchCandidate
	InputVector domain.Vector
}

// FindMatches returns the top-limit catalog matches for the query image.
// The exemplar map is optional. Output is deterministic for a fixed corpus,
// exemplar map and query embeddings; ties keep corpus order.
func (m *Matcher) FindMatches(ctx context.Context, query image.Image, limit int, exemplars map[string]domain.ExemplarSet) (*MatchResult, error) {
	if err := m.res.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	ext := m.res.Extractor()
	sized := imaging.Fit(query, ext.InputSize())

	// Both embeddings complete before any ranking; issued sequentially to
	// bound peak extractor load.
	inputVector, err := ext.Embed(ctx, sized)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	flippedVector, err := ext.Embed(ctx, imaging.FlipHorizontal(sized))
	if err != nil {
		return nil, fmt.Errorf("failed to embed mirrored query: %w", err)
	}

	records := m.res.Corpus().Records()
	candidates := make([]domain.MatchCandidate, 0, len(records))

	for _, r := range records {
		bestScore := domain.CosineSimilarity(inputVector, r.Embedding)
		provenance := domain.CatalogOriginal

		if s := domain.CosineSimilarity(flippedVector, r.Embedding); s > bestScore {
			bestScore = s
			provenance = domain.CatalogMirrored
		}

		for _, e := range exemplars[r.Code] {
			if s := domain.CosineSimilarity(inputVector, e.Embedding); s > bestScore {
				bestScore = s
				provenance = domain.UserExemplar
			}
			if s := domain.CosineSimilarity(flippedVector, e.Embedding); s > bestScore {
				bestScore = s
				provenance = domain.UserExemplarMirrored
			}
		}

		candidates = append(candidates, domain.MatchCandidate{
			Code:           r.Code,
			Score:          bestScore,
			MatchedAgainst: provenance,
		})
	}

	// Stable: equal scores keep corpus order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if limit > len(candidates) {
		limit = len(candidates)
	}

	m.log.Debug("query ranked",
		zap.Int("corpus_size", len(records)),
		zap.Int("returned", limit))

	return &MatchResult{
		Candidates:  candidates[:limit],
		InputVector: inputVector,
	}, nil
}
