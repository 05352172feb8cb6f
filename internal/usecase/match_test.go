package usecase

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"profilematch/internal/adapter/store"
	"profilematch/internal/domain"
)

// stubExtractor returns scripted vectors in call order, cycling. A matcher
// query consumes two: the input vector, then the mirrored vector.
type stubExtractor struct {
	dim    int
	size   int
	script []domain.Vector
	calls  int
	err    error
}

func (s *stubExtractor) Embed(_ context.Context, _ image.Image) (domain.Vector, error) {
	if s.err != nil {
		return nil, s.err
	}
	v := s.script[s.calls%len(s.script)]
	s.calls++
	return v, nil
}

func (s *stubExtractor) Dimension() int    { return s.dim }
func (s *stubExtractor) InputSize() int    { return s.size }
func (s *stubExtractor) ModelName() string { return "stub" }

func writeCorpus(t *testing.T, records []domain.Record) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "embeddings.json")
	st, err := store.OpenOrCreate(path)
	if err != nil {
		t.Fatalf("failed to create corpus: %v", err)
	}
	for _, r := range records {
		if err := st.Append(r); err != nil {
			t.Fatalf("failed to append %s: %v", r.Code, err)
		}
	}
	if err := st.Flush(); err != nil {
		t.Fatalf("failed to flush corpus: %v", err)
	}
	return path
}

func newTestMatcher(t *testing.T, records []domain.Record, ext *stubExtractor) *Matcher {
	t.Helper()
	res := NewResources(ext, writeCorpus(t, records), zap.NewNop())
	return NewMatcher(res, zap.NewNop())
}

func queryImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 8, 8))
}

func TestFindMatchesRanking(t *testing.T) {
	embA := domain.Vector{1, 0, 0, 0}
	embB := domain.Vector{0, 1, 0, 0}
	input := domain.Vector{0.92, 0.75, 0, 0}
	flipped := domain.Vector{0, 0, 1, 0} // orthogonal to both

	ext := &stubExtractor{dim: 4, size: 8, script: []domain.Vector{input, flipped}}
	matcher := newTestMatcher(t, []domain.Record{
		{Code: "A", Image: "/images/A.jpg", Embedding: embA},
		{Code: "B", Image: "/images/B.jpg", Embedding: embB},
	}, ext)

	result, err := matcher.FindMatches(context.Background(), queryImage(), 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(result.Candidates))
	}
	if result.Candidates[0].Code != "A" || result.Candidates[1].Code != "B" {
		t.Errorf("expected order [A, B], got [%s, %s]", result.Candidates[0].Code, result.Candidates[1].Code)
	}

	wantA := domain.CosineSimilarity(input, embA)
	if result.Candidates[0].Score != wantA {
		t.Errorf("expected A score %v, got %v", wantA, result.Candidates[0].Score)
	}
	if result.Candidates[0].MatchedAgainst != domain.CatalogOriginal {
		t.Errorf("expected CatalogOriginal provenance, got %v", result.Candidates[0].MatchedAgainst)
	}

	if len(result.InputVector) != 4 || result.InputVector[0] != input[0] {
		t.Error("expected the query embedding to be returned for exemplar commits")
	}
}

func TestFindMatchesMirrorAwareness(t *testing.T) {
	embA := domain.Vector{1, 0, 0, 0}
	input := domain.Vector{0, 0, 1, 0}   // orthogonal to A
	flipped := domain.Vector{1, 0, 0, 0} // identical to A

	ext := &stubExtractor{dim: 4, size: 8, script: []domain.Vector{input, flipped}}
	matcher := newTestMatcher(t, []domain.Record{
		{Code: "A", Image: "/images/A.jpg", Embedding: embA},
	}, ext)

	result, err := matcher.FindMatches(context.Background(), queryImage(), 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := result.Candidates[0]
	if c.MatchedAgainst != domain.CatalogMirrored {
		t.Errorf("expected CatalogMirrored provenance, got %v", c.MatchedAgainst)
	}
	want := domain.CosineSimilarity(flipped, embA)
	if c.Score != want {
		t.Errorf("expected mirrored score %v, got %v", want, c.Score)
	}
}

func TestFindMatchesExemplarOutranksCatalog(t *testing.T) {
	embA := domain.Vector{1, 0, 0, 0}
	input := domain.Vector{0, 1, 0, 0}
	flipped := domain.Vector{0, 0, 0, 1}

	ext := &stubExtractor{dim: 4, size: 8, script: []domain.Vector{input, flipped}}
	matcher := newTestMatcher(t, []domain.Record{
		{Code: "A", Image: "/images/A.jpg", Embedding: embA},
	}, ext)

	exemplars := map[string]domain.ExemplarSet{
		"A": {{Embedding: domain.Vector{0, 1, 0, 0}}}, // identical to input
	}

	result, err := matcher.FindMatches(context.Background(), queryImage(), 5, exemplars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := result.Candidates[0]
	if c.MatchedAgainst != domain.UserExemplar {
		t.Errorf("expected UserExemplar provenance, got %v", c.MatchedAgainst)
	}
	if c.Score < 0.999 {
		t.Errorf("expected exemplar score ~1.0, got %v", c.Score)
	}
}

func TestFindMatchesExemplarMirroredWins(t *testing.T) {
	embA := domain.Vector{1, 0, 0, 0}
	input := domain.Vector{0, 1, 0, 0}
	flipped := domain.Vector{0, 0, 1, 0}

	ext := &stubExtractor{dim: 4, size: 8, script: []domain.Vector{input, flipped}}
	matcher := newTestMatcher(t, []domain.Record{
		{Code: "A", Image: "/images/A.jpg", Embedding: embA},
	}, ext)

	exemplars := map[string]domain.ExemplarSet{
		"A": {{Embedding: domain.Vector{0, 0, 1, 0}}}, // identical to flipped
	}

	result, err := matcher.FindMatches(context.Background(), queryImage(), 5, exemplars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := result.Candidates[0]
	if c.MatchedAgainst != domain.UserExemplarMirrored {
		t.Errorf("expected UserExemplarMirrored provenance, got %v", c.MatchedAgainst)
	}
}

func TestFindMatchesStableTieOrder(t *testing.T) {
	emb := domain.Vector{1, 0, 0, 0}
	input := domain.Vector{1, 0, 0, 0}
	flipped := domain.Vector{0, 1, 0, 0}

	ext := &stubExtractor{dim: 4, size: 8, script: []domain.Vector{input, flipped}}
	matcher := newTestMatcher(t, []domain.Record{
		{Code: "first", Embedding: emb},
		{Code: "second", Embedding: emb},
		{Code: "third", Embedding: emb},
	}, ext)

	result, err := matcher.FindMatches(context.Background(), queryImage(), 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"first", "second", "third"}
	for i, c := range result.Candidates {
		if c.Code != want[i] {
			t.Errorf("position %d: expected %s (corpus order on ties), got %s", i, want[i], c.Code)
		}
	}
}

func TestFindMatchesDeterministic(t *testing.T) {
	embA := domain.Vector{0.8, 0.1, 0, 0}
	embB := domain.Vector{0.1, 0.9, 0, 0}
	input := domain.Vector{0.7, 0.2, 0, 0}
	flipped := domain.Vector{0.1, 0.1, 0.9, 0}

	ext := &stubExtractor{dim: 4, size: 8, script: []domain.Vector{input, flipped}}
	matcher := newTestMatcher(t, []domain.Record{
		{Code: "A", Embedding: embA},
		{Code: "B", Embedding: embB},
	}, ext)

	first, err := matcher.FindMatches(context.Background(), queryImage(), 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := matcher.FindMatches(context.Background(), queryImage(), 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range first.Candidates {
		if first.Candidates[i] != second.Candidates[i] {
			t.Errorf("position %d differs between runs: %+v vs %+v", i, first.Candidates[i], second.Candidates[i])
		}
	}
}

func TestFindMatchesLimit(t *testing.T) {
	input := domain.Vector{1, 0}
	flipped := domain.Vector{0, 1}
	ext := &stubExtractor{dim: 2, size: 8, script: []domain.Vector{input, flipped}}

	var records []domain.Record
	for _, code := range []string{"A", "B", "C", "D"} {
		records = append(records, domain.Record{Code: code, Embedding: domain.Vector{1, 0}})
	}
	matcher := newTestMatcher(t, records, ext)

	result, err := matcher.FindMatches(context.Background(), queryImage(), 2, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Candidates) != 2 {
		t.Errorf("expected 2 candidates, got %d", len(result.Candidates))
	}
}

func TestFindMatchesCorpusUnavailable(t *testing.T) {
	ext := &stubExtractor{dim: 4, size: 8, script: []domain.Vector{{1, 0, 0, 0}}}
	res := NewResources(ext, filepath.Join(t.TempDir(), "missing.json"), zap.NewNop())
	matcher := NewMatcher(res, zap.NewNop())

	_, err := matcher.FindMatches(context.Background(), queryImage(), 5, nil)
	if !errors.Is(err, domain.ErrCorpusUnavailable) {
		t.Errorf("expected ErrCorpusUnavailable, got %v", err)
	}
}
