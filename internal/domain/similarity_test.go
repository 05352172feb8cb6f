package domain

import (
	"math"
	"testing"
)

func TestCosineSimilaritySelf(t *testing.T) {
	v := Vector{0.3, -1.2, 4.5, 0.01}

	got := CosineSimilarity(v, v)
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("expected cosine(v, v) = 1, got %v", got)
	}
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	v := Vector{1, 2, 3}
	zero := Vector{0, 0, 0}

	if got := CosineSimilarity(v, zero); got != 0 {
		t.Errorf("expected 0 for zero-norm operand, got %v", got)
	}
	if got := CosineSimilarity(zero, v); got != 0 {
		t.Errorf("expected 0 for zero-norm operand, got %v", got)
	}
	if got := CosineSimilarity(zero, zero); got != 0 {
		t.Errorf("expected 0 for both zero, got %v", got)
	}
}

func TestCosineSimilarityMismatchedLengths(t *testing.T) {
	if got := CosineSimilarity(Vector{1, 2}, Vector{1, 2, 3}); got != 0 {
		t.Errorf("expected 0 for mismatched lengths, got %v", got)
	}
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	a := Vector{1, 0}
	b := Vector{0, 1}

	if got := CosineSimilarity(a, b); math.Abs(got) > 1e-9 {
		t.Errorf("expected 0 for orthogonal vectors, got %v", got)
	}
}

func TestCosineSimilarityOpposite(t *testing.T) {
	a := Vector{1, 2, 3}
	b := Vector{-1, -2, -3}

	if got := CosineSimilarity(a, b); math.Abs(got+1.0) > 1e-9 {
		t.Errorf("expected -1 for opposite vectors, got %v", got)
	}
}

func TestCosineSimilarityNeverNaN(t *testing.T) {
	cases := [][2]Vector{
		{{0, 0}, {1, 1}},
		{{0, 0}, {0, 0}},
		{{1}, {1, 2}},
		{nil, nil},
	}
	for i, c := range cases {
		got := CosineSimilarity(c[0], c[1])
		if math.IsNaN(got) || math.IsInf(got, 0) {
			t.Errorf("case %d: got non-finite similarity %v", i, got)
		}
	}
}
