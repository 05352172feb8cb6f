package domain

import "math"

// CosineSimilarity calculates the cosine similarity between two vectors.
// A zero-norm operand or mismatched lengths yield 0 rather than NaN, so one
// degenerate embedding cannot corrupt ranking order.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
