package service

import (
	"fmt"
	"math"

	"github.com/cloo-solutions/docchat/internal/domain"
)

// cosineSimilarity returns the cosine of the angle between a and b, in
// [-1, 1]. A zero vector scores 0.
func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.ErrDimensionMismatch.WithCause(fmt.Errorf("query has %d dimensions, chunk has %d", len(a), len(b)))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
