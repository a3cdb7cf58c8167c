package ai

import "math"

// CosineSimilarity returns the cosine of the angle between two embeddings. Vectors of different
// length or with zero norm have similarity 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ScaleScore converts a similarity into a 0-100 score.
func ScaleScore(similarity float64) int {
	if math.IsNaN(similarity) {
		return 0
	}
	return max(0, min(100, int(math.Round(similarity*100))))
}
