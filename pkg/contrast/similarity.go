package contrast

import "math"

// NormalizeL2 returns a unit-length copy of v. The input is never modified;
// scoring must stay pure with respect to its arguments. A zero vector is
// returned as a zero copy since it has no direction.
func NormalizeL2(v []float32) []float32 {
	out := make([]float32, len(v))

	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return out
	}

	magnitude := math.Sqrt(sumSquares)
	for i, x := range v {
		out[i] = float32(float64(x) / magnitude)
	}
	return out
}

// Dot computes the dot product of two equal-length vectors.
// Accumulation is done in float64 to limit rounding drift on long vectors.
func Dot(a, b []float32) float32 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot)
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 for mismatched lengths or zero-magnitude inputs.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// SimilarityMatrix computes the full pairwise dot-product matrix of the given
// vectors. When the inputs are unit-length this is the cosine similarity
// matrix: symmetric with a unit diagonal.
func SimilarityMatrix(vectors [][]float32) [][]float32 {
	n := len(vectors)
	sim := make([][]float32, n)
	for i := range sim {
		sim[i] = make([]float32, n)
	}
	for i := 0; i < n; i++ {
		sim[i][i] = Dot(vectors[i], vectors[i])
		for j := i + 1; j < n; j++ {
			d := Dot(vectors[i], vectors[j])
			sim[i][j] = d
			sim[j][i] = d
		}
	}
	return sim
}
