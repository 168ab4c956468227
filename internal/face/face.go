// Package face compares biometric embedding vectors produced by the
// guard app's on-device face model.
package face

import "math"

// MatchThreshold is the accepted Euclidean distance between two
// embeddings of the same face. It is a property of the embedding model,
// not a tenant setting.
const MatchThreshold = 0.6

// Distance returns the Euclidean distance between two embeddings.
// Absent vectors or mismatched dimensions are incomparable and yield
// +Inf, which never matches.
func Distance(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Match reports whether a distance is within the accepted threshold.
// The boundary is inclusive.
func Match(distance float64) bool {
	return distance <= MatchThreshold
}
