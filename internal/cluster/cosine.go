// Package cluster implements the semantic grouping of articles: the
// initial full clustering over all eligible records and the incremental
// pass that folds new records into the existing group tree. The engine is
// pure computation over ids, texts and vectors; persistence lives in the
// store package.
package cluster

import "math"

// Cosine returns the cosine similarity of two vectors. Mismatched lengths
// or zero vectors yield 0, which can never cross a match threshold.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
