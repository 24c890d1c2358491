// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package retrieval

import "sort"

// RerankWeights controls the three signals combined into a final score.
// DefaultRerankWeights sums to 1; NewReranker does not check the sum of the
// weights it is given.
type RerankWeights struct {
	Original float64
	Keyword  float64
	Length   float64
}

// DefaultRerankWeights matches the spec default of (0.6, 0.3, 0.1).
var DefaultRerankWeights = RerankWeights{Original: 0.6, Keyword: 0.3, Length: 0.1}

// Reranker computes the final score for fused hits.
//
// norm(fused) is the identity function: fused RRF scores are small and
// already comparable across a result set (no document dominates a query by
// orders of magnitude the way raw cosine or BM25 scores can), so no
// min-max rescaling is applied before combining them with the other two
// signals.
type Reranker struct {
	weights       RerankWeights
	optimalLength int
}

// NewReranker creates a reranker. optimalLength is the configured ideal
// chunk length in characters, matching original_source's
// _calculate_length_penalty(text, optimal_length=500), used by the length
// penalty.
func NewReranker(weights RerankWeights, optimalLength int) *Reranker {
	if optimalLength <= 0 {
		optimalLength = 500
	}
	return &Reranker{weights: weights, optimalLength: optimalLength}
}

// Rerank scores every fused hit against query and returns them sorted by
// final score descending, ties broken by chunk_id for determinism.
func (r *Reranker) Rerank(query string, hits []fusedHit) []rerankedHit {
	queryTokens := tokenize(query)
	out := make([]rerankedHit, len(hits))
	for i, h := range hits {
		overlap := overlapScore(queryTokens, h.Doc.Content)
		length := lengthPenalty(len(h.Doc.Content), r.optimalLength)
		final := r.weights.Original*h.RRFScore + r.weights.Keyword*overlap + r.weights.Length*length
		out[i] = rerankedHit{fused: h, final: final}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].final != out[j].final {
			return out[i].final > out[j].final
		}
		return out[i].fused.Doc.ID < out[j].fused.Doc.ID
	})
	return out
}

type rerankedHit struct {
	fused fusedHit
	final float64
}

// overlapScore is the fraction of unique query tokens present in text.
func overlapScore(queryTokens []string, text string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	unique := make(map[string]bool, len(queryTokens))
	for _, t := range queryTokens {
		unique[t] = true
	}
	textTokens := make(map[string]bool)
	for _, t := range tokenize(text) {
		textTokens[t] = true
	}

	hit := 0
	for t := range unique {
		if textTokens[t] {
			hit++
		}
	}
	return float64(hit) / float64(len(unique))
}

// lengthPenalty decays linearly with the absolute deviation of length from
// optimal, reaching 0 once the deviation equals optimal itself.
func lengthPenalty(length, optimal int) float64 {
	if optimal <= 0 {
		return 0
	}
	deviation := length - optimal
	if deviation < 0 {
		deviation = -deviation
	}
	penalty := 1.0 - float64(deviation)/float64(optimal)
	if penalty < 0 {
		return 0
	}
	return penalty
}
