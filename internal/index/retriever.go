package index

import (
	"math"
	"sort"
)

// scoreEntries ranks entries by cosine similarity to queryVec, best first.
// Ties keep chunk order. Entries whose dimension differs from the query are
// skipped.
func scoreEntries(entries []Entry, queryVec []float64) []Match {
	matches := make([]Match, 0, len(entries))
	queryNorm := vectorNorm(queryVec)
	for _, entry := range entries {
		if len(entry.Embedding) != len(queryVec) {
			continue
		}
		matches = append(matches, Match{
			Entry: entry,
			Score: cosineSimilarity(queryVec, entry.Embedding, queryNorm),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return matches
}

func cosineSimilarity(a, b []float64, normA float64) float64 {
	if normA == 0 {
		return 0
	}
	normB := vectorNorm(b)
	if normB == 0 {
		return 0
	}
	dot := 0.0
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot / (normA * normB)
}

func vectorNorm(v []float64) float64 {
	sum := 0.0
	for _, val := range v {
		sum += val * val
	}
	return math.Sqrt(sum)
}
