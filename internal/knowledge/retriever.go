package knowledge

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/erikwj/sre-platform/internal/database"
)

// ErrVectorLength is returned when two vectors of different dimensionality
// are compared. That indicates an embedding model or version skew, which is
// a bug, not a data condition, so it is never silently coerced.
var ErrVectorLength = errors.New("embedding vectors have different lengths")

// Match is one ranked retrieval candidate
type Match struct {
	Embedding database.PostmortemEmbedding
	Score     float64
}

// CosineSimilarity computes dot(a,b) / (|a|*|b|). Equal-length non-zero
// vectors yield a score in [-1, 1]; a zero vector yields 0.
func CosineSimilarity(a, b database.Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrVectorLength, len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// RankSimilar scores candidates against the query vector and returns the
// topN by descending similarity. Candidates belonging to the querying
// incident are excluded so an incident never recommends itself. Ties keep
// candidate order, which is deterministic for a fixed candidate set.
//
// No relevance floor is applied here; thresholding is the caller's policy.
func RankSimilar(candidates []database.PostmortemEmbedding, query database.Vector, excludeIncidentID uint, topN int) ([]Match, error) {
	matches := make([]Match, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.IncidentID == excludeIncidentID {
			continue
		}
		score, err := CosineSimilarity(query, candidate.Vector)
		if err != nil {
			return nil, fmt.Errorf("candidate postmortem %d: %w", candidate.PostmortemID, err)
		}
		matches = append(matches, Match{Embedding: candidate, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if topN > 0 && len(matches) > topN {
		matches = matches[:topN]
	}
	return matches, nil
}
