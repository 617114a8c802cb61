package retriever

import (
	"codegraph/internal/domain"
	"codegraph/internal/port"
)

// Similarity measures redundancy between two chunks, in [0, 1] for typical
// inputs.
type Similarity func(a, b domain.Chunk) float64

// MMRReranker implements Maximal Marginal Relevance for result diversification.
// MMR(c) = λ * relevance(c) - (1-λ) * max_similarity(c, selected)
type MMRReranker struct {
	lambda     float64
	similarity Similarity
}

func NewMMRReranker(lambda float64, similarity Similarity) *MMRReranker {
	return &MMRReranker{lambda: lambda, similarity: similarity}
}

// Rerank greedily picks k candidates. The first pick is the most relevant;
// ties go to the earliest candidate.
func (r *MMRReranker) Rerank(candidates []domain.ScoredChunk, k int) []domain.ScoredChunk {
	if len(candidates) == 0 || k <= 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	maxScore := candidates[0].Score
	for _, c := range candidates {
		if c.Score > maxScore {
			maxScore = c.Score
		}
	}
	if maxScore <= 0 {
		maxScore = 1
	}

	selected := make([]domain.ScoredChunk, 0, k)
	taken := make([]bool, len(candidates))

	for len(selected) < k {
		bestIdx := -1
		bestMMR := 0.0

		for i, candidate := range candidates {
			if taken[i] {
				continue
			}
			relevance := candidate.Score / maxScore

			var mmr float64
			if len(selected) == 0 {
				mmr = relevance
			} else {
				maxSim := 0.0
				for _, sel := range selected {
					if sim := r.similarity(candidate.Chunk, sel.Chunk); sim > maxSim {
						maxSim = sim
					}
				}
				mmr = r.lambda*relevance - (1-r.lambda)*maxSim
			}

			if bestIdx == -1 || mmr > bestMMR {
				bestMMR = mmr
				bestIdx = i
			}
		}

		taken[bestIdx] = true
		selected = append(selected, candidates[bestIdx])
	}
	return selected
}

// ChunkSimilarity uses vector cosine when both chunks carry vectors and falls
// back to Jaccard over tokenized content.
func ChunkSimilarity(tokenizer port.Tokenizer) Similarity {
	return func(a, b domain.Chunk) float64 {
		if len(a.Vector) > 0 && len(a.Vector) == len(b.Vector) {
			return CosineSimilarity(a.Vector, b.Vector)
		}
		return JaccardSimilarity(tokenizer.Tokenize(a.Content), tokenizer.Tokenize(b.Content))
	}
}

// JaccardSimilarity computes the Jaccard similarity between two token sets.
func JaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}

	intersection := 0
	for t := range setA {
		if _, exists := setB[t]; exists {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}
