package port

import "codegraph/internal/domain"

// DiversityReranker selects k items from a ranked list trading relevance
// against redundancy.
type DiversityReranker interface {
	Rerank(candidates []domain.ScoredChunk, k int) []domain.ScoredChunk
}
