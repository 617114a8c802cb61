package retriever

import (
	"sort"

	"codegraph/internal/adapter/memstore"
	"codegraph/internal/domain"
)

// DenseRetriever ranks chunks by cosine similarity to the query vector.
// Brute force over the snapshot; ties keep snapshot order.
type DenseRetriever struct{}

func NewDenseRetriever() *DenseRetriever {
	return &DenseRetriever{}
}

func (r *DenseRetriever) Search(snap *memstore.Snapshot, q domain.Query, k int) []domain.ScoredChunk {
	if len(q.Vector) == 0 || k <= 0 {
		return nil
	}

	var results []domain.ScoredChunk
	snap.Each(func(e *memstore.Entry) bool {
		if len(e.Chunk.Vector) != len(q.Vector) {
			return true
		}
		results = append(results, domain.ScoredChunk{
			Chunk: e.Chunk,
			Score: CosineSimilarity(q.Vector, e.Chunk.Vector),
		})
		return true
	})

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}
