package retriever

import (
	"sort"

	"codegraph/internal/domain"
)

// FuseRRF merges ranked lists with reciprocal rank fusion: each appearance at
// zero-based rank r adds 1/(k+r+1). Equal scores keep first-appearance order.
func FuseRRF(k int, lists ...[]domain.ScoredChunk) []domain.ScoredChunk {
	type fused struct {
		chunk domain.Chunk
		score float64
	}
	index := make(map[string]int)
	var out []fused

	for _, list := range lists {
		for rank, sc := range list {
			key := chunkKey(sc.Chunk)
			i, ok := index[key]
			if !ok {
				i = len(out)
				index[key] = i
				out = append(out, fused{chunk: sc.Chunk})
			}
			out[i].score += 1 / float64(k+rank+1)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})

	results := make([]domain.ScoredChunk, len(out))
	for i, f := range out {
		results[i] = domain.ScoredChunk{Chunk: f.chunk, Score: f.score}
	}
	return results
}

func chunkKey(c domain.Chunk) string {
	return c.FilePath + "\x00" + c.ID
}
