package retriever

import (
	"math"
	"sort"

	"codegraph/internal/adapter/memstore"
	"codegraph/internal/domain"
	"codegraph/internal/port"
)

// BM25Retriever scores chunks lexically using the term statistics kept in
// the snapshot.
type BM25Retriever struct {
	tokenizer port.Tokenizer
	k1        float64
	b         float64
}

func NewBM25Retriever(tokenizer port.Tokenizer, k1, b float64) *BM25Retriever {
	return &BM25Retriever{tokenizer: tokenizer, k1: k1, b: b}
}

func (r *BM25Retriever) Search(snap *memstore.Snapshot, q domain.Query, k int) []domain.ScoredChunk {
	if k <= 0 || snap.Len() == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	var terms []string
	for _, t := range r.tokenizer.Tokenize(q.Text) {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if snap.DocFreq(t) > 0 {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return nil
	}

	N := float64(snap.Len())
	avgDl := snap.AvgLength()
	idf := make([]float64, len(terms))
	for i, t := range terms {
		n := float64(snap.DocFreq(t))
		idf[i] = math.Log((N-n+0.5)/(n+0.5) + 1)
	}

	var results []domain.ScoredChunk
	snap.Each(func(e *memstore.Entry) bool {
		dl := float64(e.Length)
		score := 0.0
		for i, t := range terms {
			tf := float64(e.Terms[t])
			if tf == 0 {
				continue
			}
			score += idf[i] * (tf * (r.k1 + 1)) / (tf + r.k1*(1-r.b+r.b*dl/avgDl))
		}
		if score > 0 {
			results = append(results, domain.ScoredChunk{Chunk: e.Chunk, Score: score})
		}
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
