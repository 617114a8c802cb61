package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"codegraph/internal/adapter/graph"
	"codegraph/internal/adapter/retriever"
	"codegraph/internal/domain"
	"codegraph/internal/port"
)

type RetrieveOptions struct {
	DefaultLimit        int
	OversampleFactor    int
	RRFK                int
	ConfidenceThreshold float64 // top-result distance above which graph neighbors are attached
}

// RetrieveUseCase is the hybrid retrieval engine: dense and sparse search,
// rank fusion or diversity re-ranking, then graph enrichment.
type RetrieveUseCase struct {
	index    ChunkIndex
	embedder port.Embedder
	dense    Retriever
	sparse   Retriever
	reranker port.DiversityReranker
	graphs   GraphStore
	expander *GraphExpander
	opts     RetrieveOptions
	logger   *slog.Logger

	graphMu sync.Mutex
	graph   *graph.Graph
}

// NewRetrieveUseCase wires the engine. sparse may be nil to disable lexical
// search; graphs may be nil to disable enrichment.
func NewRetrieveUseCase(
	index ChunkIndex,
	embedder port.Embedder,
	dense Retriever,
	sparse Retriever,
	reranker port.DiversityReranker,
	graphs GraphStore,
	expander *GraphExpander,
	opts RetrieveOptions,
	logger *slog.Logger,
) *RetrieveUseCase {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 8
	}
	if opts.OversampleFactor <= 0 {
		opts.OversampleFactor = 1
	}
	if opts.RRFK <= 0 {
		opts.RRFK = 60
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrieveUseCase{
		index:    index,
		embedder: embedder,
		dense:    dense,
		sparse:   sparse,
		reranker: reranker,
		graphs:   graphs,
		expander: expander,
		opts:     opts,
		logger:   logger,
	}
}

// Retrieve returns up to limit ranked chunks for query. It fails with
// ErrEmptyQuery for blank input and ErrIndexNotReady before the first
// completed indexing run.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query string, limit int) (*domain.Retrieval, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	if !u.index.Ready() {
		return nil, domain.ErrIndexNotReady
	}
	if limit <= 0 {
		limit = u.opts.DefaultLimit
	}
	candidates := limit * u.opts.OversampleFactor
	snap := u.index.Snapshot()

	q := domain.Query{Text: query}
	if u.embedder != nil {
		vec, err := u.embedder.EmbedQuery(ctx, query)
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			u.logger.Warn("query embedding failed, dense search skipped", "error", err)
		default:
			q.Vector = vec
		}
	}

	var dense, sparse []domain.ScoredChunk
	if len(q.Vector) > 0 {
		dense = u.dense.Search(snap, q, candidates)
	}
	if u.sparse != nil {
		sparse = u.sparse.Search(snap, q, candidates)
	}

	var selected []domain.ScoredChunk
	switch {
	case len(dense) > 0 && len(sparse) > 0:
		selected = retriever.FuseRRF(u.opts.RRFK, dense, sparse)
		if len(selected) > limit {
			selected = selected[:limit]
		}
	default:
		single := dense
		if len(single) == 0 {
			single = sparse
		}
		if candidates > limit && u.reranker != nil {
			selected = u.reranker.Rerank(single, limit)
		} else {
			selected = single
			if len(selected) > limit {
				selected = selected[:limit]
			}
		}
	}

	out := &domain.Retrieval{Query: query, Results: make([]domain.RankedChunk, len(selected))}
	for i, sc := range selected {
		d := retriever.CosineDistance(q.Vector, sc.Chunk.Vector)
		out.Results[i] = domain.RankedChunk{
			Chunk:      sc.Chunk,
			Score:      sc.Score,
			Distance:   d,
			Confidence: clamp01(1 - d),
		}
	}

	topDistance := 1.0
	if len(out.Results) > 0 {
		topDistance = out.Results[0].Distance
		out.Confidence = out.Results[0].Confidence
	}
	out.LowConfidence = topDistance > u.opts.ConfidenceThreshold

	if u.expander != nil && len(out.Results) > 0 {
		g, err := u.loadGraph()
		if err != nil {
			u.logger.Warn("graph unavailable, results not enriched", "error", err)
		} else {
			u.expander.Expand(g, out.Results, out.LowConfidence)
		}
	}
	return out, nil
}

func (u *RetrieveUseCase) loadGraph() (*graph.Graph, error) {
	u.graphMu.Lock()
	defer u.graphMu.Unlock()
	if u.graph != nil {
		return u.graph, nil
	}
	if u.graphs == nil {
		return nil, fmt.Errorf("no graph store configured")
	}
	g, err := u.graphs.LoadGraph()
	if err != nil {
		return nil, err
	}
	u.graph = g
	return g, nil
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}
