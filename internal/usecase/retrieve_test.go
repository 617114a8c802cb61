package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegraph/internal/adapter/analyzer"
	"codegraph/internal/adapter/embedding"
	"codegraph/internal/adapter/retriever"
	"codegraph/internal/adapter/store"
	"codegraph/internal/domain"
	"codegraph/internal/port"
)

type engineOptions struct {
	hybrid     bool
	threshold  float64
	oversample int
}

func newEngine(h *harness, reranker port.DiversityReranker, o engineOptions) *RetrieveUseCase {
	tok := analyzer.NewTokenizer(true)
	var sparse Retriever
	if o.hybrid {
		sparse = retriever.NewBM25Retriever(tok, 1.2, 0.75)
	}
	if reranker == nil {
		reranker = retriever.NewMMRReranker(0.7, retriever.ChunkSimilarity(tok))
	}
	return NewRetrieveUseCase(
		h.index,
		h.embedder,
		retriever.NewDenseRetriever(),
		sparse,
		reranker,
		h.store,
		NewGraphExpander(5, 10),
		RetrieveOptions{DefaultLimit: 8, OversampleFactor: o.oversample, RRFK: 60, ConfidenceThreshold: o.threshold},
		nil,
	)
}

// spyReranker records whether diversity re-ranking ran.
type spyReranker struct {
	inner port.DiversityReranker
	calls int
}

func (s *spyReranker) Rerank(c []domain.ScoredChunk, k int) []domain.ScoredChunk {
	s.calls++
	return s.inner.Rerank(c, k)
}

func TestRetrieveRequiresReadyIndex(t *testing.T) {
	h := newHarness(t, nil, fixture)
	engine := newEngine(h, nil, engineOptions{hybrid: true, threshold: 0.45, oversample: 4})

	_, err := engine.Retrieve(context.Background(), "send email", 4)
	assert.ErrorIs(t, err, domain.ErrIndexNotReady)

	_, err = engine.Retrieve(context.Background(), "   ", 4)
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestRetrieveEmptyIndex(t *testing.T) {
	h := newHarness(t, nil, nil)
	require.NoError(t, h.index.MarkReady())
	engine := newEngine(h, nil, engineOptions{hybrid: true, threshold: 0.45, oversample: 4})

	r, err := engine.Retrieve(context.Background(), "anything", 4)
	require.NoError(t, err)
	assert.Empty(t, r.Results)
	assert.Equal(t, 0.0, r.Confidence)
	assert.True(t, r.LowConfidence)
}

func TestRetrieveHybridFusion(t *testing.T) {
	h := newHarness(t, nil, fixture)
	h.run(t)
	spy := &spyReranker{inner: retriever.NewMMRReranker(0.7, retriever.ChunkSimilarity(analyzer.NewTokenizer(true)))}
	engine := newEngine(h, spy, engineOptions{hybrid: true, threshold: 2, oversample: 4})

	r, err := engine.Retrieve(context.Background(), "send email smtp address", 3)
	require.NoError(t, err)
	require.NotEmpty(t, r.Results)
	assert.LessOrEqual(t, len(r.Results), 3)
	assert.Equal(t, 0, spy.calls, "fused lists are not re-ranked")

	top := r.Results[0]
	assert.Equal(t, "mail.py", top.Chunk.FilePath)
	assert.InDelta(t, top.Confidence, r.Confidence, 1e-12)
	assert.False(t, r.LowConfidence)
	for _, rc := range r.Results {
		assert.GreaterOrEqual(t, rc.Confidence, 0.0)
		assert.LessOrEqual(t, rc.Confidence, 1.0)
		assert.Nil(t, rc.RelatedFiles)
	}

	count := 0
	for _, rc := range r.Results {
		for _, rel := range rc.CallRelationships {
			if rel == "mail.py:send_email -> mail.py:connect_smtp" {
				count++
			}
		}
	}
	assert.Equal(t, 1, count, "relationship reported once per result set")
}

func TestRetrieveDenseOnlyUsesMMR(t *testing.T) {
	h := newHarness(t, nil, fixture)
	h.run(t)
	tok := analyzer.NewTokenizer(true)

	spy := &spyReranker{inner: retriever.NewMMRReranker(0.7, retriever.ChunkSimilarity(tok))}
	r, err := newEngine(h, spy, engineOptions{threshold: 0.45, oversample: 4}).
		Retrieve(context.Background(), "invoice total", 2)
	require.NoError(t, err)
	assert.Len(t, r.Results, 2)
	assert.Equal(t, 1, spy.calls)

	spy = &spyReranker{inner: retriever.NewMMRReranker(0.7, retriever.ChunkSimilarity(tok))}
	r, err = newEngine(h, spy, engineOptions{threshold: 0.45, oversample: 1}).
		Retrieve(context.Background(), "invoice total", 2)
	require.NoError(t, err)
	assert.Len(t, r.Results, 2)
	assert.Equal(t, 0, spy.calls, "no oversampling means a plain top-k slice")
}

func TestRetrieveLowConfidenceAddsRelatedFiles(t *testing.T) {
	h := newHarness(t, nil, fixture)
	h.run(t)
	engine := newEngine(h, nil, engineOptions{hybrid: true, threshold: -1, oversample: 4})

	r, err := engine.Retrieve(context.Background(), "send email smtp address", 3)
	require.NoError(t, err)
	require.True(t, r.LowConfidence)

	var found bool
	for _, rc := range r.Results {
		if rc.Chunk.SymbolID == "mail.py:send_email" {
			found = true
			assert.Contains(t, rc.RelatedFiles, "mail.py")
			assert.Contains(t, rc.RelatedFiles, "mail.py:connect_smtp")
		}
	}
	assert.True(t, found)
}

type brokenQueryEmbedder struct{ *embedding.MockEmbedder }

func (brokenQueryEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, errors.New("connection refused")
}

func TestRetrieveFallsBackToLexicalWhenQueryEmbeddingFails(t *testing.T) {
	h := newHarness(t, nil, fixture)
	h.run(t)
	h.embedder = brokenQueryEmbedder{embedding.NewMockEmbedder(testDim)}
	engine := newEngine(h, nil, engineOptions{hybrid: true, threshold: 0.45, oversample: 4})

	r, err := engine.Retrieve(context.Background(), "connect smtp", 2)
	require.NoError(t, err)
	require.NotEmpty(t, r.Results)
	assert.Equal(t, "mail.py", r.Results[0].Chunk.FilePath)
	assert.Equal(t, 1.0, r.Results[0].Distance)
	assert.Equal(t, 0.0, r.Confidence)
	assert.True(t, r.LowConfidence)
}

func TestRetrieveSurvivesReopen(t *testing.T) {
	h := newHarness(t, nil, fixture)
	h.run(t)
	path := h.store.DB().Path()
	require.NoError(t, h.store.Close())

	st, err := store.NewBoltStore(path)
	require.NoError(t, err)
	defer st.Close()
	idx, err := store.NewChunkIndex(st, testDim, analyzer.NewTokenizer(true))
	require.NoError(t, err)

	h2 := &harness{root: h.root, store: st, index: idx, embedder: h.embedder}
	r, err := newEngine(h2, nil, engineOptions{hybrid: true, threshold: 0.45, oversample: 4}).
		Retrieve(context.Background(), "sum lines amount", 2)
	require.NoError(t, err)
	require.NotEmpty(t, r.Results)
	assert.Equal(t, "lines.py", r.Results[0].Chunk.FilePath)
}
