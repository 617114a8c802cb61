package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegraph/internal/adapter/graph"
	"codegraph/internal/domain"
)

func TestAssemblerKeepsRankOrderAndTruncates(t *testing.T) {
	hook := "validate"
	r := &domain.Retrieval{
		Query:      "q",
		Confidence: 0.8,
		Results: []domain.RankedChunk{
			{Chunk: domain.Chunk{FilePath: "b.py", Content: strings.Repeat("é", 12), SymbolName: "validate", SymbolType: domain.SymbolTypeFunction, HookType: &hook, StartLine: 3, EndLine: 9}, Confidence: 0.8},
			{Chunk: domain.Chunk{FilePath: "a.py", Content: "short"}, Confidence: 0.3, CallRelationships: []string{"a.py:x -> a.py:y"}},
		},
	}

	ctx := NewAssembler(10).Assemble(r)
	require.Len(t, ctx.Records, 2)
	assert.Equal(t, "q", ctx.Query)
	assert.Equal(t, 0.8, ctx.Confidence)

	first := ctx.Records[0]
	assert.Equal(t, "b.py", first.File)
	assert.Equal(t, strings.Repeat("é", 10)+truncationMarker, first.Code)
	assert.Equal(t, "validate", first.HookType)
	assert.Equal(t, 3, first.StartLine)

	assert.Equal(t, "a.py", ctx.Records[1].File)
	assert.Equal(t, "short", ctx.Records[1].Code)
	assert.Equal(t, []string{"a.py:x -> a.py:y"}, ctx.Records[1].CallRelationships)
}

func TestAssemblerNoCap(t *testing.T) {
	code := strings.Repeat("x", 5000)
	ctx := NewAssembler(0).Assemble(&domain.Retrieval{Results: []domain.RankedChunk{{Chunk: domain.Chunk{Content: code}}}})
	assert.Equal(t, code, ctx.Records[0].Code)
}

func expanderGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, id := range []string{"a.py", "b.py"} {
		g.AddNode(id, domain.KindFile)
	}
	for _, id := range []string{"a.py:run", "a.py:step", "b.py:helper"} {
		g.AddNode(id, domain.KindFunction)
	}
	for _, e := range []domain.Edge{
		{Source: "a.py", Target: "a.py:run", Kind: domain.EdgeContains},
		{Source: "a.py", Target: "a.py:step", Kind: domain.EdgeContains},
		{Source: "b.py", Target: "b.py:helper", Kind: domain.EdgeContains},
		{Source: "a.py:run", Target: "a.py:step", Kind: domain.EdgeCalls},
		{Source: "a.py:step", Target: "b.py:helper", Kind: domain.EdgeCalls},
		{Source: "a.py:run", Target: "a.py:run", Kind: domain.EdgeCalls},
	} {
		require.NoError(t, g.AddEdge(e))
	}
	return g
}

func TestGraphExpanderRelationships(t *testing.T) {
	g := expanderGraph(t)
	results := []domain.RankedChunk{
		{Chunk: domain.Chunk{FilePath: "a.py", SymbolID: "a.py:run"}},
		{Chunk: domain.Chunk{FilePath: "a.py", SymbolID: "a.py:step"}},
		{Chunk: domain.Chunk{FilePath: "b.py", SymbolID: "b.py:helper"}},
	}
	NewGraphExpander(5, 10).Expand(g, results, false)

	assert.ElementsMatch(t, []string{
		"a.py:run -> a.py:step",
		"a.py:run -> a.py:run",
		"a.py:step -> b.py:helper",
	}, results[0].CallRelationships)
	assert.Empty(t, results[1].CallRelationships, "already reported")
	assert.Empty(t, results[2].CallRelationships)
	for _, r := range results {
		assert.Nil(t, r.RelatedFiles)
	}
}

func TestGraphExpanderCapsAndRelatedFiles(t *testing.T) {
	g := expanderGraph(t)
	results := []domain.RankedChunk{
		{Chunk: domain.Chunk{FilePath: "a.py", SymbolID: "a.py:step"}},
		{Chunk: domain.Chunk{FilePath: "b.py"}},
		{Chunk: domain.Chunk{FilePath: "gone.py", SymbolID: "gone.py:f"}},
	}
	NewGraphExpander(2, 1).Expand(g, results, true)

	assert.Equal(t, []string{"a.py", "a.py:run"}, results[0].RelatedFiles)
	assert.Len(t, results[0].CallRelationships, 1)
	assert.Equal(t, []string{"b.py:helper"}, results[1].RelatedFiles)
	assert.Nil(t, results[2].RelatedFiles)
	assert.Nil(t, results[2].CallRelationships)
}
