package usecase

import (
	"codegraph/internal/adapter/graph"
	"codegraph/internal/domain"
)

// GraphExpander attaches call-graph context to ranked results.
type GraphExpander struct {
	maxRelated       int
	maxRelationships int
}

func NewGraphExpander(maxRelated, maxRelationships int) *GraphExpander {
	return &GraphExpander{maxRelated: maxRelated, maxRelationships: maxRelationships}
}

// Expand fills CallRelationships for every result and, when lowConfidence is
// set, RelatedFiles with graph neighbors. A relationship is reported only
// once across the whole result set.
func (e *GraphExpander) Expand(g *graph.Graph, results []domain.RankedChunk, lowConfidence bool) {
	seen := make(map[string]bool)
	for i := range results {
		r := &results[i]
		if lowConfidence {
			r.RelatedFiles = e.related(g, r.Chunk)
		}
		r.CallRelationships = e.relationships(g, r.Chunk.FilePath, seen)
	}
}

func (e *GraphExpander) related(g *graph.Graph, c domain.Chunk) []string {
	node := c.SymbolID
	if node == "" || !g.HasNode(node) {
		node = c.FilePath
	}
	if !g.HasNode(node) {
		return nil
	}
	neighbors := g.Neighbors(node)
	if len(neighbors) > e.maxRelated {
		neighbors = neighbors[:e.maxRelated]
	}
	return neighbors
}

func (e *GraphExpander) relationships(g *graph.Graph, file string, seen map[string]bool) []string {
	var out []string
	for _, id := range g.NodesWithPrefix(file + ":") {
		for _, edges := range [][]domain.Edge{
			g.OutEdges(id, domain.EdgeCalls),
			g.InEdges(id, domain.EdgeCalls),
		} {
			for _, edge := range edges {
				if len(out) >= e.maxRelationships {
					return out
				}
				rel := edge.Source + " -> " + edge.Target
				if seen[rel] {
					continue
				}
				seen[rel] = true
				out = append(out, rel)
			}
		}
	}
	return out
}
