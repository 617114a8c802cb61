// Package graph implements the directed multigraph of files, classes,
// functions and the CONTAINS/CALLS edges between them. Cycles are valid;
// every traversal is visit-set based.
package graph

import (
	"encoding/json"
	"fmt"
	"strings"

	"codegraph/internal/domain"
)

type Graph struct {
	nodes map[string]domain.GraphNode
	order []string
	edges []domain.Edge
	out   map[string][]int
	in    map[string][]int
}

func New() *Graph {
	return &Graph{
		nodes: make(map[string]domain.GraphNode),
		out:   make(map[string][]int),
		in:    make(map[string][]int),
	}
}

// AddNode registers id. Re-adding an existing id keeps the first type.
func (g *Graph) AddNode(id string, typ domain.SymbolKind) {
	if _, exists := g.nodes[id]; exists {
		return
	}
	g.nodes[id] = domain.GraphNode{ID: id, Type: typ}
	g.order = append(g.order, id)
}

// AddEdge appends a parallel-safe edge; both endpoints must exist.
func (g *Graph) AddEdge(e domain.Edge) error {
	if _, ok := g.nodes[e.Source]; !ok {
		return fmt.Errorf("edge source %s: %w", e.Source, domain.ErrNodeNotFound)
	}
	if _, ok := g.nodes[e.Target]; !ok {
		return fmt.Errorf("edge target %s: %w", e.Target, domain.ErrNodeNotFound)
	}
	idx := len(g.edges)
	g.edges = append(g.edges, e)
	g.out[e.Source] = append(g.out[e.Source], idx)
	g.in[e.Target] = append(g.in[e.Target], idx)
	return nil
}

func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

func (g *Graph) Node(id string) (domain.GraphNode, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns nodes in insertion order.
func (g *Graph) Nodes() []domain.GraphNode {
	out := make([]domain.GraphNode, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

func (g *Graph) Edges() []domain.Edge {
	out := make([]domain.Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return len(g.edges) }

// OutEdges returns the edges leaving id, optionally filtered by kind.
func (g *Graph) OutEdges(id string, kinds ...domain.EdgeKind) []domain.Edge {
	return g.collect(g.out[id], kinds)
}

// InEdges returns the edges entering id, optionally filtered by kind.
func (g *Graph) InEdges(id string, kinds ...domain.EdgeKind) []domain.Edge {
	return g.collect(g.in[id], kinds)
}

func (g *Graph) collect(idxs []int, kinds []domain.EdgeKind) []domain.Edge {
	var out []domain.Edge
	for _, i := range idxs {
		e := g.edges[i]
		if len(kinds) > 0 && !hasKind(kinds, e.Kind) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func hasKind(kinds []domain.EdgeKind, k domain.EdgeKind) bool {
	for _, kk := range kinds {
		if kk == k {
			return true
		}
	}
	return false
}

// Successors returns distinct targets of edges leaving id.
func (g *Graph) Successors(id string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, i := range g.out[id] {
		t := g.edges[i].Target
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Predecessors returns distinct sources of edges entering id.
func (g *Graph) Predecessors(id string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, i := range g.in[id] {
		s := g.edges[i].Source
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Neighbors is predecessors followed by successors, deduplicated, without
// id itself (self loops are skipped).
func (g *Graph) Neighbors(id string) []string {
	seen := map[string]bool{id: true}
	var out []string
	for _, n := range g.Predecessors(id) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for _, n := range g.Successors(id) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// NodesWithPrefix returns node ids starting with prefix in insertion order.
func (g *Graph) NodesWithPrefix(prefix string) []string {
	var out []string
	for _, id := range g.order {
		if strings.HasPrefix(id, prefix) {
			out = append(out, id)
		}
	}
	return out
}

// Subgraph returns the graph induced by ids.
func (g *Graph) Subgraph(ids []string) *Graph {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	sub := New()
	for _, id := range g.order {
		if keep[id] {
			sub.AddNode(id, g.nodes[id].Type)
		}
	}
	for _, e := range g.edges {
		if keep[e.Source] && keep[e.Target] {
			_ = sub.AddEdge(e)
		}
	}
	return sub
}

type persisted struct {
	Nodes []domain.GraphNode `json:"nodes"`
	Edges []domain.Edge      `json:"edges"`
}

func (g *Graph) MarshalJSON() ([]byte, error) {
	p := persisted{Nodes: g.Nodes(), Edges: g.edges}
	if p.Edges == nil {
		p.Edges = []domain.Edge{}
	}
	return json.Marshal(p)
}

func (g *Graph) UnmarshalJSON(data []byte) error {
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	fresh := New()
	for _, n := range p.Nodes {
		fresh.AddNode(n.ID, n.Type)
	}
	for _, e := range p.Edges {
		if err := fresh.AddEdge(e); err != nil {
			return err
		}
	}
	*g = *fresh
	return nil
}
