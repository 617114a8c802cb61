package usecase

import (
	"codegraph/internal/adapter/graph"
	"codegraph/internal/adapter/memstore"
	"codegraph/internal/domain"
	"codegraph/internal/port"
)

// ChunkIndex is the vector/lexical index. Writers replace a file's chunk set
// atomically; readers work on immutable snapshots.
type ChunkIndex interface {
	Dimension() int

	ReplaceFile(path string, chunks []domain.Chunk) error

	DeleteFile(path string) error

	// Begin serializes writers until the returned batch is published.
	Begin() port.IndexBatch

	Snapshot() *memstore.Snapshot

	// Generation changes every time the visible chunk set does.
	Generation() uint64

	Ready() bool

	MarkReady() error
}

// GraphStore persists the call graph.
type GraphStore interface {
	SaveGraph(g *graph.Graph) error

	LoadGraph() (*graph.Graph, error)
}

// Retriever ranks the chunks of a snapshot for a query, best first.
type Retriever interface {
	Search(snap *memstore.Snapshot, q domain.Query, k int) []domain.ScoredChunk
}
