package store

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"codegraph/internal/adapter/memstore"
	"codegraph/internal/domain"
	"codegraph/internal/port"
)

var errBatchClosed = errors.New("index batch already published")

// ChunkIndex keeps the bbolt copy of chunks and an in-memory snapshot in step.
// Writers are serialized; readers load the current snapshot without locking
// and never observe a half-replaced file.
type ChunkIndex struct {
	store     *BoltStore
	dimension int
	tokenizer port.Tokenizer

	mu    sync.Mutex
	snap  atomic.Pointer[memstore.Snapshot]
	ready atomic.Bool
}

// NewChunkIndex loads every stored chunk into the initial snapshot.
func NewChunkIndex(store *BoltStore, dimension int, tokenizer port.Tokenizer) (*ChunkIndex, error) {
	idx := &ChunkIndex{store: store, dimension: dimension, tokenizer: tokenizer}

	files, err := store.LoadChunks()
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	entries := make(map[string][]memstore.Entry, len(files))
	for path, chunks := range files {
		entries[path] = idx.entries(chunks)
	}
	idx.snap.Store(memstore.Build(entries))

	ready, err := store.Ready()
	if err != nil {
		return nil, err
	}
	idx.ready.Store(ready)
	return idx, nil
}

func (x *ChunkIndex) entries(chunks []domain.Chunk) []memstore.Entry {
	out := make([]memstore.Entry, len(chunks))
	for i, c := range chunks {
		out[i] = memstore.NewEntry(c, x.tokenizer.Tokenize(c.SymbolName+" "+c.Content))
	}
	return out
}

func (x *ChunkIndex) Dimension() int { return x.dimension }

// ReplaceFile deletes path's chunks and writes chunks in their place. Any
// vector of the wrong length rejects the whole call before anything is written.
func (x *ChunkIndex) ReplaceFile(path string, chunks []domain.Chunk) error {
	b := x.Begin()
	defer b.Publish()
	return b.ReplaceFile(path, chunks)
}

func (x *ChunkIndex) DeleteFile(path string) error {
	b := x.Begin()
	defer b.Publish()
	return b.DeleteFile(path)
}

// Begin opens a write batch. It holds the writer lock until Publish, so a run
// of file changes costs one snapshot copy instead of one per file.
func (x *ChunkIndex) Begin() port.IndexBatch {
	x.mu.Lock()
	return &indexBatch{x: x, edit: x.snap.Load().Edit()}
}

// indexBatch writes each file to bbolt immediately and stages it in memory.
// Readers keep the previous snapshot until Publish.
type indexBatch struct {
	x    *ChunkIndex
	edit *memstore.Builder
	done bool
}

func (b *indexBatch) ReplaceFile(path string, chunks []domain.Chunk) error {
	if b.done {
		return errBatchClosed
	}
	for _, c := range chunks {
		if len(c.Vector) != b.x.dimension {
			return fmt.Errorf("%w: chunk %s has %d dimensions, index has %d",
				domain.ErrDimensionMismatch, c.ID, len(c.Vector), b.x.dimension)
		}
		if c.FilePath != path {
			return fmt.Errorf("chunk %s belongs to %s, not %s", c.ID, c.FilePath, path)
		}
	}
	entries := b.x.entries(chunks)

	if err := b.x.store.PutFile(path, chunks); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	b.edit.Put(path, entries)
	return nil
}

func (b *indexBatch) DeleteFile(path string) error {
	if b.done {
		return errBatchClosed
	}
	if err := b.x.store.DeleteFile(path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	b.edit.Remove(path)
	return nil
}

// Publish swaps in the staged snapshot and releases the writer lock. Calls
// after the first do nothing.
func (b *indexBatch) Publish() {
	if b.done {
		return
	}
	b.done = true
	if b.edit.Dirty() {
		b.x.snap.Store(b.edit.Snapshot())
	}
	b.x.mu.Unlock()
}

// Snapshot returns the current immutable view.
func (x *ChunkIndex) Snapshot() *memstore.Snapshot {
	return x.snap.Load()
}

// Generation changes whenever the visible chunk set changes.
func (x *ChunkIndex) Generation() uint64 {
	return x.snap.Load().Generation()
}

func (x *ChunkIndex) Stats() domain.Stats {
	return x.snap.Load().Stats()
}

// Ready reports whether a full indexing run has completed.
func (x *ChunkIndex) Ready() bool {
	return x.ready.Load()
}

func (x *ChunkIndex) MarkReady() error {
	if err := x.store.MarkReady(); err != nil {
		return err
	}
	x.ready.Store(true)
	return nil
}
