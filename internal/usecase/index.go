package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"codegraph/internal/adapter/analyzer"
	"codegraph/internal/adapter/fs"
	"codegraph/internal/domain"
	"codegraph/internal/port"
)

// ChunkMode selects how files are segmented.
type ChunkMode string

const (
	ChunkDefinitions ChunkMode = "definitions"
	ChunkWindow      ChunkMode = "window"
)

type IndexOptions struct {
	ChunkMode   ChunkMode
	Workers     int
	BatchSize   int
	Concurrency int
}

// ProgressFunc reports progress of a pipeline stage.
type ProgressFunc func(stage string, done, total int)

// StatsRecorder persists corpus statistics after a run.
type StatsRecorder interface {
	UpdateStats(stats domain.Stats) error
}

// IndexUseCase runs the indexing pipeline: discover, build the call graph,
// then segment, embed and store every file whose content changed.
type IndexUseCase struct {
	walker   port.FileWalker
	builder  *analyzer.GraphBuilder
	chunker  port.Chunker
	embedder port.Embedder
	index    ChunkIndex
	registry port.DeltaRegistry
	graphs   GraphStore
	stats    StatsRecorder
	opts     IndexOptions
	logger   *slog.Logger
}

func NewIndexUseCase(
	walker port.FileWalker,
	builder *analyzer.GraphBuilder,
	chunker port.Chunker,
	embedder port.Embedder,
	index ChunkIndex,
	registry port.DeltaRegistry,
	graphs GraphStore,
	stats StatsRecorder,
	opts IndexOptions,
	logger *slog.Logger,
) *IndexUseCase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.ChunkMode == "" {
		opts.ChunkMode = ChunkDefinitions
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexUseCase{
		walker:   walker,
		builder:  builder,
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		registry: registry,
		graphs:   graphs,
		stats:    stats,
		opts:     opts,
		logger:   logger,
	}
}

// IndexResult contains the results of an indexing operation.
type IndexResult struct {
	FilesDiscovered int
	FilesIndexed    int
	FilesSkipped    int
	FilesFailed     int
	FilesDeleted    int
	ChunksWritten   int
	ChunksDropped   int
	Nodes           int
	Edges           int
	Duration        time.Duration
	Errors          []string
}

// pendingFile is a changed file moving through segmentation and embedding.
type pendingFile struct {
	source  domain.SourceFile
	chunks  []domain.Chunk
	dropped int
}

// Index indexes root. Per-file and per-chunk failures are recorded in the
// result; only walk, graph persistence and cancellation errors abort.
func (u *IndexUseCase) Index(ctx context.Context, root string, progress ProgressFunc) (*IndexResult, error) {
	start := time.Now()
	if progress == nil {
		progress = func(string, int, int) {}
	}
	result := &IndexResult{}

	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	result.FilesDiscovered = len(files)

	sources, err := fs.ReadSources(ctx, files, u.opts.Workers, u.logger)
	if err != nil {
		return nil, err
	}

	built, err := u.builder.Build(ctx, sources)
	if err != nil {
		return nil, fmt.Errorf("failed to build call graph: %w", err)
	}
	if err := u.graphs.SaveGraph(built.Graph); err != nil {
		return nil, fmt.Errorf("failed to save call graph: %w", err)
	}
	result.Nodes = built.Graph.NodeCount()
	result.Edges = built.Graph.EdgeCount()
	for _, p := range built.Failed {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: not parsed", p))
	}
	result.FilesFailed = len(built.Failed) + len(files) - len(sources)

	// Unreadable files keep their previous chunks; unparseable ones lose them.
	live := make(map[string]bool, len(files))
	for _, f := range files {
		live[f.RelPath] = true
	}
	for _, p := range built.Failed {
		live[p] = false
	}

	var pending []*pendingFile
	for _, f := range built.Files {
		if !u.registry.ShouldReindex(f.Source.Path, f.Source.Hash) {
			u.logger.Debug("unchanged", "path", f.Source.Path)
			result.FilesSkipped++
			continue
		}

		var chunks []domain.Chunk
		if u.opts.ChunkMode == ChunkWindow {
			chunks, err = u.chunker.SegmentWindow(f.Source)
		} else {
			chunks, err = u.chunker.SegmentDefinitions(f.Source, f.Symbols)
		}
		if err != nil {
			u.logger.Warn("segmentation failed", "path", f.Source.Path, "error", err)
			result.FilesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", f.Source.Path, err))
			continue
		}
		pending = append(pending, &pendingFile{source: f.Source, chunks: chunks})
	}

	if err := u.embed(ctx, pending, progress); err != nil {
		return nil, err
	}

	batch := u.index.Begin()
	defer batch.Publish()

	for i, pf := range pending {
		kept := make([]domain.Chunk, 0, len(pf.chunks))
		for _, c := range pf.chunks {
			if c.Vector != nil {
				kept = append(kept, c)
			}
		}
		if err := batch.ReplaceFile(pf.source.Path, kept); err != nil {
			u.logger.Warn("failed to store chunks", "path", pf.source.Path, "error", err)
			result.FilesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", pf.source.Path, err))
			continue
		}
		result.ChunksWritten += len(kept)
		result.ChunksDropped += pf.dropped
		if pf.dropped > 0 {
			// Left uncommitted so the next run retries the whole file.
			u.logger.Warn("chunks dropped, file will be retried", "path", pf.source.Path, "dropped", pf.dropped)
		} else {
			u.registry.Commit(pf.source.Path, pf.source.Hash)
		}
		result.FilesIndexed++
		progress("store", i+1, len(pending))
	}

	// The visible snapshot still holds the previous run's paths. Every file
	// stored above is live, so it is never a deletion candidate.
	for _, p := range staleCandidates(u.registry.Paths(), u.index.Snapshot().Paths()) {
		if live[p] {
			continue
		}
		if err := batch.DeleteFile(p); err != nil {
			u.logger.Warn("failed to delete stale file", "path", p, "error", err)
			continue
		}
		u.registry.Evict(p)
		result.FilesDeleted++
	}

	batch.Publish()

	if err := u.registry.Save(); err != nil {
		return nil, fmt.Errorf("failed to save registry: %w", err)
	}
	if err := u.index.MarkReady(); err != nil {
		return nil, fmt.Errorf("failed to mark index ready: %w", err)
	}
	if u.stats != nil {
		if err := u.stats.UpdateStats(u.index.Snapshot().Stats()); err != nil {
			return nil, fmt.Errorf("failed to update stats: %w", err)
		}
	}

	result.Duration = time.Since(start)
	u.logger.Info("index complete",
		"files", result.FilesDiscovered,
		"indexed", result.FilesIndexed,
		"skipped", result.FilesSkipped,
		"deleted", result.FilesDeleted,
		"chunks", result.ChunksWritten,
		"duration", result.Duration,
	)
	return result, nil
}

// staleCandidates merges two sorted path lists without duplicates.
func staleCandidates(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j == len(b) || (i < len(a) && a[i] < b[j]):
			out = append(out, a[i])
			i++
		case i == len(a) || b[j] < a[i]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

type chunkRef struct {
	file  *pendingFile
	index int
}

// embed fills chunk vectors batch by batch with bounded concurrency. A failed
// batch is retried chunk by chunk; chunks that still fail keep a nil vector.
func (u *IndexUseCase) embed(ctx context.Context, pending []*pendingFile, progress ProgressFunc) error {
	var refs []chunkRef
	for _, pf := range pending {
		for i := range pf.chunks {
			refs = append(refs, chunkRef{file: pf, index: i})
		}
	}
	if len(refs) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.opts.Concurrency)
	for start := 0; start < len(refs); start += u.opts.BatchSize {
		end := start + u.opts.BatchSize
		if end > len(refs) {
			end = len(refs)
		}
		batch := refs[start:end]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dropped := u.embedBatch(gctx, batch)
			if err := gctx.Err(); err != nil {
				return err
			}

			mu.Lock()
			for _, ref := range dropped {
				ref.file.dropped++
			}
			done += len(batch)
			progress("embed", done, len(refs))
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// embedBatch writes vectors into the referenced chunks and returns the refs
// that could not be embedded. Each chunk is owned by exactly one batch.
func (u *IndexUseCase) embedBatch(ctx context.Context, batch []chunkRef) []chunkRef {
	texts := make([]string, len(batch))
	for i, ref := range batch {
		texts[i] = ref.file.chunks[ref.index].Content
	}

	vecs, err := u.embedder.EmbedDocuments(ctx, texts)
	if err == nil && len(vecs) == len(batch) {
		for i, ref := range batch {
			ref.file.chunks[ref.index].Vector = vecs[i]
		}
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}
	u.logger.Warn("batch embedding failed, retrying per chunk", "size", len(batch), "error", err)

	var dropped []chunkRef
	for i, ref := range batch {
		one, err := u.embedder.EmbedDocuments(ctx, texts[i:i+1])
		if err != nil || len(one) != 1 {
			if err == nil {
				err = errors.New("no embedding returned")
			}
			c := ref.file.chunks[ref.index]
			u.logger.Warn("dropping chunk", "path", c.FilePath, "chunk", c.ID, "error", err)
			dropped = append(dropped, ref)
			continue
		}
		ref.file.chunks[ref.index].Vector = one[0]
	}
	return dropped
}
