package analyzer

import (
	"context"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"codegraph/internal/adapter/graph"
	"codegraph/internal/adapter/syntax"
	"codegraph/internal/domain"
)

// Parser turns raw source bytes into a syntax tree.
type Parser interface {
	Parse(ctx context.Context, path string, src []byte) (*syntax.Tree, error)
}

// ParsedFile is a file that survived parsing, with its Pass 1 symbols.
type ParsedFile struct {
	Source  domain.SourceFile
	Tree    *syntax.Tree
	Symbols []domain.Symbol
}

type BuildResult struct {
	Graph  *graph.Graph
	Files  []ParsedFile
	Names  NameTable
	Failed []string
}

// GraphBuilder runs Pass 1 over all files, joins, then runs Pass 2.
type GraphBuilder struct {
	parser  Parser
	workers int
	logger  *slog.Logger
}

func NewGraphBuilder(parser Parser, workers int, logger *slog.Logger) *GraphBuilder {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphBuilder{parser: parser, workers: workers, logger: logger}
}

type pass1Result struct {
	tree    *syntax.Tree
	symbols FileSymbols
}

// Build parses files and assembles the call graph. Parse failures are
// logged and reported in Failed; only context cancellation aborts the build.
// Name collisions across files resolve to the first definition in path order.
func (b *GraphBuilder) Build(ctx context.Context, files []domain.SourceFile) (*BuildResult, error) {
	sorted := make([]domain.SourceFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	results := make([]*pass1Result, len(sorted))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := range sorted {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tree, err := b.parser.Parse(gctx, sorted[i].Path, sorted[i].Content)
			if err != nil {
				b.logger.Warn("skipping file", "path", sorted[i].Path, "error", err)
				return nil
			}
			if tree.HasErrors {
				b.logger.Debug("syntax errors recovered", "path", sorted[i].Path)
			}
			results[i] = &pass1Result{tree: tree, symbols: BuildSymbols(tree)}
			return nil
		})
	}
	// Barrier: no Pass 2 work starts before every Pass 1 task has joined.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &BuildResult{Graph: graph.New(), Names: make(NameTable)}
	collisions := 0
	for i, r := range results {
		if r == nil {
			out.Failed = append(out.Failed, sorted[i].Path)
			continue
		}
		out.Graph.AddNode(sorted[i].Path, domain.KindFile)
		for _, sym := range r.symbols.Symbols {
			out.Graph.AddNode(sym.ID, sym.Kind)
			if _, taken := out.Names[sym.Name]; taken {
				collisions++
				continue
			}
			out.Names[sym.Name] = sym.ID
		}
		for _, e := range r.symbols.Contains {
			if err := out.Graph.AddEdge(e); err != nil {
				b.logger.Warn("dropping edge", "source", e.Source, "target", e.Target, "error", err)
			}
		}
		out.Files = append(out.Files, ParsedFile{
			Source:  sorted[i],
			Tree:    r.tree,
			Symbols: r.symbols.Symbols,
		})
	}
	if collisions > 0 {
		b.logger.Debug("name collisions resolved to first definition", "count", collisions)
	}

	calls := make([][]domain.Edge, len(out.Files))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := range out.Files {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			calls[i] = LinkCalls(out.Files[i].Tree, out.Names)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, edges := range calls {
		for _, e := range edges {
			if err := out.Graph.AddEdge(e); err != nil {
				b.logger.Warn("dropping edge", "source", e.Source, "target", e.Target, "error", err)
			}
		}
	}

	b.logger.Info("call graph built",
		"files", len(out.Files),
		"failed", len(out.Failed),
		"nodes", out.Graph.NodeCount(),
		"edges", out.Graph.EdgeCount(),
	)
	return out, nil
}
