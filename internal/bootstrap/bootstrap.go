// Package bootstrap builds the indexing and retrieval components from config.
package bootstrap

import (
	"fmt"
	"log/slog"
	"os"

	"codegraph/config"
	"codegraph/internal/adapter/analyzer"
	"codegraph/internal/adapter/cache"
	"codegraph/internal/adapter/chunker"
	"codegraph/internal/adapter/embedding"
	"codegraph/internal/adapter/fs"
	"codegraph/internal/adapter/retriever"
	"codegraph/internal/adapter/store"
	"codegraph/internal/adapter/syntax"
	"codegraph/internal/domain"
	"codegraph/internal/port"
	"codegraph/internal/usecase"
)

// App holds the components every command builds from one config and store.
type App struct {
	cfg       *config.Config
	root      string
	store     *store.BoltStore
	index     *store.ChunkIndex
	tokenizer *analyzer.Tokenizer
	embedder  port.Embedder
}

// Open opens the index under root. With create unset a missing index, or one
// built under a different index configuration, fails with
// domain.ErrIndexNotReady instead of being created or cleared.
func Open(cfg *config.Config, root string, create bool) (*App, error) {
	dbPath := config.IndexDBPath(root)
	if create {
		if err := config.EnsureDataDir(root); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	} else if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: no index at %s", domain.ErrIndexNotReady, dbPath)
	}

	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}

	if create {
		cleared, reason, err := st.PrepareFor(cfg)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to check index schema: %w", err)
		}
		if cleared {
			slog.Info("index rebuild required, existing index cleared", "reason", reason)
		}
	} else {
		result, err := st.CheckMigration(cfg)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to check index schema: %w", err)
		}
		if result.NeedsRebuild {
			st.Close()
			return nil, fmt.Errorf("%w: %s, rebuild with 'codegraph index'", domain.ErrIndexNotReady, result.Reason)
		}
	}

	emb, err := embedding.New(cfg.Embedding)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	tok := analyzer.NewTokenizer(cfg.Index.Stemming)
	idx, err := store.NewChunkIndex(st, cfg.Embedding.Dimension, tok)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &App{cfg: cfg, root: root, store: st, index: idx, tokenizer: tok, embedder: emb}, nil
}

func (a *App) Close() error {
	return a.store.Close()
}

func (a *App) Indexer() (*usecase.IndexUseCase, error) {
	seg, err := chunker.NewSegmenter(a.cfg.Index.TokenLimit, a.cfg.Index.Overlap)
	if err != nil {
		return nil, err
	}
	registry, err := store.NewRegistry(a.store)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	return usecase.NewIndexUseCase(
		fs.NewWalker(a.cfg.Index.Includes, a.cfg.Index.Excludes, a.cfg.Index.RespectGitignore),
		analyzer.NewGraphBuilder(syntax.NewParser(), a.cfg.Index.Workers, nil),
		seg,
		a.embedder,
		a.index,
		registry,
		a.store,
		a.store,
		usecase.IndexOptions{
			ChunkMode:   usecase.ChunkMode(a.cfg.Index.ChunkMode),
			Workers:     a.cfg.Index.Workers,
			BatchSize:   a.cfg.Embedding.BatchSize,
			Concurrency: a.cfg.Embedding.Concurrency,
		},
		nil,
	), nil
}

func (a *App) Engine() *usecase.RetrieveUseCase {
	rc := a.cfg.Retrieve
	var sparse usecase.Retriever
	if rc.HybridEnabled {
		sparse = retriever.NewBM25Retriever(a.tokenizer, a.cfg.Index.K1, a.cfg.Index.B)
	}
	return usecase.NewRetrieveUseCase(
		a.index,
		a.embedder,
		retriever.NewDenseRetriever(),
		sparse,
		retriever.NewMMRReranker(rc.MMRLambda, retriever.ChunkSimilarity(a.tokenizer)),
		a.store,
		usecase.NewGraphExpander(rc.MaxRelated, rc.MaxRelationships),
		usecase.RetrieveOptions{
			DefaultLimit:        rc.Limit,
			OversampleFactor:    rc.OversampleFactor,
			RRFK:                rc.RRFK,
			ConfidenceThreshold: rc.ConfidenceThreshold,
		},
		nil,
	)
}

func (a *App) Asker() *usecase.AskUseCase {
	rc := a.cfg.Retrieve
	return usecase.NewAskUseCase(
		a.Engine(),
		usecase.NewAssembler(rc.MaxCodeChars),
		a.index,
		cache.NewQueryCache(rc.CacheSize, rc.CacheTTL),
		a.embedder.ModelName(),
		nil,
	)
}

func (a *App) Config() *config.Config { return a.cfg }

func (a *App) Embedder() port.Embedder { return a.embedder }

func (a *App) Index() *store.ChunkIndex { return a.index }
