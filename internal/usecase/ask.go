package usecase

import (
	"context"
	"log/slog"
	"strings"

	"codegraph/internal/domain"
)

// ContextCache stores assembled contexts for repeated questions.
type ContextCache interface {
	Get(query string, limit int, generation uint64) (domain.Context, bool)
	Put(query string, limit int, generation uint64, value domain.Context)
}

type Health struct {
	Status string       `json:"status"`
	Model  string       `json:"model,omitempty"`
	Stats  domain.Stats `json:"stats"`
}

const (
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
)

// AskUseCase answers a question with assembled context, the unit served to
// tool clients.
type AskUseCase struct {
	engine    *RetrieveUseCase
	assembler *Assembler
	index     ChunkIndex
	cache     ContextCache
	model     string
	logger    *slog.Logger
}

// NewAskUseCase wires the service surface. cache may be nil.
func NewAskUseCase(engine *RetrieveUseCase, assembler *Assembler, index ChunkIndex, cache ContextCache, model string, logger *slog.Logger) *AskUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AskUseCase{
		engine:    engine,
		assembler: assembler,
		index:     index,
		cache:     cache,
		model:     model,
		logger:    logger,
	}
}

func (u *AskUseCase) Ask(ctx context.Context, query string, limit int) (domain.Context, error) {
	if limit <= 0 {
		limit = u.engine.opts.DefaultLimit
	}
	gen := u.index.Generation()
	if u.cache != nil {
		if hit, ok := u.cache.Get(query, limit, gen); ok {
			u.logger.Debug("cache hit", "query", query)
			return hit, nil
		}
	}

	r, err := u.engine.Retrieve(ctx, query, limit)
	if err != nil {
		return domain.Context{}, err
	}
	out := u.assembler.Assemble(r)
	if u.cache != nil {
		u.cache.Put(query, limit, gen, out)
	}
	return out, nil
}

// Unindexed serves a root that has no usable index yet: every question fails
// with ErrIndexNotReady and health reports not_ready.
type Unindexed struct {
	Model string
}

func (u Unindexed) Ask(_ context.Context, query string, _ int) (domain.Context, error) {
	if strings.TrimSpace(query) == "" {
		return domain.Context{}, domain.ErrEmptyQuery
	}
	return domain.Context{}, domain.ErrIndexNotReady
}

func (u Unindexed) Health() Health {
	return Health{Status: StatusNotReady, Model: u.Model}
}

func (u *AskUseCase) Health() Health {
	h := Health{Status: StatusNotReady, Model: u.model}
	if u.index.Ready() {
		h.Status = StatusReady
	}
	h.Stats = u.index.Snapshot().Stats()
	return h
}
