package port

import "codegraph/internal/domain"

// IndexBatch stages file changes against the chunk index. Each change is
// durable when its call returns; readers see the whole batch on Publish.
type IndexBatch interface {
	ReplaceFile(path string, chunks []domain.Chunk) error

	DeleteFile(path string) error

	// Publish makes the staged changes visible. Calling it twice is a no-op.
	Publish()
}

// DeltaRegistry records the content hash of every indexed file.
type DeltaRegistry interface {
	ShouldReindex(path, hash string) bool

	Commit(path, hash string)

	Evict(path string)

	Paths() []string

	Save() error
}
