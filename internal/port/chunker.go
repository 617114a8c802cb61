package port

import "codegraph/internal/domain"

// Chunker segments a file into bounded chunks.
type Chunker interface {
	SegmentDefinitions(file domain.SourceFile, symbols []domain.Symbol) ([]domain.Chunk, error)
	SegmentWindow(file domain.SourceFile) ([]domain.Chunk, error)
}
