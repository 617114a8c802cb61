package domain

import "errors"

var (
	ErrIndexNotReady       = errors.New("index not ready: run indexing first")
	ErrDimensionMismatch   = errors.New("vector dimension mismatch")
	ErrInvalidOverlap      = errors.New("overlap must be smaller than token limit")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrParseFailed         = errors.New("parse failed")
	ErrEmbeddingFailed     = errors.New("embedding failed")
	ErrNodeNotFound        = errors.New("graph node not found")
	ErrEmptyQuery          = errors.New("query is empty")
)
