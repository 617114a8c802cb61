package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SourceFile is a discovered file identified by its repository-relative path.
type SourceFile struct {
	Path    string
	Content []byte
	Hash    string
}

// NewSourceFile builds a SourceFile and computes its content hash.
func NewSourceFile(path string, content []byte) SourceFile {
	return SourceFile{
		Path:    path,
		Content: content,
		Hash:    ContentHash(content),
	}
}

// ContentHash returns the hex sha256 of content.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

type SymbolKind string

const (
	KindFile     SymbolKind = "file"
	KindClass    SymbolKind = "class"
	KindFunction SymbolKind = "function"
)

// Symbol is a named definition. Scope is a weak reference to the enclosing
// class id; it is never used for ownership.
type Symbol struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Kind      SymbolKind `json:"kind"`
	Path      string     `json:"path"`
	Scope     string     `json:"scope,omitempty"`
	HookType  string     `json:"hook_type,omitempty"`
	StartLine int        `json:"start_line"`
	EndLine   int        `json:"end_line"`
	StartByte uint32     `json:"start_byte"`
	EndByte   uint32     `json:"end_byte"`
}

type EdgeKind string

const (
	EdgeContains EdgeKind = "CONTAINS"
	EdgeCalls    EdgeKind = "CALLS"
)

type Edge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   EdgeKind `json:"type"`
}

type GraphNode struct {
	ID   string     `json:"id"`
	Type SymbolKind `json:"type"`
}

type SymbolType string

const (
	SymbolTypeClass     SymbolType = "class"
	SymbolTypeFunction  SymbolType = "function"
	SymbolTypeCodeBlock SymbolType = "code_block"
)

// Chunk is the atomic retrieval unit. SymbolID links the chunk back to its
// graph node and is empty for code blocks.
type Chunk struct {
	ID         string     `json:"id"`
	FilePath   string     `json:"file_path"`
	SymbolID   string     `json:"symbol_id,omitempty"`
	SymbolName string     `json:"symbol_name"`
	SymbolType SymbolType `json:"symbol_type"`
	HookType   *string    `json:"hook_type"`
	Content    string     `json:"content"`
	StartLine  int        `json:"start_line"`
	EndLine    int        `json:"end_line"`
	TokenCount int        `json:"token_count"`
	IsPartial  bool       `json:"is_partial"`
	Vector     []float32  `json:"vector,omitempty"`
}

// NewChunk validates c and returns it.
func NewChunk(c Chunk) (Chunk, error) {
	if c.ID == "" {
		return Chunk{}, fmt.Errorf("chunk id is required")
	}
	if c.FilePath == "" {
		return Chunk{}, fmt.Errorf("chunk %s: file path is required", c.ID)
	}
	switch c.SymbolType {
	case SymbolTypeClass, SymbolTypeFunction, SymbolTypeCodeBlock:
	default:
		return Chunk{}, fmt.Errorf("chunk %s: invalid symbol type %q", c.ID, c.SymbolType)
	}
	if c.StartLine > c.EndLine {
		return Chunk{}, fmt.Errorf("chunk %s: start line %d after end line %d", c.ID, c.StartLine, c.EndLine)
	}
	if c.TokenCount < 0 {
		return Chunk{}, fmt.Errorf("chunk %s: negative token count", c.ID)
	}
	return c, nil
}

// Hook returns the hook classification or "".
func (c Chunk) Hook() string {
	if c.HookType == nil {
		return ""
	}
	return *c.HookType
}

// Query carries the text and, when available, the embedded query vector.
type Query struct {
	Text   string
	Vector []float32
}

// ScoredChunk is a candidate in a ranked list. Score is higher-is-better.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// RankedChunk is a final retrieval result.
type RankedChunk struct {
	Chunk             Chunk
	Score             float64
	Distance          float64
	Confidence        float64
	RelatedFiles      []string
	CallRelationships []string
}

// Retrieval is the engine output for one query.
type Retrieval struct {
	Query         string
	Confidence    float64
	LowConfidence bool
	Results       []RankedChunk
}

type ContextRecord struct {
	File              string   `json:"file"`
	Confidence        float64  `json:"confidence"`
	Code              string   `json:"code"`
	RelatedFiles      []string `json:"related_files,omitempty"`
	CallRelationships []string `json:"call_relationships,omitempty"`
	Symbol            string   `json:"symbol,omitempty"`
	SymbolType        string   `json:"symbol_type,omitempty"`
	HookType          string   `json:"hook_type,omitempty"`
	StartLine         int      `json:"start_line"`
	EndLine           int      `json:"end_line"`
	Partial           bool     `json:"is_partial,omitempty"`
}

type Context struct {
	Query      string          `json:"query"`
	Confidence float64         `json:"confidence"`
	Records    []ContextRecord `json:"results"`
}

type Stats struct {
	TotalFiles  int     `json:"total_files"`
	TotalChunks int     `json:"total_chunks"`
	AvgChunkLen float64 `json:"avg_chunk_len"`
}
