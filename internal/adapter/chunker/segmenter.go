package chunker

import (
	"fmt"
	"path"
	"strings"

	"codegraph/internal/domain"
)

// Segmenter cuts files into chunks of at most tokenLimit lexemes. Oversized
// units are split into windows advancing by tokenLimit-overlap lexemes.
type Segmenter struct {
	tokenLimit int
	overlap    int
}

func NewSegmenter(tokenLimit, overlap int) (*Segmenter, error) {
	if tokenLimit <= 0 {
		return nil, fmt.Errorf("token limit must be positive, got %d", tokenLimit)
	}
	if overlap < 0 || overlap >= tokenLimit {
		return nil, fmt.Errorf("%w: overlap %d, token limit %d", domain.ErrInvalidOverlap, overlap, tokenLimit)
	}
	return &Segmenter{tokenLimit: tokenLimit, overlap: overlap}, nil
}

// unit is a contiguous piece of a file to be chunked as one item.
type unit struct {
	id         string
	symbolID   string
	name       string
	symbolType domain.SymbolType
	hook       string
	content    string
	startLine  int
}

// SegmentDefinitions emits one unit per symbol span. Nested definitions are
// chunked both on their own and inside their enclosing class. A file with no
// symbols becomes a single code block.
func (s *Segmenter) SegmentDefinitions(file domain.SourceFile, symbols []domain.Symbol) ([]domain.Chunk, error) {
	if len(symbols) == 0 {
		return s.SegmentWindow(file)
	}

	var chunks []domain.Chunk
	for _, sym := range symbols {
		if int(sym.EndByte) > len(file.Content) || sym.StartByte > sym.EndByte {
			return nil, fmt.Errorf("symbol %s: span %d-%d outside file of %d bytes",
				sym.ID, sym.StartByte, sym.EndByte, len(file.Content))
		}
		st := domain.SymbolTypeFunction
		if sym.Kind == domain.KindClass {
			st = domain.SymbolTypeClass
		}
		out, err := s.segment(file.Path, unit{
			id:         sym.ID,
			symbolID:   sym.ID,
			name:       sym.Name,
			symbolType: st,
			hook:       sym.HookType,
			content:    string(file.Content[sym.StartByte:sym.EndByte]),
			startLine:  sym.StartLine,
		})
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, out...)
	}
	return chunks, nil
}

// SegmentWindow treats the whole file as one code block.
func (s *Segmenter) SegmentWindow(file domain.SourceFile) ([]domain.Chunk, error) {
	return s.segment(file.Path, unit{
		id:         file.Path,
		name:       path.Base(file.Path),
		symbolType: domain.SymbolTypeCodeBlock,
		content:    string(file.Content),
		startLine:  1,
	})
}

func (s *Segmenter) segment(filePath string, u unit) ([]domain.Chunk, error) {
	lex := Lex(u.content)
	if len(lex) == 0 {
		return nil, nil
	}

	if len(lex) <= s.tokenLimit {
		c, err := s.emit(filePath, u, u.id, u.name, u.content, lex, false)
		if err != nil {
			return nil, err
		}
		return []domain.Chunk{c}, nil
	}

	step := s.tokenLimit - s.overlap
	var chunks []domain.Chunk
	part := 1
	for start := 0; ; start += step {
		end := start + s.tokenLimit
		if end > len(lex) {
			end = len(lex)
		}

		// Text runs up to the next lexeme so trailing whitespace stays with
		// this window.
		from := lex[start].Start
		if start == 0 {
			from = 0
		}
		to := len(u.content)
		if end < len(lex) {
			to = lex[end].Start
		}

		c, err := s.emit(filePath, u,
			fmt.Sprintf("%s_part_%d", u.id, part),
			fmt.Sprintf("%s_part_%d", u.name, part),
			u.content[from:to], lex[start:end], true)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)

		if end == len(lex) {
			break
		}
		part++
	}
	return chunks, nil
}

// emit builds one chunk. lex offsets are relative to u.content and fix the
// chunk's line range.
func (s *Segmenter) emit(filePath string, u unit, id, name, text string, lex []Lexeme, partial bool) (domain.Chunk, error) {
	first, last := lex[0], lex[len(lex)-1]
	startLine := u.startLine + strings.Count(u.content[:first.Start], "\n")
	endLine := startLine + strings.Count(u.content[first.Start:last.End], "\n")

	var hook *string
	if u.hook != "" {
		h := u.hook
		hook = &h
	}
	return domain.NewChunk(domain.Chunk{
		ID:         id,
		FilePath:   filePath,
		SymbolID:   u.symbolID,
		SymbolName: name,
		SymbolType: u.symbolType,
		HookType:   hook,
		Content:    text,
		StartLine:  startLine,
		EndLine:    endLine,
		TokenCount: len(lex),
		IsPartial:  partial,
	})
}
