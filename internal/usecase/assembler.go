package usecase

import "codegraph/internal/domain"

const truncationMarker = "\n... [truncated]"

// Assembler formats a retrieval into context records. It does no retrieval
// or graph work of its own.
type Assembler struct {
	maxCodeChars int
}

func NewAssembler(maxCodeChars int) *Assembler {
	return &Assembler{maxCodeChars: maxCodeChars}
}

// Assemble keeps rank order; code longer than the cap is cut at a rune
// boundary and marked.
func (a *Assembler) Assemble(r *domain.Retrieval) domain.Context {
	out := domain.Context{
		Query:      r.Query,
		Confidence: r.Confidence,
		Records:    make([]domain.ContextRecord, 0, len(r.Results)),
	}
	for _, rc := range r.Results {
		c := rc.Chunk
		out.Records = append(out.Records, domain.ContextRecord{
			File:              c.FilePath,
			Confidence:        rc.Confidence,
			Code:              a.truncate(c.Content),
			RelatedFiles:      rc.RelatedFiles,
			CallRelationships: rc.CallRelationships,
			Symbol:            c.SymbolName,
			SymbolType:        string(c.SymbolType),
			HookType:          c.Hook(),
			StartLine:         c.StartLine,
			EndLine:           c.EndLine,
			Partial:           c.IsPartial,
		})
	}
	return out
}

func (a *Assembler) truncate(code string) string {
	if a.maxCodeChars <= 0 {
		return code
	}
	n := 0
	for i := range code {
		if n == a.maxCodeChars {
			return code[:i] + truncationMarker
		}
		n++
	}
	return code
}
