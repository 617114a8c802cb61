package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegraph/internal/domain"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestNewSegmenterRejectsOverlap(t *testing.T) {
	for _, overlap := range []int{10, 11, -1} {
		_, err := NewSegmenter(10, overlap)
		assert.ErrorIs(t, err, domain.ErrInvalidOverlap, "overlap %d", overlap)
	}
	_, err := NewSegmenter(10, 9)
	assert.NoError(t, err)
}

func TestLex(t *testing.T) {
	src := "foo_bar(x, 42) -> é"
	var got []string
	for _, l := range Lex(src) {
		got = append(got, src[l.Start:l.End])
	}
	assert.Equal(t, []string{"foo_bar", "(", "x", ",", "42", ")", "-", ">", "é"}, got)
	assert.Equal(t, 0, CountTokens(" \n\t "))
}

func TestSegmentExactLimitIsOneChunk(t *testing.T) {
	s, err := NewSegmenter(8, 2)
	require.NoError(t, err)

	chunks, err := s.SegmentWindow(domain.NewSourceFile("pkg/f.py", []byte(words(8))))
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	c := chunks[0]
	assert.False(t, c.IsPartial)
	assert.Equal(t, 8, c.TokenCount)
	assert.Equal(t, "pkg/f.py", c.ID)
	assert.Equal(t, "f.py", c.SymbolName)
	assert.Equal(t, domain.SymbolTypeCodeBlock, c.SymbolType)
	assert.Nil(t, c.HookType)
}

func TestSegmentOneOverLimitSplits(t *testing.T) {
	s, err := NewSegmenter(8, 2)
	require.NoError(t, err)

	chunks, err := s.SegmentWindow(domain.NewSourceFile("f.py", []byte(words(9))))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)

	for i, c := range chunks {
		assert.True(t, c.IsPartial)
		assert.LessOrEqual(t, c.TokenCount, 8)
		assert.Equal(t, fmt.Sprintf("f.py_part_%d", i+1), c.ID)
		assert.Equal(t, fmt.Sprintf("f.py_part_%d", i+1), c.SymbolName)
	}
	last := chunks[len(chunks)-1]
	assert.True(t, strings.HasSuffix(last.Content, "w8"))
}

func TestSegmentWindowsOverlapAndReconstruct(t *testing.T) {
	src := words(25)

	s, err := NewSegmenter(10, 0)
	require.NoError(t, err)
	chunks, err := s.SegmentWindow(domain.NewSourceFile("f.py", []byte(src)))
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Content)
	}
	assert.Equal(t, src, b.String())

	s, err = NewSegmenter(10, 3)
	require.NoError(t, err)
	chunks, err = s.SegmentWindow(domain.NewSourceFile("f.py", []byte(src)))
	require.NoError(t, err)
	// windows start at 0, 7, 14, 21; the last covers token 24.
	require.Len(t, chunks, 4)
	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1].Content)
		cur := strings.Fields(chunks[i].Content)
		assert.Equal(t, prev[len(prev)-3:], cur[:3])
	}
	assert.Equal(t, "w21 w22 w23 w24", chunks[3].Content)
}

func TestSegmentWindowLineRanges(t *testing.T) {
	s, err := NewSegmenter(2, 0)
	require.NoError(t, err)

	chunks, err := s.SegmentWindow(domain.NewSourceFile("f.py", []byte("a\nb\nc\nd\n")))
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "a\nb\n", chunks[0].Content)
	assert.Equal(t, [2]int{1, 2}, [2]int{chunks[0].StartLine, chunks[0].EndLine})
	assert.Equal(t, "c\nd\n", chunks[1].Content)
	assert.Equal(t, [2]int{3, 4}, [2]int{chunks[1].StartLine, chunks[1].EndLine})
}

func TestSegmentDefinitions(t *testing.T) {
	src := "def validate():\n    return 1\n\nclass K:\n    def m(self):\n        pass\n"
	aEnd := strings.Index(src, "\n\nclass")
	kStart := strings.Index(src, "class")
	mStart := strings.Index(src, "def m")
	end := len(src) - 1

	symbols := []domain.Symbol{
		{ID: "f.py:validate", Name: "validate", Kind: domain.KindFunction, HookType: "validate",
			StartLine: 1, EndLine: 2, StartByte: 0, EndByte: uint32(aEnd)},
		{ID: "f.py:K", Name: "K", Kind: domain.KindClass,
			StartLine: 4, EndLine: 6, StartByte: uint32(kStart), EndByte: uint32(end)},
		{ID: "f.py:K:m", Name: "m", Kind: domain.KindFunction, Scope: "f.py:K",
			StartLine: 5, EndLine: 6, StartByte: uint32(mStart), EndByte: uint32(end)},
	}

	s, err := NewSegmenter(512, 50)
	require.NoError(t, err)
	chunks, err := s.SegmentDefinitions(domain.NewSourceFile("f.py", []byte(src)), symbols)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "f.py:validate", chunks[0].ID)
	assert.Equal(t, "def validate():\n    return 1", chunks[0].Content)
	assert.Equal(t, "validate", chunks[0].Hook())
	assert.Equal(t, domain.SymbolTypeFunction, chunks[0].SymbolType)

	assert.Equal(t, domain.SymbolTypeClass, chunks[1].SymbolType)
	assert.Equal(t, "f.py:K", chunks[1].SymbolID)
	assert.Equal(t, [2]int{4, 6}, [2]int{chunks[1].StartLine, chunks[1].EndLine})

	assert.Equal(t, "def m(self):\n        pass", chunks[2].Content)
	assert.Equal(t, [2]int{5, 6}, [2]int{chunks[2].StartLine, chunks[2].EndLine})
	for _, c := range chunks {
		assert.Equal(t, "f.py", c.FilePath)
		assert.False(t, c.IsPartial)
	}
}

func TestSegmentDefinitionsWithoutSymbols(t *testing.T) {
	s, err := NewSegmenter(512, 50)
	require.NoError(t, err)

	chunks, err := s.SegmentDefinitions(domain.NewSourceFile("cfg.py", []byte("X = 1\n")), nil)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, domain.SymbolTypeCodeBlock, chunks[0].SymbolType)

	chunks, err = s.SegmentDefinitions(domain.NewSourceFile("empty.py", []byte("\n\n")), nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSegmentDefinitionsRejectsBadSpan(t *testing.T) {
	s, err := NewSegmenter(512, 50)
	require.NoError(t, err)

	_, err = s.SegmentDefinitions(domain.NewSourceFile("f.py", []byte("x")), []domain.Symbol{
		{ID: "f.py:x", Name: "x", Kind: domain.KindFunction, StartByte: 0, EndByte: 40},
	})
	assert.Error(t, err)
}
