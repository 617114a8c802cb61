package syntax

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegraph/internal/domain"
)

func TestParsePythonFields(t *testing.T) {
	t.Parallel()
	src := []byte("class Invoice:\n    def validate(self):\n        self.check()\n")

	tree, err := NewParser().Parse(context.Background(), "a.py", src)
	require.NoError(t, err)
	assert.Equal(t, Python, tree.Language)
	assert.False(t, tree.HasErrors)

	class := tree.Root.FindFirst("class_definition")
	require.NotNil(t, class)
	assert.Equal(t, "Invoice", class.Field("name").Text(src))
	assert.Equal(t, 1, class.StartLine)
	assert.Equal(t, 3, class.EndLine)

	call := tree.Root.FindFirst("call")
	require.NotNil(t, call)
	fn := call.Field("function")
	require.NotNil(t, fn)
	assert.Equal(t, "attribute", fn.Type)
	assert.Equal(t, "check", fn.Field("attribute").Text(src))
}

func TestParseGoReceiverScope(t *testing.T) {
	t.Parallel()
	src := []byte("package x\n\ntype Store struct{}\n\nfunc (s *Store) Get() {}\n")

	tree, err := NewParser().Parse(context.Background(), "x.go", src)
	require.NoError(t, err)

	method := tree.Root.FindFirst("method_declaration")
	require.NotNil(t, method)
	assert.Equal(t, "Get", method.Field("name").Text(src))
	assert.Equal(t, "Store", Go.ReceiverScope(method, src))
}

func TestParseUnsupportedLanguage(t *testing.T) {
	t.Parallel()
	_, err := NewParser().Parse(context.Background(), "notes.txt", []byte("hello"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedLanguage)
}

func TestForPath(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path string
		want *Language
		ok   bool
	}{
		{"pkg/a.py", Python, true},
		{"main.go", Go, true},
		{"web/app.JS", JavaScript, true},
		{"README.md", nil, false},
	}
	for _, tt := range tests {
		got, ok := ForPath(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.path)
		}
	}
}

func TestNodeWalkSkipsChildren(t *testing.T) {
	t.Parallel()
	leaf := &Node{Type: "leaf"}
	root := &Node{Type: "root", Children: []*Node{{Type: "mid", Children: []*Node{leaf}}}}

	var seen []string
	root.Walk(func(n *Node) bool {
		seen = append(seen, n.Type)
		return n.Type != "mid"
	})
	assert.Equal(t, []string{"root", "mid"}, seen)
}
