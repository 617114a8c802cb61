package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegraph/internal/adapter/syntax"
	"codegraph/internal/domain"
)

func build(t *testing.T, files map[string]string) *BuildResult {
	t.Helper()
	var sources []domain.SourceFile
	for path, content := range files {
		sources = append(sources, domain.NewSourceFile(path, []byte(content)))
	}
	res, err := NewGraphBuilder(syntax.NewParser(), 4, nil).Build(context.Background(), sources)
	require.NoError(t, err)
	return res
}

func callEdges(res *BuildResult) []domain.Edge {
	var out []domain.Edge
	for _, e := range res.Graph.Edges() {
		if e.Kind == domain.EdgeCalls {
			out = append(out, e)
		}
	}
	return out
}

func TestBuildLinksCallWithinFile(t *testing.T) {
	t.Parallel()
	res := build(t, map[string]string{
		"a.py": "def outer():\n    inner()\n\ndef inner():\n    pass\n",
	})

	assert.Contains(t, callEdges(res), domain.Edge{Source: "a.py:outer", Target: "a.py:inner", Kind: domain.EdgeCalls})
	assert.Contains(t, res.Graph.Edges(), domain.Edge{Source: "a.py", Target: "a.py:outer", Kind: domain.EdgeContains})
	n, ok := res.Graph.Node("a.py")
	require.True(t, ok)
	assert.Equal(t, domain.KindFile, n.Type)
}

func TestBuildClassMethodsAndMemberCalls(t *testing.T) {
	t.Parallel()
	res := build(t, map[string]string{
		"inv.py": "class Invoice:\n    def validate(self):\n        self.check()\n\n    def check(self):\n        pass\n",
	})

	edges := res.Graph.Edges()
	assert.Contains(t, edges, domain.Edge{Source: "inv.py", Target: "inv.py:Invoice", Kind: domain.EdgeContains})
	assert.Contains(t, edges, domain.Edge{Source: "inv.py:Invoice", Target: "inv.py:Invoice:validate", Kind: domain.EdgeContains})
	assert.Contains(t, edges, domain.Edge{Source: "inv.py:Invoice:validate", Target: "inv.py:Invoice:check", Kind: domain.EdgeCalls})

	require.Len(t, res.Files, 1)
	var hook string
	for _, s := range res.Files[0].Symbols {
		if s.Name == "validate" {
			hook = s.HookType
			assert.Equal(t, "inv.py:Invoice", s.Scope)
		}
	}
	assert.Equal(t, "validate", hook)
}

func TestBuildResolvesForwardReferenceAcrossFiles(t *testing.T) {
	t.Parallel()
	res := build(t, map[string]string{
		"a.py": "def caller():\n    later()\n",
		"z.py": "def later():\n    return 1\n",
	})
	assert.Contains(t, callEdges(res), domain.Edge{Source: "a.py:caller", Target: "z.py:later", Kind: domain.EdgeCalls})
}

func TestBuildCollisionFirstRegisteredWins(t *testing.T) {
	t.Parallel()
	res := build(t, map[string]string{
		"b.py": "def helper():\n    pass\n",
		"a.py": "def helper():\n    pass\n",
		"c.py": "def run():\n    helper()\n",
	})
	assert.Equal(t, "a.py:helper", res.Names["helper"])
	assert.Equal(t, []domain.Edge{{Source: "c.py:run", Target: "a.py:helper", Kind: domain.EdgeCalls}}, callEdges(res))
}

func TestBuildDropsUnresolvedAndModuleLevelCalls(t *testing.T) {
	t.Parallel()
	res := build(t, map[string]string{
		"a.py": "import os\n\ndef work():\n    print(os.getcwd())\n\nwork()\n",
	})
	assert.Empty(t, callEdges(res))
}

func TestBuildNoDanglingEdgesAndRecursion(t *testing.T) {
	t.Parallel()
	res := build(t, map[string]string{
		"a.py": "def ping(n):\n    return pong(n - 1)\n\ndef pong(n):\n    return ping(n) if n else pong(0)\n",
		"b.py": "def fact(n):\n    return n * fact(n - 1)\n",
	})

	for _, e := range res.Graph.Edges() {
		assert.True(t, res.Graph.HasNode(e.Source), e.Source)
		assert.True(t, res.Graph.HasNode(e.Target), e.Target)
	}
	assert.Contains(t, callEdges(res), domain.Edge{Source: "b.py:fact", Target: "b.py:fact", Kind: domain.EdgeCalls})
	assert.Equal(t, []string{"a.py", "a.py:ping"}, res.Graph.Neighbors("a.py:pong")[:2])
}

func TestBuildIsDeterministic(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"a.py": "def a():\n    b()\n    c()\n",
		"b.py": "def b():\n    c()\n",
		"c.py": "def c():\n    a()\n",
		"d.js": "function d() { a(); }\nclass K { m() { this.d(); } }\n",
	}
	first := build(t, files)
	second := build(t, files)

	assert.Equal(t, first.Graph.Nodes(), second.Graph.Nodes())
	assert.Equal(t, first.Graph.Edges(), second.Graph.Edges())
}

func TestBuildSkipsUnparseableFiles(t *testing.T) {
	t.Parallel()
	res := build(t, map[string]string{
		"a.py":      "def a():\n    pass\n",
		"notes.txt": "not code",
	})
	assert.Equal(t, []string{"notes.txt"}, res.Failed)
	assert.False(t, res.Graph.HasNode("notes.txt"))
	assert.Len(t, res.Files, 1)
}

func TestBuildGoMethodsScopedByReceiver(t *testing.T) {
	t.Parallel()
	res := build(t, map[string]string{
		"x.go": "package x\n\nfunc (s *Store) Get() { s.load() }\n\ntype Store struct{}\n\nfunc (s *Store) load() {}\n",
	})

	edges := res.Graph.Edges()
	assert.Contains(t, edges, domain.Edge{Source: "x.go:Store", Target: "x.go:Store:Get", Kind: domain.EdgeContains})
	assert.Contains(t, edges, domain.Edge{Source: "x.go:Store:Get", Target: "x.go:Store:load", Kind: domain.EdgeCalls})
}

func TestBuildJavaScriptArrowFunctions(t *testing.T) {
	t.Parallel()
	res := build(t, map[string]string{
		"app.js": "const total = (xs) => sum(xs);\nfunction sum(xs) { return xs.length; }\n",
	})
	assert.Contains(t, callEdges(res), domain.Edge{Source: "app.js:total", Target: "app.js:sum", Kind: domain.EdgeCalls})
}

func TestBuildCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGraphBuilder(syntax.NewParser(), 1, nil).Build(ctx, []domain.SourceFile{
		domain.NewSourceFile("a.py", []byte("def a():\n    pass\n")),
	})
	assert.ErrorIs(t, err, context.Canceled)
}
