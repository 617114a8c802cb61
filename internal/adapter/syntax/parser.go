// Package syntax adapts tree-sitter into an owned syntax tree with typed
// nodes, byte offsets and named fields.
package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"codegraph/internal/domain"
)

// Parser is stateless; every call creates its own tree-sitter parser so it
// is safe for concurrent use.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse picks the language from the path extension and returns the owned tree.
func (p *Parser) Parse(ctx context.Context, path string, src []byte) (*Tree, error) {
	lang, ok := ForPath(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrUnsupportedLanguage)
	}
	return p.ParseLanguage(ctx, lang, path, src)
}

// ParseLanguage parses src with an explicit language.
func (p *Parser) ParseLanguage(ctx context.Context, lang *Language, path string, src []byte) (*Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang.grammar())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, domain.ErrParseFailed, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrParseFailed)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.IsNull() {
		return nil, fmt.Errorf("%s: %w: empty tree", path, domain.ErrParseFailed)
	}

	return &Tree{
		Path:      path,
		Language:  lang,
		Source:    src,
		Root:      convert(root),
		HasErrors: root.HasError(),
	}, nil
}

// convert copies the tree-sitter node. Anonymous tokens without a field
// name carry no information for symbol extraction and are dropped.
func convert(n *sitter.Node) *Node {
	out := &Node{
		Type:      n.Type(),
		StartByte: n.StartByte(),
		EndByte:   n.EndByte(),
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
	}

	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		field := n.FieldNameForChild(i)
		if !child.IsNamed() && field == "" {
			continue
		}
		c := convert(child)
		out.Children = append(out.Children, c)
		if field != "" {
			if out.fields == nil {
				out.fields = make(map[string]*Node)
			}
			if _, exists := out.fields[field]; !exists {
				out.fields[field] = c
			}
		}
	}
	return out
}
