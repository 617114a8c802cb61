package analyzer

import (
	"codegraph/internal/adapter/syntax"
	"codegraph/internal/domain"
)

// NameTable maps a bare definition name to the qualified id it resolves to.
type NameTable map[string]string

// LinkCalls resolves every call inside a function body against names and
// returns CALLS edges in source order. Member calls keep only the trailing
// member name, so same-named methods of unrelated classes are conflated.
// Names absent from the table and calls outside any function produce no edge.
func LinkCalls(tree *syntax.Tree, names NameTable) []domain.Edge {
	var edges []domain.Edge
	v := &definitionVisitor{
		tree: tree,
		onCall: func(caller string, call *syntax.Node, field string) {
			name := calleeName(tree.Language, call.Field(field), tree.Source)
			if name == "" {
				return
			}
			target, ok := names[name]
			if !ok {
				return
			}
			edges = append(edges, domain.Edge{
				Source: caller,
				Target: target,
				Kind:   domain.EdgeCalls,
			})
		},
	}
	v.walk(tree.Root, nil, "")
	return edges
}

func calleeName(lang *syntax.Language, fn *syntax.Node, src []byte) string {
	for fn != nil {
		if lang.IdentifierTypes[fn.Type] {
			return fn.Text(src)
		}
		if field, ok := lang.MemberTypes[fn.Type]; ok {
			return fn.Field(field).Text(src)
		}
		if fn.Type != "parenthesized_expression" || len(fn.Children) == 0 {
			return ""
		}
		fn = fn.Children[0]
	}
	return ""
}
