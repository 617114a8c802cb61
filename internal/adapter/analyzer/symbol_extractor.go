package analyzer

import (
	"strings"

	"codegraph/internal/adapter/syntax"
	"codegraph/internal/domain"
)

// FileSymbols is the Pass 1 output for one file.
type FileSymbols struct {
	Path     string
	Symbols  []domain.Symbol
	Contains []domain.Edge
}

// BuildSymbols records every definition in tree with its qualified id
// path[:Class...]:name and links it to its enclosing scope with a CONTAINS
// edge. A duplicate qualified id within the file keeps the first definition.
func BuildSymbols(tree *syntax.Tree) FileSymbols {
	out := FileSymbols{Path: tree.Path}
	seen := make(map[string]bool)

	v := &definitionVisitor{
		tree: tree,
		onDefinition: func(sym domain.Symbol) {
			if seen[sym.ID] {
				return
			}
			seen[sym.ID] = true
			out.Symbols = append(out.Symbols, sym)
		},
	}
	v.walk(tree.Root, nil, "")

	// Go methods can be declared before their receiver type, so parents are
	// resolved once the whole file is known.
	for _, sym := range out.Symbols {
		parent := tree.Path
		if sym.Scope != "" && seen[sym.Scope] {
			parent = sym.Scope
		}
		out.Contains = append(out.Contains, domain.Edge{
			Source: parent,
			Target: sym.ID,
			Kind:   domain.EdgeContains,
		})
	}
	return out
}

// definitionVisitor walks a tree tracking the enclosing class chain and the
// innermost enclosing function. Both passes use it so they agree on ids.
type definitionVisitor struct {
	tree         *syntax.Tree
	onDefinition func(sym domain.Symbol)
	onCall       func(caller string, call *syntax.Node, calleeField string)
}

func (v *definitionVisitor) walk(n *syntax.Node, classChain []string, caller string) {
	lang := v.tree.Language
	src := v.tree.Source

	if def, ok := lang.Definitions[n.Type]; ok && (def.Accept == nil || def.Accept(n)) {
		if name := n.Field(def.NameField).Text(src); name != "" {
			scope := classChain
			if lang.ReceiverScope != nil {
				if recv := lang.ReceiverScope(n, src); recv != "" {
					scope = []string{recv}
				}
			}

			sym := domain.Symbol{
				ID:        QualifiedID(v.tree.Path, scope, name),
				Name:      name,
				Kind:      def.Kind,
				Path:      v.tree.Path,
				HookType:  ClassifyHook(name),
				StartLine: n.StartLine,
				EndLine:   n.EndLine,
				StartByte: n.StartByte,
				EndByte:   n.EndByte,
			}
			if len(scope) > 0 {
				sym.Scope = QualifiedID(v.tree.Path, scope[:len(scope)-1], scope[len(scope)-1])
			}
			if v.onDefinition != nil {
				v.onDefinition(sym)
			}

			if def.Kind == domain.KindClass {
				next := make([]string, 0, len(scope)+1)
				next = append(next, scope...)
				classChain = append(next, name)
			} else {
				caller = sym.ID
			}
			for _, c := range n.Children {
				v.walk(c, classChain, caller)
			}
			return
		}
	}

	if field, ok := lang.CallTypes[n.Type]; ok && caller != "" && v.onCall != nil {
		v.onCall(caller, n, field)
	}

	for _, c := range n.Children {
		v.walk(c, classChain, caller)
	}
}

// QualifiedID builds path[:scope...]:name.
func QualifiedID(path string, scope []string, name string) string {
	var b strings.Builder
	b.WriteString(path)
	for _, s := range scope {
		b.WriteByte(':')
		b.WriteString(s)
	}
	b.WriteByte(':')
	b.WriteString(name)
	return b.String()
}
