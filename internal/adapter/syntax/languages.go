package syntax

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"

	"codegraph/internal/domain"
)

// Definition describes a node type that introduces a named symbol.
type Definition struct {
	Kind      domain.SymbolKind
	NameField string
	// Accept filters nodes of this type; nil accepts all.
	Accept func(n *Node) bool
}

// Language holds the grammar and the node-type rules used by symbol
// extraction and call linking.
type Language struct {
	Name        string
	Extensions  []string
	Definitions map[string]Definition
	// CallTypes maps a call node type to the field holding the callee.
	CallTypes map[string]string
	// MemberTypes maps a member-access node type to the field holding the
	// trailing member name.
	MemberTypes map[string]string
	// IdentifierTypes are callee node types whose text is the bare name.
	IdentifierTypes map[string]bool
	// ReceiverScope returns the scope name for definitions scoped outside
	// their lexical nesting (Go methods). Empty means lexical scoping.
	ReceiverScope func(n *Node, src []byte) string

	grammar func() *sitter.Language
}

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

var Python = &Language{
	Name:       "python",
	Extensions: []string{".py"},
	Definitions: map[string]Definition{
		"function_definition": {Kind: domain.KindFunction, NameField: "name"},
		"class_definition":    {Kind: domain.KindClass, NameField: "name"},
	},
	CallTypes:       map[string]string{"call": "function"},
	MemberTypes:     map[string]string{"attribute": "attribute"},
	IdentifierTypes: set("identifier"),
	grammar:         python.GetLanguage,
}

var Go = &Language{
	Name:       "go",
	Extensions: []string{".go"},
	Definitions: map[string]Definition{
		"function_declaration": {Kind: domain.KindFunction, NameField: "name"},
		"method_declaration":   {Kind: domain.KindFunction, NameField: "name"},
		"type_spec":            {Kind: domain.KindClass, NameField: "name"},
	},
	CallTypes:       map[string]string{"call_expression": "function"},
	MemberTypes:     map[string]string{"selector_expression": "field"},
	IdentifierTypes: set("identifier"),
	ReceiverScope:   goReceiverType,
	grammar:         golang.GetLanguage,
}

var JavaScript = &Language{
	Name:       "javascript",
	Extensions: []string{".js", ".mjs", ".cjs", ".jsx"},
	Definitions: map[string]Definition{
		"function_declaration":           {Kind: domain.KindFunction, NameField: "name"},
		"generator_function_declaration": {Kind: domain.KindFunction, NameField: "name"},
		"method_definition":              {Kind: domain.KindFunction, NameField: "name"},
		"class_declaration":              {Kind: domain.KindClass, NameField: "name"},
		"variable_declarator": {
			Kind:      domain.KindFunction,
			NameField: "name",
			Accept:    jsFunctionValue,
		},
	},
	CallTypes:       map[string]string{"call_expression": "function"},
	MemberTypes:     map[string]string{"member_expression": "property"},
	IdentifierTypes: set("identifier"),
	grammar:         javascript.GetLanguage,
}

var languages = []*Language{Python, Go, JavaScript}

var (
	byExt     map[string]*Language
	byExtOnce sync.Once
)

// ForPath returns the language registered for the file extension of path.
func ForPath(path string) (*Language, bool) {
	byExtOnce.Do(func() {
		byExt = make(map[string]*Language)
		for _, l := range languages {
			for _, ext := range l.Extensions {
				byExt[ext] = l
			}
		}
	})
	l, ok := byExt[strings.ToLower(filepath.Ext(path))]
	return l, ok
}

// Supported lists the registered languages.
func Supported() []*Language {
	return languages
}

// goReceiverType extracts T from `func (r *T) M()` and `func (r T[K]) M()`.
func goReceiverType(n *Node, src []byte) string {
	recv := n.Field("receiver")
	if recv == nil {
		return ""
	}
	if t := recv.FindFirst("type_identifier"); t != nil {
		return t.Text(src)
	}
	return ""
}

func jsFunctionValue(n *Node) bool {
	v := n.Field("value")
	if v == nil {
		return false
	}
	switch v.Type {
	case "arrow_function", "function", "function_expression", "generator_function":
		return true
	}
	return false
}
