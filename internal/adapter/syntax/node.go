package syntax

// Node is an owned copy of a syntax tree node. It stays valid after the
// underlying parser tree has been released.
type Node struct {
	Type      string
	StartByte uint32
	EndByte   uint32
	StartLine int
	EndLine   int
	Children  []*Node
	fields    map[string]*Node
}

// Field returns the first child stored under the named field, or nil.
func (n *Node) Field(name string) *Node {
	if n == nil || n.fields == nil {
		return nil
	}
	return n.fields[name]
}

// Text returns the source slice covered by n.
func (n *Node) Text(src []byte) string {
	if n == nil || int(n.EndByte) > len(src) || n.StartByte > n.EndByte {
		return ""
	}
	return string(src[n.StartByte:n.EndByte])
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// FindFirst returns the first descendant (pre-order, n excluded) whose type
// is one of types.
func (n *Node) FindFirst(types ...string) *Node {
	var found *Node
	for _, c := range n.Children {
		c.Walk(func(d *Node) bool {
			if found != nil {
				return false
			}
			for _, t := range types {
				if d.Type == t {
					found = d
					return false
				}
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// Tree is a parsed file.
type Tree struct {
	Path      string
	Language  *Language
	Source    []byte
	Root      *Node
	HasErrors bool
}
