package core

import "fmt"

// Arity declares how many children a render object supports. The declared
// arity is validated against the actual attached-child count when children
// attach, and selects which layout/paint context the pipeline constructs.
type Arity int

const (
	// ArityLeaf allows no children.
	ArityLeaf Arity = iota
	// ArityOptional allows zero or one child.
	ArityOptional
	// AritySingle requires exactly one child.
	AritySingle
	// ArityMulti allows any number of children.
	ArityMulti
)

func (a Arity) String() string {
	switch a {
	case ArityLeaf:
		return "Leaf"
	case ArityOptional:
		return "Optional"
	case AritySingle:
		return "Single"
	case ArityMulti:
		return "Multi"
	default:
		return fmt.Sprintf("Arity(%d)", int(a))
	}
}

// maxChildren returns the largest child count the arity permits, or -1 if
// unbounded.
func (a Arity) maxChildren() int {
	switch a {
	case ArityLeaf:
		return 0
	case ArityOptional, AritySingle:
		return 1
	default:
		return -1
	}
}

// allowsAttach reports whether a subtree with count children may accept
// one more. Minimum counts (Single requiring its child) are enforced at
// use time by the typed contexts, since trees are built incrementally.
func (a Arity) allowsAttach(count int) bool {
	max := a.maxChildren()
	return max < 0 || count < max
}
