package core

import (
	"github.com/loom-ui/loom/pkg/graphics"
)

// HitTestEntry records one element hit during a hit test, with the
// position translated into that element's local coordinate space.
type HitTestEntry struct {
	Element  ElementId
	Position graphics.Offset
}

// HitTestResult accumulates the elements under a point, ordered from the
// topmost (deepest, last-painted) hit outward to the root.
type HitTestResult struct {
	entries []HitTestEntry
}

// Add appends an entry. Callers add children before self so the result
// reads front to back.
func (r *HitTestResult) Add(entry HitTestEntry) {
	r.entries = append(r.entries, entry)
}

// Entries returns the hits front to back.
func (r *HitTestResult) Entries() []HitTestEntry {
	return r.entries
}

// IsEmpty reports whether nothing was hit.
func (r *HitTestResult) IsEmpty() bool {
	return len(r.entries) == 0
}

// HitTest walks the tree from the root and collects every element under
// position, topmost first. Children are tested in reverse insertion order
// so the last-painted (topmost) child wins; an element records itself only
// when no child consumed the hit and the position lies within its own
// laid-out bounds. Render objects may override the own-bounds check via
// HitTester, and scroll-aware objects additionally gate hits on their
// painted extent via PaintExtentProvider.
func (o *PipelineOwner) HitTest(position graphics.Offset) (*HitTestResult, error) {
	result := &HitTestResult{}
	root := o.tree.Root()
	if root == NoElement {
		return result, nil
	}
	elem, err := o.tree.Get(root)
	if err != nil {
		return nil, err
	}
	o.hitTestElement(elem, position, result)
	return result, nil
}

// hitTestElement tests one element at a position already translated into
// its local coordinates. Returns true if this element or a descendant
// consumed the hit.
func (o *PipelineOwner) hitTestElement(elem *Element, position graphics.Offset, result *HitTestResult) bool {
	if elem.lifecycle != LifecycleActive || !elem.hasLaidOut {
		return false
	}

	// Scroll-aware objects can paint less than they occupy; positions
	// past the painted extent fall through.
	if provider, ok := elem.render.(PaintExtentProvider); ok {
		extent := provider.PaintExtent()
		if position.X < 0 || position.Y < 0 ||
			position.X > extent.Width || position.Y > extent.Height {
			return false
		}
	}

	// Reverse insertion order: the topmost painted child is tested first.
	for i := len(elem.children) - 1; i >= 0; i-- {
		child := o.tree.mustGet(elem.children[i])
		local := position.Sub(child.offset)
		if o.hitTestElement(child, local, result) {
			return true
		}
	}

	hit := false
	if tester, ok := elem.render.(HitTester); ok {
		hit = tester.HitTest(position, elem.size)
	} else {
		hit = position.X >= 0 && position.Y >= 0 &&
			position.X <= elem.size.Width && position.Y <= elem.size.Height
	}
	if hit {
		result.Add(HitTestEntry{Element: elem.id, Position: position})
	}
	return hit
}
