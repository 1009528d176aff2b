package core

import (
	"fmt"

	"github.com/loom-ui/loom/pkg/errors"
	"github.com/loom-ui/loom/pkg/graphics"
)

// scheduler receives dirty notifications from the tree. The pipeline owner
// registers itself here so lifecycle transitions can request rebuilds
// without the tree depending on pipeline internals.
type scheduler interface {
	scheduleBuild(id ElementId)
	scheduleLayout(id ElementId)
	schedulePaint(id ElementId)
}

// Tree is a slab arena of elements. Slots are allocated densely, recycled
// through a free list after unmount, and addressed by 1-based ElementId.
// All structural mutation happens on the pipeline goroutine.
type Tree struct {
	slots    []Element
	occupied []bool
	free     []ElementId
	next     ElementId // next never-used slot, 1-based
	capacity int
	root     ElementId
	count    int
	owner    scheduler
}

// NewTree creates an arena with room for capacity elements.
func NewTree(capacity int) *Tree {
	if capacity < 1 {
		capacity = 1
	}
	return &Tree{
		slots:    make([]Element, capacity),
		occupied: make([]bool, capacity),
		next:     1,
		capacity: capacity,
	}
}

// Capacity returns the maximum number of live elements.
func (t *Tree) Capacity() int { return t.capacity }

// Count returns the number of live elements.
func (t *Tree) Count() int { return t.count }

// Root returns the root element id, NoElement if nothing is mounted.
func (t *Tree) Root() ElementId { return t.root }

// Get resolves an id to its element. Ids of vacated or never-allocated
// slots are rejected; a stale id is a bug in the caller.
func (t *Tree) Get(id ElementId) (*Element, error) {
	if id < 1 || int(id) > t.capacity || !t.occupied[id-1] {
		return nil, &errors.ContractViolationError{
			Op:      "core.Tree.Get",
			Element: int(id),
			Detail:  "id does not refer to a live element",
		}
	}
	return &t.slots[id-1], nil
}

// mustGet is Get for internal walks that only ever pass ids the tree
// itself handed out during the same traversal.
func (t *Tree) mustGet(id ElementId) *Element {
	return &t.slots[id-1]
}

// Inflate allocates an element for widget, creates its render object, and
// mounts it under parent. A NoElement parent makes it the root; there can
// be only one. The parent's declared arity is validated against its
// current child count before attachment.
func (t *Tree) Inflate(widget Widget, parent ElementId) (ElementId, error) {
	if widget == nil {
		return NoElement, &errors.ContractViolationError{
			Op:     "core.Tree.Inflate",
			Detail: "nil widget",
		}
	}

	var parentElem *Element
	slot := 0
	depth := 0
	if parent == NoElement {
		if t.root != NoElement {
			return NoElement, &errors.ContractViolationError{
				Op:      "core.Tree.Inflate",
				Element: int(t.root),
				Detail:  "tree already has a root",
			}
		}
	} else {
		var err error
		parentElem, err = t.Get(parent)
		if err != nil {
			return NoElement, err
		}
		if parentElem.lifecycle == LifecycleDefunct {
			return NoElement, &errors.ContractViolationError{
				Op:      "core.Tree.Inflate",
				Element: int(parent),
				Detail:  "parent is defunct",
			}
		}
		arity := parentElem.render.Arity()
		if !arity.allowsAttach(len(parentElem.children)) {
			return NoElement, &errors.ContractViolationError{
				Op:      "core.Tree.Inflate",
				Element: int(parent),
				Arity:   arity.String(),
				Detail: fmt.Sprintf("arity %s does not allow a child at slot %d",
					arity, len(parentElem.children)),
			}
		}
		slot = len(parentElem.children)
		depth = parentElem.depth + 1
	}

	id, err := t.alloc()
	if err != nil {
		return NoElement, err
	}
	elem := &t.slots[id-1]
	*elem = Element{id: id, widget: widget}

	render := widget.CreateRenderObject()
	if render == nil {
		t.release(id)
		return NoElement, &errors.ContractViolationError{
			Op:      "core.Tree.Inflate",
			Element: int(id),
			Detail:  "widget created a nil render object",
		}
	}
	if err := checkCapability(id, render); err != nil {
		t.release(id)
		return NoElement, err
	}
	elem.render = render

	if err := elem.mount(parent, slot, depth); err != nil {
		t.release(id)
		return NoElement, err
	}

	if parentElem != nil {
		parentElem.children = append(parentElem.children, id)
		if t.owner != nil {
			// A new child invalidates the parent's layout and composite.
			t.owner.scheduleLayout(parent)
			t.owner.schedulePaint(parent)
		}
	} else {
		t.root = id
	}

	if t.owner != nil {
		t.owner.scheduleBuild(id)
	}
	return id, nil
}

// checkCapability verifies the render object implements the capability
// interface matching its declared arity.
func checkCapability(id ElementId, render RenderObject) error {
	arity := render.Arity()
	ok := false
	switch arity {
	case ArityLeaf:
		_, ok = render.(LeafRender)
	case ArityOptional:
		_, ok = render.(OptionalRender)
	case AritySingle:
		_, ok = render.(SingleRender)
	case ArityMulti:
		_, ok = render.(MultiRender)
	}
	if !ok {
		return &errors.ContractViolationError{
			Op:      "core.checkCapability",
			Element: int(id),
			Arity:   arity.String(),
			Detail:  fmt.Sprintf("render object %T does not implement the %s capability", render, arity),
		}
	}
	return nil
}

// Children returns the element's child ids in insertion order. The slice
// is the tree's own; callers must not mutate it.
func (t *Tree) Children(id ElementId) ([]ElementId, error) {
	elem, err := t.Get(id)
	if err != nil {
		return nil, err
	}
	return elem.children, nil
}

// Parent returns the element's parent, NoElement for the root.
func (t *Tree) Parent(id ElementId) (ElementId, error) {
	elem, err := t.Get(id)
	if err != nil {
		return NoElement, err
	}
	return elem.parent, nil
}

// Deactivate removes the subtree rooted at id from the active set. State
// is preserved; Activate restores it. Inactive subtrees are skipped by
// layout and paint walks.
func (t *Tree) Deactivate(id ElementId) error {
	elem, err := t.Get(id)
	if err != nil {
		return err
	}
	return t.deactivateRecursive(elem)
}

func (t *Tree) deactivateRecursive(elem *Element) error {
	if err := elem.deactivate(); err != nil {
		return err
	}
	for _, child := range elem.children {
		if err := t.deactivateRecursive(t.mustGet(child)); err != nil {
			return err
		}
	}
	return nil
}

// Activate restores an inactive subtree and marks it dirty for all three
// phases so its stale cached output is refreshed.
func (t *Tree) Activate(id ElementId) error {
	elem, err := t.Get(id)
	if err != nil {
		return err
	}
	return t.activateRecursive(elem)
}

func (t *Tree) activateRecursive(elem *Element) error {
	if err := elem.activate(); err != nil {
		return err
	}
	if t.owner != nil {
		t.owner.scheduleBuild(elem.id)
		t.owner.scheduleLayout(elem.id)
		t.owner.schedulePaint(elem.id)
	}
	for _, child := range elem.children {
		if err := t.activateRecursive(t.mustGet(child)); err != nil {
			return err
		}
	}
	return nil
}

// Unmount permanently removes the subtree rooted at id, bottom-up.
// Render objects are disposed, cached layers released, and slots returned
// to the free list. Unmounting an already-defunct id is a no-op; a stale
// id is still an error.
func (t *Tree) Unmount(id ElementId) error {
	elem, err := t.Get(id)
	if err != nil {
		return err
	}
	// Detach from the parent first so walks never see a half-removed
	// subtree.
	if elem.parent != NoElement {
		parent := t.mustGet(elem.parent)
		for i, child := range parent.children {
			if child == id {
				parent.children = append(parent.children[:i], parent.children[i+1:]...)
				// Reassign slots of the children that shifted down.
				for j := i; j < len(parent.children); j++ {
					t.mustGet(parent.children[j]).slot = j
				}
				break
			}
		}
		if t.owner != nil {
			t.owner.scheduleLayout(elem.parent)
			t.owner.schedulePaint(elem.parent)
		}
	} else if t.root == id {
		t.root = NoElement
	}
	t.unmountRecursive(elem)
	return nil
}

func (t *Tree) unmountRecursive(elem *Element) {
	// Children first, leaf to root.
	for _, child := range elem.children {
		t.unmountRecursive(t.mustGet(child))
	}
	id := elem.id
	elem.unmount()
	t.release(id)
}

// RenderObjectOf returns the render object owned by id.
func (t *Tree) RenderObjectOf(id ElementId) (RenderObject, error) {
	elem, err := t.Get(id)
	if err != nil {
		return nil, err
	}
	return elem.render, nil
}

// OffsetOf returns the position of id in its parent's coordinate space,
// as assigned by the parent's last layout.
func (t *Tree) OffsetOf(id ElementId) (graphics.Offset, error) {
	elem, err := t.Get(id)
	if err != nil {
		return graphics.Offset{}, err
	}
	return elem.offset, nil
}

// SizeOf returns the size chosen by id's last completed layout.
func (t *Tree) SizeOf(id ElementId) (graphics.Size, error) {
	elem, err := t.Get(id)
	if err != nil {
		return graphics.Size{}, err
	}
	return elem.size, nil
}

func (t *Tree) alloc() (ElementId, error) {
	if n := len(t.free); n > 0 {
		id := t.free[n-1]
		t.free = t.free[:n-1]
		t.occupied[id-1] = true
		t.count++
		return id, nil
	}
	if int(t.next) > t.capacity {
		return NoElement, &errors.ContractViolationError{
			Op:     "core.Tree.alloc",
			Detail: fmt.Sprintf("element arena exhausted at capacity %d", t.capacity),
		}
	}
	id := t.next
	t.next++
	t.occupied[id-1] = true
	t.count++
	return id, nil
}

func (t *Tree) release(id ElementId) {
	if !t.occupied[id-1] {
		return
	}
	t.occupied[id-1] = false
	t.slots[id-1] = Element{}
	t.free = append(t.free, id)
	t.count--
}
