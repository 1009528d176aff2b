package core

import (
	"github.com/loom-ui/loom/pkg/errors"
	"github.com/loom-ui/loom/pkg/graphics"
)

// ElementId is a dense 1-based handle into the element arena. An id is
// unique while its slot is occupied; slots are recycled through a free
// list after unmount, so an id held past unmount must not be dereferenced.
// The arena rejects lookups of vacated slots.
type ElementId int

// NoElement is the zero id, used where no element applies.
const NoElement ElementId = 0

// Lifecycle is the finite state an element occupies.
type Lifecycle int

const (
	// LifecycleInitial is the state before mounting.
	LifecycleInitial Lifecycle = iota
	// LifecycleActive elements participate in layout and paint walks.
	LifecycleActive
	// LifecycleInactive elements are retained with state preserved but
	// skipped by all walks.
	LifecycleInactive
	// LifecycleDefunct is terminal; the element's render object has been
	// released and no further transitions exist.
	LifecycleDefunct
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleInitial:
		return "Initial"
	case LifecycleActive:
		return "Active"
	case LifecycleInactive:
		return "Inactive"
	case LifecycleDefunct:
		return "Defunct"
	default:
		return "Unknown"
	}
}

// Widget is the immutable configuration an element hosts. The pipeline
// calls CreateRenderObject once at inflate time and UpdateRenderObject on
// every rebuild of a dirty element.
type Widget interface {
	CreateRenderObject() RenderObject
	UpdateRenderObject(ro RenderObject)
}

// Element is one node of the retained tree: a widget configuration, its
// position under a parent, its lifecycle state, and the render object it
// exclusively owns, together with the cached results of the last layout
// and paint.
type Element struct {
	id        ElementId
	widget    Widget
	parent    ElementId
	slot      int // index in the parent's child list
	depth     int
	lifecycle Lifecycle
	dirty     bool // needs rebuild
	render    RenderObject
	children  []ElementId

	// Layout results. size is written only after the element's own
	// layout call returns; nothing can observe a half-laid-out size.
	constraints graphics.Constraints
	size        graphics.Size
	offset      graphics.Offset // position in parent coordinates
	hasLaidOut  bool

	// Paint results.
	layer graphics.Layer

	// Set when a phase failed for this element; paint substitutes an
	// error indicator carrying the message.
	failure string
}

// Id returns the element's arena handle.
func (e *Element) Id() ElementId { return e.id }

// Widget returns the hosted widget configuration.
func (e *Element) Widget() Widget { return e.widget }

// Parent returns the parent id, NoElement for the root.
func (e *Element) Parent() ElementId { return e.parent }

// Slot returns the element's index in its parent's child list.
func (e *Element) Slot() int { return e.slot }

// Depth returns the tree depth (root = 0).
func (e *Element) Depth() int { return e.depth }

// Lifecycle returns the current lifecycle state.
func (e *Element) Lifecycle() Lifecycle { return e.lifecycle }

// Dirty reports whether the element needs rebuilding.
func (e *Element) Dirty() bool { return e.dirty }

// RenderObject returns the render object this element owns, nil after
// unmount.
func (e *Element) RenderObject() RenderObject { return e.render }

// Size returns the size chosen by the last completed layout.
func (e *Element) Size() graphics.Size { return e.size }

// Offset returns the position assigned by the parent's last layout.
func (e *Element) Offset() graphics.Offset { return e.offset }

// Layer returns the cached layer from the last paint, nil if never
// painted or invalidated.
func (e *Element) Layer() graphics.Layer { return e.layer }

// mount transitions Initial -> Active and forces dirty so the element is
// built at least once.
func (e *Element) mount(parent ElementId, slot int, depth int) error {
	if e.lifecycle != LifecycleInitial {
		return &errors.ContractViolationError{
			Op:      "core.Element.mount",
			Element: int(e.id),
			Detail:  "mount from state " + e.lifecycle.String(),
		}
	}
	e.parent = parent
	e.slot = slot
	e.depth = depth
	e.lifecycle = LifecycleActive
	e.dirty = true
	return nil
}

// deactivate transitions Active -> Inactive, preserving all state.
func (e *Element) deactivate() error {
	if e.lifecycle != LifecycleActive {
		return &errors.ContractViolationError{
			Op:      "core.Element.deactivate",
			Element: int(e.id),
			Detail:  "deactivate from state " + e.lifecycle.String(),
		}
	}
	e.lifecycle = LifecycleInactive
	return nil
}

// activate transitions Inactive -> Active and forces dirty so stale
// output is refreshed.
func (e *Element) activate() error {
	if e.lifecycle != LifecycleInactive {
		return &errors.ContractViolationError{
			Op:      "core.Element.activate",
			Element: int(e.id),
			Detail:  "activate from state " + e.lifecycle.String(),
		}
	}
	e.lifecycle = LifecycleActive
	e.dirty = true
	return nil
}

// unmount transitions any state to Defunct and releases the owned render
// object and cached layer. Unmounting a Defunct element is a no-op.
func (e *Element) unmount() {
	if e.lifecycle == LifecycleDefunct {
		return
	}
	e.lifecycle = LifecycleDefunct
	if disposer, ok := e.render.(Disposer); ok {
		disposer.Dispose()
	}
	e.render = nil
	if e.layer != nil {
		e.layer.Dispose()
		e.layer = nil
	}
	e.children = nil
	e.dirty = false
}
