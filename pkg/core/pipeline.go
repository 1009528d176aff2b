package core

import (
	goerrors "errors"
	"fmt"
	"sort"

	"github.com/loom-ui/loom/pkg/dirty"
	"github.com/loom-ui/loom/pkg/errors"
	"github.com/loom-ui/loom/pkg/graphics"
)

// PipelineOwner drives one frame in a fixed phase order: flush build,
// flush layout, flush paint. It owns the element tree and the per-phase
// dirty sets.
//
// MarkNeedsBuild, MarkNeedsLayout, and MarkNeedsPaint only touch the
// atomic dirty bitmaps and are safe from any goroutine. Everything else,
// including the Flush methods and all tree mutation, belongs to the
// single pipeline goroutine.
type PipelineOwner struct {
	tree *Tree

	buildDirty  *dirty.Set
	layoutDirty *dirty.Set
	paintDirty  *dirty.Set

	guard   *paintGuard
	laidOut int
	painted int
}

// NewOwner creates a pipeline owner with an element arena of the given
// capacity.
func NewOwner(capacity int) *PipelineOwner {
	o := &PipelineOwner{
		tree:        NewTree(capacity),
		buildDirty:  dirty.NewSet(capacity),
		layoutDirty: dirty.NewSet(capacity),
		paintDirty:  dirty.NewSet(capacity),
	}
	o.tree.owner = o
	return o
}

// Tree returns the element tree this owner drives.
func (o *PipelineOwner) Tree() *Tree { return o.tree }

// MarkNeedsBuild requests a rebuild of the element. Safe from any
// goroutine; ids of dead elements are harmless and skipped at flush time.
func (o *PipelineOwner) MarkNeedsBuild(id ElementId) {
	o.buildDirty.Mark(int(id))
}

// MarkNeedsLayout requests a re-layout of the element. Safe from any
// goroutine.
func (o *PipelineOwner) MarkNeedsLayout(id ElementId) {
	o.layoutDirty.Mark(int(id))
}

// MarkNeedsPaint requests a repaint of the element. Safe from any
// goroutine.
func (o *PipelineOwner) MarkNeedsPaint(id ElementId) {
	o.paintDirty.Mark(int(id))
}

// NeedsBuild reports whether the element is marked for rebuild.
func (o *PipelineOwner) NeedsBuild(id ElementId) bool {
	return o.buildDirty.IsMarked(int(id))
}

// NeedsLayout reports whether the element is marked for re-layout.
func (o *PipelineOwner) NeedsLayout(id ElementId) bool {
	return o.layoutDirty.IsMarked(int(id))
}

// NeedsPaint reports whether the element is marked for repaint.
func (o *PipelineOwner) NeedsPaint(id ElementId) bool {
	return o.paintDirty.IsMarked(int(id))
}

func (o *PipelineOwner) scheduleBuild(id ElementId)  { o.MarkNeedsBuild(id) }
func (o *PipelineOwner) scheduleLayout(id ElementId) { o.MarkNeedsLayout(id) }
func (o *PipelineOwner) schedulePaint(id ElementId)  { o.MarkNeedsPaint(id) }

// FlushBuild drains the rebuild worklist. Each dirty element's widget is
// re-applied to its render object, parents before children; a rebuild may
// enqueue further rebuilds, which the worklist picks up in the same flush
// rather than recursing. Returns whether any element was rebuilt.
//
// After FlushBuild returns, the build set is empty except for marks that
// arrived concurrently during the flush; those carry to the next frame.
func (o *PipelineOwner) FlushBuild() bool {
	built := false
	for o.buildDirty.Any() {
		ids := o.buildDirty.Drain()

		batch := make([]*Element, 0, len(ids))
		for _, id := range ids {
			elem, err := o.tree.Get(ElementId(id))
			if err != nil {
				// The element was unmounted after being marked.
				continue
			}
			if elem.lifecycle != LifecycleActive {
				continue
			}
			batch = append(batch, elem)
		}
		sort.Slice(batch, func(i, j int) bool {
			return batch[i].depth < batch[j].depth
		})

		for _, elem := range batch {
			o.buildElement(elem)
			built = true
		}
	}
	return built
}

// buildElement re-applies the widget configuration. A panic is confined
// to this element: it is reported as a phase error and the element is
// flagged so paint substitutes an error indicator.
func (o *PipelineOwner) buildElement(elem *Element) {
	defer func() {
		if r := recover(); r != nil {
			elem.failure = fmt.Sprint(r)
			errors.ReportPhase(&errors.PhaseError{
				Phase:      "build",
				Element:    int(elem.id),
				Recovered:  r,
				StackTrace: errors.CaptureStack(),
			})
		}
		elem.dirty = false
		// A rebuild invalidates layout, which invalidates paint.
		o.layoutDirty.Mark(int(elem.id))
		o.paintDirty.Mark(int(elem.id))
	}()
	elem.widget.UpdateRenderObject(elem.render)
	elem.failure = ""
}

// FlushLayout recomputes sizes from the layout-dirty elements down,
// laying out the root under the given constraints. Clean subtrees whose
// constraints did not change are skipped via their cached size. Returns
// the root size, whether any element was actually laid out, and any
// fail-fast error.
func (o *PipelineOwner) FlushLayout(constraints graphics.Constraints) (graphics.Size, bool, error) {
	root := o.tree.Root()
	if root == NoElement {
		return graphics.Size{}, false, nil
	}
	o.propagateToAncestors(o.layoutDirty)

	o.laidOut = 0
	rootElem := o.tree.mustGet(root)
	size, err := o.layoutElement(rootElem, constraints)
	return size, o.laidOut > 0, err
}

// propagateToAncestors marks the ancestor chain of every dirty element.
// A dirty descendant invalidates the cached result of everything above
// it; doing this lazily at flush time keeps Mark calls cheap and
// goroutine-safe.
func (o *PipelineOwner) propagateToAncestors(set *dirty.Set) {
	for _, id := range set.Collect() {
		elem, err := o.tree.Get(ElementId(id))
		if err != nil {
			set.Clear(id)
			continue
		}
		for parent := elem.parent; parent != NoElement; {
			if set.IsMarked(int(parent)) {
				break
			}
			set.Mark(int(parent))
			parent = o.tree.mustGet(parent).parent
		}
	}
}

// layoutElement lays out one element under the given constraints,
// reusing the cached size when the element is clean and the constraints
// are unchanged. Inactive subtrees report zero size without running
// layout.
func (o *PipelineOwner) layoutElement(elem *Element, constraints graphics.Constraints) (graphics.Size, error) {
	if elem.lifecycle != LifecycleActive {
		return graphics.Size{}, nil
	}
	clean := elem.hasLaidOut &&
		!o.layoutDirty.IsMarked(int(elem.id)) &&
		elem.constraints == constraints
	if clean {
		return elem.size, nil
	}

	o.layoutDirty.Clear(int(elem.id))
	elem.constraints = constraints

	size, err := o.dispatchLayout(elem, constraints)
	if err != nil {
		if isFailFast(err) {
			return graphics.Size{}, err
		}
		perr, ok := err.(*errors.PhaseError)
		if !ok {
			perr = &errors.PhaseError{Phase: "layout", Element: int(elem.id), Err: err}
		}
		errors.ReportPhase(perr)
		elem.failure = perr.Error()
		size = constraints.Smallest()
	} else {
		if !constraints.IsSatisfiedBy(size) {
			return graphics.Size{}, &errors.ContractViolationError{
				Op:      "core.layoutElement",
				Element: int(elem.id),
				Detail: fmt.Sprintf("layout returned %+v violating constraints %+v",
					size, constraints),
			}
		}
		elem.failure = ""
	}

	elem.size = size
	elem.hasLaidOut = true
	o.laidOut++
	// A new size means the cached layer is stale.
	o.paintDirty.Mark(int(elem.id))
	return size, nil
}

// dispatchLayout selects the arity-typed context and invokes the render
// object's layout. Panics are converted to phase errors.
func (o *PipelineOwner) dispatchLayout(elem *Element, constraints graphics.Constraints) (size graphics.Size, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &errors.PhaseError{
				Phase:      "layout",
				Element:    int(elem.id),
				Recovered:  r,
				StackTrace: errors.CaptureStack(),
			}
		}
	}()

	scope := layoutScope{owner: o, id: elem.id, constraints: constraints}
	switch elem.render.Arity() {
	case ArityLeaf:
		return elem.render.(LeafRender).Layout(&LeafLayoutContext{scope})
	case ArityOptional:
		return elem.render.(OptionalRender).Layout(&OptionalLayoutContext{scope})
	case AritySingle:
		return elem.render.(SingleRender).Layout(&SingleLayoutContext{scope})
	case ArityMulti:
		return elem.render.(MultiRender).Layout(&MultiLayoutContext{scope})
	default:
		return graphics.Size{}, &errors.ContractViolationError{
			Op:      "core.dispatchLayout",
			Element: int(elem.id),
			Arity:   elem.render.Arity().String(),
			Detail:  "unknown arity",
		}
	}
}

// FlushPaint regenerates layers for paint-dirty elements and returns the
// root layer. Clean subtrees reuse their cached layers. Returns the root
// layer, whether any element was repainted, and any fail-fast error.
func (o *PipelineOwner) FlushPaint() (graphics.Layer, bool, error) {
	root := o.tree.Root()
	if root == NoElement {
		return nil, false, nil
	}
	o.propagateToAncestors(o.paintDirty)

	o.painted = 0
	o.guard = newPaintGuard()
	rootElem := o.tree.mustGet(root)
	layer, err := o.paintElement(rootElem)
	return layer, o.painted > 0, err
}

// paintElement paints one element, reusing the cached layer when clean.
// An element whose build or layout failed paints an error indicator in
// its place; a paint failure does the same. Re-entering an element
// already on the paint stack is a cycle and fails fast.
func (o *PipelineOwner) paintElement(elem *Element) (graphics.Layer, error) {
	if elem.lifecycle != LifecycleActive {
		return nil, nil
	}
	if !elem.hasLaidOut {
		return nil, &errors.ContractViolationError{
			Op:      "core.paintElement",
			Element: int(elem.id),
			Detail:  "paint before layout",
		}
	}
	if err := o.guard.enter(elem.id); err != nil {
		return nil, err
	}
	defer o.guard.exit(elem.id)

	if elem.layer != nil && !o.paintDirty.IsMarked(int(elem.id)) {
		return elem.layer, nil
	}
	o.paintDirty.Clear(int(elem.id))

	var layer graphics.Layer
	if elem.failure != "" {
		layer = newErrorIndicator(elem.size, elem.failure)
	} else {
		var err error
		layer, err = o.dispatchPaint(elem)
		if err != nil {
			if isFailFast(err) {
				return nil, err
			}
			perr, ok := err.(*errors.PhaseError)
			if !ok {
				perr = &errors.PhaseError{Phase: "paint", Element: int(elem.id), Err: err}
			}
			errors.ReportPhase(perr)
			elem.failure = perr.Error()
			layer = newErrorIndicator(elem.size, elem.failure)
		}
	}

	if elem.layer != nil && elem.layer != layer {
		elem.layer.Dispose()
	}
	elem.layer = layer
	o.painted++
	return layer, nil
}

// dispatchPaint selects the arity-typed context and invokes the render
// object's paint. Panics are converted to phase errors.
func (o *PipelineOwner) dispatchPaint(elem *Element) (layer graphics.Layer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &errors.PhaseError{
				Phase:      "paint",
				Element:    int(elem.id),
				Recovered:  r,
				StackTrace: errors.CaptureStack(),
			}
		}
	}()

	scope := paintScope{owner: o, id: elem.id, size: elem.size}
	switch elem.render.Arity() {
	case ArityLeaf:
		return elem.render.(LeafRender).Paint(&LeafPaintContext{scope})
	case ArityOptional:
		return elem.render.(OptionalRender).Paint(&OptionalPaintContext{scope})
	case AritySingle:
		return elem.render.(SingleRender).Paint(&SinglePaintContext{scope})
	case ArityMulti:
		return elem.render.(MultiRender).Paint(&MultiPaintContext{scope})
	default:
		return nil, &errors.ContractViolationError{
			Op:      "core.dispatchPaint",
			Element: int(elem.id),
			Arity:   elem.render.Arity().String(),
			Detail:  "unknown arity",
		}
	}
}

// isFailFast reports whether the error is a contract violation or cycle,
// which abort the frame instead of being confined to one element.
func isFailFast(err error) bool {
	var contract *errors.ContractViolationError
	var cycle *errors.CycleError
	return goerrors.As(err, &contract) || goerrors.As(err, &cycle)
}
