package core

import (
	"fmt"

	"github.com/loom-ui/loom/pkg/errors"
	"github.com/loom-ui/loom/pkg/graphics"
)

// layoutScope is the state shared by all layout contexts: which element is
// being laid out, under which constraints, and the owner driving the walk.
type layoutScope struct {
	owner       *PipelineOwner
	id          ElementId
	constraints graphics.Constraints
}

// Constraints returns the constraints the parent passed down.
func (s *layoutScope) Constraints() graphics.Constraints { return s.constraints }

// Element returns the id of the element being laid out.
func (s *layoutScope) Element() ElementId { return s.id }

// layoutChild lays out a child of the scoped element and returns its size.
// The child must actually be attached under this element.
func (s *layoutScope) layoutChild(child ElementId, constraints graphics.Constraints) (graphics.Size, error) {
	elem, err := s.owner.tree.Get(child)
	if err != nil {
		return graphics.Size{}, err
	}
	if elem.parent != s.id {
		return graphics.Size{}, &errors.ContractViolationError{
			Op:      "core.layoutChild",
			Element: int(child),
			Detail:  fmt.Sprintf("element %d is not a child of element %d", child, s.id),
		}
	}
	return s.owner.layoutElement(elem, constraints)
}

// positionChild records where the child sits in this element's coordinate
// space. The offset is consumed by paint compositing and hit testing.
func (s *layoutScope) positionChild(child ElementId, offset graphics.Offset) error {
	elem, err := s.owner.tree.Get(child)
	if err != nil {
		return err
	}
	if elem.parent != s.id {
		return &errors.ContractViolationError{
			Op:      "core.positionChild",
			Element: int(child),
			Detail:  fmt.Sprintf("element %d is not a child of element %d", child, s.id),
		}
	}
	elem.offset = offset
	return nil
}

// LeafLayoutContext is the layout context for ArityLeaf render objects.
// It exposes no child accessors; a leaf cannot reach children that do not
// exist.
type LeafLayoutContext struct {
	layoutScope
}

// OptionalLayoutContext is the layout context for ArityOptional render
// objects.
type OptionalLayoutContext struct {
	layoutScope
}

// Child returns the optional child, reporting whether one is attached.
func (c *OptionalLayoutContext) Child() (ElementId, bool) {
	elem := c.owner.tree.mustGet(c.id)
	if len(elem.children) == 0 {
		return NoElement, false
	}
	return elem.children[0], true
}

// LayoutChild lays out the child under the given constraints.
func (c *OptionalLayoutContext) LayoutChild(child ElementId, constraints graphics.Constraints) (graphics.Size, error) {
	return c.layoutChild(child, constraints)
}

// PositionChild places the child in this element's coordinate space.
func (c *OptionalLayoutContext) PositionChild(child ElementId, offset graphics.Offset) error {
	return c.positionChild(child, offset)
}

// SingleLayoutContext is the layout context for AritySingle render
// objects. The required child is validated at access time: an element
// mid-construction may not have its child attached yet, but laying out
// without one is a contract violation.
type SingleLayoutContext struct {
	layoutScope
}

// Child returns the required child, or a contract violation if none is
// attached.
func (c *SingleLayoutContext) Child() (ElementId, error) {
	elem := c.owner.tree.mustGet(c.id)
	if len(elem.children) == 0 {
		return NoElement, &errors.ContractViolationError{
			Op:      "core.SingleLayoutContext.Child",
			Element: int(c.id),
			Arity:   AritySingle.String(),
			Detail:  "required child is not attached",
		}
	}
	return elem.children[0], nil
}

// LayoutChild lays out the child under the given constraints.
func (c *SingleLayoutContext) LayoutChild(child ElementId, constraints graphics.Constraints) (graphics.Size, error) {
	return c.layoutChild(child, constraints)
}

// PositionChild places the child in this element's coordinate space.
func (c *SingleLayoutContext) PositionChild(child ElementId, offset graphics.Offset) error {
	return c.positionChild(child, offset)
}

// MultiLayoutContext is the layout context for ArityMulti render objects.
type MultiLayoutContext struct {
	layoutScope
}

// Children returns the attached children in insertion order.
func (c *MultiLayoutContext) Children() []ElementId {
	return c.owner.tree.mustGet(c.id).children
}

// LayoutChild lays out one child under the given constraints.
func (c *MultiLayoutContext) LayoutChild(child ElementId, constraints graphics.Constraints) (graphics.Size, error) {
	return c.layoutChild(child, constraints)
}

// PositionChild places one child in this element's coordinate space.
func (c *MultiLayoutContext) PositionChild(child ElementId, offset graphics.Offset) error {
	return c.positionChild(child, offset)
}

// paintScope is the state shared by all paint contexts.
type paintScope struct {
	owner *PipelineOwner
	id    ElementId
	size  graphics.Size
}

// Size returns the size chosen by this element's layout. Paint never
// remeasures.
func (s *paintScope) Size() graphics.Size { return s.size }

// Element returns the id of the element being painted.
func (s *paintScope) Element() ElementId { return s.id }

// captureChild paints a child subtree and returns its layer with the
// offset layout assigned to it.
func (s *paintScope) captureChild(child ElementId) (graphics.Layer, graphics.Offset, error) {
	elem, err := s.owner.tree.Get(child)
	if err != nil {
		return nil, graphics.Offset{}, err
	}
	if elem.parent != s.id {
		return nil, graphics.Offset{}, &errors.ContractViolationError{
			Op:      "core.captureChild",
			Element: int(child),
			Detail:  fmt.Sprintf("element %d is not a child of element %d", child, s.id),
		}
	}
	layer, err := s.owner.paintElement(elem)
	if err != nil {
		return nil, graphics.Offset{}, err
	}
	return layer, elem.offset, nil
}

// LeafPaintContext is the paint context for ArityLeaf render objects.
type LeafPaintContext struct {
	paintScope
}

// OptionalPaintContext is the paint context for ArityOptional render
// objects.
type OptionalPaintContext struct {
	paintScope
}

// Child returns the optional child, reporting whether one is attached.
func (c *OptionalPaintContext) Child() (ElementId, bool) {
	elem := c.owner.tree.mustGet(c.id)
	if len(elem.children) == 0 {
		return NoElement, false
	}
	return elem.children[0], true
}

// CaptureChildLayer paints the child and returns its layer together with
// the offset assigned during layout.
func (c *OptionalPaintContext) CaptureChildLayer(child ElementId) (graphics.Layer, graphics.Offset, error) {
	return c.captureChild(child)
}

// SinglePaintContext is the paint context for AritySingle render objects.
type SinglePaintContext struct {
	paintScope
}

// Child returns the required child, or a contract violation if none is
// attached.
func (c *SinglePaintContext) Child() (ElementId, error) {
	elem := c.owner.tree.mustGet(c.id)
	if len(elem.children) == 0 {
		return NoElement, &errors.ContractViolationError{
			Op:      "core.SinglePaintContext.Child",
			Element: int(c.id),
			Arity:   AritySingle.String(),
			Detail:  "required child is not attached",
		}
	}
	return elem.children[0], nil
}

// CaptureChildLayer paints the child and returns its layer together with
// the offset assigned during layout.
func (c *SinglePaintContext) CaptureChildLayer(child ElementId) (graphics.Layer, graphics.Offset, error) {
	return c.captureChild(child)
}

// MultiPaintContext is the paint context for ArityMulti render objects.
type MultiPaintContext struct {
	paintScope
}

// Children returns the attached children in insertion order, which is
// also paint z-order.
func (c *MultiPaintContext) Children() []ElementId {
	return c.owner.tree.mustGet(c.id).children
}

// CaptureChildLayer paints one child and returns its layer together with
// the offset assigned during layout.
func (c *MultiPaintContext) CaptureChildLayer(child ElementId) (graphics.Layer, graphics.Offset, error) {
	return c.captureChild(child)
}

// ChildLayer pairs a painted child layer with its layout offset.
type ChildLayer struct {
	Layer  graphics.Layer
	Offset graphics.Offset
}

// CaptureChildLayers paints every child in insertion order. Inactive
// children yield no layer and are omitted.
func (c *MultiPaintContext) CaptureChildLayers() ([]ChildLayer, error) {
	children := c.owner.tree.mustGet(c.id).children
	layers := make([]ChildLayer, 0, len(children))
	for _, child := range children {
		layer, offset, err := c.captureChild(child)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		layers = append(layers, ChildLayer{Layer: layer, Offset: offset})
	}
	return layers, nil
}
