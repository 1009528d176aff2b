package core

import (
	"math"

	"github.com/loom-ui/loom/pkg/graphics"
)

// RenderObject is the per-node component responsible for measuring and
// producing visuals. Every render object is exclusively owned by one
// element and additionally implements exactly the capability interface
// matching its declared arity: LeafRender, OptionalRender, SingleRender,
// or MultiRender. The pipeline type-asserts the capability at the single
// point children are laid out and painted; a declared arity without the
// matching capability is a contract violation.
type RenderObject interface {
	// Arity declares the child-count contract for this render object.
	Arity() Arity
}

// LeafRender is a render object with no children.
type LeafRender interface {
	RenderObject
	Layout(ctx *LeafLayoutContext) (graphics.Size, error)
	Paint(ctx *LeafPaintContext) (graphics.Layer, error)
}

// OptionalRender is a render object with zero or one child.
type OptionalRender interface {
	RenderObject
	Layout(ctx *OptionalLayoutContext) (graphics.Size, error)
	Paint(ctx *OptionalPaintContext) (graphics.Layer, error)
}

// SingleRender is a render object with exactly one child.
type SingleRender interface {
	RenderObject
	Layout(ctx *SingleLayoutContext) (graphics.Size, error)
	Paint(ctx *SinglePaintContext) (graphics.Layer, error)
}

// MultiRender is a render object with any number of children, processed
// in insertion order. Insertion order is paint z-order: later children
// render on top.
type MultiRender interface {
	RenderObject
	Layout(ctx *MultiLayoutContext) (graphics.Size, error)
	Paint(ctx *MultiPaintContext) (graphics.Layer, error)
}

// HitTester overrides the default own-bounds hit check. The size passed
// is the element's laid-out size; position is in local coordinates.
type HitTester interface {
	HitTest(position graphics.Offset, size graphics.Size) bool
}

// IntrinsicSizer exposes intrinsic size queries. Render objects that do
// not implement it are treated as unconstrained.
type IntrinsicSizer interface {
	// IntrinsicWidth returns the preferred width for the given height.
	IntrinsicWidth(height float64) float64
	// IntrinsicHeight returns the preferred height for the given width.
	IntrinsicHeight(width float64) float64
}

// PaintExtentProvider is implemented by scroll-aware render objects whose
// painted extent may be smaller than their laid-out bounds. Hit tests
// additionally require the position to lie within the painted extent.
type PaintExtentProvider interface {
	PaintExtent() graphics.Size
}

// Disposer is implemented by render objects holding resources that must
// be released on unmount.
type Disposer interface {
	Dispose()
}

// IntrinsicWidthOf queries the render object's intrinsic width, or +Inf
// when the object declares none.
func IntrinsicWidthOf(ro RenderObject, height float64) float64 {
	if sizer, ok := ro.(IntrinsicSizer); ok {
		return sizer.IntrinsicWidth(height)
	}
	return inf()
}

// IntrinsicHeightOf queries the render object's intrinsic height, or +Inf
// when the object declares none.
func IntrinsicHeightOf(ro RenderObject, width float64) float64 {
	if sizer, ok := ro.(IntrinsicSizer); ok {
		return sizer.IntrinsicHeight(width)
	}
	return inf()
}

func inf() float64 { return math.Inf(1) }
