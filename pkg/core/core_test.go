package core

import (
	"testing"

	"github.com/loom-ui/loom/pkg/errors"
	"github.com/loom-ui/loom/pkg/graphics"
)

// leafWidget hosts a leafRender with a fixed preferred size.
type leafWidget struct {
	size graphics.Size
}

func (w *leafWidget) CreateRenderObject() RenderObject {
	return &leafRender{size: w.size}
}

func (w *leafWidget) UpdateRenderObject(ro RenderObject) {
	ro.(*leafRender).size = w.size
}

// leafRender reports its preferred size clamped to the constraints and
// paints a single filled rect. Panics on demand for failure tests.
type leafRender struct {
	size        graphics.Size
	layoutCalls int
	paintCalls  int
	layoutPanic string
	paintPanic  string
}

func (r *leafRender) Arity() Arity { return ArityLeaf }

func (r *leafRender) Layout(ctx *LeafLayoutContext) (graphics.Size, error) {
	r.layoutCalls++
	if r.layoutPanic != "" {
		panic(r.layoutPanic)
	}
	return ctx.Constraints().Constrain(r.size), nil
}

func (r *leafRender) Paint(ctx *LeafPaintContext) (graphics.Layer, error) {
	r.paintCalls++
	if r.paintPanic != "" {
		panic(r.paintPanic)
	}
	var recorder graphics.PictureRecorder
	canvas := recorder.BeginRecording(ctx.Size())
	canvas.DrawRect(graphics.RectFromLTWH(0, 0, ctx.Size().Width, ctx.Size().Height), graphics.Paint{})
	return graphics.NewPictureLayer(recorder.EndRecording()), nil
}

// paddingWidget hosts a paddingRender reserving a uniform inset around
// its required child.
type paddingWidget struct {
	inset float64
}

func (w *paddingWidget) CreateRenderObject() RenderObject {
	return &paddingRender{inset: w.inset}
}

func (w *paddingWidget) UpdateRenderObject(ro RenderObject) {
	ro.(*paddingRender).inset = w.inset
}

type paddingRender struct {
	inset float64
}

func (r *paddingRender) Arity() Arity { return AritySingle }

func (r *paddingRender) Layout(ctx *SingleLayoutContext) (graphics.Size, error) {
	child, err := ctx.Child()
	if err != nil {
		return graphics.Size{}, err
	}
	inner, err := ctx.LayoutChild(child, ctx.Constraints().Deflate(2*r.inset, 2*r.inset))
	if err != nil {
		return graphics.Size{}, err
	}
	if err := ctx.PositionChild(child, graphics.Offset{X: r.inset, Y: r.inset}); err != nil {
		return graphics.Size{}, err
	}
	return ctx.Constraints().Constrain(graphics.Size{
		Width:  inner.Width + 2*r.inset,
		Height: inner.Height + 2*r.inset,
	}), nil
}

func (r *paddingRender) Paint(ctx *SinglePaintContext) (graphics.Layer, error) {
	child, err := ctx.Child()
	if err != nil {
		return nil, err
	}
	layer, offset, err := ctx.CaptureChildLayer(child)
	if err != nil {
		return nil, err
	}
	container := graphics.NewContainerLayer(ctx.Size())
	container.Add(layer, offset)
	return container, nil
}

// columnWidget hosts a columnRender stacking children vertically.
type columnWidget struct{}

func (w *columnWidget) CreateRenderObject() RenderObject { return &columnRender{} }
func (w *columnWidget) UpdateRenderObject(RenderObject)  {}

type columnRender struct{}

func (r *columnRender) Arity() Arity { return ArityMulti }

func (r *columnRender) Layout(ctx *MultiLayoutContext) (graphics.Size, error) {
	loose := graphics.Loose(ctx.Constraints().Biggest())
	var total graphics.Size
	for _, child := range ctx.Children() {
		size, err := ctx.LayoutChild(child, loose)
		if err != nil {
			return graphics.Size{}, err
		}
		if err := ctx.PositionChild(child, graphics.Offset{Y: total.Height}); err != nil {
			return graphics.Size{}, err
		}
		total.Height += size.Height
		if size.Width > total.Width {
			total.Width = size.Width
		}
	}
	return ctx.Constraints().Constrain(total), nil
}

func (r *columnRender) Paint(ctx *MultiPaintContext) (graphics.Layer, error) {
	layers, err := ctx.CaptureChildLayers()
	if err != nil {
		return nil, err
	}
	container := graphics.NewContainerLayer(ctx.Size())
	for _, child := range layers {
		container.Add(child.Layer, child.Offset)
	}
	return container, nil
}

// optionalWidget hosts an optionalRender that sizes to its child when one
// is attached and to fallback otherwise.
type optionalWidget struct {
	fallback graphics.Size
}

func (w *optionalWidget) CreateRenderObject() RenderObject {
	return &optionalRender{fallback: w.fallback}
}

func (w *optionalWidget) UpdateRenderObject(ro RenderObject) {
	ro.(*optionalRender).fallback = w.fallback
}

type optionalRender struct {
	fallback graphics.Size
}

func (r *optionalRender) Arity() Arity { return ArityOptional }

func (r *optionalRender) Layout(ctx *OptionalLayoutContext) (graphics.Size, error) {
	child, ok := ctx.Child()
	if !ok {
		return ctx.Constraints().Constrain(r.fallback), nil
	}
	size, err := ctx.LayoutChild(child, ctx.Constraints())
	if err != nil {
		return graphics.Size{}, err
	}
	if err := ctx.PositionChild(child, graphics.Offset{}); err != nil {
		return graphics.Size{}, err
	}
	return size, nil
}

func (r *optionalRender) Paint(ctx *OptionalPaintContext) (graphics.Layer, error) {
	container := graphics.NewContainerLayer(ctx.Size())
	if child, ok := ctx.Child(); ok {
		layer, offset, err := ctx.CaptureChildLayer(child)
		if err != nil {
			return nil, err
		}
		container.Add(layer, offset)
	}
	return container, nil
}

// captureHandler collects reported phase errors.
type captureHandler struct {
	phaseErrors []*errors.PhaseError
}

func (h *captureHandler) HandlePhaseError(err *errors.PhaseError) {
	h.phaseErrors = append(h.phaseErrors, err)
}

// mustInflate fails the test if the inflate errors.
func mustInflate(t *testing.T, tree *Tree, widget Widget, parent ElementId) ElementId {
	t.Helper()
	id, err := tree.Inflate(widget, parent)
	if err != nil {
		t.Fatalf("Inflate: %v", err)
	}
	return id
}
