package core

import (
	"strings"
	"testing"

	"github.com/loom-ui/loom/pkg/errors"
	"github.com/loom-ui/loom/pkg/graphics"
)

// cascadeWidget marks another element build-dirty during its own rebuild.
type cascadeWidget struct {
	owner  *PipelineOwner
	target *ElementId
	builds int
}

func (w *cascadeWidget) CreateRenderObject() RenderObject { return &leafRender{} }

func (w *cascadeWidget) UpdateRenderObject(RenderObject) {
	w.builds++
	if w.builds == 1 && w.target != nil && *w.target != NoElement {
		w.owner.MarkNeedsBuild(*w.target)
	}
}

// rogueWidget hosts a render object that ignores its constraints.
type rogueWidget struct {
	size graphics.Size
}

func (w *rogueWidget) CreateRenderObject() RenderObject { return &rogueRender{size: w.size} }
func (w *rogueWidget) UpdateRenderObject(RenderObject)  {}

type rogueRender struct {
	size graphics.Size
}

func (r *rogueRender) Arity() Arity { return ArityLeaf }

func (r *rogueRender) Layout(ctx *LeafLayoutContext) (graphics.Size, error) {
	return r.size, nil
}

func (r *rogueRender) Paint(ctx *LeafPaintContext) (graphics.Layer, error) {
	return graphics.NewPictureLayer(nil), nil
}

// cyclicWidget hosts a render object that re-enters its own paint.
type cyclicWidget struct {
	owner *PipelineOwner
	self  *ElementId
}

func (w *cyclicWidget) CreateRenderObject() RenderObject {
	return &cyclicRender{owner: w.owner, self: w.self}
}

func (w *cyclicWidget) UpdateRenderObject(RenderObject) {}

type cyclicRender struct {
	owner   *PipelineOwner
	self    *ElementId
	recurse bool
}

func (r *cyclicRender) Arity() Arity { return ArityLeaf }

func (r *cyclicRender) Layout(ctx *LeafLayoutContext) (graphics.Size, error) {
	return ctx.Constraints().Smallest(), nil
}

func (r *cyclicRender) Paint(ctx *LeafPaintContext) (graphics.Layer, error) {
	if r.recurse {
		return r.owner.paintElement(r.owner.tree.mustGet(*r.self))
	}
	return graphics.NewPictureLayer(nil), nil
}

func loose400() graphics.Constraints {
	return graphics.Loose(graphics.Size{Width: 400, Height: 400})
}

func renderFrame(t *testing.T, o *PipelineOwner, constraints graphics.Constraints) graphics.Layer {
	t.Helper()
	o.FlushBuild()
	if _, _, err := o.FlushLayout(constraints); err != nil {
		t.Fatalf("FlushLayout: %v", err)
	}
	layer, _, err := o.FlushPaint()
	if err != nil {
		t.Fatalf("FlushPaint: %v", err)
	}
	return layer
}

func TestPipeline_LeafSizing(t *testing.T) {
	o := NewOwner(16)
	root := mustInflate(t, o.Tree(), &leafWidget{size: graphics.Size{Width: 100, Height: 50}}, NoElement)

	o.FlushBuild()
	size, worked, err := o.FlushLayout(loose400())
	if err != nil {
		t.Fatalf("FlushLayout: %v", err)
	}
	if !worked {
		t.Error("FlushLayout reported no work on a fresh tree")
	}
	if size != (graphics.Size{Width: 100, Height: 50}) {
		t.Errorf("root size = %+v, want 100x50", size)
	}
	got, _ := o.Tree().SizeOf(root)
	if got != size {
		t.Errorf("SizeOf = %+v, want %+v", got, size)
	}
}

func TestPipeline_PaddingAroundLeaf(t *testing.T) {
	o := NewOwner(16)
	pad := mustInflate(t, o.Tree(), &paddingWidget{inset: 10}, NoElement)
	child := mustInflate(t, o.Tree(), &leafWidget{size: graphics.Size{Width: 100, Height: 50}}, pad)

	o.FlushBuild()
	size, _, err := o.FlushLayout(loose400())
	if err != nil {
		t.Fatalf("FlushLayout: %v", err)
	}
	if size != (graphics.Size{Width: 120, Height: 70}) {
		t.Errorf("padded size = %+v, want 120x70", size)
	}
	offset, _ := o.Tree().OffsetOf(child)
	if offset != (graphics.Offset{X: 10, Y: 10}) {
		t.Errorf("child offset = %+v, want (10, 10)", offset)
	}
}

func TestPipeline_ColumnStacksChildren(t *testing.T) {
	o := NewOwner(16)
	root := mustInflate(t, o.Tree(), &columnWidget{}, NoElement)
	mustInflate(t, o.Tree(), &leafWidget{size: graphics.Size{Width: 100, Height: 50}}, root)
	b := mustInflate(t, o.Tree(), &leafWidget{size: graphics.Size{Width: 120, Height: 60}}, root)
	c := mustInflate(t, o.Tree(), &leafWidget{size: graphics.Size{Width: 80, Height: 40}}, root)

	o.FlushBuild()
	size, _, err := o.FlushLayout(loose400())
	if err != nil {
		t.Fatalf("FlushLayout: %v", err)
	}
	if size != (graphics.Size{Width: 120, Height: 150}) {
		t.Errorf("column size = %+v, want 120x150", size)
	}

	offB, _ := o.Tree().OffsetOf(b)
	if offB != (graphics.Offset{Y: 50}) {
		t.Errorf("second child offset = %+v, want (0, 50)", offB)
	}
	offC, _ := o.Tree().OffsetOf(c)
	if offC != (graphics.Offset{Y: 110}) {
		t.Errorf("third child offset = %+v, want (0, 110)", offC)
	}

	layer, painted, err := o.FlushPaint()
	if err != nil {
		t.Fatalf("FlushPaint: %v", err)
	}
	if !painted {
		t.Error("FlushPaint reported no work on first frame")
	}
	container, ok := layer.(*graphics.ContainerLayer)
	if !ok {
		t.Fatalf("root layer is %T, want ContainerLayer", layer)
	}
	if container.ChildCount() != 3 {
		t.Errorf("root layer has %d children, want 3", container.ChildCount())
	}
}

func TestPipeline_CleanSubtreeSkipsLayout(t *testing.T) {
	o := NewOwner(16)
	root := mustInflate(t, o.Tree(), &leafWidget{size: graphics.Size{Width: 10, Height: 10}}, NoElement)
	renderFrame(t, o, loose400())

	render, _ := o.Tree().RenderObjectOf(root)
	leaf := render.(*leafRender)
	if leaf.layoutCalls != 1 {
		t.Fatalf("layoutCalls = %d after first frame, want 1", leaf.layoutCalls)
	}

	// Same constraints, nothing dirty: cached size is reused.
	_, worked, err := o.FlushLayout(loose400())
	if err != nil {
		t.Fatalf("FlushLayout: %v", err)
	}
	if worked || leaf.layoutCalls != 1 {
		t.Errorf("clean re-layout ran: worked=%v calls=%d", worked, leaf.layoutCalls)
	}

	// Changed constraints invalidate the cache even without dirt.
	_, worked, err = o.FlushLayout(graphics.Tight(graphics.Size{Width: 30, Height: 30}))
	if err != nil {
		t.Fatalf("FlushLayout: %v", err)
	}
	if !worked || leaf.layoutCalls != 2 {
		t.Errorf("constraint change skipped: worked=%v calls=%d", worked, leaf.layoutCalls)
	}

	// An explicit mark forces a re-layout under unchanged constraints.
	o.MarkNeedsLayout(root)
	_, worked, _ = o.FlushLayout(graphics.Tight(graphics.Size{Width: 30, Height: 30}))
	if !worked || leaf.layoutCalls != 3 {
		t.Errorf("marked re-layout skipped: worked=%v calls=%d", worked, leaf.layoutCalls)
	}
}

func TestPipeline_CleanSubtreeReusesLayer(t *testing.T) {
	o := NewOwner(16)
	pad := mustInflate(t, o.Tree(), &paddingWidget{inset: 5}, NoElement)
	child := mustInflate(t, o.Tree(), &leafWidget{size: graphics.Size{Width: 20, Height: 20}}, pad)

	first := renderFrame(t, o, loose400())

	childRender, _ := o.Tree().RenderObjectOf(child)
	leaf := childRender.(*leafRender)
	if leaf.paintCalls != 1 {
		t.Fatalf("paintCalls = %d after first frame, want 1", leaf.paintCalls)
	}

	// Nothing dirty: the same root layer comes back untouched.
	second, painted, err := o.FlushPaint()
	if err != nil {
		t.Fatalf("FlushPaint: %v", err)
	}
	if painted || second != first {
		t.Errorf("clean repaint produced new output: painted=%v same=%v", painted, second == first)
	}

	// Repainting the child invalidates the ancestor chain, and the
	// child's layer is regenerated.
	o.MarkNeedsPaint(child)
	third, painted, err := o.FlushPaint()
	if err != nil {
		t.Fatalf("FlushPaint: %v", err)
	}
	if !painted || leaf.paintCalls != 2 {
		t.Errorf("marked repaint skipped: painted=%v calls=%d", painted, leaf.paintCalls)
	}
	if third == first {
		t.Error("root layer not recomposited after child repaint")
	}
}

func TestPipeline_BuildCascadeDrainsInOneFlush(t *testing.T) {
	o := NewOwner(16)
	root := mustInflate(t, o.Tree(), &columnWidget{}, NoElement)

	var targetId ElementId
	trigger := &cascadeWidget{owner: o, target: &targetId}
	triggerId := mustInflate(t, o.Tree(), trigger, root)

	target := &cascadeWidget{owner: o}
	targetId = mustInflate(t, o.Tree(), target, root)

	// Inflate marked everything once; drain that.
	o.FlushBuild()
	builds := target.builds

	trigger.builds = 0
	o.MarkNeedsBuild(triggerId)
	if !o.FlushBuild() {
		t.Fatal("FlushBuild reported no work")
	}

	// The mark enqueued by the trigger's rebuild is processed in the same
	// flush, not deferred to the next frame.
	if target.builds != builds+1 {
		t.Errorf("target builds = %d, want %d", target.builds, builds+1)
	}
	if o.buildDirty.Any() {
		t.Error("build set not empty after flush")
	}
}

func TestPipeline_BuildMarksLayoutAndPaint(t *testing.T) {
	o := NewOwner(16)
	root := mustInflate(t, o.Tree(), &leafWidget{size: graphics.Size{Width: 10, Height: 10}}, NoElement)
	renderFrame(t, o, loose400())

	o.MarkNeedsBuild(root)
	if !o.FlushBuild() {
		t.Fatal("FlushBuild reported no work")
	}
	_, laidOut, err := o.FlushLayout(loose400())
	if err != nil {
		t.Fatalf("FlushLayout: %v", err)
	}
	if !laidOut {
		t.Error("rebuild did not dirty layout")
	}
	_, painted, err := o.FlushPaint()
	if err != nil {
		t.Fatalf("FlushPaint: %v", err)
	}
	if !painted {
		t.Error("rebuild did not dirty paint")
	}
}

func TestPipeline_LayoutFailureIsolated(t *testing.T) {
	handler := &captureHandler{}
	errors.SetHandler(handler)
	defer errors.SetHandler(nil)

	o := NewOwner(16)
	root := mustInflate(t, o.Tree(), &columnWidget{}, NoElement)
	a := mustInflate(t, o.Tree(), &leafWidget{size: graphics.Size{Width: 100, Height: 50}}, root)
	broken := mustInflate(t, o.Tree(), &leafWidget{size: graphics.Size{Width: 120, Height: 60}}, root)
	c := mustInflate(t, o.Tree(), &leafWidget{size: graphics.Size{Width: 80, Height: 40}}, root)

	brokenRender, _ := o.Tree().RenderObjectOf(broken)
	brokenRender.(*leafRender).layoutPanic = "boom"

	o.FlushBuild()
	size, _, err := o.FlushLayout(loose400())
	if err != nil {
		t.Fatalf("FlushLayout: %v", err)
	}

	// The failed subtree collapses to the smallest permitted size; its
	// siblings lay out normally.
	if size != (graphics.Size{Width: 100, Height: 90}) {
		t.Errorf("column size = %+v, want 100x90", size)
	}
	if got, _ := o.Tree().SizeOf(a); got != (graphics.Size{Width: 100, Height: 50}) {
		t.Errorf("sibling a size = %+v", got)
	}
	if got, _ := o.Tree().SizeOf(c); got != (graphics.Size{Width: 80, Height: 40}) {
		t.Errorf("sibling c size = %+v", got)
	}

	if len(handler.phaseErrors) != 1 {
		t.Fatalf("reported %d phase errors, want 1", len(handler.phaseErrors))
	}
	report := handler.phaseErrors[0]
	if report.Phase != "layout" || report.Element != int(broken) {
		t.Errorf("report = phase %q element %d", report.Phase, report.Element)
	}
	if report.Recovered == nil || report.StackTrace == "" {
		t.Error("panic report missing recovered value or stack trace")
	}
}

func TestPipeline_FailedElementPaintsIndicator(t *testing.T) {
	handler := &captureHandler{}
	errors.SetHandler(handler)
	defer errors.SetHandler(nil)

	o := NewOwner(16)
	root := mustInflate(t, o.Tree(), &paddingWidget{inset: 10}, NoElement)
	child := mustInflate(t, o.Tree(), &leafWidget{size: graphics.Size{Width: 50, Height: 50}}, root)

	childRender, _ := o.Tree().RenderObjectOf(child)
	childRender.(*leafRender).paintPanic = "paint boom"

	o.FlushBuild()
	if _, _, err := o.FlushLayout(loose400()); err != nil {
		t.Fatalf("FlushLayout: %v", err)
	}
	layer, _, err := o.FlushPaint()
	if err != nil {
		t.Fatalf("FlushPaint: %v", err)
	}
	if layer == nil {
		t.Fatal("no root layer despite recoverable failure")
	}

	container, ok := layer.(*graphics.ContainerLayer)
	if !ok {
		t.Fatalf("root layer is %T", layer)
	}
	if container.ChildCount() != 1 {
		t.Fatalf("root layer children = %d, want indicator substitute", container.ChildCount())
	}

	elem, _ := o.Tree().Get(child)
	indicator, ok := elem.Layer().(*ErrorIndicatorLayer)
	if !ok {
		t.Fatalf("failed child layer is %T, want ErrorIndicatorLayer", elem.Layer())
	}
	if !strings.Contains(indicator.Message(), "paint boom") {
		t.Errorf("indicator message = %q", indicator.Message())
	}
}

func TestPipeline_FailureClearsOnSuccessfulRebuild(t *testing.T) {
	handler := &captureHandler{}
	errors.SetHandler(handler)
	defer errors.SetHandler(nil)

	o := NewOwner(16)
	root := mustInflate(t, o.Tree(), &leafWidget{size: graphics.Size{Width: 40, Height: 40}}, NoElement)

	render, _ := o.Tree().RenderObjectOf(root)
	render.(*leafRender).layoutPanic = "transient"
	renderFrame(t, o, loose400())

	elem, _ := o.Tree().Get(root)
	if _, ok := elem.Layer().(*ErrorIndicatorLayer); !ok {
		t.Fatalf("expected indicator after failure, got %T", elem.Layer())
	}

	// The fault is fixed and the element rebuilt; the indicator goes away.
	render.(*leafRender).layoutPanic = ""
	o.MarkNeedsBuild(root)
	layer := renderFrame(t, o, loose400())

	if _, ok := layer.(*ErrorIndicatorLayer); ok {
		t.Error("indicator persisted after successful rebuild")
	}
	if size, _ := o.Tree().SizeOf(root); size != (graphics.Size{Width: 40, Height: 40}) {
		t.Errorf("recovered size = %+v", size)
	}
}

func TestPipeline_ConstraintViolationFailsFast(t *testing.T) {
	o := NewOwner(16)
	mustInflate(t, o.Tree(), &rogueWidget{size: graphics.Size{Width: 999, Height: 999}}, NoElement)

	o.FlushBuild()
	_, _, err := o.FlushLayout(loose400())
	isContract(t, err)
}

func TestPipeline_MissingRequiredChildFailsFast(t *testing.T) {
	o := NewOwner(16)
	mustInflate(t, o.Tree(), &paddingWidget{inset: 5}, NoElement)

	o.FlushBuild()
	_, _, err := o.FlushLayout(loose400())
	cv := isContract(t, err)
	if cv.Arity != "Single" {
		t.Errorf("violation arity = %q, want Single", cv.Arity)
	}
}

func TestPipeline_PaintBeforeLayoutFailsFast(t *testing.T) {
	o := NewOwner(16)
	mustInflate(t, o.Tree(), &leafWidget{size: graphics.Size{Width: 10, Height: 10}}, NoElement)

	o.FlushBuild()
	_, _, err := o.FlushPaint()
	isContract(t, err)
}

func TestPipeline_PaintCycleDetected(t *testing.T) {
	o := NewOwner(16)
	var self ElementId
	self = mustInflate(t, o.Tree(), &cyclicWidget{owner: o, self: &self}, NoElement)

	render, _ := o.Tree().RenderObjectOf(self)
	cyclic := render.(*cyclicRender)
	cyclic.recurse = true

	o.FlushBuild()
	if _, _, err := o.FlushLayout(loose400()); err != nil {
		t.Fatalf("FlushLayout: %v", err)
	}
	_, _, err := o.FlushPaint()
	if err == nil {
		t.Fatal("paint cycle not detected")
	}
	cycle, ok := err.(*errors.CycleError)
	if !ok {
		t.Fatalf("expected CycleError, got %T: %v", err, err)
	}
	if cycle.Element != int(self) {
		t.Errorf("cycle element = %d, want %d", cycle.Element, self)
	}

	// The guard unwinds cleanly; with the recursion removed the element
	// paints fine on the next frame.
	cyclic.recurse = false
	o.MarkNeedsPaint(self)
	if _, _, err := o.FlushPaint(); err != nil {
		t.Errorf("repaint after cycle: %v", err)
	}
}

func TestPipeline_OptionalWithAndWithoutChild(t *testing.T) {
	o := NewOwner(16)
	root := mustInflate(t, o.Tree(), &optionalWidget{fallback: graphics.Size{Width: 25, Height: 25}}, NoElement)

	o.FlushBuild()
	size, _, err := o.FlushLayout(loose400())
	if err != nil {
		t.Fatalf("FlushLayout: %v", err)
	}
	if size != (graphics.Size{Width: 25, Height: 25}) {
		t.Errorf("childless optional size = %+v, want fallback", size)
	}

	mustInflate(t, o.Tree(), &leafWidget{size: graphics.Size{Width: 60, Height: 30}}, root)
	o.FlushBuild()
	o.MarkNeedsLayout(root)
	size, _, err = o.FlushLayout(loose400())
	if err != nil {
		t.Fatalf("FlushLayout: %v", err)
	}
	if size != (graphics.Size{Width: 60, Height: 30}) {
		t.Errorf("optional with child size = %+v, want child size", size)
	}
}

func TestPipeline_InactiveSubtreeSkipped(t *testing.T) {
	o := NewOwner(16)
	root := mustInflate(t, o.Tree(), &columnWidget{}, NoElement)
	a := mustInflate(t, o.Tree(), &leafWidget{size: graphics.Size{Width: 100, Height: 50}}, root)
	b := mustInflate(t, o.Tree(), &leafWidget{size: graphics.Size{Width: 100, Height: 60}}, root)

	renderFrame(t, o, loose400())

	if err := o.Tree().Deactivate(b); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	o.MarkNeedsLayout(root)
	size, _, err := o.FlushLayout(loose400())
	if err != nil {
		t.Fatalf("FlushLayout: %v", err)
	}
	// The inactive child contributes zero size.
	if size != (graphics.Size{Width: 100, Height: 50}) {
		t.Errorf("size with inactive child = %+v, want 100x50", size)
	}

	if err := o.Tree().Activate(b); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	o.FlushBuild()
	size, _, err = o.FlushLayout(loose400())
	if err != nil {
		t.Fatalf("FlushLayout: %v", err)
	}
	if size != (graphics.Size{Width: 100, Height: 110}) {
		t.Errorf("size after reactivation = %+v, want 100x110", size)
	}
	_ = a
}

func TestPipeline_EmptyTree(t *testing.T) {
	o := NewOwner(16)

	if o.FlushBuild() {
		t.Error("FlushBuild reported work on an empty tree")
	}
	size, worked, err := o.FlushLayout(loose400())
	if err != nil || worked || size != (graphics.Size{}) {
		t.Errorf("FlushLayout on empty tree = %+v, %v, %v", size, worked, err)
	}
	layer, painted, err := o.FlushPaint()
	if err != nil || painted || layer != nil {
		t.Errorf("FlushPaint on empty tree = %v, %v, %v", layer, painted, err)
	}
}

func TestPipeline_MarksForDeadElementsIgnored(t *testing.T) {
	o := NewOwner(16)
	root := mustInflate(t, o.Tree(), &columnWidget{}, NoElement)
	child := mustInflate(t, o.Tree(), &leafWidget{size: graphics.Size{Width: 10, Height: 10}}, root)
	renderFrame(t, o, loose400())

	if err := o.Tree().Unmount(child); err != nil {
		t.Fatalf("Unmount: %v", err)
	}
	// A mark raced with the unmount; the flush drops it silently.
	o.MarkNeedsBuild(child)
	o.MarkNeedsLayout(child)
	o.FlushBuild()
	if _, _, err := o.FlushLayout(loose400()); err != nil {
		t.Fatalf("FlushLayout: %v", err)
	}
}
