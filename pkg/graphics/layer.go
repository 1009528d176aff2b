package graphics

// Layer is the composited visual output of one paint pass over a subtree.
// Layers are produced by render objects and consumed by a compositor.
//
// Layers have stable identity: a clean subtree's layer is reused across
// frames, so a parent recomposing does not force children to re-record.
type Layer interface {
	// Paint replays the layer's content onto the canvas.
	Paint(canvas Canvas)
	// Bounds returns the layer's extent in its own coordinate space.
	Bounds() Rect
	// Visible reports whether the layer produces any output.
	Visible() bool
	// HitTest reports whether the position falls on painted content.
	HitTest(position Offset) bool
	// Dispose releases resources held by the layer. A disposed layer
	// must not be painted again.
	Dispose()
}

// PictureLayer holds a recorded display list.
type PictureLayer struct {
	content  *DisplayList
	disposed bool
}

// NewPictureLayer wraps a display list in a layer.
func NewPictureLayer(content *DisplayList) *PictureLayer {
	return &PictureLayer{content: content}
}

// Paint replays the display list.
func (l *PictureLayer) Paint(canvas Canvas) {
	if l.disposed || l.content == nil {
		return
	}
	l.content.Paint(canvas)
}

// Bounds returns the recorded size anchored at the origin.
func (l *PictureLayer) Bounds() Rect {
	if l.content == nil {
		return Rect{}
	}
	size := l.content.Size()
	return RectFromLTWH(0, 0, size.Width, size.Height)
}

// Visible reports whether any operations were recorded.
func (l *PictureLayer) Visible() bool {
	return !l.disposed && l.content != nil && l.content.Len() > 0
}

// HitTest checks the position against the recorded bounds.
func (l *PictureLayer) HitTest(position Offset) bool {
	return !l.disposed && l.Bounds().Contains(position)
}

// Dispose releases the display list.
func (l *PictureLayer) Dispose() {
	l.disposed = true
	l.content = nil
}

type childLayer struct {
	layer  Layer
	offset Offset
}

// ContainerLayer composites child layers at fixed offsets.
// Children paint in insertion order; later children render on top.
type ContainerLayer struct {
	size     Size
	own      Layer
	children []childLayer
	disposed bool
}

// NewContainerLayer creates an empty container of the given size.
func NewContainerLayer(size Size) *ContainerLayer {
	return &ContainerLayer{size: size}
}

// SetContent assigns the container's own content, painted beneath all
// children.
func (l *ContainerLayer) SetContent(own Layer) {
	l.own = own
}

// Add appends a child layer positioned at offset. Insertion order is
// z-order: the last added child paints on top.
func (l *ContainerLayer) Add(child Layer, offset Offset) {
	if child == nil {
		return
	}
	l.children = append(l.children, childLayer{layer: child, offset: offset})
}

// ChildCount returns the number of attached child layers.
func (l *ContainerLayer) ChildCount() int {
	return len(l.children)
}

// Paint paints own content, then each child translated to its offset.
func (l *ContainerLayer) Paint(canvas Canvas) {
	if l.disposed {
		return
	}
	if l.own != nil {
		l.own.Paint(canvas)
	}
	for _, child := range l.children {
		canvas.Save()
		canvas.Translate(child.offset.X, child.offset.Y)
		child.layer.Paint(canvas)
		canvas.Restore()
	}
}

// Bounds returns the container size unioned with child extents.
func (l *ContainerLayer) Bounds() Rect {
	bounds := RectFromLTWH(0, 0, l.size.Width, l.size.Height)
	for _, child := range l.children {
		bounds = bounds.Union(child.layer.Bounds().Translate(child.offset.X, child.offset.Y))
	}
	return bounds
}

// Visible reports whether the container or any child paints output.
func (l *ContainerLayer) Visible() bool {
	if l.disposed {
		return false
	}
	if l.own != nil && l.own.Visible() {
		return true
	}
	for _, child := range l.children {
		if child.layer.Visible() {
			return true
		}
	}
	return false
}

// HitTest tests children top-down (reverse paint order), then own content.
func (l *ContainerLayer) HitTest(position Offset) bool {
	if l.disposed {
		return false
	}
	for i := len(l.children) - 1; i >= 0; i-- {
		child := l.children[i]
		if child.layer.HitTest(position.Sub(child.offset)) {
			return true
		}
	}
	if l.own != nil && l.own.HitTest(position) {
		return true
	}
	return false
}

// Dispose releases the container's own content and drops child
// references. Child layers stay live: they are owned by whoever produced
// them and may be reused in a replacement container.
func (l *ContainerLayer) Dispose() {
	if l.disposed {
		return
	}
	l.disposed = true
	if l.own != nil {
		l.own.Dispose()
		l.own = nil
	}
	l.children = nil
}
