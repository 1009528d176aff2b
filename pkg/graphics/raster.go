package graphics

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
)

// RasterCanvas is a software Canvas backed by an RGBA image. It stands in
// for the GPU compositor in tests and headless rendering: layers replay
// onto it and the result is inspectable pixel data.
//
// Only translation and rectangular clipping are tracked; that is the full
// transform vocabulary the layer tree emits.
type RasterCanvas struct {
	img   *image.RGBA
	state rasterState
	stack []rasterState
}

type rasterState struct {
	dx, dy float64
	clip   image.Rectangle
}

// NewRasterCanvas creates a canvas of the given pixel dimensions.
func NewRasterCanvas(width, height int) *RasterCanvas {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	return &RasterCanvas{
		img:   img,
		state: rasterState{clip: img.Bounds()},
	}
}

// Image returns the backing image.
func (c *RasterCanvas) Image() *image.RGBA {
	return c.img
}

// Save pushes the current transform and clip.
func (c *RasterCanvas) Save() {
	c.stack = append(c.stack, c.state)
}

// Restore pops the most recently saved state. Unbalanced restores are
// ignored.
func (c *RasterCanvas) Restore() {
	if len(c.stack) == 0 {
		return
	}
	c.state = c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
}

// Translate shifts the origin of subsequent draws.
func (c *RasterCanvas) Translate(dx, dy float64) {
	c.state.dx += dx
	c.state.dy += dy
}

// ClipRect intersects the clip with the given rectangle.
func (c *RasterCanvas) ClipRect(rect Rect) {
	c.state.clip = c.state.clip.Intersect(c.deviceRect(rect))
}

// Clear fills the current clip with the color.
func (c *RasterCanvas) Clear(col Color) {
	draw.Draw(c.img, c.state.clip, image.NewUniform(col), image.Point{}, draw.Src)
}

// DrawRect fills a rectangle.
func (c *RasterCanvas) DrawRect(rect Rect, paint Paint) {
	target := c.deviceRect(rect).Intersect(c.state.clip)
	if target.Empty() {
		return
	}
	draw.Draw(c.img, target, image.NewUniform(paint.Color), image.Point{}, draw.Over)
}

// DrawLine draws a 1px line by stepping along the longer axis.
func (c *RasterCanvas) DrawLine(start, end Offset, paint Paint) {
	x0 := start.X + c.state.dx
	y0 := start.Y + c.state.dy
	x1 := end.X + c.state.dx
	y1 := end.Y + c.state.dy
	steps := int(math.Max(math.Abs(x1-x0), math.Abs(y1-y0))) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		c.setPixel(int(x0+(x1-x0)*t), int(y0+(y1-y0)*t), paint.Color)
	}
}

// DrawCircle fills a circle by scanline.
func (c *RasterCanvas) DrawCircle(center Offset, radius float64, paint Paint) {
	cx := center.X + c.state.dx
	cy := center.Y + c.state.dy
	for y := int(cy - radius); y <= int(cy+radius); y++ {
		dy := float64(y) + 0.5 - cy
		span := radius*radius - dy*dy
		if span < 0 {
			continue
		}
		half := math.Sqrt(span)
		for x := int(cx - half); x <= int(cx+half); x++ {
			c.setPixel(x, y, paint.Color)
		}
	}
}

func (c *RasterCanvas) setPixel(x, y int, col Color) {
	p := image.Pt(x, y)
	if !p.In(c.state.clip) {
		return
	}
	c.img.Set(x, y, col)
}

func (c *RasterCanvas) deviceRect(rect Rect) image.Rectangle {
	return image.Rect(
		int(math.Floor(rect.Left+c.state.dx)),
		int(math.Floor(rect.Top+c.state.dy)),
		int(math.Ceil(rect.Right+c.state.dx)),
		int(math.Ceil(rect.Bottom+c.state.dy)),
	)
}

// Rasterize paints a layer at its logical size and resamples to the
// device scale. Scale 1 returns the logical-resolution image directly;
// other scales resample with a Catmull-Rom kernel.
func Rasterize(layer Layer, size Size, scale float64) *image.RGBA {
	logicalW := int(math.Ceil(size.Width))
	logicalH := int(math.Ceil(size.Height))
	if logicalW < 1 {
		logicalW = 1
	}
	if logicalH < 1 {
		logicalH = 1
	}
	canvas := NewRasterCanvas(logicalW, logicalH)
	if layer != nil {
		layer.Paint(canvas)
	}
	if floatEqual(scale, 1) {
		return canvas.Image()
	}
	deviceW := int(math.Ceil(size.Width * scale))
	deviceH := int(math.Ceil(size.Height * scale))
	if deviceW < 1 {
		deviceW = 1
	}
	if deviceH < 1 {
		deviceH = 1
	}
	scaled := image.NewRGBA(image.Rect(0, 0, deviceW, deviceH))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), canvas.Image(), canvas.Image().Bounds(), xdraw.Src, nil)
	return scaled
}

var _ color.Color = Color{}
