package graphics

// Color is a 32-bit ARGB color.
type Color struct {
	A uint8
	R uint8
	G uint8
	B uint8
}

// RGBA implements image/color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	a = uint32(c.A)
	a |= a << 8
	r = uint32(c.R)
	r |= r << 8
	r = r * a / 0xffff
	g = uint32(c.G)
	g |= g << 8
	g = g * a / 0xffff
	b = uint32(c.B)
	b |= b << 8
	b = b * a / 0xffff
	return
}

// Paint carries the styling for a draw call.
type Paint struct {
	Color Color
}

// Canvas receives drawing commands. Render objects record onto a
// PictureRecorder canvas; compositors replay layers onto a backend canvas.
type Canvas interface {
	Save()
	Restore()
	Translate(dx, dy float64)
	ClipRect(rect Rect)
	Clear(color Color)
	DrawRect(rect Rect, paint Paint)
	DrawLine(start, end Offset, paint Paint)
	DrawCircle(center Offset, radius float64, paint Paint)
}
