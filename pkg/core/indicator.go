package core

import "github.com/loom-ui/loom/pkg/graphics"

// ErrorIndicatorLayer is the placeholder the pipeline substitutes for a
// subtree whose layout or paint failed: a red box with a cross, sized to
// whatever space the failed element occupies. The rest of the frame
// composites normally around it.
type ErrorIndicatorLayer struct {
	*graphics.PictureLayer
	message string
}

// Message returns the failure description carried by the indicator.
func (l *ErrorIndicatorLayer) Message() string { return l.message }

func newErrorIndicator(size graphics.Size, message string) *ErrorIndicatorLayer {
	var recorder graphics.PictureRecorder
	canvas := recorder.BeginRecording(size)

	fill := graphics.Paint{Color: graphics.Color{A: 255, R: 200, G: 30, B: 30}}
	stroke := graphics.Paint{Color: graphics.Color{A: 255, R: 255, G: 255, B: 255}}

	canvas.DrawRect(graphics.RectFromLTWH(0, 0, size.Width, size.Height), fill)
	canvas.DrawLine(graphics.Offset{}, graphics.Offset{X: size.Width, Y: size.Height}, stroke)
	canvas.DrawLine(graphics.Offset{Y: size.Height}, graphics.Offset{X: size.Width}, stroke)

	return &ErrorIndicatorLayer{
		PictureLayer: graphics.NewPictureLayer(recorder.EndRecording()),
		message:      message,
	}
}
