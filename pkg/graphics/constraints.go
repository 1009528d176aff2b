package graphics

import "math"

// Constraints describe the range of sizes a render object may choose
// during layout. A parent passes constraints down; the child picks a size
// within them and returns it.
type Constraints struct {
	MinWidth  float64
	MaxWidth  float64
	MinHeight float64
	MaxHeight float64
}

// Unconstrained returns constraints that allow any size.
func Unconstrained() Constraints {
	return Constraints{
		MaxWidth:  math.Inf(1),
		MaxHeight: math.Inf(1),
	}
}

// Tight returns constraints that force exactly the given size.
func Tight(size Size) Constraints {
	return Constraints{
		MinWidth:  size.Width,
		MaxWidth:  size.Width,
		MinHeight: size.Height,
		MaxHeight: size.Height,
	}
}

// Loose returns constraints that allow any size up to the given maximum.
func Loose(size Size) Constraints {
	return Constraints{
		MaxWidth:  size.Width,
		MaxHeight: size.Height,
	}
}

// IsTight returns true if the constraints permit exactly one size.
func (c Constraints) IsTight() bool {
	return floatEqual(c.MinWidth, c.MaxWidth) && floatEqual(c.MinHeight, c.MaxHeight)
}

// Constrain clamps the given size to the constraint range on both axes.
func (c Constraints) Constrain(size Size) Size {
	return Size{
		Width:  clamp(size.Width, c.MinWidth, c.MaxWidth),
		Height: clamp(size.Height, c.MinHeight, c.MaxHeight),
	}
}

// Smallest returns the smallest size satisfying the constraints.
func (c Constraints) Smallest() Size {
	return Size{Width: c.MinWidth, Height: c.MinHeight}
}

// Biggest returns the largest size satisfying the constraints.
// Unbounded axes fall back to the minimum on that axis.
func (c Constraints) Biggest() Size {
	size := Size{Width: c.MaxWidth, Height: c.MaxHeight}
	if math.IsInf(size.Width, 1) {
		size.Width = c.MinWidth
	}
	if math.IsInf(size.Height, 1) {
		size.Height = c.MinHeight
	}
	return size
}

// IsSatisfiedBy reports whether the size lies within the constraint range.
func (c Constraints) IsSatisfiedBy(size Size) bool {
	return size.Width >= c.MinWidth-epsilon && size.Width <= c.MaxWidth+epsilon &&
		size.Height >= c.MinHeight-epsilon && size.Height <= c.MaxHeight+epsilon
}

// Deflate shrinks the constraints by the given horizontal and vertical
// insets, flooring at zero. Used by wrappers that reserve edge space.
func (c Constraints) Deflate(horizontal, vertical float64) Constraints {
	return Constraints{
		MinWidth:  math.Max(0, c.MinWidth-horizontal),
		MaxWidth:  math.Max(0, c.MaxWidth-horizontal),
		MinHeight: math.Max(0, c.MinHeight-vertical),
		MaxHeight: math.Max(0, c.MaxHeight-vertical),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
