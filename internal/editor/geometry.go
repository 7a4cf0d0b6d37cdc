// Package editor implements the crop, rotate, flip, and grid-split core
// operating on decoded images.
package editor

import "math"

// Rect is an axis-aligned rectangle in source pixel space.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// DisplayRect is a rectangle expressed in display-space coordinates, as the
// client measured it against a scaled-down rendering of the image.
type DisplayRect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// ScaleToNatural maps a display-space rectangle into source pixel space
// using the ratio between the displayed size and the natural image size.
func ScaleToNatural(r DisplayRect, displayW, displayH float64, naturalW, naturalH int) Rect {
	if displayW <= 0 || displayH <= 0 {
		return Rect{}
	}
	scaleX := float64(naturalW) / displayW
	scaleY := float64(naturalH) / displayH
	return Rect{
		X: int(math.Round(r.X * scaleX)),
		Y: int(math.Round(r.Y * scaleY)),
		W: int(math.Round(r.W * scaleX)),
		H: int(math.Round(r.H * scaleY)),
	}
}

// Intersect clips the rectangle against an image of the given size. The
// result may be empty when the rectangle lies wholly outside the image.
func (r Rect) Intersect(width, height int) Rect {
	x0, y0 := r.X, r.Y
	x1, y1 := r.X+r.W, r.Y+r.H
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > width {
		x1 = width
	}
	if y1 > height {
		y1 = height
	}
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// ConstrainRatio re-derives the height from the width so the rectangle
// matches the given aspect ratio. A non-positive ratio leaves it unchanged.
func (r Rect) ConstrainRatio(ratio float64) Rect {
	if ratio <= 0 || r.W <= 0 {
		return r
	}
	r.H = int(math.Round(float64(r.W) / ratio))
	return r
}
