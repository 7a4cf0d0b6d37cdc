package editor

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/kiranjd/lumiere-studio/internal/domain"
)

// Outpaint marks regions of a crop that fall outside the source image.
// Downstream generation treats it as "fill this in".
var Outpaint = color.RGBA{G: 0xFF, A: 0xFF}

// Crop rasterizes the crop rectangle. The output canvas always covers the
// full rectangle; pixels outside the source are painted with the outpaint
// sentinel color.
func Crop(src image.Image, r Rect) (*image.RGBA, error) {
	if r.Empty() {
		return nil, domain.ErrInvalidRequest
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.W, r.H))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(Outpaint), image.Point{}, draw.Src)

	bounds := src.Bounds()
	visible := r.Intersect(bounds.Dx(), bounds.Dy())
	if visible.Empty() {
		return dst, nil
	}
	target := image.Rect(visible.X-r.X, visible.Y-r.Y, visible.X-r.X+visible.W, visible.Y-r.Y+visible.H)
	srcOrigin := bounds.Min.Add(image.Pt(visible.X, visible.Y))
	draw.Draw(dst, target, src, srcOrigin, draw.Src)
	return dst, nil
}

// Rotate returns the image turned clockwise by the given angle. Only the
// quarter turns are supported; 90 and 270 swap width and height.
func Rotate(src image.Image, degrees int) (*image.RGBA, error) {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	switch normalizeAngle(degrees) {
	case 0:
		return cloneRGBA(src), nil
	case 90:
		dst := image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.Set(h-1-y, x, src.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
		return dst, nil
	case 180:
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.Set(w-1-x, h-1-y, src.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
		return dst, nil
	case 270:
		dst := image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.Set(y, w-1-x, src.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
		return dst, nil
	default:
		return nil, domain.ErrInvalidRequest
	}
}

// FlipHorizontal mirrors the image across its vertical axis.
func FlipHorizontal(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(w-1-x, y, src.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return dst
}

// FlipVertical mirrors the image across its horizontal axis.
func FlipVertical(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(x, h-1-y, src.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return dst
}

// GridSplit cuts the image into rows x cols equal cells, row-major.
// Remainder pixels go to the last row and column.
func GridSplit(src image.Image, rows, cols int) ([]*image.RGBA, error) {
	if rows < 1 || cols < 1 || rows*cols < 2 {
		return nil, domain.ErrInvalidRequest
	}
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	cellW, cellH := w/cols, h/rows
	if cellW < 1 || cellH < 1 {
		return nil, domain.ErrInvalidRequest
	}

	cells := make([]*image.RGBA, 0, rows*cols)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			x0, y0 := col*cellW, row*cellH
			x1, y1 := x0+cellW, y0+cellH
			if col == cols-1 {
				x1 = w
			}
			if row == rows-1 {
				y1 = h
			}
			cell, err := Crop(src, Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0})
			if err != nil {
				return nil, err
			}
			cells = append(cells, cell)
		}
	}
	return cells, nil
}

func normalizeAngle(degrees int) int {
	angle := degrees % 360
	if angle < 0 {
		angle += 360
	}
	return angle
}

func cloneRGBA(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	return dst
}
