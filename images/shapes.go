// Package images - Image processing utilities
package images

import (
	"image"

	"github.com/chewxy/math32"
)

// Rect is a lightweight corner-form bounding box in floating point pixel coordinates.
type Rect struct {
	// X2,Y2 are the right and bottom edges (like image.Rectangle.Max).
	X1, Y1, X2, Y2 float32
}

// RectFromCenter builds a corner-form Rect from a center point and a size.
//
// Arguments:
//   - cx, cy: The center of the box.
//   - w, h: The width and height of the box.
//
// Returns:
//   - Rect: The box in corner form.
func RectFromCenter(cx, cy, w, h float32) Rect {
	return Rect{
		X1: cx - w/2,
		Y1: cy - h/2,
		X2: cx + w/2,
		Y2: cy + h/2,
	}
}

// Width returns the horizontal extent of the box, never negative.
func (r Rect) Width() float32 {
	return math32.Max(0, r.X2-r.X1)
}

// Height returns the vertical extent of the box, never negative.
func (r Rect) Height() float32 {
	return math32.Max(0, r.Y2-r.Y1)
}

// Area returns the area of the box.
func (r Rect) Area() float32 {
	return r.Width() * r.Height()
}

// Clamp limits the box to [0, width] x [0, height].
//
// Arguments:
//   - width: The right-most allowed coordinate.
//   - height: The bottom-most allowed coordinate.
//
// Returns:
//   - Rect: The clamped box.
func (r Rect) Clamp(width, height float32) Rect {
	return Rect{
		X1: Clamp32(r.X1, 0, width),
		Y1: Clamp32(r.Y1, 0, height),
		X2: Clamp32(r.X2, 0, width),
		Y2: Clamp32(r.Y2, 0, height),
	}
}

// ToRectangle rounds the box to the nearest integer pixel rectangle.
func (r Rect) ToRectangle() image.Rectangle {
	return image.Rect(
		int(math32.Floor(r.X1+0.5)),
		int(math32.Floor(r.Y1+0.5)),
		int(math32.Floor(r.X2+0.5)),
		int(math32.Floor(r.Y2+0.5)),
	).Canon()
}

// Clamp32 limits v to the closed interval [lo, hi].
func Clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CalculateIoU measures the overlap of two boxes as the area of their intersection
// divided by the area of their union.
//
// The intersection is bounded by the larger of the two top-left corners and the
// smaller of the two bottom-right corners. When that region is empty the boxes do not
// overlap and the result is 0. The union follows inclusion-exclusion:
//
//	Union(A, B) = Area(A) + Area(B) - Intersection(A, B)
//
// Arguments:
//   - r: The first box.
//   - o: The other box to compare against.
//
// Returns:
//   - float32: A value between 0.0 and 1.0 representing the IoU score.
//
// Example Usage:
// ```go
//
//	rect1 := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	rect2 := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//
//	iouScore := CalculateIoU(rect1, rect2) // 25 / 175 = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	ix1 := math32.Max(r.X1, o.X1)
	iy1 := math32.Max(r.Y1, o.Y1)
	ix2 := math32.Min(r.X2, o.X2)
	iy2 := math32.Min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}

	return interArea / unionArea
}
