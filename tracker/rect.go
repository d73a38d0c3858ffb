package tracker

import (
	"math"
)

// Box is an axis aligned bounding box in (x1, y1, x2, y2) corner format where
// (x1, y1) is the top left and (x2, y2) the bottom right corner
type Box [4]float64

// Z (center x, center y, area, aspect ratio) is the measurement vector
// observed by the Kalman filter
type Z [4]float64

// NewBox creates a new Box with the given corner coordinates
func NewBox(x1, y1, x2, y2 float64) Box {
	return Box{x1, y1, x2, y2}
}

// NewBoxFromXYWH creates a Box from a top left point and a width and height
func NewBoxFromXYWH(x, y, width, height float64) Box {
	return Box{x, y, x + width, y + height}
}

// X1 returns the top-left x coordinate of the box
func (b Box) X1() float64 {
	return b[0]
}

// Y1 returns the top-left y coordinate of the box
func (b Box) Y1() float64 {
	return b[1]
}

// X2 returns the bottom-right x coordinate of the box
func (b Box) X2() float64 {
	return b[2]
}

// Y2 returns the bottom-right y coordinate of the box
func (b Box) Y2() float64 {
	return b[3]
}

// Width returns the width of the box
func (b Box) Width() float64 {
	return b[2] - b[0]
}

// Height returns the height of the box
func (b Box) Height() float64 {
	return b[3] - b[1]
}

// Area returns the area of the box, or zero if the box is empty
func (b Box) Area() float64 {
	w := b.Width()
	h := b.Height()

	if w <= 0 || h <= 0 {
		return 0
	}

	return w * h
}

// Center returns the center point of the box
func (b Box) Center() (float64, float64) {
	return b[0] + b.Width()/2, b[1] + b.Height()/2
}

// Valid returns true if all coordinates are finite numbers and the box has a
// positive width and height
func (b Box) Valid() bool {
	for _, v := range b {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return b.Width() > 0 && b.Height() > 0
}

// Translate returns a copy of the box shifted by dx, dy
func (b Box) Translate(dx, dy float64) Box {
	return Box{b[0] + dx, b[1] + dy, b[2] + dx, b[3] + dy}
}

// ToZ converts the box to the (center x, center y, area, aspect ratio)
// measurement form.  The box must be valid, see Valid()
func (b Box) ToZ() Z {
	w := b.Width()
	h := b.Height()

	return Z{
		b[0] + w/2,
		b[1] + h/2,
		w * h,
		w / h,
	}
}

// ToBox converts the measurement form back to a corner format box
func (z Z) ToBox() Box {
	w := math.Sqrt(z[2] * z[3])
	h := 0.0

	if w > 0 {
		h = z[2] / w
	}

	return Box{
		z[0] - w/2,
		z[1] - h/2,
		z[0] + w/2,
		z[1] + h/2,
	}
}

// IoU calculates the Intersection over Union of two boxes.  Disjoint boxes
// return 0 and the result is symmetric in its arguments
func IoU(a, b Box) float64 {

	iw := math.Min(a[2], b[2]) - math.Max(a[0], b[0])
	ih := math.Min(a[3], b[3]) - math.Max(a[1], b[1])

	if iw <= 0 || ih <= 0 {
		return 0
	}

	inter := iw * ih
	union := a.Area() + b.Area() - inter

	if union <= 0 {
		return 0
	}

	return inter / union
}
