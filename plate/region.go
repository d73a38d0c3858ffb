package plate

import (
	"image"

	clipper "github.com/ctessum/go.clipper"
)

// Unclip offsets the polygon outwards by distance pixels and returns the
// resulting polygon.  Mitered joins keep the corners of rectangular plates
// square
func Unclip(points []image.Point, distance float64) []image.Point {

	var path clipper.Path

	for _, pt := range points {
		path = append(path, &clipper.IntPoint{X: clipper.CInt(pt.X), Y: clipper.CInt(pt.Y)})
	}

	// create a ClipperOffset object and add the path
	co := clipper.NewClipperOffset()
	co.AddPath(path, clipper.JtMiter, clipper.EtClosedPolygon)

	// execute the offset operation
	solution := co.Execute(distance)

	var res []image.Point

	for _, sol := range solution {
		for _, pt := range sol {
			res = append(res, image.Point{X: int(pt.X), Y: int(pt.Y)})
		}
	}

	return res
}

// PadRegion expands a plate rectangle outwards by ratio of its mean side
// length and clamps the result to bounds.  A ratio of 0.1 pads a 100x30
// plate by 6 or 7 pixels on every side
func PadRegion(rect image.Rectangle, ratio float64, bounds image.Rectangle) image.Rectangle {

	rect = rect.Canon()

	if rect.Empty() || ratio <= 0 {
		return rect.Intersect(bounds)
	}

	distance := ratio * float64(rect.Dx()+rect.Dy()) / 2

	poly := []image.Point{
		rect.Min,
		{X: rect.Max.X, Y: rect.Min.Y},
		rect.Max,
		{X: rect.Min.X, Y: rect.Max.Y},
	}

	padded := boundingRect(Unclip(poly, distance))

	// offset failed, fall back to the unpadded rect
	if padded.Empty() {
		padded = rect
	}

	return padded.Intersect(bounds)
}

// boundingRect returns the smallest rectangle containing all points
func boundingRect(points []image.Point) image.Rectangle {

	if len(points) == 0 {
		return image.Rectangle{}
	}

	r := image.Rectangle{Min: points[0], Max: points[0]}

	for _, pt := range points[1:] {
		if pt.X < r.Min.X {
			r.Min.X = pt.X
		}
		if pt.Y < r.Min.Y {
			r.Min.Y = pt.Y
		}
		if pt.X > r.Max.X {
			r.Max.X = pt.X
		}
		if pt.Y > r.Max.Y {
			r.Max.Y = pt.Y
		}
	}

	return r
}
