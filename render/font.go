package render

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Alignment of a text label relative to its bounding box
type Alignment int

const (
	Left   Alignment = 1
	Center Alignment = 2
	Right  Alignment = 3
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Padding to place around text
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
	// Alignment of the text label to the bounding box
	Alignment Alignment
}

// DefaultFont returns default font settings
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		LeftPad:   4,
		RightPad:  4,
		TopPad:    4,
		BottomPad: 6,
		Alignment: Left,
	}
}

// TTFFont renders text with a TrueType font so plate characters outside the
// Latin range supported by Hershey fonts can be drawn
type TTFFont struct {
	face  font.Face
	Color color.RGBA
}

// LoadTTFFont loads the TTF font file and creates a face of the given size
func LoadTTFFont(fontPath string, size float64) (*TTFFont, error) {

	fontBytes, err := os.ReadFile(fontPath)

	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	return NewTTFFont(fontBytes, size)
}

// NewTTFFont parses the TTF font data and creates a face of the given size
func NewTTFFont(fontBytes []byte, size float64) (*TTFFont, error) {

	f, err := opentype.Parse(fontBytes)

	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create type face: %w", err)
	}

	return &TTFFont{
		face:  face,
		Color: White,
	}, nil
}

// Close releases the font face
func (t *TTFFont) Close() error {
	return t.face.Close()
}

// PutText writes text on the image with its baseline starting at pt.  Only
// the region covered by the text is rasterised
func (t *TTFFont) PutText(img *gocv.Mat, text string, pt image.Point) error {

	bounds, _ := font.BoundString(t.face, text)

	rect := image.Rect(bounds.Min.X.Floor(), bounds.Min.Y.Floor(),
		bounds.Max.X.Ceil(), bounds.Max.Y.Ceil()).Add(pt)
	rect = rect.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))

	if rect.Empty() {
		return nil
	}

	// draw the text on a transparent layer the size of the text
	rgba := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))

	dr := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(t.Color),
		Face: t.face,
		Dot:  fixed.P(pt.X-rect.Min.X, pt.Y-rect.Min.Y),
	}
	dr.DrawString(text)

	layer, err := gocv.NewMatFromBytes(rect.Dy(), rect.Dx(), gocv.MatTypeCV8UC4, rgba.Pix)

	if err != nil {
		return fmt.Errorf("error creating Mat from RGBA: %w", err)
	}

	defer layer.Close()

	gocv.CvtColor(layer, &layer, gocv.ColorRGBAToBGR)

	region := img.Region(rect)
	defer region.Close()

	gocv.AddWeighted(region, 1.0, layer, 1.0, 0, &region)

	return nil
}
