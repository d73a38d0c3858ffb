package render

import (
	"fmt"
	"image"

	"github.com/swdee/go-alpr"
	"gocv.io/x/gocv"
)

// FrameInfo renders the frame number, processing rate and pipeline counters
// in the top left corner of the image on a black panel
func FrameInfo(img *gocv.Mat, frameNum int, fps float64, stats alpr.Stats,
	font Font) {

	lines := []string{
		fmt.Sprintf("Frame: %d", frameNum),
		fmt.Sprintf("FPS: %.1f", fps),
		fmt.Sprintf("Vehicles: %d", stats.UniqueVehicles),
		fmt.Sprintf("Plates: %d", stats.CacheSize),
	}

	width, height := 0, 0

	for _, line := range lines {
		size := gocv.GetTextSize(line, font.Face, font.Scale, font.Thickness)

		if size.X > width {
			width = size.X
		}

		if size.Y > height {
			height = size.Y
		}
	}

	lineHeight := height + font.TopPad + font.BottomPad

	panel := image.Rect(0, 0, width+font.LeftPad+font.RightPad,
		lineHeight*len(lines)+font.TopPad)
	gocv.Rectangle(img, panel, Black, -1)

	for i, line := range lines {
		gocv.PutTextWithParams(img, line,
			image.Pt(font.LeftPad, (i+1)*lineHeight),
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}
