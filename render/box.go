package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/swdee/go-alpr"
	"github.com/swdee/go-alpr/tracker"
	"gocv.io/x/gocv"
)

// boxLabel holds the details of a label to draw above a box
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// newBoxLabel calculates the placement of a text label above the box
func newBoxLabel(box image.Rectangle, text string, clr color.RGBA, font Font,
	lineThickness int) boxLabel {

	textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

	// Calculate the alignment of text label
	var centerX int

	switch font.Alignment {
	case Center:
		centerX = (box.Min.X + box.Max.X) / 2

	case Right:
		centerX = box.Max.X - (textSize.X / 2) - font.RightPad + (lineThickness / 2)

	case Left:
		fallthrough
	default:
		centerX = box.Min.X + (textSize.X / 2) + font.LeftPad - (lineThickness / 2)
	}

	return boxLabel{
		rect: image.Rect(centerX-textSize.X/2-font.LeftPad,
			box.Min.Y-textSize.Y-font.TopPad-font.BottomPad,
			centerX+textSize.X/2+font.RightPad, box.Min.Y),
		clr:     clr,
		text:    text,
		textPos: image.Pt(centerX-textSize.X/2, box.Min.Y-font.BottomPad),
	}
}

// drawLabels draws the labels last so they are the top most layer on the
// image and don't get overlapped by other boxes
func drawLabels(img *gocv.Mat, labels []boxLabel, font Font) {
	for _, label := range labels {
		// draw box text gets written on
		gocv.Rectangle(img, label.rect, label.clr, -1)

		gocv.PutTextWithParams(img, label.text, label.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}

// TrackerBoxes renders the bounding boxes of the confirmed vehicle tracks
// labelled with the class name and track identity
func TrackerBoxes(img *gocv.Mat, tracks []tracker.Output, classNames []string,
	font Font, lineThickness int) {

	labels := make([]boxLabel, 0, len(tracks))

	for _, trk := range tracks {

		clr := TrackColor(trk.ID)

		rect := image.Rect(int(trk.Box.X1()), int(trk.Box.Y1()),
			int(trk.Box.X2()), int(trk.Box.Y2()))
		gocv.Rectangle(img, rect, clr, lineThickness)

		name := "vehicle"

		if trk.Class >= 0 && trk.Class < len(classNames) {
			name = classNames[trk.Class]
		}

		text := fmt.Sprintf("%s %d", name, trk.ID)
		labels = append(labels, newBoxLabel(rect, text, clr, font, lineThickness))
	}

	drawLabels(img, labels, font)
}

// PlateBoxes renders the cached plate box and reading of each result
func PlateBoxes(img *gocv.Mat, results []alpr.Result, font Font,
	lineThickness int) {

	labels := make([]boxLabel, 0, len(results))

	for _, res := range results {

		if res.PlateBox.Empty() {
			continue
		}

		gocv.Rectangle(img, res.PlateBox, PlateRed, lineThickness)

		text := fmt.Sprintf("%s (%.1f%%)", res.PlateText, res.Confidence*100)
		labels = append(labels, newBoxLabel(res.PlateBox, text, PlateRed, font,
			lineThickness))
	}

	drawLabels(img, labels, font)
}
