package render

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-alpr"
	"github.com/swdee/go-alpr/tracker"
	"gocv.io/x/gocv"
	"golang.org/x/image/font/gofont/goregular"
)

// nonZero counts the non black pixels of the image within rect
func nonZero(t *testing.T, img gocv.Mat, rect image.Rectangle) int {
	t.Helper()

	region := img.Region(rect)
	defer region.Close()

	gray := gocv.NewMat()
	defer gray.Close()

	gocv.CvtColor(region, &gray, gocv.ColorBGRToGray)

	return gocv.CountNonZero(gray)
}

func newFrame() gocv.Mat {
	return gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
}

func TestTrackColor(t *testing.T) {
	assert.Equal(t, trackColors[1], TrackColor(1))
	assert.Equal(t, TrackColor(3), TrackColor(3+len(trackColors)))
	assert.Equal(t, TrackColor(2), TrackColor(-2))
}

func TestTrackerBoxes(t *testing.T) {
	img := newFrame()
	defer img.Close()

	tracks := []tracker.Output{
		{ID: 1, Box: tracker.NewBox(100, 100, 300, 250), Class: 2},
		// unknown class gets a generic label
		{ID: 2, Box: tracker.NewBox(400, 200, 500, 300), Class: 99},
	}

	TrackerBoxes(&img, tracks, []string{"person", "bicycle", "car"},
		DefaultFont(), 2)

	// box edges are drawn
	assert.Greater(t, nonZero(t, img, image.Rect(99, 99, 301, 102)), 0)
	assert.Greater(t, nonZero(t, img, image.Rect(399, 199, 501, 202)), 0)

	// interior is left untouched
	assert.Equal(t, 0, nonZero(t, img, image.Rect(150, 150, 250, 200)))
}

func TestPlateBoxes(t *testing.T) {
	img := newFrame()
	defer img.Close()

	PlateBoxes(&img, []alpr.Result{
		{VehicleID: 1, PlateText: "ABC123", PlateBox: image.Rect(150, 200, 260, 230), Confidence: 0.9},
		{VehicleID: 2, PlateText: "XYZ999"},
	}, DefaultFont(), 1)

	assert.Greater(t, nonZero(t, img, image.Rect(150, 200, 260, 202)), 0)

	// label is drawn above the plate
	assert.Greater(t, nonZero(t, img, image.Rect(150, 170, 260, 200)), 0)
}

func TestTrail(t *testing.T) {
	img := newFrame()
	defer img.Close()

	trail := tracker.NewTrail(10)

	out := tracker.Output{ID: 1, Box: tracker.NewBox(100, 100, 140, 140)}

	for i := 0; i < 5; i++ {
		out.Box = out.Box.Translate(10, 0)
		trail.Add(out)
	}

	// a single point is not enough to draw a trail
	lone := tracker.Output{ID: 2, Box: tracker.NewBox(300, 300, 340, 340)}
	trail.Add(lone)

	Trail(&img, []tracker.Output{out, lone}, trail, DefaultTrailStyle())

	assert.Greater(t, nonZero(t, img, image.Rect(125, 115, 175, 125)), 0)
	assert.Equal(t, 0, nonZero(t, img, image.Rect(310, 310, 330, 330)))
}

func TestTTFFontPutText(t *testing.T) {
	ttf, err := NewTTFFont(goregular.TTF, 20)
	require.NoError(t, err)
	defer ttf.Close()

	img := newFrame()
	defer img.Close()

	require.NoError(t, ttf.PutText(&img, "ABC123", image.Pt(50, 100)))
	assert.Greater(t, nonZero(t, img, image.Rect(50, 80, 150, 102)), 0)

	// text entirely outside the image is ignored
	require.NoError(t, ttf.PutText(&img, "ABC123", image.Pt(-500, -500)))
}

func TestNewTTFFontInvalid(t *testing.T) {
	_, err := NewTTFFont([]byte("not a font"), 20)
	assert.Error(t, err)

	_, err = LoadTTFFont("missing.ttf", 20)
	assert.Error(t, err)
}

func TestFrameInfo(t *testing.T) {
	img := newFrame()
	defer img.Close()

	// white frame so the black panel shows up as cleared pixels
	img.SetTo(gocv.NewScalar(255, 255, 255, 0))

	FrameInfo(&img, 42, 29.97, alpr.Stats{UniqueVehicles: 3, CacheSize: 2},
		DefaultFont())

	// panel has text drawn on it but is mostly black
	panel := image.Rect(0, 0, 60, 40)
	assert.Greater(t, nonZero(t, img, panel), 0)
	assert.Less(t, nonZero(t, img, panel), panel.Dx()*panel.Dy())

	// rest of the frame is untouched
	bottom := image.Rect(0, 400, 640, 480)
	assert.Equal(t, bottom.Dx()*bottom.Dy(), nonZero(t, img, bottom))
}
