package onnx

import (
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/swdee/go-alpr"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"
)

// defaultInputSize is used when the model has a dynamic input size
const defaultInputSize = 640

// DetectorParams defines the YOLOv8 post processing parameters
type DetectorParams struct {
	// BoxThreshold is the minimum class score of a kept box
	BoxThreshold float32
	// NMSThreshold is the IoU above which overlapping boxes of the same class
	// are suppressed
	NMSThreshold float64
	// ClassNum is the number of classes the model was trained on
	ClassNum int
}

// VehicleParams returns the parameters of a YOLOv8 model trained on COCO
func VehicleParams() DetectorParams {
	return DetectorParams{
		BoxThreshold: 0.25,
		NMSThreshold: 0.45,
		ClassNum:     80,
	}
}

// PlateParams returns the parameters of a YOLOv8 model trained with a single
// license plate class
func PlateParams() DetectorParams {
	return DetectorParams{
		BoxThreshold: 0.25,
		NMSThreshold: 0.45,
		ClassNum:     1,
	}
}

// Detector runs a YOLOv8 ONNX model.  It implements both alpr.VehicleDetector
// and alpr.PlateDetector
type Detector struct {
	s      *session
	params DetectorParams
	// width and height are the model input dimensions
	width  int
	height int
	// numBoxes is the number of candidate boxes output by the model
	numBoxes int
	mu       sync.Mutex
}

// NewDetector returns a Detector for the YOLOv8 ONNX model file
func NewDetector(modelFile string, params DetectorParams) (*Detector, error) {

	if params.ClassNum < 1 {
		return nil, fmt.Errorf("invalid class number %d", params.ClassNum)
	}

	in, out, err := modelInfo(modelFile)

	if err != nil {
		return nil, err
	}

	// input is NCHW and output is [1, 4+classes, boxes]
	height := dim(in.Dimensions, 2, defaultInputSize)
	width := dim(in.Dimensions, 3, defaultInputSize)

	attrs := dim(out.Dimensions, 1, int64(4+params.ClassNum))

	if attrs != int64(4+params.ClassNum) {
		return nil, fmt.Errorf("model output has %d attributes, expected %d "+
			"for %d classes", attrs, 4+params.ClassNum, params.ClassNum)
	}

	boxes := dim(out.Dimensions, 2, anchorCount(width, height))

	s, err := newSession(modelFile, in.Name, out.Name,
		ort.NewShape(1, 3, height, width), ort.NewShape(1, attrs, boxes))

	if err != nil {
		return nil, err
	}

	return &Detector{
		s:        s,
		params:   params,
		width:    int(width),
		height:   int(height),
		numBoxes: int(boxes),
	}, nil
}

// NewVehicleDetector returns a Detector for a YOLOv8 model trained on COCO
func NewVehicleDetector(modelFile string) (*Detector, error) {
	return NewDetector(modelFile, VehicleParams())
}

// NewPlateDetector returns a Detector for a single class plate model
func NewPlateDetector(modelFile string) (*Detector, error) {
	return NewDetector(modelFile, PlateParams())
}

// DetectVehicles implements alpr.VehicleDetector
func (d *Detector) DetectVehicles(img gocv.Mat) ([]alpr.Detection, error) {
	return d.Detect(img)
}

// DetectPlates implements alpr.PlateDetector
func (d *Detector) DetectPlates(img gocv.Mat) ([]alpr.Detection, error) {
	return d.Detect(img)
}

// Detect runs the model on the BGR image and returns the objects found in
// image coordinates
func (d *Detector) Detect(img gocv.Mat) ([]alpr.Detection, error) {

	pic, err := toImage(img)

	if err != nil {
		return nil, err
	}

	resized := imaging.Resize(pic, d.width, d.height, imaging.Lanczos)

	d.mu.Lock()
	defer d.mu.Unlock()

	fillTensor(resized, d.s.input.GetData(), 0, 1)

	if err := d.s.run(); err != nil {
		return nil, err
	}

	bounds := pic.Bounds()
	scaleX := float64(bounds.Dx()) / float64(d.width)
	scaleY := float64(bounds.Dy()) / float64(d.height)

	dets := decode(d.s.output.GetData(), d.numBoxes, d.params.ClassNum,
		d.params.BoxThreshold, scaleX, scaleY,
		image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	return nms(dets, d.params.NMSThreshold), nil
}

// Close releases the session
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.s.destroy()
}

// anchorCount returns the number of YOLOv8 output boxes for strides 8, 16
// and 32
func anchorCount(width, height int64) int64 {
	var n int64

	for _, stride := range []int64{8, 16, 32} {
		n += (width / stride) * (height / stride)
	}

	return n
}

// fillTensor writes the RGB pixels of img into dst in CHW order as
// (value/255 - mean) / std.  Pixels outside img are left at zero
func fillTensor(img *image.NRGBA, dst []float32, mean, std float32) {

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	channelSize := len(dst) / 3
	stride := channelSize / h

	for i := range dst {
		dst[i] = 0
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			i := y*stride + x

			dst[i] = (float32(img.Pix[p])/255 - mean) / std
			dst[channelSize+i] = (float32(img.Pix[p+1])/255 - mean) / std
			dst[channelSize*2+i] = (float32(img.Pix[p+2])/255 - mean) / std
		}
	}
}

// decode converts the transposed YOLOv8 output [4+classes, boxes] into
// detections scaled back to the source image and clamped to bounds
func decode(pred []float32, numBoxes, numClasses int, threshold float32,
	scaleX, scaleY float64, bounds image.Rectangle) []alpr.Detection {

	dets := make([]alpr.Detection, 0)

	for i := 0; i < numBoxes; i++ {

		class := 0
		score := pred[4*numBoxes+i]

		for c := 1; c < numClasses; c++ {
			if s := pred[(4+c)*numBoxes+i]; s > score {
				score = s
				class = c
			}
		}

		if score < threshold {
			continue
		}

		cx := float64(pred[i])
		cy := float64(pred[numBoxes+i])
		w := float64(pred[2*numBoxes+i])
		h := float64(pred[3*numBoxes+i])

		box := image.Rect(
			int((cx-w/2)*scaleX), int((cy-h/2)*scaleY),
			int((cx+w/2)*scaleX), int((cy+h/2)*scaleY),
		).Intersect(bounds)

		if box.Empty() {
			continue
		}

		dets = append(dets, alpr.Detection{
			Box:   box,
			Score: float64(score),
			Class: class,
		})
	}

	return dets
}

// nms performs class aware non maximum suppression keeping the highest
// scoring boxes
func nms(dets []alpr.Detection, threshold float64) []alpr.Detection {

	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Score > dets[j].Score
	})

	keep := make([]alpr.Detection, 0, len(dets))
	suppressed := make([]bool, len(dets))

	for i := range dets {
		if suppressed[i] {
			continue
		}

		keep = append(keep, dets[i])

		for j := i + 1; j < len(dets); j++ {
			if suppressed[j] || dets[j].Class != dets[i].Class {
				continue
			}

			if rectIoU(dets[i].Box, dets[j].Box) > threshold {
				suppressed[j] = true
			}
		}
	}

	return keep
}

// rectIoU returns the intersection over union of two rectangles
func rectIoU(a, b image.Rectangle) float64 {

	inter := a.Intersect(b)

	if inter.Empty() {
		return 0
	}

	ia := float64(inter.Dx() * inter.Dy())
	union := float64(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - ia

	if union <= 0 {
		return 0
	}

	return ia / union
}
