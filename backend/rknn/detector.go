// Package rknn provides ALPR detector and OCR backends running on the Rockchip
// NPU through the RKNN runtime.
package rknn

import (
	"fmt"
	"image"
	"sync"

	"github.com/swdee/go-alpr"
	"github.com/swdee/go-rknnlite"
	"github.com/swdee/go-rknnlite/postprocess"
	"github.com/swdee/go-rknnlite/preprocess"
	"gocv.io/x/gocv"
)

// Detector runs a YOLOv8 model on the NPU.  It implements both
// alpr.VehicleDetector and alpr.PlateDetector
type Detector struct {
	// rt is the runtime with the loaded YOLOv8 model
	rt *rknnlite.Runtime
	// processor is the YOLOv8 post processor
	processor *postprocess.YOLOv8
	// resizer letterboxes frames to the model input size, it is recreated
	// when the source size changes
	resizer *preprocess.Resizer
	// modelWidth and modelHeight are the tensor input dimensions
	modelWidth  int
	modelHeight int
	mu          sync.Mutex
}

// NewDetector returns a Detector for the YOLOv8 RKNN model file using the
// given post processing parameters
func NewDetector(modelFile string, params postprocess.YOLOv8Params) (*Detector, error) {

	rt, err := rknnlite.NewRuntime(modelFile, rknnlite.NPUCoreAuto)

	if err != nil {
		return nil, fmt.Errorf("error initializing YOLOv8 RKNN runtime: %w", err)
	}

	// set runtime to leave output tensors as int8
	rt.SetWantFloat(false)

	return &Detector{
		rt:          rt,
		processor:   postprocess.NewYOLOv8(params),
		modelHeight: int(rt.InputAttrs()[0].Dims[1]),
		modelWidth:  int(rt.InputAttrs()[0].Dims[2]),
	}, nil
}

// NewVehicleDetector returns a Detector for a YOLOv8 model trained on the
// COCO dataset
func NewVehicleDetector(modelFile string) (*Detector, error) {
	return NewDetector(modelFile, postprocess.YOLOv8COCOParams())
}

// NewPlateDetector returns a Detector for a YOLOv8 model trained with a
// single license plate class
func NewPlateDetector(modelFile string) (*Detector, error) {
	return NewDetector(modelFile, postprocess.YOLOv8Params{
		BoxThreshold:    0.25,
		NMSThreshold:    0.45,
		ObjectClassNum:  1,
		MaxObjectNumber: 16,
	})
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

	if img.Empty() {
		return nil, fmt.Errorf("error source Mat is empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// convert colorspace and resize image
	rgbImg := gocv.NewMat()
	defer rgbImg.Close()

	gocv.CvtColor(img, &rgbImg, gocv.ColorBGRToRGB)

	resizer := d.resizerFor(img.Cols(), img.Rows())

	cropImg := gocv.NewMat()
	defer cropImg.Close()

	resizer.LetterBoxResize(rgbImg, &cropImg, letterBoxColor)

	outputs, err := d.rt.Inference([]gocv.Mat{cropImg})

	if err != nil {
		return nil, fmt.Errorf("runtime inferencing failed with error: %w", err)
	}

	dets := toDetections(d.processor.DetectObjects(outputs, resizer).GetDetectResults())

	// free outputs allocated in C memory after you have finished post processing
	if err := outputs.Free(); err != nil {
		return nil, fmt.Errorf("error freeing Outputs: %w", err)
	}

	return dets, nil
}

// resizerFor returns a resizer for the source size
func (d *Detector) resizerFor(srcWidth, srcHeight int) *preprocess.Resizer {

	if d.resizer != nil && d.resizer.SrcWidth() == srcWidth &&
		d.resizer.SrcHeight() == srcHeight {
		return d.resizer
	}

	if d.resizer != nil {
		d.resizer.Close()
	}

	d.resizer = preprocess.NewResizer(srcWidth, srcHeight, d.modelWidth,
		d.modelHeight)

	return d.resizer
}

// Close releases the runtime
func (d *Detector) Close() error {

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.resizer != nil {
		d.resizer.Close()
		d.resizer = nil
	}

	if err := d.rt.Close(); err != nil {
		return fmt.Errorf("error closing YOLOv8 RKNN runtime: %w", err)
	}

	return nil
}

// toDetections converts YOLOv8 post processing results
func toDetections(results []postprocess.DetectResult) []alpr.Detection {

	dets := make([]alpr.Detection, 0, len(results))

	for _, res := range results {
		dets = append(dets, alpr.Detection{
			Box: image.Rect(res.Box.Left, res.Box.Top, res.Box.Right,
				res.Box.Bottom),
			Score: float64(res.Probability),
			Class: res.Class,
		})
	}

	return dets
}
