package rknn

import (
	"fmt"
	"image/color"
	"sync"

	"github.com/swdee/go-alpr"
	"github.com/swdee/go-rknnlite"
	"github.com/swdee/go-rknnlite/postprocess"
	"github.com/swdee/go-rknnlite/preprocess"
	"gocv.io/x/gocv"
)

// letterBoxColor fills the padding of letterboxed model inputs
var letterBoxColor = color.RGBA{R: 0, G: 0, B: 0, A: 255}

// Reader reads plate text with a PPOCR recognition model on the NPU.  It
// implements alpr.PlateReader
type Reader struct {
	rt        *rknnlite.Runtime
	processor *postprocess.PPOCRRecognise
	// modelWidth and modelHeight are the tensor input dimensions, 320x48 for
	// PPOCRv4
	modelWidth  int
	modelHeight int
	mu          sync.Mutex
}

// NewReader returns a Reader for the PPOCR recognition RKNN model file and
// its character keys file
func NewReader(modelFile, keysFile string) (*Reader, error) {

	rt, err := rknnlite.NewRuntime(modelFile, rknnlite.NPUCoreAuto)

	if err != nil {
		return nil, fmt.Errorf("error initializing PPOCR RKNN runtime: %w", err)
	}

	// set runtime to pass input gocv.Mat's to Inference() function as float32
	// to RKNN backend
	rt.SetInputTypeFloat32(true)

	modelChars, err := rknnlite.LoadLabels(keysFile)

	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("error loading model OCR character keys: %w", err)
	}

	// check that we have as many modelChars as tensor outputs dimension
	if len(modelChars) != int(rt.OutputAttrs()[0].Dims[2]) {
		rt.Close()
		return nil, fmt.Errorf("OCR character keys has %d characters and does "+
			"not match the required number in the Model of %d",
			len(modelChars), rt.OutputAttrs()[0].Dims[2])
	}

	r := &Reader{
		rt:          rt,
		modelHeight: int(rt.InputAttrs()[0].Dims[1]),
		modelWidth:  int(rt.InputAttrs()[0].Dims[2]),
	}

	r.processor = postprocess.NewPPOCRRecognise(postprocess.PPOCRRecogniseParams{
		ModelChars:   modelChars,
		OutputSeqLen: r.modelWidth / 8,
	})

	return r, nil
}

// ReadPlate implements alpr.PlateReader
func (r *Reader) ReadPlate(img gocv.Mat) ([]alpr.Reading, error) {

	if img.Empty() {
		return nil, fmt.Errorf("error source Mat is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// plate crops vary in size so the resizer is not reused
	resizer := preprocess.NewResizer(img.Cols(), img.Rows(), r.modelWidth,
		r.modelHeight)
	defer resizer.Close()

	resizedImg := gocv.NewMat()
	defer resizedImg.Close()

	resizer.LetterBoxResize(img, &resizedImg, letterBoxColor)

	// convert image to float32 in 3 channels and normalize
	// (img - 127.5) / 127.5
	resizedImg.ConvertTo(&resizedImg, gocv.MatTypeCV32FC3)
	resizedImg.AddFloat(-127.5)
	resizedImg.DivideFloat(127.5)

	outputs, err := r.rt.Inference([]gocv.Mat{resizedImg})

	if err != nil {
		return nil, fmt.Errorf("runtime inferencing failed with error: %w", err)
	}

	results := r.processor.Recognise(outputs)

	if err := outputs.Free(); err != nil {
		return nil, fmt.Errorf("error freeing Outputs: %w", err)
	}

	readings := make([]alpr.Reading, 0, len(results))

	for _, res := range results {
		readings = append(readings, alpr.Reading{
			Text:       res.Text,
			Confidence: float64(res.Score),
		})
	}

	return readings, nil
}

// Close releases the runtime
func (r *Reader) Close() error {
	if err := r.rt.Close(); err != nil {
		return fmt.Errorf("error closing PPOCR RKNN runtime: %w", err)
	}
	return nil
}
