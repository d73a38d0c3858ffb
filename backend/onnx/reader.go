package onnx

import (
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/swdee/go-alpr"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"
)

// PPOCR recognition input dimensions used when the model is dynamic
const (
	ocrHeight = 48
	ocrWidth  = 320
)

// Reader reads plate text with a PPOCR recognition ONNX model.  It
// implements alpr.PlateReader
type Reader struct {
	s *session
	// keys are the model characters, index 0 is the CTC blank
	keys []string
	// width and height are the model input dimensions
	width  int
	height int
	// seqLen is the number of time steps output by the model
	seqLen int
	mu     sync.Mutex
}

// NewReader returns a Reader for the PPOCR recognition ONNX model file and its
// character keys file
func NewReader(modelFile, keysFile string) (*Reader, error) {

	keys, err := LoadKeys(keysFile)

	if err != nil {
		return nil, err
	}

	in, out, err := modelInfo(modelFile)

	if err != nil {
		return nil, err
	}

	height := dim(in.Dimensions, 2, ocrHeight)
	width := dim(in.Dimensions, 3, ocrWidth)
	seqLen := dim(out.Dimensions, 1, width/8)
	numChars := dim(out.Dimensions, 2, int64(len(keys)))

	// check that we have as many keys as tensor outputs dimension
	if numChars != int64(len(keys)) {
		return nil, fmt.Errorf("OCR character keys has %d characters and does "+
			"not match the required number in the Model of %d", len(keys), numChars)
	}

	s, err := newSession(modelFile, in.Name, out.Name,
		ort.NewShape(1, 3, height, width), ort.NewShape(1, seqLen, numChars))

	if err != nil {
		return nil, err
	}

	return &Reader{
		s:      s,
		keys:   keys,
		width:  int(width),
		height: int(height),
		seqLen: int(seqLen),
	}, nil
}

// ReadPlate implements alpr.PlateReader
func (r *Reader) ReadPlate(img gocv.Mat) ([]alpr.Reading, error) {

	pic, err := toImage(img)

	if err != nil {
		return nil, err
	}

	// keep the aspect ratio and pad the right hand side
	b := pic.Bounds()
	w := int(math.Ceil(float64(r.height) * float64(b.Dx()) / float64(b.Dy())))

	if w > r.width {
		w = r.width
	}

	if w < 1 {
		w = 1
	}

	resized := imaging.Resize(pic, w, r.height, imaging.Linear)

	r.mu.Lock()
	defer r.mu.Unlock()

	fillTensor(resized, r.s.input.GetData(), 0.5, 0.5)

	if err := r.s.run(); err != nil {
		return nil, err
	}

	reading, ok := ctcDecode(r.s.output.GetData(), r.seqLen, r.keys)

	if !ok {
		return nil, nil
	}

	return []alpr.Reading{reading}, nil
}

// Close releases the session
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.s.destroy()
}

// LoadKeys reads a PPOCR character keys file, one character per line.  The
// file must start with the CTC blank entry
func LoadKeys(file string) ([]string, error) {

	data, err := os.ReadFile(file)

	if err != nil {
		return nil, fmt.Errorf("error loading OCR character keys: %w", err)
	}

	keys := strings.Split(strings.TrimRight(string(data), "\r\n"), "\n")

	for i, k := range keys {
		keys[i] = strings.TrimSuffix(k, "\r")
	}

	if len(keys) < 2 {
		return nil, fmt.Errorf("OCR character keys file %s has no characters", file)
	}

	return keys, nil
}

// ctcDecode performs greedy CTC decoding of the [seqLen, len(keys)] output,
// merging repeats and dropping blanks.  The confidence is the mean of the
// kept character probabilities
func ctcDecode(probs []float32, seqLen int, keys []string) (alpr.Reading, bool) {

	numChars := len(keys)

	var (
		text    strings.Builder
		score   float64
		count   int
		lastIdx int
	)

	for n := 0; n < seqLen; n++ {

		row := probs[n*numChars : (n+1)*numChars]
		idx, val := 0, row[0]

		for i, v := range row {
			if v > val {
				idx, val = i, v
			}
		}

		if idx > 0 && !(n > 0 && idx == lastIdx) {
			text.WriteString(keys[idx])
			score += float64(val)
			count++
		}

		lastIdx = idx
	}

	if count == 0 {
		return alpr.Reading{}, false
	}

	return alpr.Reading{
		Text:       text.String(),
		Confidence: score / float64(count),
	}, true
}
