// Package onnx provides ALPR detector and OCR backends running YOLOv8 and
// PPOCR models exported to ONNX through ONNX Runtime on the CPU.
package onnx

import (
	"fmt"
	"image"
	"log"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"
)

// Logf is the logging function used by the package, it can be replaced with
// SetLogger
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger sets the logging function, passing nil disables logging
func SetLogger(fn func(format string, v ...interface{})) {
	if fn == nil {
		fn = func(string, ...interface{}) {}
	}
	Logf = fn
}

// Init loads the ONNX Runtime shared library.  It must be called before any
// Detector or Reader is created
func Init(libPath string) error {

	if ort.IsInitialized() {
		return nil
	}

	ort.SetSharedLibraryPath(libPath)

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("error initializing ONNX Runtime environment: %w", err)
	}

	return nil
}

// Destroy releases the ONNX Runtime environment once all sessions are closed
func Destroy() error {

	if !ort.IsInitialized() {
		return nil
	}

	if err := ort.DestroyEnvironment(); err != nil {
		return fmt.Errorf("error destroying ONNX Runtime environment: %w", err)
	}

	return nil
}

// session holds an ONNX Runtime session and its single input and output
// tensors
type session struct {
	sess   *ort.AdvancedSession
	input  *ort.Tensor[float32]
	output *ort.Tensor[float32]
}

// modelInfo reads the input and output tensor names and shapes of the model
func modelInfo(modelFile string) (ort.InputOutputInfo, ort.InputOutputInfo, error) {

	inputs, outputs, err := ort.GetInputOutputInfo(modelFile)

	if err != nil {
		return ort.InputOutputInfo{}, ort.InputOutputInfo{},
			fmt.Errorf("error reading model %s: %w", modelFile, err)
	}

	if len(inputs) != 1 || len(outputs) != 1 {
		return ort.InputOutputInfo{}, ort.InputOutputInfo{},
			fmt.Errorf("model %s has %d inputs and %d outputs, expected 1 of each",
				modelFile, len(inputs), len(outputs))
	}

	return inputs[0], outputs[0], nil
}

// newSession creates a session with tensors of the given shapes
func newSession(modelFile, inputName, outputName string, inputShape,
	outputShape ort.Shape) (*session, error) {

	input, err := ort.NewEmptyTensor[float32](inputShape)

	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	output, err := ort.NewEmptyTensor[float32](outputShape)

	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	sess, err := ort.NewAdvancedSession(modelFile,
		[]string{inputName}, []string{outputName},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output}, nil)

	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	Logf("Loaded ONNX model %s input %s%v output %s%v", modelFile, inputName,
		inputShape, outputName, outputShape)

	return &session{
		sess:   sess,
		input:  input,
		output: output,
	}, nil
}

// run executes the model on the data already in the input tensor
func (s *session) run() error {
	if err := s.sess.Run(); err != nil {
		return fmt.Errorf("model inference failed with error: %w", err)
	}
	return nil
}

// destroy releases the session and its tensors
func (s *session) destroy() error {
	err := s.sess.Destroy()
	s.input.Destroy()
	s.output.Destroy()

	if err != nil {
		return fmt.Errorf("error destroying session: %w", err)
	}

	return nil
}

// dim returns dimension i of shape or def when it is dynamic
func dim(shape ort.Shape, i int, def int64) int64 {
	if i >= len(shape) || shape[i] <= 0 {
		return def
	}
	return shape[i]
}

// toImage converts a BGR Mat to an image
func toImage(img gocv.Mat) (image.Image, error) {

	if img.Empty() {
		return nil, fmt.Errorf("error source Mat is empty")
	}

	pic, err := img.ToImage()

	if err != nil {
		return nil, fmt.Errorf("error converting Mat to image: %w", err)
	}

	return pic, nil
}
