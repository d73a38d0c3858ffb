// Package backend builds the detector and OCR backends selected by the
// configuration.
package backend

import (
	"fmt"

	"github.com/swdee/go-alpr"
	"github.com/swdee/go-alpr/backend/onnx"
	"github.com/swdee/go-alpr/backend/rknn"
	"github.com/swdee/go-alpr/config"
)

// Set holds the backends used by the ALPR pipeline
type Set struct {
	Vehicles alpr.VehicleDetector
	Plates   alpr.PlateDetector
	Reader   alpr.PlateReader
	backend  string
}

// Open loads the vehicle, plate and OCR models with the backend named in the
// configuration
func Open(cfg *config.Config) (*Set, error) {

	switch cfg.Backend {
	case config.BackendRKNN:
		return openRKNN(cfg)
	case config.BackendONNX:
		return openONNX(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalid,
			cfg.Backend)
	}
}

func openRKNN(cfg *config.Config) (*Set, error) {

	vehicles, err := rknn.NewVehicleDetector(cfg.VehicleModel)

	if err != nil {
		return nil, err
	}

	plates, err := rknn.NewPlateDetector(cfg.PlateModel)

	if err != nil {
		vehicles.Close()
		return nil, err
	}

	reader, err := rknn.NewReader(cfg.OCRModel, cfg.OCRKeys)

	if err != nil {
		vehicles.Close()
		plates.Close()
		return nil, err
	}

	return &Set{
		Vehicles: vehicles,
		Plates:   plates,
		Reader:   reader,
		backend:  config.BackendRKNN,
	}, nil
}

func openONNX(cfg *config.Config) (*Set, error) {

	if err := onnx.Init(cfg.ONNXLibrary); err != nil {
		return nil, err
	}

	vehicles, err := onnx.NewVehicleDetector(cfg.VehicleModel)

	if err != nil {
		onnx.Destroy()
		return nil, err
	}

	plates, err := onnx.NewPlateDetector(cfg.PlateModel)

	if err != nil {
		vehicles.Close()
		onnx.Destroy()
		return nil, err
	}

	reader, err := onnx.NewReader(cfg.OCRModel, cfg.OCRKeys)

	if err != nil {
		vehicles.Close()
		plates.Close()
		onnx.Destroy()
		return nil, err
	}

	return &Set{
		Vehicles: vehicles,
		Plates:   plates,
		Reader:   reader,
		backend:  config.BackendONNX,
	}, nil
}

// Release frees the runtime environment.  The backends themselves are
// closed by alpr.ALPR.Close which must be called first
func (s *Set) Release() error {

	if s.backend == config.BackendONNX {
		return onnx.Destroy()
	}

	return nil
}
