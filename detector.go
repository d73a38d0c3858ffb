package alpr

import (
	"image"

	"gocv.io/x/gocv"
)

// COCO class labels of vehicles
const (
	ClassCar        = 2
	ClassMotorcycle = 3
	ClassBus        = 5
	ClassTruck      = 7
)

// VehicleClasses are the detector classes treated as vehicles
var VehicleClasses = map[int]bool{
	ClassCar:        true,
	ClassMotorcycle: true,
	ClassBus:        true,
	ClassTruck:      true,
}

// Detection is an object located in an image by a detector backend
type Detection struct {
	// Box is the bounding box in pixel coordinates of the image given to
	// the detector
	Box image.Rectangle
	// Score is the detection confidence in the range [0,1]
	Score float64
	// Class is the class label of the object
	Class int
}

// Reading is one text segment recognised by an OCR backend
type Reading struct {
	Text       string
	Confidence float64
}

// VehicleDetector finds vehicles in a BGR frame
type VehicleDetector interface {
	DetectVehicles(img gocv.Mat) ([]Detection, error)
}

// PlateDetector finds license plates in a BGR vehicle crop
type PlateDetector interface {
	DetectPlates(img gocv.Mat) ([]Detection, error)
}

// PlateReader reads the text of a license plate crop
type PlateReader interface {
	ReadPlate(img gocv.Mat) ([]Reading, error)
}
