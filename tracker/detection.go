package tracker

// Detection represents an object detected in a frame that is fed to the
// tracker
type Detection struct {
	// Box is the bounding box of the detected object
	Box Box
	// Score is the confidence score of the detection in the range [0,1]
	Score float64
	// Class is the class label of the object detected
	Class int
}

// NewDetection is a constructor function for the Detection struct
func NewDetection(box Box, score float64, class int) Detection {
	return Detection{
		Box:   box,
		Score: score,
		Class: class,
	}
}

// Output is a confirmed track reported by the tracker for a frame
type Output struct {
	// ID is the track identity
	ID int
	// Box is the estimated bounding box of the track
	Box Box
	// Class is the class label of the last matched detection
	Class int
	// Score is the confidence score of the last matched detection
	Score float64
}
