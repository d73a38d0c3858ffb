package alpr

import (
	"image"
	"time"

	"github.com/swdee/go-alpr/tracker"
)

// Result is a vehicle with a cached plate reading seen in a frame
type Result struct {
	FrameNumber int             `json:"frame_number"`
	VehicleID   int             `json:"vehicle_id"`
	VehicleBox  image.Rectangle `json:"vehicle_bbox"`
	PlateText   string          `json:"plate_text"`
	PlateBox    image.Rectangle `json:"plate_bbox"`
	Confidence  float64         `json:"confidence"`
	Timestamp   time.Time       `json:"timestamp"`
}

// FrameResult is the outcome of processing a single frame
type FrameResult struct {
	// FrameNumber of the processed frame
	FrameNumber int
	// Skipped is true when the frame was passed over due to frame skipping
	Skipped bool
	// Tracks are the confirmed vehicle tracks matched in the frame
	Tracks []tracker.Output
	// Results are the tracks that have a cached plate reading
	Results []Result
	// Timing of the processing stages
	Timing Timing
}

// Timing holds the times of the processing stages of a frame used for
// calculating durations
type Timing struct {
	StartDetect time.Time
	EndDetect   time.Time
	EndTrack    time.Time
	EndPlates   time.Time
}

// DetectDuration returns the time spent in vehicle detection
func (t Timing) DetectDuration() time.Duration {
	return t.EndDetect.Sub(t.StartDetect)
}

// TrackDuration returns the time spent tracking
func (t Timing) TrackDuration() time.Duration {
	return t.EndTrack.Sub(t.EndDetect)
}

// PlateDuration returns the time spent detecting and reading plates
func (t Timing) PlateDuration() time.Duration {
	return t.EndPlates.Sub(t.EndTrack)
}

// Total returns the total processing time of the frame
func (t Timing) Total() time.Duration {
	return t.EndPlates.Sub(t.StartDetect)
}

// Stats are the running counters of a pipeline
type Stats struct {
	// TotalFrames processed, skipped frames are not counted
	TotalFrames int `json:"total_frames"`
	// VehiclesDetected is the number of confirmed vehicle tracks summed
	// over all frames
	VehiclesDetected int `json:"vehicles_detected"`
	// PlatesDetected is the number of plate detections passed to OCR
	PlatesDetected int `json:"plates_detected"`
	// PlatesRead is the number of OCR readings that passed validation
	PlatesRead int `json:"plates_read"`
	// UniqueVehicles is the number of distinct track identities confirmed
	UniqueVehicles int `json:"unique_vehicles"`
	// CacheSize is the number of tracks currently holding a plate reading
	CacheSize int `json:"cache_size"`
}
