package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/swdee/go-alpr"
	"github.com/swdee/go-alpr/plate"
)

// Summary holds statistics calculated over the results of a run
type Summary struct {
	TotalFrames     int     `json:"total_frames"`
	TotalDetections int     `json:"total_detections"`
	UniqueVehicles  int     `json:"unique_vehicles"`
	UniquePlates    int     `json:"unique_plates"`
	AvgConfidence   float64 `json:"avg_confidence"`
	// DetectionRate is the fraction of frames with at least one result
	DetectionRate float64 `json:"detection_rate"`
}

// Summarise calculates the summary statistics of the results.  When
// totalFrames is zero it is taken from the highest frame number seen
func Summarise(results []alpr.Result, totalFrames int) Summary {

	if len(results) == 0 {
		return Summary{TotalFrames: totalFrames}
	}

	vehicles := make(map[int]struct{})
	plates := make(map[string]struct{})
	frames := make(map[int]struct{})
	confs := make([]float64, 0, len(results))
	maxFrame := 0

	for _, res := range results {
		vehicles[res.VehicleID] = struct{}{}
		frames[res.FrameNumber] = struct{}{}

		if res.PlateText != "" {
			plates[res.PlateText] = struct{}{}
		}

		if res.Confidence > 0 {
			confs = append(confs, res.Confidence)
		}

		if res.FrameNumber > maxFrame {
			maxFrame = res.FrameNumber
		}
	}

	if totalFrames <= 0 {
		totalFrames = maxFrame + 1
	}

	return Summary{
		TotalFrames:     totalFrames,
		TotalDetections: len(results),
		UniqueVehicles:  len(vehicles),
		UniquePlates:    len(plates),
		AvgConfidence:   plate.AverageConfidence(confs),
		DetectionRate:   float64(len(frames)) / float64(totalFrames),
	}
}

// WriteSummary writes the summary and pipeline counters as a text report
func WriteSummary(w io.Writer, s Summary, stats alpr.Stats) error {

	rule := strings.Repeat("=", 60)

	_, err := fmt.Fprintf(w, "%s\nALPR System - Summary Report\n%s\n\n"+
		"Total Frames Processed: %d\n"+
		"Total Detections: %d\n"+
		"Unique Vehicles: %d\n"+
		"Unique License Plates: %d\n"+
		"Average Confidence: %.2f%%\n"+
		"Detection Rate: %.2f%%\n\n"+
		"Vehicles Tracked: %d\n"+
		"Plates Detected: %d\n"+
		"Plates Read: %d\n"+
		"\n%s\n",
		rule, rule,
		s.TotalFrames, s.TotalDetections, s.UniqueVehicles, s.UniquePlates,
		s.AvgConfidence*100, s.DetectionRate*100,
		stats.UniqueVehicles, stats.PlatesDetected, stats.PlatesRead,
		rule)

	if err != nil {
		return fmt.Errorf("error writing summary: %w", err)
	}

	return nil
}

// SaveSummary writes the summary report to the file at path
func SaveSummary(path string, s Summary, stats alpr.Stats) error {

	f, err := os.Create(path)

	if err != nil {
		return fmt.Errorf("error creating summary file: %w", err)
	}

	if err := WriteSummary(f, s, stats); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
