package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/swdee/go-alpr"
	"github.com/swdee/go-alpr/plate"
)

// PartialMatch is the lowest similarity counted as a partial match
const PartialMatch = 0.5

// ErrGroundTruth is returned when a ground truth file can not be parsed
var ErrGroundTruth = errors.New("invalid ground truth")

// GroundTruth is a hand labelled plate reading for a frame
type GroundTruth struct {
	FrameNumber int
	// VehicleID is the labeller's vehicle number, zero when not given
	VehicleID int
	PlateText string
}

// Comparison is the best reading of a frame matched against its label
type Comparison struct {
	GroundTruth
	DetectedText string
	Confidence   float64
	Similarity   float64
}

// Exact reports if the detected text matches the label exactly
func (c Comparison) Exact() bool {
	return c.Similarity >= 1
}

// Evaluation holds the accuracy metrics of a run against ground truth
type Evaluation struct {
	TotalLabels    int `json:"total_ground_truth_labels"`
	TotalReadings  int `json:"total_predictions"`
	ExactMatches   int `json:"exact_matches"`
	PartialMatches int `json:"partial_matches"`
	NoMatches      int `json:"no_matches"`
	// Accuracy is the fraction of labels read exactly
	Accuracy         float64 `json:"accuracy"`
	ExactMatchRate   float64 `json:"exact_match_rate"`
	PartialMatchRate float64 `json:"partial_match_rate"`
	NoMatchRate      float64 `json:"no_match_rate"`
	AvgSimilarity    float64 `json:"avg_similarity"`
	// AvgConfidenceCorrect is the mean confidence of the exact readings
	AvgConfidenceCorrect float64      `json:"average_confidence_correct"`
	Comparisons          []Comparison `json:"-"`
}

// frame number and plate text column names accepted in ground truth files
var (
	frameColumns   = []string{"frame_number", "frame_id", "frame"}
	plateColumns   = []string{"plate_text", "plate_text_gt"}
	vehicleColumns = []string{"vehicle_id", "vehicle_number"}
)

// ReadGroundTruth parses ground truth CSV with a header row.  The header must
// name a frame column (frame_number or frame_id) and a plate column
// (plate_text or plate_text_gt), a vehicle_id column is optional
func ReadGroundTruth(r io.Reader) ([]GroundTruth, error) {

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()

	if err != nil {
		return nil, fmt.Errorf("%w: error reading header: %w", ErrGroundTruth, err)
	}

	frameCol := findColumn(header, frameColumns)
	plateCol := findColumn(header, plateColumns)
	vehicleCol := findColumn(header, vehicleColumns)

	if frameCol < 0 || plateCol < 0 {
		return nil, fmt.Errorf("%w: header needs frame and plate text columns", ErrGroundTruth)
	}

	var labels []GroundTruth
	line := 1

	for {
		row, err := cr.Read()

		if err == io.EOF {
			break
		}

		line++

		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrGroundTruth, line, err)
		}

		if frameCol >= len(row) || plateCol >= len(row) {
			return nil, fmt.Errorf("%w: line %d: missing columns", ErrGroundTruth, line)
		}

		frame, err := strconv.Atoi(strings.TrimSpace(row[frameCol]))

		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad frame number %q",
				ErrGroundTruth, line, row[frameCol])
		}

		gt := GroundTruth{
			FrameNumber: frame,
			PlateText:   strings.TrimSpace(row[plateCol]),
		}

		if vehicleCol >= 0 && vehicleCol < len(row) {
			// unlabelled vehicles stay zero
			gt.VehicleID, _ = strconv.Atoi(strings.TrimSpace(row[vehicleCol]))
		}

		labels = append(labels, gt)
	}

	return labels, nil
}

// LoadGroundTruth reads the ground truth CSV file at path
func LoadGroundTruth(path string) ([]GroundTruth, error) {

	f, err := os.Open(path)

	if err != nil {
		return nil, fmt.Errorf("error opening ground truth file: %w", err)
	}

	defer f.Close()

	return ReadGroundTruth(f)
}

func findColumn(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))

		for _, name := range names {
			if h == name {
				return i
			}
		}
	}

	return -1
}

// Similarity scores predicted plate text against the labelled text as the
// fraction of positions holding the same character, over the longer of the
// two.  Text is compared case insensitive and ignoring surrounding space
func Similarity(truth, predicted string) float64 {

	truth = strings.ToUpper(strings.TrimSpace(truth))
	predicted = strings.ToUpper(strings.TrimSpace(predicted))

	if truth == "" || predicted == "" {
		return 0
	}

	if truth == predicted {
		return 1
	}

	a, b := []rune(truth), []rune(predicted)
	matches := 0

	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			matches++
		}
	}

	return float64(matches) / float64(max(len(a), len(b)))
}

// Evaluate compares the readings of a run against ground truth labels.  Each
// label is matched to the most similar reading in the same frame, ties going
// to the higher confidence reading
func Evaluate(results []alpr.Result, groundTruth []GroundTruth) Evaluation {

	byFrame := make(map[int][]alpr.Result)

	for _, res := range results {
		byFrame[res.FrameNumber] = append(byFrame[res.FrameNumber], res)
	}

	ev := Evaluation{
		TotalLabels:   len(groundTruth),
		TotalReadings: len(results),
		Comparisons:   make([]Comparison, 0, len(groundTruth)),
	}

	if len(groundTruth) == 0 {
		return ev
	}

	var simSum float64
	var correctConfs []float64

	for _, gt := range groundTruth {
		cmp := Comparison{GroundTruth: gt}

		for _, res := range byFrame[gt.FrameNumber] {
			sim := Similarity(gt.PlateText, res.PlateText)

			if sim > cmp.Similarity ||
				(sim == cmp.Similarity && sim > 0 && res.Confidence > cmp.Confidence) {
				cmp.Similarity = sim
				cmp.DetectedText = res.PlateText
				cmp.Confidence = res.Confidence
			}
		}

		switch {
		case cmp.Exact():
			ev.ExactMatches++
			correctConfs = append(correctConfs, cmp.Confidence)
		case cmp.Similarity >= PartialMatch:
			ev.PartialMatches++
		default:
			ev.NoMatches++
		}

		simSum += cmp.Similarity
		ev.Comparisons = append(ev.Comparisons, cmp)
	}

	total := float64(ev.TotalLabels)
	ev.ExactMatchRate = float64(ev.ExactMatches) / total
	ev.PartialMatchRate = float64(ev.PartialMatches) / total
	ev.NoMatchRate = float64(ev.NoMatches) / total
	ev.Accuracy = ev.ExactMatchRate
	ev.AvgSimilarity = simSum / total
	ev.AvgConfidenceCorrect = plate.AverageConfidence(correctConfs)

	return ev
}

// WriteEvaluation writes the evaluation metrics as a text report
func WriteEvaluation(w io.Writer, ev Evaluation) error {

	rule := strings.Repeat("=", 60)

	_, err := fmt.Fprintf(w, "%s\nALPR System - Evaluation Report\n%s\n\n"+
		"Ground Truth Labels: %d\n"+
		"Total Predictions: %d\n"+
		"Accuracy: %.2f%%\n"+
		"Average Confidence (correct): %.2f%%\n"+
		"Average Similarity: %.2f%%\n\n"+
		"Exact Matches: %d (%.2f%%)\n"+
		"Partial Matches: %d (%.2f%%)\n"+
		"No Matches: %d (%.2f%%)\n"+
		"\n%s\n",
		rule, rule,
		ev.TotalLabels, ev.TotalReadings,
		ev.Accuracy*100, ev.AvgConfidenceCorrect*100, ev.AvgSimilarity*100,
		ev.ExactMatches, ev.ExactMatchRate*100,
		ev.PartialMatches, ev.PartialMatchRate*100,
		ev.NoMatches, ev.NoMatchRate*100,
		rule)

	if err != nil {
		return fmt.Errorf("error writing evaluation: %w", err)
	}

	return nil
}
