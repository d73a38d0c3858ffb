package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilarity(t *testing.T) {

	tests := []struct {
		name      string
		truth     string
		predicted string
		want      float64
	}{
		{"exact", "ABC123", "ABC123", 1},
		{"case and space", "abc123 ", "ABC123", 1},
		{"one wrong", "ABC123", "ABC128", 5.0 / 6},
		{"one short", "ABC123", "ABC12", 5.0 / 6},
		{"prefix only", "ABC123", "ABD1", 2.0 / 6},
		{"nothing shared", "ABC123", "XYZ789", 0},
		{"empty prediction", "ABC123", "", 0},
		{"empty truth", "", "ABC123", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Similarity(tc.truth, tc.predicted), 1e-9)
		})
	}
}

func TestEvaluate(t *testing.T) {

	tests := []struct {
		name        string
		labels      []GroundTruth
		exact       int
		partial     int
		none        int
		accuracy    float64
		similarity  float64
		confCorrect float64
		detected    []string
	}{
		{
			name: "exact partial and missed",
			labels: []GroundTruth{
				{FrameNumber: 2, PlateText: "ABC123"},
				{FrameNumber: 3, PlateText: "XYZ780"},
				{FrameNumber: 5, PlateText: "DEF456"},
			},
			exact:       1,
			partial:     1,
			none:        1,
			accuracy:    1.0 / 3,
			similarity:  (1 + 5.0/6) / 3,
			confCorrect: 0.9,
			detected:    []string{"ABC123", "XYZ789", ""},
		},
		{
			name: "all exact",
			labels: []GroundTruth{
				{FrameNumber: 3, PlateText: "ABC123"},
				{FrameNumber: 3, PlateText: "xyz789"},
			},
			exact:       2,
			accuracy:    1,
			similarity:  1,
			confCorrect: 0.75,
			detected:    []string{"ABC123", "XYZ789"},
		},
		{
			// ABC123 and XYZ789 both score 3/6, the higher confidence wins
			name:       "tie goes to confidence",
			labels:     []GroundTruth{{FrameNumber: 3, PlateText: "ABC789"}},
			partial:    1,
			similarity: 0.5,
			detected:   []string{"ABC123"},
		},
		{
			name:     "wrong frame",
			labels:   []GroundTruth{{FrameNumber: 4, PlateText: "ABC123"}},
			none:     1,
			detected: []string{""},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ev := Evaluate(testResults(), tc.labels)

			assert.Equal(t, len(tc.labels), ev.TotalLabels)
			assert.Equal(t, 3, ev.TotalReadings)
			assert.Equal(t, tc.exact, ev.ExactMatches)
			assert.Equal(t, tc.partial, ev.PartialMatches)
			assert.Equal(t, tc.none, ev.NoMatches)
			assert.InDelta(t, tc.accuracy, ev.Accuracy, 1e-9)
			assert.InDelta(t, tc.similarity, ev.AvgSimilarity, 1e-9)
			assert.InDelta(t, tc.confCorrect, ev.AvgConfidenceCorrect, 1e-9)

			total := float64(len(tc.labels))
			assert.InDelta(t, float64(tc.exact)/total, ev.ExactMatchRate, 1e-9)
			assert.InDelta(t, float64(tc.partial)/total, ev.PartialMatchRate, 1e-9)
			assert.InDelta(t, float64(tc.none)/total, ev.NoMatchRate, 1e-9)

			var detected []string
			for _, c := range ev.Comparisons {
				detected = append(detected, c.DetectedText)
			}

			if diff := cmp.Diff(tc.detected, detected); diff != "" {
				t.Errorf("detected text mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvaluateNoLabels(t *testing.T) {
	ev := Evaluate(testResults(), nil)

	assert.Equal(t, 0, ev.TotalLabels)
	assert.Equal(t, 3, ev.TotalReadings)
	assert.Zero(t, ev.Accuracy)
	assert.Zero(t, ev.AvgSimilarity)
	assert.Empty(t, ev.Comparisons)
}

func TestReadGroundTruth(t *testing.T) {

	tests := []struct {
		name    string
		data    string
		want    []GroundTruth
		wantErr bool
	}{
		{
			name: "results style header",
			data: "frame_number,vehicle_id,plate_text\n2,1,ABC123\n3,2, XYZ789\n",
			want: []GroundTruth{
				{FrameNumber: 2, VehicleID: 1, PlateText: "ABC123"},
				{FrameNumber: 3, VehicleID: 2, PlateText: "XYZ789"},
			},
		},
		{
			name: "labelling export header",
			data: "frame_id,vehicle_number,plate_text_gt,vehicle_box_x\n10,1,DEF456,100\n11,,GHI789,120\n",
			want: []GroundTruth{
				{FrameNumber: 10, VehicleID: 1, PlateText: "DEF456"},
				{FrameNumber: 11, PlateText: "GHI789"},
			},
		},
		{
			name: "no vehicle column",
			data: "Frame,Plate_Text\n7,JKL012\n",
			want: []GroundTruth{{FrameNumber: 7, PlateText: "JKL012"}},
		},
		{
			name:    "missing plate column",
			data:    "frame_number,vehicle_id\n1,1\n",
			wantErr: true,
		},
		{
			name:    "bad frame number",
			data:    "frame_number,plate_text\nx,ABC123\n",
			wantErr: true,
		},
		{
			name:    "short row",
			data:    "frame_number,vehicle_id,plate_text\n1,1\n",
			wantErr: true,
		},
		{
			name:    "empty",
			data:    "",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ReadGroundTruth(strings.NewReader(tc.data))

			if tc.wantErr {
				assert.ErrorIs(t, err, ErrGroundTruth)
				return
			}

			require.NoError(t, err)

			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("ground truth mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadGroundTruth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truth.csv")
	require.NoError(t, os.WriteFile(path,
		[]byte("frame_number,plate_text\n2,ABC123\n"), 0o644))

	labels, err := LoadGroundTruth(path)
	require.NoError(t, err)

	ev := Evaluate(testResults(), labels)
	assert.InDelta(t, 1, ev.Accuracy, 1e-9)

	_, err = LoadGroundTruth(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestWriteEvaluation(t *testing.T) {
	ev := Evaluate(testResults(), []GroundTruth{
		{FrameNumber: 2, PlateText: "ABC123"},
		{FrameNumber: 5, PlateText: "DEF456"},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteEvaluation(&buf, ev))

	out := buf.String()
	assert.Contains(t, out, "ALPR System - Evaluation Report")
	assert.Contains(t, out, "Ground Truth Labels: 2")
	assert.Contains(t, out, "Accuracy: 50.00%")
	assert.Contains(t, out, "Exact Matches: 1 (50.00%)")
	assert.Contains(t, out, "No Matches: 1 (50.00%)")
}
