package tracker

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestIoU(t *testing.T) {
	t.Parallel()

	a := NewBox(0, 0, 10, 10)
	b := NewBox(5, 5, 15, 15)
	far := NewBox(100, 100, 110, 110)
	touching := NewBox(10, 0, 20, 10)

	assert.InDelta(t, 1.0, IoU(a, a), 1e-12, "identical boxes")
	assert.Equal(t, 0.0, IoU(a, far), "disjoint boxes")
	assert.Equal(t, 0.0, IoU(a, touching), "boxes sharing an edge")
	assert.InDelta(t, 25.0/175.0, IoU(a, b), 1e-12, "partial overlap")
	assert.Equal(t, IoU(a, b), IoU(b, a), "symmetry")

	inner := NewBox(2, 2, 8, 8)
	assert.InDelta(t, 36.0/100.0, IoU(a, inner), 1e-12, "contained box")
}

func TestAssociate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		tracks     []Box
		detections []Box
		threshold  float64
		want       AssociationResult
	}{
		{
			name:       "no tracks",
			tracks:     nil,
			detections: []Box{NewBox(0, 0, 10, 10)},
			threshold:  0.3,
			want: AssociationResult{
				Matches:             [][2]int{},
				UnmatchedTracks:     []int{},
				UnmatchedDetections: []int{0},
			},
		},
		{
			name:       "no detections",
			tracks:     []Box{NewBox(0, 0, 10, 10), NewBox(20, 20, 30, 30)},
			detections: nil,
			threshold:  0.3,
			want: AssociationResult{
				Matches:             [][2]int{},
				UnmatchedTracks:     []int{0, 1},
				UnmatchedDetections: []int{},
			},
		},
		{
			name:       "detections in reverse order",
			tracks:     []Box{NewBox(0, 0, 10, 10), NewBox(50, 50, 60, 60)},
			detections: []Box{NewBox(51, 50, 61, 60), NewBox(1, 0, 11, 10)},
			threshold:  0.3,
			want: AssociationResult{
				Matches:             [][2]int{{0, 1}, {1, 0}},
				UnmatchedTracks:     []int{},
				UnmatchedDetections: []int{},
			},
		},
		{
			name:       "weak match demoted",
			tracks:     []Box{NewBox(0, 0, 10, 10)},
			detections: []Box{NewBox(5, 5, 15, 15)},
			threshold:  0.3,
			want: AssociationResult{
				Matches:             [][2]int{},
				UnmatchedTracks:     []int{0},
				UnmatchedDetections: []int{0},
			},
		},
		{
			name:       "more tracks than detections",
			tracks:     []Box{NewBox(0, 0, 10, 10), NewBox(50, 50, 60, 60), NewBox(100, 0, 110, 10)},
			detections: []Box{NewBox(50, 51, 60, 61)},
			threshold:  0.3,
			want: AssociationResult{
				Matches:             [][2]int{{1, 0}},
				UnmatchedTracks:     []int{0, 2},
				UnmatchedDetections: []int{},
			},
		},
		{
			name:       "more detections than tracks",
			tracks:     []Box{NewBox(50, 50, 60, 60)},
			detections: []Box{NewBox(0, 0, 10, 10), NewBox(50, 50, 60, 60), NewBox(200, 200, 210, 210)},
			threshold:  0.3,
			want: AssociationResult{
				Matches:             [][2]int{{0, 1}},
				UnmatchedTracks:     []int{},
				UnmatchedDetections: []int{0, 2},
			},
		},
		{
			name:       "equal cost resolves in order",
			tracks:     []Box{NewBox(0, 0, 10, 10), NewBox(0, 0, 10, 10)},
			detections: []Box{NewBox(0, 0, 10, 10), NewBox(0, 0, 10, 10)},
			threshold:  0.3,
			want: AssociationResult{
				Matches:             [][2]int{{0, 0}, {1, 1}},
				UnmatchedTracks:     []int{},
				UnmatchedDetections: []int{},
			},
		},
		{
			// greedy matching would give track 0 the detection it overlaps
			// most and starve track 1
			name:       "optimal beats greedy",
			tracks:     []Box{NewBox(0, 0, 10, 10), NewBox(4, 0, 14, 10)},
			detections: []Box{NewBox(2, 0, 12, 10), NewBox(-2, 0, 8, 10)},
			threshold:  0.3,
			want: AssociationResult{
				Matches:             [][2]int{{0, 1}, {1, 0}},
				UnmatchedTracks:     []int{},
				UnmatchedDetections: []int{},
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Associate(tc.tracks, tc.detections, tc.threshold)

			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Associate() mismatch (-want +got):\n%s", diff)
			}

			assertPartition(t, got, len(tc.tracks), len(tc.detections))
		})
	}
}

// assertPartition checks every track and detection index appears exactly
// once across the matched and unmatched lists
func assertPartition(t *testing.T, res AssociationResult, nTracks, nDets int) {
	t.Helper()

	trackSeen := make(map[int]int)
	detSeen := make(map[int]int)

	for _, m := range res.Matches {
		trackSeen[m[0]]++
		detSeen[m[1]]++
	}

	for _, i := range res.UnmatchedTracks {
		trackSeen[i]++
	}

	for _, j := range res.UnmatchedDetections {
		detSeen[j]++
	}

	assert.Len(t, trackSeen, nTracks)
	assert.Len(t, detSeen, nDets)

	for i, n := range trackSeen {
		assert.Equal(t, 1, n, "track %d", i)
	}

	for j, n := range detSeen {
		assert.Equal(t, 1, n, "detection %d", j)
	}
}
