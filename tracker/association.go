package tracker

// AssociationResult is the outcome of matching track boxes to detection boxes
// for a single frame.  Every track index and every detection index appears in
// exactly one of the matched or unmatched lists
type AssociationResult struct {
	// Matches are pairs of [track index, detection index]
	Matches [][2]int
	// UnmatchedTracks are the track indexes with no match, in ascending order
	UnmatchedTracks []int
	// UnmatchedDetections are the detection indexes with no match, in
	// ascending order
	UnmatchedDetections []int
}

// Associate matches predicted track boxes to detection boxes by solving the
// optimal assignment over a 1-IoU cost matrix.  Assigned pairs with an IoU
// below iouThreshold are rejected and both sides are returned as unmatched.
//
// Tracks must be given in increasing identity order and detections in the
// order they were received, which makes equal cost assignments resolve
// deterministically.
func Associate(tracks, detections []Box, iouThreshold float64) AssociationResult {

	res := AssociationResult{
		Matches:             make([][2]int, 0),
		UnmatchedTracks:     make([]int, 0),
		UnmatchedDetections: make([]int, 0),
	}

	if len(tracks) == 0 || len(detections) == 0 {
		for i := range tracks {
			res.UnmatchedTracks = append(res.UnmatchedTracks, i)
		}

		for j := range detections {
			res.UnmatchedDetections = append(res.UnmatchedDetections, j)
		}

		return res
	}

	ious := calcIous(tracks, detections)
	cost := make([][]float64, len(tracks))

	for i := range ious {
		cost[i] = make([]float64, len(detections))
		for j := range ious[i] {
			cost[i][j] = 1 - ious[i][j]
		}
	}

	assign := hungarianAssign(cost)
	detMatched := make([]bool, len(detections))

	for i, j := range assign {
		if j < 0 || ious[i][j] < iouThreshold {
			res.UnmatchedTracks = append(res.UnmatchedTracks, i)
			continue
		}

		res.Matches = append(res.Matches, [2]int{i, j})
		detMatched[j] = true
	}

	for j, matched := range detMatched {
		if !matched {
			res.UnmatchedDetections = append(res.UnmatchedDetections, j)
		}
	}

	return res
}

// calcIous returns the IoU matrix between boxes a (rows) and boxes b
// (columns)
func calcIous(a, b []Box) [][]float64 {

	ious := make([][]float64, len(a))

	for i := range a {
		ious[i] = make([]float64, len(b))
		for j := range b {
			ious[i][j] = IoU(a[i], b[j])
		}
	}

	return ious
}
