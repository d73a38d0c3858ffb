package tracker

// TrackState represents the lifecycle state of a track
type TrackState int

const (
	// Tentative is a newly created track that has not been matched on enough
	// consecutive frames to be reported
	Tentative TrackState = 0
	// Confirmed is a track that is reported in the tracker output
	Confirmed TrackState = 1
	// Deleted is a track that has been removed from the tracker
	Deleted TrackState = 2
)

// String returns the name of the track state
func (s TrackState) String() string {
	switch s {
	case Tentative:
		return "tentative"
	case Confirmed:
		return "confirmed"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Track represents a single tracked object
type Track struct {
	// Kalman filter estimating the box motion
	kalmanFilter *KalmanFilter
	// Unique ID for the track
	id int
	// Current lifecycle state
	state TrackState
	// Number of frames since the track was created
	age int
	// Number of consecutive frames the track has been matched
	hitStreak int
	// Total number of frames the track has been matched
	hits int
	// Number of frames since the last match
	timeSinceUpdate int
	// class label of the last matched detection
	class int
	// score of the last matched detection
	score float64
}

// newTrack creates a tentative track initialized from the detection
func newTrack(id int, det Detection) (*Track, error) {

	kf, err := NewKalmanFilter(det.Box)

	if err != nil {
		return nil, err
	}

	return &Track{
		kalmanFilter: kf,
		id:           id,
		state:        Tentative,
		hitStreak:    1,
		hits:         1,
		class:        det.Class,
		score:        det.Score,
	}, nil
}

// Predict advances the track one frame and returns the predicted box
func (t *Track) Predict() Box {
	box := t.kalmanFilter.Predict()
	t.age++
	t.timeSinceUpdate++
	return box
}

// Update corrects the track with a matched detection
func (t *Track) Update(det Detection) error {

	err := t.kalmanFilter.Update(det.Box)

	if err != nil {
		return err
	}

	t.timeSinceUpdate = 0
	t.hitStreak++
	t.hits++
	t.class = det.Class
	t.score = det.Score

	return nil
}

// MarkMissed records that the track had no match this frame
func (t *Track) MarkMissed() {
	t.hitStreak = 0
}

// MarkAsConfirmed sets the track state to Confirmed
func (t *Track) MarkAsConfirmed() {
	if t.state == Tentative {
		t.state = Confirmed
	}
}

// MarkAsDeleted sets the track state to Deleted
func (t *Track) MarkAsDeleted() {
	t.state = Deleted
}

// ID returns the track identity
func (t *Track) ID() int {
	return t.id
}

// State returns the lifecycle state
func (t *Track) State() TrackState {
	return t.state
}

// Age returns the number of frames since the track was created
func (t *Track) Age() int {
	return t.age
}

// HitStreak returns the number of consecutive matched frames
func (t *Track) HitStreak() int {
	return t.hitStreak
}

// Hits returns the total number of matched frames
func (t *Track) Hits() int {
	return t.hits
}

// TimeSinceUpdate returns the number of frames since the last match
func (t *Track) TimeSinceUpdate() int {
	return t.timeSinceUpdate
}

// Box returns the current estimated bounding box
func (t *Track) Box() Box {
	return t.kalmanFilter.Box()
}

// Class returns the class label of the last matched detection
func (t *Track) Class() int {
	return t.class
}

// Score returns the score of the last matched detection
func (t *Track) Score() float64 {
	return t.score
}

// KalmanState returns the Kalman filter state vector
func (t *Track) KalmanState() State {
	return t.kalmanFilter.State()
}

// TrackInfo is a read only snapshot of a track
type TrackInfo struct {
	ID              int
	State           TrackState
	Box             Box
	Age             int
	HitStreak       int
	Hits            int
	TimeSinceUpdate int
	Class           int
	Score           float64
}

// info returns a snapshot of the track
func (t *Track) info() TrackInfo {
	return TrackInfo{
		ID:              t.id,
		State:           t.state,
		Box:             t.Box(),
		Age:             t.age,
		HitStreak:       t.hitStreak,
		Hits:            t.hits,
		TimeSinceUpdate: t.timeSinceUpdate,
		Class:           t.class,
		Score:           t.score,
	}
}
