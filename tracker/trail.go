package tracker

import "sync"

// Point represents the x,y coordinates of the center of a tracked box
type Point struct {
	X, Y int
}

// history is the list of recent center points for one track
type history struct {
	points []Point
}

// Trail keeps a history of track center points used for drawing a trail
// behind each tracked object
type Trail struct {
	// size is the maximum number of most recent points to keep in history
	size int
	// history of tracked points keyed by track ID
	history map[int]*history
	sync.Mutex
}

// NewTrail returns a new trail history instance.  Size is the maximum number
// of most recent points kept per track
func NewTrail(size int) *Trail {
	return &Trail{
		size:    size,
		history: make(map[int]*history),
	}
}

// Reset clears all history
func (t *Trail) Reset() {
	t.Lock()
	defer t.Unlock()

	t.history = make(map[int]*history)
}

// Add the center point of a tracker output to the history
func (t *Trail) Add(out Output) {
	t.Lock()
	defer t.Unlock()

	// init map if no history exists yet for track id
	if _, exists := t.history[out.ID]; !exists {
		t.history[out.ID] = &history{}
	}

	h := t.history[out.ID]
	x, y := out.Box.Center()

	h.points = append(h.points, Point{
		X: int(x),
		Y: int(y),
	})

	// check if history is exceeded and drop oldest point
	if len(h.points) > t.size {
		h.points = h.points[1:]
	}
}

// Remove drops the history of a track, it is registered with
// Tracker.OnDelete so trails of deleted tracks are released
func (t *Trail) Remove(id int) {
	t.Lock()
	defer t.Unlock()

	delete(t.history, id)
}

// GetPoints gets a copy of the point history for a specific track id
func (t *Trail) GetPoints(id int) []Point {
	t.Lock()
	defer t.Unlock()

	if h, exists := t.history[id]; exists {
		points := make([]Point, len(h.points))
		copy(points, h.points)
		return points
	}

	// no history yet
	return nil
}

// Len returns the number of tracks with history
func (t *Trail) Len() int {
	t.Lock()
	defer t.Unlock()

	return len(t.history)
}
