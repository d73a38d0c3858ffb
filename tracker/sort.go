package tracker

// Tracker is a SORT (Simple Online and Realtime Tracking) multi-object
// tracker.  It owns all tracks and assigns identities which are unique for the
// lifetime of the Tracker instance.
//
// A Tracker is not safe for concurrent use, frames must be processed in
// order one at a time.
type Tracker struct {
	// cfg is the tracker configuration
	cfg Config
	// frameCount is the number of frames processed so far
	frameCount int
	// lastID is the most recently assigned track identity
	lastID int
	// tracks is the list of live tracks in increasing identity order
	tracks []*Track
	// onDelete are callbacks run when a track is deleted
	onDelete []func(id int)
}

// NewTracker returns a new SORT tracker or ErrInvalidConfig if the
// configuration is out of range
func NewTracker(cfg Config) (*Tracker, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Tracker{
		cfg:    cfg,
		tracks: make([]*Track, 0),
	}, nil
}

// Config returns the tracker configuration
func (tr *Tracker) Config() Config {
	return tr.cfg
}

// OnDelete registers a callback that is run once with the identity of every
// track that is deleted
func (tr *Tracker) OnDelete(fn func(id int)) {
	tr.onDelete = append(tr.onDelete, fn)
}

// FrameCount returns the number of frames processed
func (tr *Tracker) FrameCount() int {
	return tr.frameCount
}

// Update runs one frame of tracking against the detections and returns the
// confirmed tracks matched in this frame.  An empty detection list is valid
// and ages all tracks.
func (tr *Tracker) Update(dets []Detection) []Output {

	// Step 1: drop malformed detections
	valid := make([]Detection, 0, len(dets))

	for i, det := range dets {
		if !det.Box.Valid() {
			Logf("tracker: frame %d dropping malformed detection %d: %v",
				tr.frameCount, i, det.Box)
			continue
		}

		valid = append(valid, det)
	}

	// Step 2: predict current location of every track
	predicted := make([]Box, len(tr.tracks))

	for i, track := range tr.tracks {
		predicted[i] = track.Predict()
	}

	// Step 3: associate predictions with detections
	detBoxes := make([]Box, len(valid))

	for i, det := range valid {
		detBoxes[i] = det.Box
	}

	res := Associate(predicted, detBoxes, tr.cfg.IoUThreshold)

	// Step 4: apply matches
	for _, match := range res.Matches {
		track := tr.tracks[match[0]]
		err := track.Update(valid[match[1]])

		if err != nil {
			Logf("tracker: frame %d failed to update track %d: %v",
				tr.frameCount, track.ID(), err)
			track.MarkMissed()
			continue
		}

		tr.promote(track)
	}

	// Step 5: age unmatched tracks
	for _, idx := range res.UnmatchedTracks {
		tr.tracks[idx].MarkMissed()
	}

	// Step 6: delete tracks that have been unmatched for too long
	tr.prune()

	// Step 7: create tentative tracks for unmatched detections
	for _, idx := range res.UnmatchedDetections {
		track, err := newTrack(tr.lastID+1, valid[idx])

		if err != nil {
			Logf("tracker: frame %d failed to create track: %v",
				tr.frameCount, err)
			continue
		}

		tr.lastID++
		tr.tracks = append(tr.tracks, track)
		tr.promote(track)
	}

	// Step 8: emit confirmed tracks updated this frame
	outputs := make([]Output, 0, len(tr.tracks))

	for _, track := range tr.tracks {
		if track.State() != Confirmed || track.TimeSinceUpdate() > 0 {
			continue
		}

		outputs = append(outputs, Output{
			ID:    track.ID(),
			Box:   track.Box(),
			Class: track.Class(),
			Score: track.Score(),
		})
	}

	tr.frameCount++

	return outputs
}

// promote confirms a tentative track once its hit streak reaches MinHits, or
// while bootstrapping the first MinHits frames
func (tr *Tracker) promote(track *Track) {

	if track.State() != Tentative {
		return
	}

	if track.HitStreak() >= tr.cfg.MinHits ||
		(tr.cfg.Bootstrap && tr.frameCount < tr.cfg.MinHits) {
		track.MarkAsConfirmed()
	}
}

// prune deletes tracks whose time since update exceeds MaxAge or whose
// estimate has become invalid
func (tr *Tracker) prune() {

	live := tr.tracks[:0]

	for _, track := range tr.tracks {
		if track.TimeSinceUpdate() > tr.cfg.MaxAge || !track.Box().Valid() {
			tr.remove(track)
			continue
		}

		live = append(live, track)
	}

	// clear stale pointers from the tail of the backing array
	for i := len(live); i < len(tr.tracks); i++ {
		tr.tracks[i] = nil
	}

	tr.tracks = live
}

// remove marks the track as deleted and notifies the delete callbacks
func (tr *Tracker) remove(track *Track) {

	track.MarkAsDeleted()

	for _, fn := range tr.onDelete {
		fn(track.ID())
	}
}

// Tracks returns a snapshot of every live track in increasing identity order
func (tr *Tracker) Tracks() []TrackInfo {

	infos := make([]TrackInfo, len(tr.tracks))

	for i, track := range tr.tracks {
		infos[i] = track.info()
	}

	return infos
}

// Reset deletes every live track and clears the frame counter.  Identities
// continue from the last one assigned so they are never reused
func (tr *Tracker) Reset() {

	for _, track := range tr.tracks {
		tr.remove(track)
	}

	tr.tracks = make([]*Track, 0)
	tr.frameCount = 0
}
