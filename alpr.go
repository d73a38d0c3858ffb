package alpr

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/swdee/go-alpr/config"
	"github.com/swdee/go-alpr/plate"
	"github.com/swdee/go-alpr/platecache"
	"github.com/swdee/go-alpr/tracker"
	"gocv.io/x/gocv"
)

// trailSize is the number of centre points kept per track for rendering
const trailSize = 60

// ALPR defines the Automatic License Plate Recognition pipeline which tracks
// vehicles and keeps the best plate reading for each of them
type ALPR struct {
	cfg *config.Config
	// vehicles detects vehicles in full frames
	vehicles VehicleDetector
	// plates detects license plates in vehicle crops
	plates PlateDetector
	// reader reads plate text from plate crops
	reader PlateReader
	// allow is the set of characters accepted in plate text
	allow plate.Allowlist
	// tracker assigns vehicle identities across frames
	tracker *tracker.Tracker
	// cache holds the best plate reading per vehicle identity
	cache *platecache.Cache
	// trail holds the recent centre points of each vehicle
	trail *tracker.Trail
	// plateBoxes is the frame location of the cached plate reading for each
	// vehicle identity
	plateBoxes map[int]image.Rectangle
	// seen is the set of confirmed identities for counting unique vehicles
	seen  map[int]struct{}
	stats Stats
	// preprocess enables binarisation of plate crops before OCR
	preprocess bool
	// now returns the current time, replaced in tests
	now func() time.Time
	mu  sync.Mutex
}

// NewALPR returns an ALPR pipeline using the given backends
func NewALPR(cfg *config.Config, vehicles VehicleDetector, plates PlateDetector,
	reader PlateReader) (*ALPR, error) {

	if vehicles == nil || plates == nil || reader == nil {
		return nil, errors.New("vehicle detector, plate detector and plate reader are required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	allow, err := plate.ParseAllowlist(cfg.OCRAllowlist)

	if err != nil {
		return nil, fmt.Errorf("error parsing allowlist: %w", err)
	}

	trk, err := tracker.NewTracker(cfg.TrackerConfig())

	if err != nil {
		return nil, fmt.Errorf("error creating tracker: %w", err)
	}

	a := &ALPR{
		cfg:        cfg,
		vehicles:   vehicles,
		plates:     plates,
		reader:     reader,
		allow:      allow,
		tracker:    trk,
		cache:      platecache.New(),
		trail:      tracker.NewTrail(trailSize),
		plateBoxes: make(map[int]image.Rectangle),
		seen:       make(map[int]struct{}),
		preprocess: true,
		now:        time.Now,
	}

	// deleted tracks never come back so drop everything held for them
	trk.OnDelete(a.evict)

	return a, nil
}

// SetPreprocess enables or disables binarisation of plate crops before they
// are passed to the PlateReader.  Enabled by default
func (a *ALPR) SetPreprocess(on bool) {
	a.preprocess = on
}

// Cache returns the plate reading cache
func (a *ALPR) Cache() *platecache.Cache {
	return a.cache
}

// Trail returns the centre point history of the tracked vehicles
func (a *ALPR) Trail() *tracker.Trail {
	return a.trail
}

// PlateBox returns the frame location of the cached plate reading for the
// vehicle
func (a *ALPR) PlateBox(id int) (image.Rectangle, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rect, ok := a.plateBoxes[id]
	return rect, ok
}

// Stats returns a copy of the pipeline counters
func (a *ALPR) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := a.stats
	stats.UniqueVehicles = len(a.seen)
	stats.CacheSize = a.cache.Len()

	return stats
}

// ShouldProcess returns false for frames passed over by frame skipping
func (a *ALPR) ShouldProcess(frameNum int) bool {
	skip := a.cfg.FrameSkip
	return skip <= 0 || frameNum%(skip+1) == 0
}

// ProcessFrame runs a BGR frame through vehicle detection, tracking and
// plate reading.  Frames must be given in order.  Errors are only returned
// for backend failures, malformed detections and unreadable plates are
// skipped
func (a *ALPR) ProcessFrame(frameNum int, img gocv.Mat) (FrameResult, error) {

	res := FrameResult{
		FrameNumber: frameNum,
	}

	if !a.ShouldProcess(frameNum) {
		res.Skipped = true
		return res, nil
	}

	if img.Empty() {
		return res, errors.New("error source Mat is empty")
	}

	a.mu.Lock()
	a.stats.TotalFrames++
	a.mu.Unlock()

	bounds := image.Rect(0, 0, img.Cols(), img.Rows())

	res.Timing.StartDetect = time.Now()

	vehicles, err := a.vehicles.DetectVehicles(img)

	if err != nil {
		return res, fmt.Errorf("error detecting vehicles: %w", err)
	}

	res.Timing.EndDetect = time.Now()

	dets := make([]tracker.Detection, 0, len(vehicles))

	for _, v := range vehicles {
		// negated so NaN scores are rejected too
		if !VehicleClasses[v.Class] || !(v.Score >= a.cfg.VehicleConfidence) {
			continue
		}

		dets = append(dets, tracker.NewDetection(rectToBox(v.Box), v.Score, v.Class))
	}

	res.Tracks = a.tracker.Update(dets)

	res.Timing.EndTrack = time.Now()

	for _, out := range res.Tracks {

		a.trail.Add(out)

		a.mu.Lock()
		a.stats.VehiclesDetected++
		a.seen[out.ID] = struct{}{}
		a.mu.Unlock()

		if !a.cache.ShouldRead(out.ID, a.cfg.OCRSkipConfidence) {
			continue
		}

		vehicleRect := boxToRect(out.Box).Intersect(bounds)

		if vehicleRect.Empty() {
			continue
		}

		if err := a.readPlate(frameNum, out.ID, img, vehicleRect); err != nil {
			return res, err
		}
	}

	now := a.now()

	for _, out := range res.Tracks {
		entry, ok := a.cache.Lookup(out.ID)

		if !ok {
			continue
		}

		plateBox, _ := a.PlateBox(out.ID)

		res.Results = append(res.Results, Result{
			FrameNumber: frameNum,
			VehicleID:   out.ID,
			VehicleBox:  boxToRect(out.Box),
			PlateText:   entry.Text,
			PlateBox:    plateBox,
			Confidence:  entry.Confidence,
			Timestamp:   now,
		})
	}

	res.Timing.EndPlates = time.Now()

	return res, nil
}

// readPlate detects the plate within the vehicle region of the frame, reads
// it and offers the reading to the cache
func (a *ALPR) readPlate(frameNum, id int, img gocv.Mat, vehicleRect image.Rectangle) error {

	vehicle := img.Region(vehicleRect)
	defer vehicle.Close()

	plates, err := a.plates.DetectPlates(vehicle)

	if err != nil {
		return fmt.Errorf("error detecting plates: %w", err)
	}

	best, ok := a.bestPlate(plates)

	if !ok {
		return nil
	}

	a.mu.Lock()
	a.stats.PlatesDetected++
	a.mu.Unlock()

	// plate boxes are relative to the vehicle crop
	plateRect := best.Box.Add(vehicleRect.Min)
	plateRect = plate.PadRegion(plateRect, a.cfg.PlatePadding,
		image.Rect(0, 0, img.Cols(), img.Rows()))

	if plateRect.Empty() {
		return nil
	}

	crop := img.Region(plateRect)
	defer crop.Close()

	input := crop

	if a.preprocess {
		processed := gocv.NewMat()
		defer processed.Close()

		plate.Preprocess(crop, &processed)
		input = processed
	}

	readings, err := a.reader.ReadPlate(input)

	if err != nil {
		return fmt.Errorf("error reading plate: %w", err)
	}

	text, conf, ok := a.combine(readings)

	if !ok {
		return nil
	}

	if err := plate.Validate(text, a.cfg.MinPlateLength, a.cfg.MaxPlateLength); err != nil {
		Logf("Track %d frame %d discarding reading: %v", id, frameNum, err)
		return nil
	}

	if !(conf >= a.cfg.OCRConfidence) {
		return nil
	}

	a.mu.Lock()
	a.stats.PlatesRead++
	a.mu.Unlock()

	if a.cache.Offer(id, text, conf, frameNum) {
		a.mu.Lock()
		a.plateBoxes[id] = plateRect
		a.mu.Unlock()
	}

	return nil
}

// bestPlate returns the highest scoring plate detection above the plate
// confidence threshold
func (a *ALPR) bestPlate(plates []Detection) (Detection, bool) {

	candidates := make([]Detection, 0, len(plates))

	for _, p := range plates {
		if p.Score >= a.cfg.PlateConfidence && !p.Box.Empty() {
			candidates = append(candidates, p)
		}
	}

	if len(candidates) == 0 {
		return Detection{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	return candidates[0], true
}

// combine converts the OCR readings into a single plate text and its mean
// confidence
func (a *ALPR) combine(readings []Reading) (string, float64, bool) {

	segments := make([]plate.Segment, 0, len(readings))

	for _, r := range readings {
		segments = append(segments, plate.Segment{
			Text:       r.Text,
			Confidence: r.Confidence,
		})
	}

	return plate.Combine(segments, a.allow)
}

// evict drops the cached reading, plate box and trail of a deleted track
func (a *ALPR) evict(id int) {
	a.cache.Evict(id)
	a.trail.Remove(id)

	a.mu.Lock()
	delete(a.plateBoxes, id)
	a.mu.Unlock()
}

// Reset clears all tracks, cached readings and counters.  Track identities
// continue from where they left off
func (a *ALPR) Reset() {
	a.tracker.Reset()
	a.trail.Reset()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats = Stats{}
	a.seen = make(map[int]struct{})
	a.plateBoxes = make(map[int]image.Rectangle)
}

// Close releases any backends that hold resources
func (a *ALPR) Close() error {

	var errs []error
	closed := make(map[interface{}]bool)

	for _, b := range []interface{}{a.vehicles, a.plates, a.reader} {
		c, ok := b.(io.Closer)

		// a single backend may serve more than one role
		if !ok || closed[b] {
			continue
		}

		closed[b] = true

		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// rectToBox converts an image rectangle to a tracker box
func rectToBox(r image.Rectangle) tracker.Box {
	return tracker.NewBox(float64(r.Min.X), float64(r.Min.Y),
		float64(r.Max.X), float64(r.Max.Y))
}

// boxToRect converts a tracker box to the nearest image rectangle
func boxToRect(b tracker.Box) image.Rectangle {
	return image.Rect(int(math.Round(b.X1())), int(math.Round(b.Y1())),
		int(math.Round(b.X2())), int(math.Round(b.Y2())))
}
