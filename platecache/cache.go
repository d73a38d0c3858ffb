// Package platecache keeps the best license plate reading seen for each
// tracked vehicle identity.
package platecache

import (
	"sort"
	"sync"
)

// Entry is the best plate reading held for a track
type Entry struct {
	// TrackID is the tracker identity the reading belongs to
	TrackID int `json:"track_id"`
	// Text is the plate text of the highest confidence reading
	Text string `json:"text"`
	// Confidence of the highest confidence reading
	Confidence float64 `json:"confidence"`
	// ReadCount is the number of readings offered, accepted or not
	ReadCount int `json:"read_count"`
	// LastUpdatedFrame is the frame number the stored reading was taken at
	LastUpdatedFrame int `json:"last_updated_frame"`
}

// Cache holds plate readings keyed by track identity.  It is safe for
// concurrent use
type Cache struct {
	entries map[int]*Entry
	sync.Mutex
}

// New returns an empty plate cache
func New() *Cache {
	return &Cache{
		entries: make(map[int]*Entry),
	}
}

// Offer a reading for a track taken at the given frame.  The reading replaces
// the stored one only when its confidence is strictly greater, equal
// confidence keeps the existing reading.  Returns true if the reading was
// stored
func (c *Cache) Offer(trackID int, text string, confidence float64, frame int) bool {
	c.Lock()
	defer c.Unlock()

	entry, exists := c.entries[trackID]

	if !exists {
		c.entries[trackID] = &Entry{
			TrackID:          trackID,
			Text:             text,
			Confidence:       confidence,
			ReadCount:        1,
			LastUpdatedFrame: frame,
		}
		return true
	}

	entry.ReadCount++

	if !(confidence > entry.Confidence) {
		return false
	}

	entry.Text = text
	entry.Confidence = confidence
	entry.LastUpdatedFrame = frame

	return true
}

// Lookup returns a copy of the entry for the track
func (c *Cache) Lookup(trackID int) (Entry, bool) {
	c.Lock()
	defer c.Unlock()

	entry, exists := c.entries[trackID]

	if !exists {
		return Entry{}, false
	}

	return *entry, true
}

// ShouldRead returns true if the track has no cached reading or the cached
// confidence is below skipConfidence, meaning OCR is worth running again
func (c *Cache) ShouldRead(trackID int, skipConfidence float64) bool {
	entry, ok := c.Lookup(trackID)
	return !ok || entry.Confidence < skipConfidence
}

// Evict removes the entry for the track.  Evicting an unknown track is a
// no-op
func (c *Cache) Evict(trackID int) {
	c.Lock()
	defer c.Unlock()

	delete(c.entries, trackID)
}

// Len returns the number of entries
func (c *Cache) Len() int {
	c.Lock()
	defer c.Unlock()

	return len(c.entries)
}

// Snapshot returns a copy of all entries ordered by track ID
func (c *Cache) Snapshot() []Entry {
	c.Lock()
	defer c.Unlock()

	entries := make([]Entry, 0, len(c.entries))

	for _, entry := range c.entries {
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].TrackID < entries[j].TrackID
	})

	return entries
}
