package platecache

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferKeepsHighestConfidence(t *testing.T) {
	t.Parallel()

	c := New()

	assert.True(t, c.Offer(1, "ABC123", 0.9, 10))
	assert.False(t, c.Offer(1, "XYZ999", 0.5, 11))

	entry, ok := c.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, "ABC123", entry.Text)
	assert.Equal(t, 0.9, entry.Confidence)
	assert.Equal(t, 10, entry.LastUpdatedFrame)

	assert.True(t, c.Offer(1, "ABD123", 0.95, 12))

	entry, ok = c.Lookup(1)
	require.True(t, ok)

	want := Entry{
		TrackID:          1,
		Text:             "ABD123",
		Confidence:       0.95,
		ReadCount:        3,
		LastUpdatedFrame: 12,
	}

	if diff := cmp.Diff(want, entry); diff != "" {
		t.Errorf("Lookup() mismatch (-want +got):\n%s", diff)
	}
}

func TestOfferEqualConfidence(t *testing.T) {
	t.Parallel()

	c := New()

	assert.True(t, c.Offer(4, "ABC123", 0.8, 1))
	assert.False(t, c.Offer(4, "ABC128", 0.8, 2))
	assert.False(t, c.Offer(4, "ABC123", 0.8, 3))

	entry, _ := c.Lookup(4)
	assert.Equal(t, "ABC123", entry.Text)
	assert.Equal(t, 1, entry.LastUpdatedFrame)
	assert.Equal(t, 3, entry.ReadCount)
}

func TestConfidenceNeverDecreases(t *testing.T) {
	t.Parallel()

	c := New()
	offers := []float64{0.3, 0.7, 0.2, 0.7, 0.9, 0.1, 0.95, 0.94}
	last := 0.0

	for i, conf := range offers {
		c.Offer(9, "PLATE1", conf, i)

		entry, ok := c.Lookup(9)
		require.True(t, ok)
		assert.GreaterOrEqual(t, entry.Confidence, last)
		last = entry.Confidence
	}

	entry, _ := c.Lookup(9)
	assert.Equal(t, 0.95, entry.Confidence)
	assert.Equal(t, len(offers), entry.ReadCount)
}

func TestEvict(t *testing.T) {
	t.Parallel()

	c := New()
	c.Offer(1, "ABC123", 0.9, 0)
	c.Offer(2, "XYZ999", 0.6, 0)

	c.Evict(1)
	c.Evict(1)
	c.Evict(42)

	_, ok := c.Lookup(1)
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	// a fresh entry starts after eviction
	assert.True(t, c.Offer(1, "LOW111", 0.1, 5))
	entry, _ := c.Lookup(1)
	assert.Equal(t, 1, entry.ReadCount)
	assert.Equal(t, "LOW111", entry.Text)
}

func TestShouldRead(t *testing.T) {
	t.Parallel()

	c := New()
	assert.True(t, c.ShouldRead(1, 0.9))

	c.Offer(1, "ABC123", 0.85, 0)
	assert.True(t, c.ShouldRead(1, 0.9))

	c.Offer(1, "ABC123", 0.9, 1)
	assert.False(t, c.ShouldRead(1, 0.9))
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	c := New()
	c.Offer(3, "CCC333", 0.7, 0)
	c.Offer(1, "AAA111", 0.8, 0)
	c.Offer(2, "BBB222", 0.9, 0)

	snap := c.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{snap[0].TrackID, snap[1].TrackID, snap[2].TrackID})

	// modifying the snapshot does not touch the cache
	snap[0].Text = "CHANGED"
	entry, _ := c.Lookup(1)
	assert.Equal(t, "AAA111", entry.Text)
}

func TestConcurrentOffers(t *testing.T) {
	t.Parallel()

	c := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Offer(1, "ABC123", float64(i)/100, i)
		}(i)
	}

	wg.Wait()

	entry, ok := c.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, 50, entry.ReadCount)
	assert.Equal(t, 0.49, entry.Confidence)
}
