package tracker

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by NewTracker when the configuration is out of
// range
var ErrInvalidConfig = errors.New("invalid tracker config")

// Config defines the parameters of the SORT tracker
type Config struct {
	// MinHits is the number of consecutive matched frames needed before a
	// tentative track is confirmed
	MinHits int
	// MaxAge is the number of consecutive frames a track may go without a
	// match before it is deleted
	MaxAge int
	// IoUThreshold is the minimum IoU for a track and detection pair to be
	// accepted as a match, in the range (0,1)
	IoUThreshold float64
	// Bootstrap confirms matched tracks straight away while the tracker has
	// processed fewer than MinHits frames
	Bootstrap bool
}

// DefaultConfig returns the default tracker configuration of
// MinHits 3, MaxAge 1 and IoUThreshold 0.3
func DefaultConfig() Config {
	return Config{
		MinHits:      3,
		MaxAge:       1,
		IoUThreshold: 0.3,
	}
}

// Validate checks the configuration values are in range
func (c Config) Validate() error {

	if c.MinHits <= 0 {
		return fmt.Errorf("%w: min hits must be positive, got %d",
			ErrInvalidConfig, c.MinHits)
	}

	if c.MaxAge <= 0 {
		return fmt.Errorf("%w: max age must be positive, got %d",
			ErrInvalidConfig, c.MaxAge)
	}

	// negated so NaN is rejected too
	if !(c.IoUThreshold > 0 && c.IoUThreshold < 1) {
		return fmt.Errorf("%w: iou threshold must be in (0,1), got %v",
			ErrInvalidConfig, c.IoUThreshold)
	}

	return nil
}
