// Package frameclock provides a frame-rate-referenced monotonic time base
// over the system clock, implementing the sosso.FrameClock contract.
package frameclock

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the clock.
var (
	// ErrNotInitialized indicates the clock was used before InitClock.
	ErrNotInitialized = errors.New("frame clock not initialized")

	// ErrInvalidRate indicates an unusable sample rate.
	ErrInvalidRate = errors.New("invalid sample rate")
)

// Clock converts between wall-clock time and frame positions at a fixed
// sample rate. The zero value is ready for InitClock.
//
// Sleep targets are best-effort: the underlying timer may fire late, and
// callers are expected to re-read Now afterwards.
type Clock struct {
	rate  int64
	epoch time.Time
}

// New returns an uninitialized clock.
func New() *Clock {
	return &Clock{}
}

// InitClock starts the frame time base at the current instant, referenced
// to the given sample rate.
func (c *Clock) InitClock(sampleRate uint) error {
	if sampleRate == 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRate, sampleRate)
	}
	c.rate = int64(sampleRate)
	c.epoch = time.Now()
	return nil
}

// Now returns the current time as a frame position since InitClock.
func (c *Clock) Now() (int64, error) {
	if c.rate == 0 {
		return 0, ErrNotInitialized
	}
	elapsed := time.Since(c.epoch)
	return elapsed.Nanoseconds() * c.rate / int64(time.Second), nil
}

// Sleep blocks until the target frame position is reached. Returns
// immediately if the target lies in the past.
func (c *Clock) Sleep(targetFrame int64) error {
	if c.rate == 0 {
		return ErrNotInitialized
	}
	deadline := c.epoch.Add(c.FramesToDuration(targetFrame))
	if wait := time.Until(deadline); wait > 0 {
		time.Sleep(wait)
	}
	return nil
}

// FramesToDuration converts a frame count to a wall-clock duration.
func (c *Clock) FramesToDuration(frames int64) time.Duration {
	if c.rate == 0 {
		return 0
	}
	return time.Duration(frames * int64(time.Second) / c.rate)
}
