// Package testutil provides reusable test helper functions for the
// synchronization tests.
package testutil

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const bytesPerSample = 2 // 16-bit little-endian samples

// SineInt16LE generates frames of a sine wave as 16-bit little-endian PCM,
// replicated across channels, at the given amplitude (0 to 1).
func SineInt16LE(freq float64, sampleRate uint, frames, channels int, amplitude float64) []byte {
	data := make([]byte, frames*channels*bytesPerSample)
	step := 2 * math.Pi * freq / float64(sampleRate)
	for i := 0; i < frames; i++ {
		sample := int16(amplitude * 32767 * math.Sin(step*float64(i)))
		for ch := 0; ch < channels; ch++ {
			offset := (i*channels + ch) * bytesPerSample
			binary.LittleEndian.PutUint16(data[offset:], uint16(sample))
		}
	}
	return data
}

// AssertNonDecreasing verifies that a sequence of frame positions never
// decreases.
func AssertNonDecreasing(t *testing.T, positions []int64, msgAndArgs ...any) bool {
	t.Helper()
	for i := 1; i < len(positions); i++ {
		if !assert.GreaterOrEqual(t, positions[i], positions[i-1],
			"sequence decreases at index %d: %d < %d", i, positions[i], positions[i-1]) {
			return false
		}
	}
	return true
}

// AssertAllZero verifies that a byte slice contains only zeros.
func AssertAllZero(t *testing.T, data []byte, msgAndArgs ...any) bool {
	t.Helper()
	for i, b := range data {
		if b != 0 {
			return assert.Fail(t, "non-zero byte", "data[%d] = %#x", i, b)
		}
	}
	return true
}
