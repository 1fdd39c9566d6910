// Package meter computes signal levels of 16-bit little-endian PCM, used
// to sanity-check the audio that flows through a synchronization run.
package meter

import (
	"encoding/binary"
	"math"

	"github.com/tphakala/simd/f64"
)

const (
	bytesPerSample = 2       // 16-bit little-endian samples
	fullScale      = 32767.0 // maximum 16-bit sample magnitude
)

// Level describes the signal level of one buffer of samples.
type Level struct {
	// RMS is the root mean square level, normalized to [0, 1].
	RMS float64

	// Peak is the largest sample magnitude, normalized to [0, 1].
	Peak float64

	// Clipping reports whether any sample reached full scale.
	Clipping bool
}

// Measure computes the level of a 16-bit little-endian PCM byte buffer.
// A trailing odd byte is ignored.
func Measure(samples []byte) Level {
	count := len(samples) / bytesPerSample
	if count == 0 {
		return Level{}
	}

	values := make([]float64, count)
	peak := 0.0
	for i := 0; i < count; i++ {
		s := int16(binary.LittleEndian.Uint16(samples[i*bytesPerSample:]))
		v := float64(s)
		values[i] = v
		if abs := math.Abs(v); abs > peak {
			peak = abs
		}
	}

	// Sum of squares as a dot product of the samples with themselves.
	sumSquares := f64.DotProductUnsafe(values, values)
	rms := math.Sqrt(sumSquares / float64(count))

	return Level{
		RMS:      rms / fullScale,
		Peak:     peak / fullScale,
		Clipping: peak >= fullScale,
	}
}

// Percent converts a normalized level to an integer percentage, clamped
// to [0, 100].
func Percent(level float64) int {
	p := int(math.Round(level * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
