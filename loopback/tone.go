package loopback

import (
	"encoding/binary"
	"math"
)

// Tone synthesis constants for 16-bit PCM.
const (
	toneAmplitude  = 0.5     // headroom below full scale
	maxInt16       = 32767.0 // full scale for 16-bit samples
	bytesPerSample = 2       // 16-bit little-endian samples
	twoPi          = 2 * math.Pi
)

// tone generates a continuous sine wave as 16-bit little-endian PCM,
// replicated across all channels of a frame.
type tone struct {
	freq  float64
	rate  float64
	phase float64
}

func newTone(freq float64, sampleRate uint) *tone {
	return &tone{freq: freq, rate: float64(sampleRate)}
}

// fill writes whole frames of the sine into p. Partial trailing frames are
// zeroed. Phase continues across calls.
func (t *tone) fill(p []byte, frameSize uint) {
	samplesPerFrame := int(frameSize) / bytesPerSample
	if samplesPerFrame < 1 {
		clear(p)
		return
	}

	step := twoPi * t.freq / t.rate
	frames := len(p) / int(frameSize)
	for i := 0; i < frames; i++ {
		sample := int16(toneAmplitude * maxInt16 * math.Sin(t.phase))
		t.phase += step
		if t.phase >= twoPi {
			t.phase -= twoPi
		}
		for ch := 0; ch < samplesPerFrame; ch++ {
			offset := i*int(frameSize) + ch*bytesPerSample
			binary.LittleEndian.PutUint16(p[offset:], uint16(sample))
		}
	}
	clear(p[frames*int(frameSize):])
}
