// Package loopback provides a software audio device pair implementing the
// sosso.Channel contract. The playback side feeds a byte ring buffer that
// the capture side drains, so the synchronization loop can run end-to-end
// without hardware. Each side advances against a simulated hardware clock
// that may drift relative to the frame-time reference, in parts per
// million, to exercise drift correction.
package loopback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/0EVSG/sosso"
	"github.com/google/uuid"
)

// Defaults and limits for pair configuration.
const (
	defaultSampleRate = 48000
	defaultFrameSize  = 4 // 16-bit stereo

	maxDriftPPM = 100000 // ±10% simulated clock drift

	// Stepping granularity by sample rate, matching typical hardware:
	// 16 frames at 48kHz and lower, 32 at 96kHz, 64 at 192kHz.
	steppingLow  = 16
	steppingMid  = 32
	steppingHigh = 64
	rateLimitLow = 48000
	rateLimitMid = 96000

	// Initial ring capacity, grows on demand.
	initialRingSize = 65536
)

// Common errors returned by loopback devices.
var (
	// ErrInvalidConfig indicates invalid pair parameters.
	ErrInvalidConfig = errors.New("invalid loopback configuration")

	// ErrClosed indicates the device has been closed.
	ErrClosed = errors.New("loopback device closed")

	// ErrNotStarted indicates the device was serviced before its sync
	// group was started.
	ErrNotStarted = errors.New("loopback device not started")

	// ErrUnknownGroup indicates a sync group id the device never joined.
	ErrUnknownGroup = errors.New("unknown sync group")
)

// Config holds the parameters of a loopback pair.
type Config struct {
	// SampleRate in Hz, shared by both sides. Default 48000.
	SampleRate uint

	// FrameSize in bytes, shared by both sides. Default 4 (16-bit stereo).
	FrameSize uint

	// InDriftPPM is the capture side's simulated clock drift in parts per
	// million. Positive means the device clock runs fast.
	InDriftPPM int

	// OutDriftPPM is the playback side's simulated clock drift.
	OutDriftPPM int

	// ToneHz, when positive, makes the capture side synthesize a sine
	// test tone instead of draining the loopback ring.
	ToneHz float64

	// Log receives device diagnostics. nil discards them.
	Log *slog.Logger
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate == 0 {
		return fmt.Errorf("%w: sample rate must be positive", ErrInvalidConfig)
	}

	if c.FrameSize == 0 {
		return fmt.Errorf("%w: frame size must be positive", ErrInvalidConfig)
	}

	if c.InDriftPPM < -maxDriftPPM || c.InDriftPPM > maxDriftPPM ||
		c.OutDriftPPM < -maxDriftPPM || c.OutDriftPPM > maxDriftPPM {
		return fmt.Errorf("%w: drift out of range (±%d ppm)", ErrInvalidConfig, maxDriftPPM)
	}

	if c.ToneHz < 0 || c.ToneHz > float64(c.SampleRate)/2 {
		return fmt.Errorf("%w: tone frequency out of range", ErrInvalidConfig)
	}

	return nil
}

// Pair is a connected capture/playback device pair.
type Pair struct {
	in  *Device
	out *Device
}

// NewPair creates a loopback pair from the configuration. A nil config
// uses defaults.
func NewPair(config *Config) (*Pair, error) {
	if config == nil {
		config = &Config{}
	}
	if config.SampleRate == 0 {
		config.SampleRate = defaultSampleRate
	}
	if config.FrameSize == 0 {
		config.FrameSize = defaultFrameSize
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	log := config.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	shared := newRing(initialRingSize)

	in := &Device{
		capture:   true,
		rate:      config.SampleRate,
		frameSize: config.FrameSize,
		stepping:  steppingForRate(config.SampleRate),
		driftPPM:  int64(config.InDriftPPM),
		ring:      shared,
		log:       log,
	}
	if config.ToneHz > 0 {
		in.tone = newTone(config.ToneHz, config.SampleRate)
	}

	out := &Device{
		capture:   false,
		rate:      config.SampleRate,
		frameSize: config.FrameSize,
		stepping:  steppingForRate(config.SampleRate),
		driftPPM:  int64(config.OutDriftPPM),
		ring:      shared,
		log:       log,
	}

	return &Pair{in: in, out: out}, nil
}

// In returns the capture side of the pair.
func (p *Pair) In() *Device {
	return p.in
}

// Out returns the playback side of the pair.
func (p *Pair) Out() *Device {
	return p.out
}

// Close closes both sides.
func (p *Pair) Close() error {
	return errors.Join(p.in.Close(), p.out.Close())
}

func steppingForRate(rate uint) uint {
	switch {
	case rate <= rateLimitLow:
		return steppingLow
	case rate <= rateLimitMid:
		return steppingMid
	default:
		return steppingHigh
	}
}

// Device is one side of a loopback pair. It implements sosso.Channel with
// a double-buffer slot pair (active draining, pending queued) and a
// simulated hardware clock derived from the reference frame position.
//
// A device is owned by the runner goroutine; only the ring it shares with
// its peer is safe for concurrent access.
type Device struct {
	capture   bool
	rate      uint
	frameSize uint
	stepping  uint
	driftPPM  int64

	ring *ring
	tone *tone
	log  *slog.Logger

	groupID uuid.UUID
	inGroup bool
	started bool
	mapped  bool
	closed  bool

	active     *sosso.Buffer
	pending    *sosso.Buffer
	activeEnd  int64
	pendingEnd int64
	endFrames  int64 // target of the last queued buffer
	progress   int64 // frames actually transferred
	lastRef    int64 // reference position of the last service call

	scratch []byte
}

var _ sosso.Channel = (*Device)(nil)

// Recording reports whether this is the capture side.
func (d *Device) Recording() bool {
	return d.capture && !d.closed
}

// Playback reports whether this is the playback side.
func (d *Device) Playback() bool {
	return !d.capture && !d.closed
}

// CanMemoryMap reports true; the simulated buffer is always mappable.
func (d *Device) CanMemoryMap() bool {
	return true
}

// MemoryMap marks the device buffer as mapped.
func (d *Device) MemoryMap() error {
	if d.closed {
		return ErrClosed
	}
	d.mapped = true
	return nil
}

// MemoryUnmap releases the mapping. Idempotent.
func (d *Device) MemoryUnmap() error {
	d.mapped = false
	return nil
}

// FrameSize returns the size of one frame in bytes.
func (d *Device) FrameSize() uint {
	return d.frameSize
}

// SampleRate returns the sample rate in Hz.
func (d *Device) SampleRate() uint {
	return d.rate
}

// Stepping returns the minimum schedulable frame granularity.
func (d *Device) Stepping() uint {
	return d.stepping
}

// AddToSyncGroup registers the device with a synchronized start group.
func (d *Device) AddToSyncGroup(id uuid.UUID) error {
	if d.closed {
		return ErrClosed
	}
	joinSyncGroup(id, d)
	d.groupID = id
	d.inGroup = true
	return nil
}

// StartSyncGroup starts all devices of the group at the same instant.
func (d *Device) StartSyncGroup(id uuid.UUID) error {
	if d.closed {
		return ErrClosed
	}
	return startSyncGroup(id)
}

// SetBuffer queues a buffer with its end-frame target, active slot first.
// Queueing a third buffer is a scheduling bug; it is dropped and logged.
func (d *Device) SetBuffer(buf *sosso.Buffer, endFrame int64) {
	switch {
	case d.active == nil:
		d.active = buf
		d.activeEnd = endFrame
	case d.pending == nil:
		d.pending = buf
		d.pendingEnd = endFrame
	default:
		d.log.Error("buffer queue full, dropping buffer",
			"capture", d.capture, "end_frame", endFrame)
		return
	}
	d.endFrames = endFrame
}

// TakeBuffer reclaims the active buffer and promotes the pending one.
func (d *Device) TakeBuffer() *sosso.Buffer {
	buf := d.active
	d.active = d.pending
	d.activeEnd = d.pendingEnd
	d.pending = nil
	return buf
}

// Process transfers as much data as the simulated hardware clock allows,
// bounded by the queued buffer targets.
func (d *Device) Process(refFrame int64) error {
	if d.closed {
		return ErrClosed
	}
	if !d.started {
		return ErrNotStarted
	}

	avail := d.hwFrames(refFrame)
	if d.active != nil && avail > d.progress {
		end := min(avail, d.activeEnd)
		if end > d.progress {
			d.transfer(d.active, end-d.progress)
			d.progress = end
		}
	}
	if d.pending != nil && avail > d.progress && d.progress >= d.activeEnd {
		end := min(avail, d.pendingEnd)
		if end > d.progress {
			d.transfer(d.pending, end-d.progress)
			d.progress = end
		}
	}
	d.lastRef = refFrame
	return nil
}

// WakeupTime returns the next frame position at which the device needs
// service: the stepping boundary after its transfer progress, capped at
// the active buffer's end.
func (d *Device) WakeupTime(refFrame int64) int64 {
	if d.active == nil {
		return refFrame
	}
	step := int64(d.stepping)
	next := d.progress - d.progress%step + step
	return min(next, d.activeEnd)
}

// Finished reports whether the active buffer is exhausted relative to the
// reference frame position.
func (d *Device) Finished(refFrame int64) bool {
	if d.active == nil {
		return false
	}
	return d.progress >= d.activeEnd || refFrame >= d.activeEnd
}

// Balance returns the drift of the device clock against the frame-time
// reference, as observed at the last service call.
func (d *Device) Balance() int64 {
	return d.progress - d.lastRef
}

// PeriodEnd returns the active buffer's end-frame target.
func (d *Device) PeriodEnd() int64 {
	if d.active == nil {
		return d.endFrames
	}
	return d.activeEnd
}

// EndFrames returns the end-frame target of the last queued buffer.
func (d *Device) EndFrames() int64 {
	return d.endFrames
}

// ResetBuffers shifts the queued buffer targets so transfer resumes at the
// given end-frame, after a scheduling discontinuity.
func (d *Device) ResetBuffers(endFrame int64) {
	shift := endFrame - d.endFrames
	if shift <= 0 {
		return
	}
	d.activeEnd += shift
	if d.pending != nil {
		d.pendingEnd += shift
	}
	d.endFrames += shift
	d.log.Debug("buffers reset", "capture", d.capture,
		"shift", shift, "end_frames", d.endFrames)
}

// LogState emits device diagnostics.
func (d *Device) LogState(refFrame int64) {
	d.log.Debug("loopback state",
		"capture", d.capture,
		"ref", refFrame,
		"progress", d.progress,
		"active_end", d.activeEnd,
		"end_frames", d.endFrames,
		"balance", d.Balance(),
		"ring", d.ring.available())
}

// Close releases the device and leaves its sync group.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.mapped = false
	if d.inGroup {
		leaveSyncGroup(d.groupID, d)
		d.inGroup = false
	}
	return nil
}

// hwFrames maps the reference frame position to the device's own clock,
// applying the configured drift.
func (d *Device) hwFrames(refFrame int64) int64 {
	return refFrame + refFrame*d.driftPPM/1_000_000
}

// transfer moves the given number of frames through the buffer: capture
// fills it from the tone source or the ring, playback drains it into the
// ring.
func (d *Device) transfer(buf *sosso.Buffer, frames int64) {
	size := int(frames) * int(d.frameSize)
	if cap(d.scratch) < size {
		d.scratch = make([]byte, size)
	}
	chunk := d.scratch[:size]

	if d.capture {
		if d.tone != nil {
			d.tone.fill(chunk, d.frameSize)
		} else {
			d.ring.read(chunk)
		}
		buf.Write(chunk)
	} else {
		n := buf.Read(chunk)
		d.ring.write(chunk[:n])
	}
}
