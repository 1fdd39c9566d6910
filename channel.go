package sosso

import (
	"time"

	"github.com/google/uuid"
)

// Channel is one hardware audio stream, either recording or playback,
// wrapped in a double buffer so a pending buffer can be queued while the
// active one is still draining. The runner holds one recording and one
// playback instance and drives both through this interface.
//
// Buffer handoff is move-only: SetBuffer transfers ownership of the buffer
// to the channel, TakeBuffer transfers it back. At any instant exactly one
// side owns a given buffer.
type Channel interface {
	// Recording reports whether the channel is set up for recording.
	Recording() bool

	// Playback reports whether the channel is set up for playback.
	Playback() bool

	// CanMemoryMap reports whether the device buffer can be memory mapped.
	CanMemoryMap() bool

	// MemoryMap maps the device buffer into process memory.
	MemoryMap() error

	// MemoryUnmap releases the memory mapping. Idempotent, best-effort.
	MemoryUnmap() error

	// FrameSize returns the size of one frame in bytes.
	FrameSize() uint

	// SampleRate returns the sample rate in Hz.
	SampleRate() uint

	// Stepping returns the minimum schedulable frame granularity.
	Stepping() uint

	// AddToSyncGroup registers the channel with a synchronized start group.
	AddToSyncGroup(id uuid.UUID) error

	// StartSyncGroup starts all channels of the group at the same
	// hardware instant.
	StartSyncGroup(id uuid.UUID) error

	// SetBuffer queues a buffer, transferring ownership to the channel.
	// The buffer is scheduled to be fully transferred by endFrame.
	SetBuffer(buf *Buffer, endFrame int64)

	// TakeBuffer reclaims the just-finished buffer, transferring ownership
	// back to the caller. Returns nil if no buffer has finished.
	TakeBuffer() *Buffer

	// Process services the device, transferring as much data as currently
	// available relative to the reference frame position, at most one
	// period. Fails on unrecoverable I/O errors.
	Process(refFrame int64) error

	// WakeupTime returns the next frame position at which the channel
	// needs service, relative to the reference frame position.
	WakeupTime(refFrame int64) int64

	// Finished reports whether the active buffer is exhausted relative to
	// the reference frame position.
	Finished(refFrame int64) bool

	// Balance returns the signed frame discrepancy between the channel's
	// actual and expected transferred-frame position.
	Balance() int64

	// PeriodEnd returns the frame position at which the active buffer
	// should complete.
	PeriodEnd() int64

	// EndFrames returns the total end-frame target of all queued buffers.
	EndFrames() int64

	// ResetBuffers repositions the queued buffers to resume transfer at
	// the given end-frame target, after a scheduling discontinuity.
	ResetBuffers(endFrame int64)

	// LogState emits diagnostics about the channel state. Never affects
	// control flow.
	LogState(refFrame int64)

	// Close releases the device.
	Close() error
}

// FrameClock is a monotonic time base referenced to a sample rate, so
// wall-clock time can be expressed as a frame position.
type FrameClock interface {
	// InitClock initializes the clock against a sample rate. Must be
	// called before Now, Sleep or FramesToDuration.
	InitClock(sampleRate uint) error

	// Now returns the current time as a frame position.
	Now() (int64, error)

	// Sleep blocks until the target frame position is reached. The
	// duration is a target, not a guarantee: the sleep may be cut short
	// by device wakeups, so callers must re-read Now afterwards.
	Sleep(targetFrame int64) error

	// FramesToDuration converts a frame count to a wall-clock duration.
	// Diagnostic only.
	FramesToDuration(frames int64) time.Duration
}
