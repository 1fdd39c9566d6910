package sosso

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Config holds the parameters of one synchronization run.
type Config struct {
	// In is the recording channel.
	In Channel

	// Out is the playback channel.
	Out Channel

	// Clock is the frame-time reference both channels are measured
	// against. It is initialized with the recording channel's sample rate.
	Clock FrameClock

	// Period is the number of frames processed as one scheduling unit.
	Period uint

	// Repetitions is the number of periods each channel completes before
	// the run finishes, so a full run produces 2×Repetitions completions.
	Repetitions uint

	// MemoryMap requests memory mapping of the device buffers, where the
	// channel supports it. A failed mapping attempt aborts the run.
	MemoryMap bool

	// DriftLimit overrides the gentle-correction convergence divisor.
	// 0 means DefaultDriftLimit.
	DriftLimit uint

	// LossLimit overrides the rigorous-correction threshold.
	// 0 means DefaultLossLimit.
	LossLimit uint

	// Log receives diagnostics. Diagnostics never affect control flow;
	// nil discards them.
	Log *slog.Logger

	// SleepJitter optionally delays the sleep target, modeling a late
	// scheduler wakeup. Test instrumentation, nil in production.
	SleepJitter SleepJitter

	// OnPeriod is invoked once per period completion, after the finished
	// buffer has been reclaimed and before it is recycled. Optional.
	OnPeriod func(PeriodEvent)
}

// SleepJitter returns extra frames to add to a sleep target, given the
// current sync frame position. Used to inject artificial scheduling delays.
type SleepJitter func(syncFrames int64) int64

// SimulatedLateWakeup returns a jitter hook that delays roughly one in
// eight sleep cycles by a large margin, modeling a scheduler being late.
func SimulatedLateWakeup() SleepJitter {
	return func(syncFrames int64) int64 {
		if (syncFrames/simLateBlock)%simLateStride == simLateStride-1 {
			return simLateDelay
		}
		return 0
	}
}

// Role identifies which channel a period event belongs to.
type Role int

const (
	// RoleRecording is the input (capture) channel.
	RoleRecording Role = iota

	// RolePlayback is the output channel.
	RolePlayback
)

// String returns the role name.
func (r Role) String() string {
	if r == RoleRecording {
		return "recording"
	}
	return "playback"
}

// PeriodEvent describes one completed period of a channel.
type PeriodEvent struct {
	// Role is the channel that finished the period.
	Role Role

	// SyncFrames is the shared reference frame position at completion.
	SyncFrames int64

	// Balance is the channel's reported frame discrepancy.
	Balance int64

	// Correction is the frame offset applied to the next buffer target.
	Correction int64

	// Data is the finished buffer's contents. Only valid during the
	// callback; the buffer is recycled afterwards.
	Data []byte
}

// Common errors returned by the runner.
var (
	// ErrInvalidConfig indicates invalid run parameters.
	ErrInvalidConfig = errors.New("invalid runner configuration")

	// ErrNotRecording indicates the input channel is not in recording mode.
	ErrNotRecording = errors.New("input channel not in recording mode")

	// ErrNotPlayback indicates the output channel is not in playback mode.
	ErrNotPlayback = errors.New("output channel not in playback mode")

	// ErrMemoryMap indicates a requested memory mapping failed.
	ErrMemoryMap = errors.New("memory mapping failed")

	// ErrRateMismatch indicates the channels disagree on the sample rate.
	ErrRateMismatch = errors.New("sample rate mismatch")

	// ErrSteppingMismatch indicates the channels disagree on the minimum
	// schedulable frame granularity.
	ErrSteppingMismatch = errors.New("stepping mismatch")

	// ErrSyncGroup indicates the synchronized start group could not be
	// joined or started.
	ErrSyncGroup = errors.New("sync group failure")

	// ErrClock indicates the frame clock failed.
	ErrClock = errors.New("frame clock failure")

	// ErrProcess indicates a channel failed to service its device.
	ErrProcess = errors.New("channel processing failed")

	// ErrRunnerUsed indicates Run was called twice on the same instance.
	ErrRunnerUsed = errors.New("runner already used")
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.In == nil || c.Out == nil {
		return fmt.Errorf("%w: both channels must be set", ErrInvalidConfig)
	}

	if c.Clock == nil {
		return fmt.Errorf("%w: frame clock must be set", ErrInvalidConfig)
	}

	if c.Period == 0 {
		return fmt.Errorf("%w: period must be positive", ErrInvalidConfig)
	}

	if c.Repetitions == 0 {
		return fmt.Errorf("%w: repetitions must be positive", ErrInvalidConfig)
	}

	return nil
}

// New creates a runner for a single synchronization run.
func New(config *Config) (*Runner, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	log := config.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := &Runner{
		in:            config.In,
		out:           config.Out,
		clock:         config.Clock,
		period:        int64(config.Period),
		repetitions:   config.Repetitions,
		memoryMap:     config.MemoryMap,
		log:           log,
		jitter:        config.SleepJitter,
		onPeriod:      config.OnPeriod,
		inCorrection:  NewCorrection(),
		outCorrection: NewCorrection(),
	}

	if config.DriftLimit > 0 {
		r.inCorrection.SetDriftLimit(config.DriftLimit)
		r.outCorrection.SetDriftLimit(config.DriftLimit)
	}
	if config.LossLimit > 0 {
		r.inCorrection.SetLossLimit(config.LossLimit)
		r.outCorrection.SetLossLimit(config.LossLimit)
	}

	return r, nil
}
