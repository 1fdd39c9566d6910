package sosso

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Runner drives one recording and one playback channel through a single
// synchronization run: validation, buffer setup, synchronized start,
// the steady-state period loop, gap recovery and shutdown.
//
// A Runner performs exactly one run. It is single-threaded by design: both
// channels are serviced cooperatively from the calling goroutine, and the
// clock's sleep is the only suspension point.
type Runner struct {
	in    Channel
	out   Channel
	clock FrameClock
	log   *slog.Logger

	period      int64
	repetitions uint
	memoryMap   bool
	jitter      SleepJitter
	onPeriod    func(PeriodEvent)

	inCorrection  *Correction
	outCorrection *Correction

	syncFrames int64 // shared reference frame position, never decreases
	gap        int64 // detected discontinuity pending recovery
	inFrames   int64 // end-frame target of the input's last queued buffer
	outFrames  int64 // end-frame target of the output's last queued buffer

	used bool
}

// Run performs the synchronization run. It returns nil only if all
// repetitions completed without a validation, setup, service or clock
// failure. On failure both channels are unmapped and closed best-effort.
func (r *Runner) Run() error {
	if r.used {
		return ErrRunnerUsed
	}
	r.used = true

	if err := r.validate(); err != nil {
		return r.fail(err)
	}
	if err := r.setupBuffers(); err != nil {
		return r.fail(err)
	}
	if err := r.startSyncGroup(); err != nil {
		return r.fail(err)
	}
	if err := r.clock.InitClock(r.in.SampleRate()); err != nil {
		return r.fail(fmt.Errorf("%w: init: %w", ErrClock, err))
	}
	r.log.Info("run started",
		"period", r.period,
		"period_time", r.clock.FramesToDuration(r.period),
		"step", r.in.Stepping(),
		"step_time", r.clock.FramesToDuration(int64(r.in.Stepping())))

	if err := r.loop(); err != nil {
		return r.fail(err)
	}

	r.unmap()
	return nil
}

// validate checks channel modes and maps device buffers if requested.
func (r *Runner) validate() error {
	if !r.in.Recording() {
		r.log.Warn("in device not in recording mode")
		return ErrNotRecording
	}
	if !r.out.Playback() {
		r.log.Warn("out device not in playback mode")
		return ErrNotPlayback
	}
	if r.memoryMap && r.in.CanMemoryMap() {
		if err := r.in.MemoryMap(); err != nil {
			r.log.Warn("in device not memory mapped", "err", err)
			return fmt.Errorf("%w: input: %w", ErrMemoryMap, err)
		}
	}
	if r.memoryMap && r.out.CanMemoryMap() {
		if err := r.out.MemoryMap(); err != nil {
			r.log.Warn("out device not memory mapped", "err", err)
			return fmt.Errorf("%w: output: %w", ErrMemoryMap, err)
		}
	}
	return nil
}

// setupBuffers queues two period-length buffers per channel, so each
// channel always holds an active and a pending buffer, and verifies that
// both channels agree on stepping and sample rate.
func (r *Runner) setupBuffers() error {
	r.inFrames = r.period
	r.in.SetBuffer(NewBuffer(uint(r.period)*r.in.FrameSize()), r.inFrames)
	r.inFrames += r.period
	r.in.SetBuffer(NewBuffer(uint(r.period)*r.in.FrameSize()), r.inFrames)

	r.outFrames = r.period
	r.out.SetBuffer(NewBuffer(uint(r.period)*r.out.FrameSize()), r.outFrames)
	r.outFrames += r.period
	r.out.SetBuffer(NewBuffer(uint(r.period)*r.out.FrameSize()), r.outFrames)

	// Step is 16 frames at 48kHz and lower, 32 at 96kHz, 64 at 192kHz.
	if r.in.Stepping() != r.out.Stepping() {
		r.log.Warn("recording vs playback stepping mismatch",
			"in", r.in.Stepping(), "out", r.out.Stepping())
		return fmt.Errorf("%w: %d vs %d", ErrSteppingMismatch,
			r.in.Stepping(), r.out.Stepping())
	}
	if r.in.SampleRate() != r.out.SampleRate() {
		r.log.Warn("recording vs playback sample rate mismatch",
			"in", r.in.SampleRate(), "out", r.out.SampleRate())
		return fmt.Errorf("%w: %d vs %d", ErrRateMismatch,
			r.in.SampleRate(), r.out.SampleRate())
	}
	return nil
}

// startSyncGroup joins both channels to one group and starts it, so both
// begin transferring at the same hardware instant.
func (r *Runner) startSyncGroup() error {
	id := uuid.New()
	if err := r.in.AddToSyncGroup(id); err != nil {
		return fmt.Errorf("%w: add input: %w", ErrSyncGroup, err)
	}
	if err := r.out.AddToSyncGroup(id); err != nil {
		return fmt.Errorf("%w: add output: %w", ErrSyncGroup, err)
	}
	if err := r.in.StartSyncGroup(id); err != nil {
		return fmt.Errorf("%w: start: %w", ErrSyncGroup, err)
	}
	return nil
}

// loop is the steady-state period loop. Each channel finishing one period
// counts as one completion, so a full run takes 2×repetitions completions.
func (r *Runner) loop() error {
	total := 2 * r.repetitions
	finished := uint(0)
	for finished < total {
		if err := r.process(); err != nil {
			return err
		}
		if r.in.Finished(r.syncFrames) {
			r.completePeriod(RoleRecording)
			finished++
		}
		if r.out.Finished(r.syncFrames) {
			r.completePeriod(RolePlayback)
			finished++
		}
		if err := r.sleep(); err != nil {
			return err
		}
		if r.gap > 0 {
			r.log.Warn("gap detected, period reset", "gap", r.gap)
			r.inFrames += r.gap
			r.outFrames += r.gap
			r.gap = 0
		}
	}
	return nil
}

// process services both channels if due, transferring as much as currently
// possible, at most one period each.
func (r *Runner) process() error {
	if r.in.WakeupTime(r.syncFrames) <= r.syncFrames {
		if err := r.in.Process(r.syncFrames); err != nil {
			return fmt.Errorf("%w: input: %w", ErrProcess, err)
		}
	}
	if r.out.WakeupTime(r.syncFrames) <= r.syncFrames {
		if err := r.out.Process(r.syncFrames); err != nil {
			return fmt.Errorf("%w: output: %w", ErrProcess, err)
		}
	}
	r.in.LogState(r.syncFrames)
	r.out.LogState(r.syncFrames)
	return nil
}

// completePeriod reclaims a channel's finished buffer, feeds the balance
// to its correction engine and queues a fresh buffer whose end-frame
// target is shifted by the updated correction.
func (r *Runner) completePeriod(role Role) {
	ch, correction, frames := r.in, r.inCorrection, &r.inFrames
	if role == RolePlayback {
		ch, correction, frames = r.out, r.outCorrection, &r.outFrames
	}

	balance := ch.Balance()
	corrected := correction.Correct(balance, 0)
	if r.syncFrames+r.period != *frames {
		r.log.Info("period finished off schedule",
			"role", role,
			"sync_frames", r.syncFrames,
			"drift", *frames-r.period-r.syncFrames,
			"balance", balance,
			"correction", corrected)
	}

	buf := ch.TakeBuffer()
	*frames += r.period
	if r.onPeriod != nil && buf != nil {
		r.onPeriod(PeriodEvent{
			Role:       role,
			SyncFrames: r.syncFrames,
			Balance:    balance,
			Correction: corrected,
			Data:       buf.Data(),
		})
	}
	if buf == nil {
		buf = NewBuffer(uint(r.period) * ch.FrameSize())
	} else {
		buf.Reset()
	}
	ch.SetBuffer(buf, *frames+corrected)
}

// sleep blocks until the earliest of both channels' next wakeup times,
// then re-reads the clock, absorbs scheduler latency by snapping the sync
// position forward on stepping boundaries, and detects gaps.
func (r *Runner) sleep() error {
	wakeup := min(r.in.WakeupTime(r.syncFrames), r.out.WakeupTime(r.syncFrames))
	if wakeup > r.syncFrames {
		var delay int64
		if r.jitter != nil {
			delay = r.jitter(r.syncFrames)
			if delay > 0 {
				r.log.Warn("injected late wakeup", "frames", delay)
			}
		}
		if err := r.clock.Sleep(wakeup + delay); err != nil {
			return fmt.Errorf("%w: sleep: %w", ErrClock, err)
		}
		r.syncFrames = wakeup
	}

	now, err := r.clock.Now()
	if err != nil {
		return fmt.Errorf("%w: now: %w", ErrClock, err)
	}
	// Correct current frame time if we are late.
	syncDiff := now - r.syncFrames
	if step := int64(r.in.Stepping()); syncDiff > step {
		rounded := syncDiff - syncDiff%step
		r.log.Info("late wakeup", "frames", syncDiff, "snap", rounded)
		r.syncFrames += rounded
	}

	r.gap = max(0, r.syncFrames-r.in.PeriodEnd(), r.syncFrames-r.out.PeriodEnd())
	if r.gap > gapResetLimit {
		r.in.ResetBuffers(r.in.EndFrames() + r.gap)
		r.out.ResetBuffers(r.out.EndFrames() + r.gap)
	} else {
		r.gap = 0
	}
	return nil
}

// SyncFrames returns the shared reference frame position reached so far.
func (r *Runner) SyncFrames() int64 {
	return r.syncFrames
}

// fail releases resources after a failed run. Cleanup errors are not
// escalated over the original failure.
func (r *Runner) fail(err error) error {
	r.unmap()
	if cerr := r.in.Close(); cerr != nil {
		r.log.Warn("input close failed", "err", cerr)
	}
	if cerr := r.out.Close(); cerr != nil {
		r.log.Warn("output close failed", "err", cerr)
	}
	return err
}

// unmap releases device buffer mappings on both channels, best-effort.
func (r *Runner) unmap() {
	if err := r.in.MemoryUnmap(); err != nil {
		r.log.Warn("input unmap failed", "err", err)
	}
	if err := r.out.MemoryUnmap(); err != nil {
		r.log.Warn("output unmap failed", "err", err)
	}
}
