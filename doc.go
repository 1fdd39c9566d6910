// Package sosso synchronizes a recording and a playback audio stream that
// run on independent hardware clocks, keeping both aligned to a shared
// frame-time reference while compensating for clock drift, scheduling
// jitter and buffer discontinuities.
//
// The package provides two core pieces:
//
//   - [Correction], a per-channel drift estimator that turns an observed
//     frame balance into a frame-offset correction, with hysteresis between
//     gentle drift compensation and rigorous resynchronization.
//   - [Runner], a period-driven synchronization loop that drives two
//     double-buffered channels through setup, synchronized start,
//     steady-state processing, gap recovery and shutdown.
//
// Hardware access is abstracted behind the [Channel] and [FrameClock]
// interfaces. The [github.com/0EVSG/sosso/loopback] package provides a
// software device pair for development and testing, and
// [github.com/0EVSG/sosso/frameclock] provides a wall-clock time base.
//
// # Quick Start
//
//	pair, err := loopback.NewPair(&loopback.Config{
//	    SampleRate: 48000,
//	    FrameSize:  4,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	runner, err := sosso.New(&sosso.Config{
//	    In:          pair.In(),
//	    Out:         pair.Out(),
//	    Clock:       frameclock.New(),
//	    Period:      1024,
//	    Repetitions: 100,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := runner.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Frame Time
//
// All scheduling is expressed in frames, one sample-time unit across all
// channels. A period is a fixed number of frames processed as one
// scheduling unit. Channels report a signed balance, the discrepancy
// between their actual and expected transferred-frame position; the
// correction engine converts balances into scheduling offsets applied to
// future buffer targets.
//
// The runner is single-threaded: it interleaves service calls to both
// channels and blocks only in its sleep step, re-reading the clock after
// every wakeup and self-correcting, so it never assumes a sleep was exact.
package sosso
