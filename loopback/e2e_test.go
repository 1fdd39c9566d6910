package loopback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0EVSG/sosso"
	"github.com/0EVSG/sosso/frameclock"
)

// TestEndToEnd_LoopbackRun drives the full synchronization loop over a
// loopback pair against the wall clock. Kept short: 10 periods of 480
// frames at 48kHz is 100ms of real time.
func TestEndToEnd_LoopbackRun(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping wall-clock run in short mode")
	}

	const (
		period      = 480
		repetitions = 10
	)

	pair, err := NewPair(&Config{
		SampleRate: 48000,
		ToneHz:     440,
		InDriftPPM: 200,
	})
	require.NoError(t, err)
	defer pair.Close()

	completions := 0
	var corrections []int64
	runner, err := sosso.New(&sosso.Config{
		In:          pair.In(),
		Out:         pair.Out(),
		Clock:       frameclock.New(),
		Period:      period,
		Repetitions: repetitions,
		MemoryMap:   true,
		OnPeriod: func(ev sosso.PeriodEvent) {
			completions++
			corrections = append(corrections, ev.Correction)
		},
	})
	require.NoError(t, err)

	require.NoError(t, runner.Run())

	assert.GreaterOrEqual(t, completions, 2*repetitions)
	assert.GreaterOrEqual(t, runner.SyncFrames(), int64(repetitions*period))
	for _, c := range corrections {
		assert.LessOrEqual(t, c, int64(4800), "corrections stay within 100ms worth of frames")
		assert.GreaterOrEqual(t, c, int64(-4800))
	}
}
