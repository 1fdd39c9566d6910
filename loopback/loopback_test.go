package loopback

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0EVSG/sosso"
	"github.com/0EVSG/sosso/internal/meter"
)

// startedPair returns a pair with both sides joined to a started sync
// group, ready for Process calls.
func startedPair(t *testing.T, config *Config) *Pair {
	t.Helper()
	pair, err := NewPair(config)
	require.NoError(t, err)

	id := uuid.New()
	require.NoError(t, pair.In().AddToSyncGroup(id))
	require.NoError(t, pair.Out().AddToSyncGroup(id))
	require.NoError(t, pair.In().StartSyncGroup(id))
	return pair
}

func TestNewPair_Defaults(t *testing.T) {
	pair, err := NewPair(nil)
	require.NoError(t, err)

	assert.Equal(t, uint(defaultSampleRate), pair.In().SampleRate())
	assert.Equal(t, uint(defaultFrameSize), pair.In().FrameSize())
	assert.True(t, pair.In().Recording())
	assert.False(t, pair.In().Playback())
	assert.True(t, pair.Out().Playback())
	assert.False(t, pair.Out().Recording())
}

func TestNewPair_Validation(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{"excessive_drift", &Config{InDriftPPM: maxDriftPPM + 1}},
		{"negative_tone", &Config{ToneHz: -1}},
		{"tone_above_nyquist", &Config{SampleRate: 48000, ToneHz: 25000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPair(tt.config)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSteppingForRate(t *testing.T) {
	tests := []struct {
		rate uint
		want uint
	}{
		{44100, 16},
		{48000, 16},
		{96000, 32},
		{192000, 64},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, steppingForRate(tt.rate), "rate %d", tt.rate)
	}
}

func TestDevice_ProcessRequiresStart(t *testing.T) {
	pair, err := NewPair(nil)
	require.NoError(t, err)

	pair.In().SetBuffer(sosso.NewBuffer(1024), 256)

	assert.ErrorIs(t, pair.In().Process(64), ErrNotStarted)
}

func TestDevice_StartUnknownGroup(t *testing.T) {
	pair, err := NewPair(nil)
	require.NoError(t, err)

	assert.ErrorIs(t, pair.In().StartSyncGroup(uuid.New()), ErrUnknownGroup)
}

func TestDevice_SyncGroupStartsBothSides(t *testing.T) {
	pair := startedPair(t, nil)

	pair.In().SetBuffer(sosso.NewBuffer(1024), 256)
	pair.Out().SetBuffer(sosso.NewBuffer(1024), 256)

	assert.NoError(t, pair.In().Process(64))
	assert.NoError(t, pair.Out().Process(64))
}

func TestDevice_TransferProgress(t *testing.T) {
	pair := startedPair(t, nil)
	in := pair.In()

	frameSize := int64(in.FrameSize())
	buf := sosso.NewBuffer(uint(256 * frameSize))
	in.SetBuffer(buf, 256)

	require.NoError(t, in.Process(64))
	assert.Equal(t, int64(256), in.PeriodEnd())
	assert.False(t, in.Finished(64), "buffer not exhausted at frame 64")
	assert.Equal(t, 64*int(frameSize), buf.Position(), "64 frames transferred")

	require.NoError(t, in.Process(256))
	assert.True(t, in.Finished(256))
	assert.True(t, buf.Done())

	taken := in.TakeBuffer()
	assert.Same(t, buf, taken, "ownership returns to the caller")
}

func TestDevice_LoopbackCarriesAudio(t *testing.T) {
	pair := startedPair(t, nil)
	in, out := pair.In(), pair.Out()

	frameSize := uint(out.FrameSize())
	playBuf := sosso.NewBuffer(256 * frameSize)
	for i := range playBuf.Data() {
		playBuf.Data()[i] = byte(i % 251)
	}
	out.SetBuffer(playBuf, 256)
	require.NoError(t, out.Process(256))

	recBuf := sosso.NewBuffer(256 * frameSize)
	in.SetBuffer(recBuf, 256)
	require.NoError(t, in.Process(256))

	assert.Equal(t, playBuf.Data(), recBuf.Data(),
		"capture must see what playback consumed")
}

func TestDevice_UnderrunYieldsSilence(t *testing.T) {
	pair := startedPair(t, nil)
	in := pair.In()

	recBuf := sosso.NewBuffer(256 * in.FrameSize())
	in.SetBuffer(recBuf, 256)
	require.NoError(t, in.Process(256))

	for i, b := range recBuf.Data() {
		require.Zero(t, b, "byte %d should be silence on underrun", i)
	}
}

func TestDevice_ToneCapture(t *testing.T) {
	pair := startedPair(t, &Config{ToneHz: 440})
	in := pair.In()

	recBuf := sosso.NewBuffer(1024 * in.FrameSize())
	in.SetBuffer(recBuf, 1024)
	require.NoError(t, in.Process(1024))

	level := meter.Measure(recBuf.Data())
	assert.InDelta(t, toneAmplitude/1.4142, level.RMS, 0.05, "sine RMS is amplitude/sqrt(2)")
	assert.False(t, level.Clipping)
}

func TestDevice_BalanceTracksDrift(t *testing.T) {
	pair := startedPair(t, &Config{InDriftPPM: 100000}) // 10% fast
	in := pair.In()

	in.SetBuffer(sosso.NewBuffer(20000*in.FrameSize()), 20000)
	require.NoError(t, in.Process(10000))

	assert.Equal(t, int64(1000), in.Balance(),
		"device clock 10% fast means 1000 extra frames at reference 10000")
}

func TestDevice_DoubleBuffering(t *testing.T) {
	pair := startedPair(t, nil)
	in := pair.In()

	first := sosso.NewBuffer(256 * in.FrameSize())
	second := sosso.NewBuffer(256 * in.FrameSize())
	in.SetBuffer(first, 256)
	in.SetBuffer(second, 512)
	assert.Equal(t, int64(512), in.EndFrames())

	// Transfer straight through the active buffer into the pending one.
	require.NoError(t, in.Process(384))
	assert.True(t, first.Done())
	assert.Equal(t, 128*int(in.FrameSize()), second.Position())

	assert.Same(t, first, in.TakeBuffer())
	assert.Equal(t, int64(512), in.PeriodEnd(), "pending buffer was promoted")

	// A third buffer while both slots are full is dropped.
	in.SetBuffer(sosso.NewBuffer(256*in.FrameSize()), 768)
	in.SetBuffer(sosso.NewBuffer(256*in.FrameSize()), 1024)
	assert.Equal(t, int64(768), in.EndFrames(), "over-queued buffer is dropped")
}

func TestDevice_ResetBuffersShiftsTargets(t *testing.T) {
	pair := startedPair(t, nil)
	in := pair.In()

	in.SetBuffer(sosso.NewBuffer(256*in.FrameSize()), 256)
	in.SetBuffer(sosso.NewBuffer(256*in.FrameSize()), 512)

	in.ResetBuffers(2512)

	assert.Equal(t, int64(2512), in.EndFrames())
	assert.Equal(t, int64(2256), in.PeriodEnd())
}

func TestDevice_WakeupTimeFollowsStepping(t *testing.T) {
	pair := startedPair(t, nil)
	in := pair.In()
	step := int64(in.Stepping())

	in.SetBuffer(sosso.NewBuffer(256*in.FrameSize()), 256)

	assert.Equal(t, step, in.WakeupTime(0), "first service after one stepping unit")

	require.NoError(t, in.Process(step))
	assert.Equal(t, 2*step, in.WakeupTime(step))

	require.NoError(t, in.Process(250))
	assert.Equal(t, int64(256), in.WakeupTime(250), "wakeup capped at the period end")
}

func TestDevice_Close(t *testing.T) {
	pair, err := NewPair(nil)
	require.NoError(t, err)

	require.NoError(t, pair.In().Close())
	assert.False(t, pair.In().Recording(), "closed device reports no mode")
	assert.ErrorIs(t, pair.In().Process(0), ErrClosed)
	assert.ErrorIs(t, pair.In().MemoryMap(), ErrClosed)
	assert.NoError(t, pair.In().Close(), "close is idempotent")
	assert.NoError(t, pair.In().MemoryUnmap(), "unmap stays best-effort")
}

func TestRing_WrapAndGrow(t *testing.T) {
	r := newRing(4)

	r.write([]byte{1, 2, 3})
	out := make([]byte, 2)
	assert.Equal(t, 2, r.read(out))
	assert.Equal(t, []byte{1, 2}, out)

	// Wrap around and force growth.
	r.write([]byte{4, 5, 6, 7, 8})
	assert.Equal(t, 6, r.available())

	out = make([]byte, 8)
	assert.Equal(t, 6, r.read(out))
	assert.Equal(t, []byte{3, 4, 5, 6, 7, 8, 0, 0}, out, "shortfall zero-filled")
}
