package sosso

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0EVSG/sosso/internal/testutil"
)

func TestBuffer_ZeroFilled(t *testing.T) {
	buf := NewBuffer(64)

	assert.Equal(t, 64, buf.Size())
	assert.Equal(t, 64, buf.Remaining())
	assert.False(t, buf.Done())
	testutil.AssertAllZero(t, buf.Data())
}

func TestBuffer_Advance(t *testing.T) {
	tests := []struct {
		name    string
		size    uint
		advance int
		want    int
		done    bool
	}{
		{"partial", 64, 16, 16, false},
		{"exact", 64, 64, 64, true},
		{"clamped", 64, 100, 64, true},
		{"negative", 64, -5, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewBuffer(tt.size)

			got := buf.Advance(tt.advance)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, buf.Position())
			assert.Equal(t, tt.done, buf.Done())
		})
	}
}

func TestBuffer_WriteRead(t *testing.T) {
	buf := NewBuffer(8)

	n := buf.Write([]byte{1, 2, 3, 4})
	require.Equal(t, 4, n)
	assert.Equal(t, 4, buf.Remaining())

	// Writing past the end is clamped.
	n = buf.Write([]byte{5, 6, 7, 8, 9})
	assert.Equal(t, 4, n)
	assert.True(t, buf.Done())

	buf.Reset()
	out := make([]byte, 8)
	n = buf.Read(out)
	assert.Equal(t, 8, n)
	testutil.AssertAllZero(t, out, "reset must zero the contents")
}

func TestBuffer_ResetRewinds(t *testing.T) {
	buf := NewBuffer(16)
	buf.Write([]byte{0xff, 0xff})
	require.Equal(t, 2, buf.Position())

	buf.Reset()

	assert.Equal(t, 0, buf.Position())
	assert.Equal(t, 16, buf.Remaining())
	testutil.AssertAllZero(t, buf.Data())
}
