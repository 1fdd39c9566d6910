package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0EVSG/sosso"
)

func TestPCMBytesToInts(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want []int
	}{
		{"empty", nil, []int{}},
		{"zero", []byte{0x00, 0x00}, []int{0}},
		{"positive", []byte{0x34, 0x12}, []int{0x1234}},
		{"negative", []byte{0xff, 0xff}, []int{-1}},
		{"min", []byte{0x00, 0x80}, []int{-32768}},
		{"trailing_byte_ignored", []byte{0x01, 0x00, 0x7f}, []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pcmBytesToInts(tt.data))
		})
	}
}

func TestWAVCapture_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.wav")

	capt, err := newWAVCapture(path, 48000, 4)
	require.NoError(t, err)

	period := make([]byte, 1024)
	require.NoError(t, capt.write(period))
	require.NoError(t, capt.close())

	assert.FileExists(t, path)
}

func TestWAVCapture_RejectsTinyFrames(t *testing.T) {
	_, err := newWAVCapture(filepath.Join(t.TempDir(), "x.wav"), 48000, 1)
	assert.Error(t, err)
}

func TestReport_Summary(t *testing.T) {
	r := newReport()

	data := make([]byte, 64)
	r.record(sosso.PeriodEvent{Role: sosso.RoleRecording, Balance: 10, Correction: -10, Data: data})
	r.record(sosso.PeriodEvent{Role: sosso.RoleRecording, Balance: 20, Correction: -12, Data: data})
	r.record(sosso.PeriodEvent{Role: sosso.RolePlayback, Balance: -5, Correction: 5, Data: data})

	var out bytes.Buffer
	r.print(&out)

	summary := out.String()
	assert.Contains(t, summary, "Completed 3 periods.")
	assert.Contains(t, summary, "recording balance")
	assert.Contains(t, summary, "playback correction")
	assert.Contains(t, summary, "Recording level")
}

func TestExtrema(t *testing.T) {
	low, high := extrema([]float64{3, -7, 12, 0})
	assert.Equal(t, -7.0, low)
	assert.Equal(t, 12.0, high)
}
