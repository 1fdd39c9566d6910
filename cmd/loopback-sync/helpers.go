package main

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	bitDepth16     = 16
	bytesPerSample = 2
	wavFormatPCM   = 1
)

// wavCapture streams recorded periods into a 16-bit PCM WAV file.
type wavCapture struct {
	file     *os.File
	encoder  *wav.Encoder
	format   *audio.Format
	channels int
}

func newWAVCapture(path string, sampleRate, frameSize int) (*wavCapture, error) {
	channels := frameSize / bytesPerSample
	if channels < 1 {
		return nil, fmt.Errorf("frame size %d too small for 16-bit capture", frameSize)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	return &wavCapture{
		file:     file,
		encoder:  wav.NewEncoder(file, sampleRate, bitDepth16, channels, wavFormatPCM),
		format:   &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		channels: channels,
	}, nil
}

// write appends one period of 16-bit little-endian PCM bytes.
func (c *wavCapture) write(data []byte) error {
	buf := &audio.IntBuffer{
		Format:         c.format,
		Data:           pcmBytesToInts(data),
		SourceBitDepth: bitDepth16,
	}
	return c.encoder.Write(buf)
}

// close finalizes the WAV header and the file.
func (c *wavCapture) close() error {
	encErr := c.encoder.Close()
	fileErr := c.file.Close()
	if encErr != nil {
		return encErr
	}
	return fileErr
}

// pcmBytesToInts decodes 16-bit little-endian PCM bytes into samples.
// A trailing odd byte is ignored.
func pcmBytesToInts(data []byte) []int {
	count := len(data) / bytesPerSample
	samples := make([]int, count)
	for i := 0; i < count; i++ {
		samples[i] = int(int16(uint16(data[i*bytesPerSample]) |
			uint16(data[i*bytesPerSample+1])<<8))
	}
	return samples
}
