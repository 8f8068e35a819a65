package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVDecoder implements Decoder for WAV files
type WAVDecoder struct {
	decoder    *wav.Decoder
	file       *os.File
	sampleRate int
	bitDepth   int
	numChans   int
	buf        *audio.IntBuffer
}

// NewWAVDecoder creates a new WAV decoder
func NewWAVDecoder(filename string) (*WAVDecoder, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("invalid WAV file: %s", filename)
	}

	// Get format info without reading all samples
	if err := decoder.FwdToPCM(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to seek to PCM data: %w", err)
	}

	numChans := int(decoder.NumChans)
	if numChans < 1 {
		numChans = 1
	}

	return &WAVDecoder{
		decoder:    decoder,
		file:       f,
		sampleRate: int(decoder.SampleRate),
		bitDepth:   int(decoder.BitDepth),
		numChans:   numChans,
		buf: &audio.IntBuffer{
			Format: &audio.Format{NumChannels: numChans, SampleRate: int(decoder.SampleRate)},
		},
	}, nil
}

// ReadChunk reads up to numSamples mono samples
func (d *WAVDecoder) ReadChunk(numSamples int) ([]float64, error) {
	// Interleaved data: numSamples frames × numChans values
	bufSize := numSamples * d.numChans
	if cap(d.buf.Data) < bufSize {
		d.buf.Data = make([]int, bufSize)
	}
	d.buf.Data = d.buf.Data[:bufSize]

	n, err := d.decoder.PCMBuffer(d.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read PCM buffer: %w", err)
	}
	if n == 0 {
		return nil, io.EOF
	}

	maxVal := float64(audio.IntMaxSignedValue(d.bitDepth))
	return downmix(d.buf.Data[:n], d.numChans, func(v int) float64 {
		return float64(v) / maxVal
	}), nil
}

// SampleRate returns the sample rate
func (d *WAVDecoder) SampleRate() int {
	return d.sampleRate
}

// NumChannels returns the number of audio channels
func (d *WAVDecoder) NumChannels() int {
	return d.numChans
}

// Close closes the decoder and releases resources
func (d *WAVDecoder) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

// downmix averages interleaved channels into mono.
func downmix(data []int, numChans int, scale func(int) float64) []float64 {
	frames := len(data) / numChans
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < numChans; ch++ {
			sum += scale(data[i*numChans+ch])
		}
		samples[i] = sum / float64(numChans)
	}
	return samples
}
