package audio

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for recordings that no decoder handles.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Decoder defines the interface for all audio format decoders.
// Every decoder downmixes to mono float64 samples in [-1.0, 1.0].
type Decoder interface {
	// ReadChunk reads the next chunk of up to numSamples mono samples.
	// Returns io.EOF when the recording is exhausted.
	ReadChunk(numSamples int) ([]float64, error)

	// SampleRate returns the audio sample rate in Hz
	SampleRate() int

	// NumChannels returns the number of channels in the source file
	NumChannels() int

	// Close closes the decoder and releases resources
	Close() error
}

// NewDecoder opens filename with the decoder matching its extension.
func NewDecoder(filename string) (Decoder, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav", ".wave":
		return NewWAVDecoder(filename)
	case ".mp3":
		return NewMP3Decoder(filename)
	case ".flac":
		return NewFLACDecoder(filename)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// ReadAll drains a decoder into a single mono sample slice.
func ReadAll(d Decoder) ([]float64, error) {
	const chunkSize = 4096

	var samples []float64
	for {
		chunk, err := d.ReadChunk(chunkSize)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		samples = append(samples, chunk...)
	}
	return samples, nil
}
