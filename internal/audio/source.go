package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrSourceClosed is returned when reading from a released source.
var ErrSourceClosed = errors.New("audio source is closed")

// Source supplies the newest audio frame on demand.
type Source interface {
	// Latest copies the newest samples into dst and returns how many were
	// written. It never blocks.
	Latest(dst []float64) (int, error)

	// SampleRate returns the sample rate in Hz
	SampleRate() int

	// Close releases the underlying stream
	Close() error
}

// FileSource replays a recording as if it were a live microphone: the
// newest frame at any moment is the window ending at the playback position
// implied by the wall clock.
type FileSource struct {
	mu         sync.Mutex
	samples    []float64
	sampleRate int
	loop       bool
	now        func() time.Time
	start      time.Time
	closed     bool
}

// FileSourceOption configures a FileSource.
type FileSourceOption func(*FileSource)

// WithLoop restarts the recording when it ends instead of falling silent.
func WithLoop(loop bool) FileSourceOption {
	return func(s *FileSource) { s.loop = loop }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) FileSourceOption {
	return func(s *FileSource) { s.now = now }
}

// NewFileSource decodes a WAV, MP3 or FLAC recording for replay.
func NewFileSource(filename string, opts ...FileSourceOption) (*FileSource, error) {
	dec, err := NewDecoder(filename)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	samples, err := ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no audio data in %s", filename)
	}

	return NewSampleSource(samples, dec.SampleRate(), opts...), nil
}

// NewSampleSource replays in-memory mono samples.
func NewSampleSource(samples []float64, sampleRate int, opts ...FileSourceOption) *FileSource {
	s := &FileSource{
		samples:    samples,
		sampleRate: sampleRate,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Latest copies the window ending at the current playback position. The
// clock starts on the first call. Positions before the start of the
// recording, or after its end when not looping, read as silence.
func (s *FileSource) Latest(dst []float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSourceClosed
	}

	now := s.now()
	if s.start.IsZero() {
		s.start = now
	}

	elapsed := now.Sub(s.start)
	pos := int(int64(elapsed) * int64(s.sampleRate) / int64(time.Second))
	total := len(s.samples)

	for i := range dst {
		idx := pos - len(dst) + i
		switch {
		case idx < 0:
			dst[i] = 0
		case s.loop && total > 0:
			dst[i] = s.samples[idx%total]
		case idx >= total:
			dst[i] = 0
		default:
			dst[i] = s.samples[idx]
		}
	}
	return len(dst), nil
}

// SampleRate returns the sample rate of the recording
func (s *FileSource) SampleRate() int {
	return s.sampleRate
}

// Duration returns the length of the recording
func (s *FileSource) Duration() time.Duration {
	if s.sampleRate == 0 {
		return 0
	}
	return time.Duration(len(s.samples)) * time.Second / time.Duration(s.sampleRate)
}

// Close releases the decoded samples
func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSourceClosed
	}
	s.closed = true
	s.samples = nil
	return nil
}
