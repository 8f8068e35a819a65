package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/linuxmatters/blowout/internal/config"
	"github.com/sirupsen/logrus"
)

// ErrNoAudioDevice is returned when no audio input device is available.
var ErrNoAudioDevice = errors.New("no audio input device found")

// ErrCaptureStopped is returned once the capture process has exited.
var ErrCaptureStopped = errors.New("audio capture stopped")

// shutdownTimeout bounds how long a capture process may take to exit after
// being signalled.
const shutdownTimeout = 2 * time.Second

// CaptureConfig defines platform-specific audio capture configuration.
type CaptureConfig struct {
	// Command is the executable name (e.g., "arecord", "ffmpeg").
	Command string

	// DefaultDevice is used when no device is configured.
	DefaultDevice string

	// BuildArgs returns the command arguments for mono S16LE capture at
	// the given sample rate.
	BuildArgs func(device string, sampleRate int) []string
}

// BuildCaptureCommand returns the command and arguments for audio capture.
func BuildCaptureCommand(device string, sampleRate int) (string, []string, error) {
	cfg := getPlatformConfig()
	if cfg.Command == "" {
		return "", nil, ErrNoAudioDevice
	}

	if device == "" {
		device = cfg.DefaultDevice
	}
	if device == "" {
		return "", nil, ErrNoAudioDevice
	}

	return cfg.Command, cfg.BuildArgs(device, sampleRate), nil
}

// CaptureSource reads live microphone audio from a capture process into a
// ring buffer.
type CaptureSource struct {
	ring       *Ring
	sampleRate int
	log        logrus.FieldLogger

	cmd    *exec.Cmd
	cancel context.CancelFunc
	stderr bytes.Buffer
	done   chan struct{}

	mu        sync.Mutex
	err       error
	closeOnce sync.Once
}

// StartCapture launches the platform capture command for device. It fails
// fast with ErrNoAudioDevice when the capture tool is missing.
func StartCapture(ctx context.Context, device string, log logrus.FieldLogger) (*CaptureSource, error) {
	sampleRate := config.CaptureSampleRate
	name, args, err := BuildCaptureCommand(device, sampleRate)
	if err != nil {
		return nil, err
	}
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("%w: %s not installed", ErrNoAudioDevice, name)
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = shutdownTimeout

	s := newCaptureSource(sampleRate, log)
	s.cmd = cmd
	s.cancel = cancel
	cmd.Stderr = &s.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}

	log.WithFields(logrus.Fields{"command": name, "device": device}).Info("starting audio capture")
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrNoAudioDevice, err)
	}

	go func() {
		s.pump(stdout)
		waitErr := cmd.Wait()
		if tail := lastLine(s.stderr.String()); tail != "" {
			s.log.WithField("stderr", tail).Warn("audio capture exited")
			s.fail(fmt.Errorf("%w: %s", ErrCaptureStopped, tail))
		} else if waitErr != nil && ctx.Err() == nil {
			s.fail(fmt.Errorf("%w: %v", ErrCaptureStopped, waitErr))
		}
		close(s.done)
	}()

	return s, nil
}

func newCaptureSource(sampleRate int, log logrus.FieldLogger) *CaptureSource {
	return &CaptureSource{
		ring:       NewRing(sampleRate * config.RingSeconds),
		sampleRate: sampleRate,
		log:        log,
		done:       make(chan struct{}),
	}
}

// pump decodes S16LE from r into the ring until r ends.
func (s *CaptureSource) pump(r io.Reader) {
	buf := make([]byte, 4096)
	var carry []byte
	samples := make([]float64, 0, len(buf)/2)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := append(carry, buf[:n]...)
			samples = DecodeS16LE(samples[:0], data)
			s.ring.Write(samples)
			// Keep an odd trailing byte for the next read
			carry = append(carry[:0], data[len(data)&^1:]...)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				s.log.WithError(err).Warn("audio capture read failed")
			}
			s.fail(ErrCaptureStopped)
			return
		}
	}
}

// fail records why the source stopped. A detailed capture error may replace
// the bare ErrCaptureStopped set when stdout ends; anything else sticks.
func (s *CaptureSource) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.err == nil:
		s.err = err
	case s.err == ErrCaptureStopped && errors.Is(err, ErrCaptureStopped):
		s.err = err
	}
}

// Latest copies the newest captured samples into dst.
func (s *CaptureSource) Latest(dst []float64) (int, error) {
	s.mu.Lock()
	err := s.err
	s.mu.Unlock()

	if err != nil {
		return 0, err
	}
	return s.ring.Latest(dst), nil
}

// SampleRate returns the capture sample rate
func (s *CaptureSource) SampleRate() int {
	return s.sampleRate
}

// Close stops the capture process and waits for it to exit.
func (s *CaptureSource) Close() error {
	s.closeOnce.Do(func() {
		s.fail(ErrSourceClosed)
		if s.cancel != nil {
			s.cancel()
		}
		if s.cmd != nil {
			<-s.done
		}
		s.log.Info("audio capture released")
	})
	return nil
}

// lastLine extracts the last meaningful line from stderr output.
func lastLine(stderr string) string {
	const maxLen = 200

	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if len(line) > maxLen {
			return line[:maxLen] + "..."
		}
		return line
	}
	return ""
}
