package audio

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/sirupsen/logrus"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestCapturePumpFillsRing(t *testing.T) {
	s := newCaptureSource(8000, testLogger())

	// 0x4000 = 0.5, delivered one byte at a time to exercise carry-over
	pcm := bytes.Repeat([]byte{0x00, 0x40}, 64)
	s.pump(iotest.OneByteReader(bytes.NewReader(pcm)))

	dst := make([]float64, 32)
	_, err := s.Latest(dst)
	if !errors.Is(err, ErrCaptureStopped) {
		t.Fatalf("Latest after stream end error = %v, want ErrCaptureStopped", err)
	}

	if got := s.ring.Len(); got != 64 {
		t.Fatalf("ring holds %d samples, want 64", got)
	}
	n := s.ring.Latest(dst)
	for i := 0; i < n; i++ {
		if dst[i] != 0.5 {
			t.Fatalf("sample %d = %v, want 0.5", i, dst[i])
		}
	}
}

func TestCaptureLatestWhileRunning(t *testing.T) {
	s := newCaptureSource(8000, testLogger())
	s.ring.Write([]float64{0.1, 0.2, 0.3})

	dst := make([]float64, 2)
	n, err := s.Latest(dst)
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if n != 2 || dst[0] != 0.2 || dst[1] != 0.3 {
		t.Errorf("Latest = %v (n=%d), want [0.2 0.3]", dst, n)
	}
}

func TestCaptureCloseIsIdempotent(t *testing.T) {
	s := newCaptureSource(8000, testLogger())

	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
	if _, err := s.Latest(make([]float64, 4)); !errors.Is(err, ErrSourceClosed) {
		t.Errorf("Latest after Close error = %v, want ErrSourceClosed", err)
	}
}

func TestCaptureFailKeepsDetailedError(t *testing.T) {
	s := newCaptureSource(8000, testLogger())

	s.fail(ErrCaptureStopped)
	detailed := errors.Join(ErrCaptureStopped, errors.New("device busy"))
	s.fail(detailed)
	s.fail(ErrSourceClosed)

	_, err := s.Latest(make([]float64, 1))
	if err != detailed {
		t.Errorf("Latest error = %v, want the detailed capture error", err)
	}
}

func TestLastLine(t *testing.T) {
	testCases := []struct {
		name   string
		stderr string
		want   string
	}{
		{name: "empty", stderr: "", want: ""},
		{name: "single line", stderr: "arecord: main:850: audio open error: No such file or directory", want: "arecord: main:850: audio open error: No such file or directory"},
		{name: "trailing blank lines", stderr: "first\nsecond\n\n  \n", want: "second"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := lastLine(tc.stderr); got != tc.want {
				t.Errorf("lastLine(%q) = %q, want %q", tc.stderr, got, tc.want)
			}
		})
	}
}
