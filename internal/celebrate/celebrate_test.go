package celebrate

import (
	"bytes"
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

const frame = 16 * time.Millisecond

func TestBurstSizeDecays(t *testing.T) {
	tests := []struct {
		timeLeft time.Duration
		want     int
	}{
		{5 * time.Second, 50},
		{4750 * time.Millisecond, 47},
		{2500 * time.Millisecond, 25},
		{250 * time.Millisecond, 2},
		{0, 0},
		{-time.Second, 0},
	}

	for _, tt := range tests {
		if got := BurstSize(tt.timeLeft); got != tt.want {
			t.Errorf("BurstSize(%v) = %d, want %d", tt.timeLeft, got, tt.want)
		}
	}
}

func TestConfettiFirstBurstIsSymmetric(t *testing.T) {
	c := NewConfetti(42)

	c.Step(250 * time.Millisecond)

	particles := c.Particles()
	if len(particles) != 2*47 {
		t.Fatalf("first burst emitted %d particles, want %d", len(particles), 2*47)
	}

	var left, right int
	for _, p := range particles {
		switch {
		case p.X >= 60 && p.X <= 180:
			left++
		case p.X >= 420 && p.X <= 540:
			right++
		default:
			t.Fatalf("particle at x=%.1f outside both origins", p.X)
		}
		if p.Y < -120 || p.Y > 480 {
			t.Errorf("particle at y=%.1f outside origin band", p.Y)
		}
	}
	if left != right {
		t.Errorf("left origin emitted %d, right %d", left, right)
	}
}

func TestConfettiStopsAfterShow(t *testing.T) {
	c := NewConfetti(7)

	for c.Elapsed() < 5*time.Second {
		c.Step(frame)
	}
	emitted := c.Emitted()
	if emitted == 0 {
		t.Fatal("no confetti emitted during the show")
	}

	// One more second: particles land, nothing new launches
	for range 60 {
		c.Step(frame)
	}
	if c.Emitted() != emitted {
		t.Errorf("emitted grew from %d to %d after the show", emitted, c.Emitted())
	}
	if !c.Done() {
		t.Errorf("show not done, %d particles still live", len(c.Particles()))
	}
}

func TestConfettiIsDeterministic(t *testing.T) {
	a, b := NewConfetti(99), NewConfetti(99)
	for range 40 {
		a.Step(frame)
		b.Step(frame)
	}
	if a.Render(40, 12) != b.Render(40, 12) {
		t.Error("same seed rendered different confetti")
	}
}

func TestConfettiRender(t *testing.T) {
	c := NewConfetti(1)
	if got := c.Render(0, 5); got != "" {
		t.Errorf("Render with zero width = %q", got)
	}

	c.Step(250 * time.Millisecond)
	out := c.Render(30, 10)
	if lines := strings.Split(out, "\n"); len(lines) != 10 {
		t.Errorf("rendered %d lines, want 10", len(lines))
	}
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestPlayerPrefersFirstAvailable(t *testing.T) {
	installed := map[string]bool{"mpv": true, "paplay": true}
	p := NewPlayer(0.5, quietLogger(), WithLookPath(func(name string) (string, error) {
		if installed[name] {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	}))

	path, args, err := p.Command("song.mp3")
	if err != nil {
		t.Fatalf("Command returned error: %v", err)
	}
	if path != "/usr/bin/mpv" {
		t.Errorf("player = %s, want mpv", path)
	}
	if !slices.Contains(args, "--volume=50") || args[len(args)-1] != "song.mp3" {
		t.Errorf("args = %v", args)
	}
}

func TestPlayerVolumeScales(t *testing.T) {
	tests := []struct {
		player string
		want   string
	}{
		{"ffplay", "50"},
		{"afplay", "0.50"},
		{"paplay", "--volume=32768"},
	}

	for _, tt := range tests {
		p := NewPlayer(0.5, quietLogger(), WithLookPath(func(name string) (string, error) {
			if name == tt.player {
				return name, nil
			}
			return "", errors.New("not found")
		}))
		_, args, err := p.Command("song.wav")
		if err != nil {
			t.Fatalf("%s: Command returned error: %v", tt.player, err)
		}
		if !slices.Contains(args, tt.want) {
			t.Errorf("%s args = %v, want %q", tt.player, args, tt.want)
		}
	}
}

func TestPlayerWithoutPlayers(t *testing.T) {
	p := NewPlayer(0.5, quietLogger(), WithLookPath(func(string) (string, error) {
		return "", errors.New("not found")
	}))

	if err := p.Play(context.Background(), "song.mp3"); !errors.Is(err, ErrNoPlayer) {
		t.Errorf("Play error = %v, want ErrNoPlayer", err)
	}
	if err := p.Play(context.Background(), ""); err != nil {
		t.Errorf("Play without a song = %v, want nil", err)
	}
	p.Stop()
}

func TestBellRingsOnSegments(t *testing.T) {
	var buf bytes.Buffer
	var slept []time.Duration
	b := NewBell(&buf, quietLogger())
	b.sleep = func(d time.Duration) { slept = append(slept, d) }

	pattern := []time.Duration{100 * time.Millisecond, 50 * time.Millisecond, 100 * time.Millisecond}
	if err := b.Ring(pattern); err != nil {
		t.Fatalf("Ring returned error: %v", err)
	}

	if got := buf.String(); got != "\a\a" {
		t.Errorf("bell wrote %q, want two bells", got)
	}
	if !slices.Equal(slept, pattern) {
		t.Errorf("slept %v, want %v", slept, pattern)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("terminal closed")
}

func TestBellLogsWriteFailure(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	b := NewBell(failingWriter{}, log)
	b.sleep = func(time.Duration) {}
	b.ring([]time.Duration{100 * time.Millisecond})

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("failed bell write was not logged")
	}
	if entry.Level != logrus.DebugLevel {
		t.Errorf("logged at %v, want debug", entry.Level)
	}
	if entry.Message != "terminal bell unavailable" {
		t.Errorf("message = %q", entry.Message)
	}
	if err, ok := entry.Data[logrus.ErrorKey].(error); !ok || err.Error() != "terminal closed" {
		t.Errorf("logged error = %v, want terminal closed", entry.Data[logrus.ErrorKey])
	}
}
