package celebrate

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrNoPlayer is returned when none of the known audio players is installed.
var ErrNoPlayer = errors.New("no audio player found (tried ffplay, mpv, afplay, paplay)")

type playerSpec struct {
	name string
	args func(song string, volume float64) []string
}

// Players in order of preference. Each maps the 0..1 volume onto its own
// scale.
var players = []playerSpec{
	{"ffplay", func(song string, volume float64) []string {
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-volume", strconv.Itoa(int(volume * 100)), song}
	}},
	{"mpv", func(song string, volume float64) []string {
		return []string{"--no-video", "--really-quiet", "--volume=" + strconv.Itoa(int(volume*100)), song}
	}},
	{"afplay", func(song string, volume float64) []string {
		return []string{"-v", strconv.FormatFloat(volume, 'f', 2, 64), song}
	}},
	{"paplay", func(song string, volume float64) []string {
		return []string{"--volume=" + strconv.Itoa(int(volume*65536)), song}
	}},
}

// Player plays the birthday song through an external player.
type Player struct {
	volume   float64
	log      logrus.FieldLogger
	lookPath func(string) (string, error)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithLookPath replaces exec.LookPath.
func WithLookPath(lookPath func(string) (string, error)) PlayerOption {
	return func(p *Player) { p.lookPath = lookPath }
}

// NewPlayer creates a player at the given volume (0..1).
func NewPlayer(volume float64, log logrus.FieldLogger, opts ...PlayerOption) *Player {
	p := &Player{
		volume:   min(max(volume, 0), 1),
		log:      log,
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Command resolves the player binary and arguments for song.
func (p *Player) Command(song string) (string, []string, error) {
	for _, spec := range players {
		path, err := p.lookPath(spec.name)
		if err != nil {
			continue
		}
		return path, spec.args(song, p.volume), nil
	}
	return "", nil, ErrNoPlayer
}

// Play starts the song in the background. Only failure to start is
// reported; a player that exits with an error is logged and otherwise
// ignored, the party goes on without music.
func (p *Player) Play(ctx context.Context, song string) error {
	if song == "" {
		return nil
	}

	path, args, err := p.Command(song)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil // already playing
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, path, args...)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start %s: %w", path, err)
	}

	done := make(chan struct{})
	p.cancel, p.done = cancel, done
	p.log.WithFields(logrus.Fields{"player": path, "song": song}).Info("playing song")

	go func() {
		defer close(done)
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			p.log.WithError(err).Warn("song playback failed")
		}
	}()
	return nil
}

// Stop ends playback and waits for the player to exit.
func (p *Player) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
