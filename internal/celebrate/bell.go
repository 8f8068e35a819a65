package celebrate

import (
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Bell rings the terminal bell as a stand-in for device vibration.
type Bell struct {
	mu    sync.Mutex
	w     io.Writer
	log   logrus.FieldLogger
	sleep func(time.Duration)
}

// NewBell creates a bell writing to w, usually the terminal.
func NewBell(w io.Writer, log logrus.FieldLogger) *Bell {
	return &Bell{w: w, log: log, sleep: time.Sleep}
}

// Vibrate rings the pattern in the background and returns immediately.
func (b *Bell) Vibrate(pattern []time.Duration) error {
	go b.ring(pattern)
	return nil
}

// ring plays the pattern and logs a failed write, since nobody waits on
// the background ring.
func (b *Bell) ring(pattern []time.Duration) {
	if err := b.Ring(pattern); err != nil {
		b.log.WithError(err).Debug("terminal bell unavailable")
	}
}

// Ring plays the pattern synchronously. Even entries are "on" segments and
// ring once; odd entries are pauses.
func (b *Bell) Ring(pattern []time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, d := range pattern {
		if i%2 == 0 {
			if _, err := io.WriteString(b.w, "\a"); err != nil {
				return err
			}
		}
		b.sleep(d)
	}
	return nil
}
