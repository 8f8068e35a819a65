package detector

import (
	"context"
	"time"
)

// Ticker paces the sampling loop. Next blocks until the next frame is due
// and returns its timestamp, or the context error once cancelled.
type Ticker interface {
	Next(ctx context.Context) (time.Time, error)
	Stop()
}

// FrameTicker delivers frames at a fixed rate, standing in for the display's
// animation-frame callback.
type FrameTicker struct {
	ticker *time.Ticker
}

// NewFrameTicker creates a ticker firing rate times per second.
func NewFrameTicker(rate int) *FrameTicker {
	if rate <= 0 {
		rate = 60
	}
	return &FrameTicker{ticker: time.NewTicker(time.Second / time.Duration(rate))}
}

// Next waits for the next frame.
func (f *FrameTicker) Next(ctx context.Context) (time.Time, error) {
	select {
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	case t := <-f.ticker.C:
		return t, nil
	}
}

// Stop releases the underlying timer.
func (f *FrameTicker) Stop() {
	f.ticker.Stop()
}
