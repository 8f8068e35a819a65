package ui

import (
	"time"

	"github.com/linuxmatters/blowout/internal/detector"
)

// StateMsg reports a detector state transition
type StateMsg struct {
	State detector.State
	At    time.Time
}

// CalibratedMsg carries the measured noise floor
type CalibratedMsg struct {
	NoiseFloor float64
}

// ReadingMsg carries one detection tick, plus the frame spectrum when the
// debug overlay is enabled
type ReadingMsg struct {
	Reading  detector.Reading
	Spectrum []float64
}

// OutMsg signals that the flame went out
type OutMsg struct{}

// CelebrateMsg starts the celebration
type CelebrateMsg struct{}

// MicErrorMsg reports that the microphone could not be used. The card
// carries on in manual-only mode.
type MicErrorMsg struct {
	Err error
}

type typeTickMsg struct{}

type calibrationTickMsg time.Time

type confettiTickMsg struct{}
