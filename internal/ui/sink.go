package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/blowout/internal/detector"
)

// ProgramSink forwards detector events into a running bubbletea program.
// Send blocks until the event loop takes the message, so detector calls
// must never originate from inside Update; the card issues them as
// commands instead.
type ProgramSink struct {
	send     func(tea.Msg)
	spectrum func() []float64
}

// NewProgramSink creates a sink for p. spectrum, when non-nil, is called on
// every reading to feed the debug overlay.
func NewProgramSink(p *tea.Program, spectrum func() []float64) *ProgramSink {
	return &ProgramSink{send: p.Send, spectrum: spectrum}
}

func (s *ProgramSink) StateChanged(state detector.State) {
	s.send(StateMsg{State: state, At: time.Now()})
}

func (s *ProgramSink) Calibrated(noiseFloor float64) {
	s.send(CalibratedMsg{NoiseFloor: noiseFloor})
}

func (s *ProgramSink) Sampled(r detector.Reading) {
	msg := ReadingMsg{Reading: r}
	if s.spectrum != nil {
		msg.Spectrum = s.spectrum()
	}
	s.send(msg)
}

func (s *ProgramSink) Out() {
	s.send(OutMsg{})
}

func (s *ProgramSink) Celebrate() {
	s.send(CelebrateMsg{})
}
