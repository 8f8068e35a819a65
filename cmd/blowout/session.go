package main

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/blowout/internal/audio"
	"github.com/linuxmatters/blowout/internal/celebrate"
	"github.com/linuxmatters/blowout/internal/config"
	"github.com/linuxmatters/blowout/internal/detector"
	"github.com/linuxmatters/blowout/internal/renderer"
	"github.com/linuxmatters/blowout/internal/ui"
	"github.com/sirupsen/logrus"
)

const spectrumBands = 32

// session wires the card's actions to the detector, audio and celebration
type session struct {
	ctx       context.Context
	settings  config.Settings
	recording string
	loop      bool
	keepsake  string
	log       logrus.FieldLogger
	player    *celebrate.Player
	det       *detector.Detector
	program   *tea.Program

	wg      sync.WaitGroup
	mu      sync.Mutex
	source  audio.Source
	frame   []float64
	written string
}

// openSource replays the recording when one was given, otherwise starts
// the microphone
func (s *session) openSource() (audio.Source, error) {
	if s.recording != "" {
		return audio.NewFileSource(s.recording, audio.WithLoop(s.loop))
	}
	return audio.StartCapture(s.ctx, s.settings.Device, s.log)
}

// startMic begins calibration and detection in the background
func (s *session) startMic() error {
	src, err := s.openSource()
	if err != nil {
		s.log.WithError(err).Warn("audio source unavailable")
		return err
	}

	s.mu.Lock()
	s.source = src
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.det.Run(s.ctx, src)
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		s.log.WithError(err).Warn("blow detection ended")
		s.program.Send(ui.MicErrorMsg{Err: err})
	}()
	return nil
}

func (s *session) extinguish() {
	s.det.ManualExtinguish()
}

// spectrum feeds the debug overlay from the live source
func (s *session) spectrum() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source == nil {
		return nil
	}
	if s.frame == nil {
		s.frame = make([]float64, s.settings.Detector.FrameSize)
	}
	n, err := s.source.Latest(s.frame)
	if err != nil {
		return nil
	}
	bands, err := audio.Spectrum(s.frame[:n], spectrumBands)
	if err != nil {
		s.log.WithError(err).Debug("spectrum unavailable")
		return nil
	}
	return bands
}

// celebrate starts the music and writes the keepsake
func (s *session) celebrate() {
	if err := s.player.Play(s.ctx, s.settings.Song); err != nil {
		s.log.WithError(err).Warn("celebrating without music")
	}

	if s.keepsake == "" {
		return
	}
	err := renderer.GenerateKeepsake(s.keepsake, renderer.Keepsake{
		To:      s.settings.Recipient,
		From:    s.settings.Sender,
		Message: s.settings.Message,
		Accent:  s.settings.Accent,
	})
	if err != nil {
		s.log.WithError(err).Error("failed to write keepsake")
		return
	}
	s.log.WithField("path", s.keepsake).Info("keepsake saved")

	s.mu.Lock()
	s.written = s.keepsake
	s.mu.Unlock()
}

func (s *session) savedKeepsake() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// wait blocks until the detector goroutine has released its source
func (s *session) wait() {
	s.wg.Wait()
}
