// Package detector turns a live audio stream into a single "candle out"
// event: it measures the ambient noise floor, then waits for a sustained
// burst of energy above it.
package detector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/linuxmatters/blowout/internal/audio"
	"github.com/linuxmatters/blowout/internal/config"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNoSource is returned when no audio source is available. The card
	// falls back to the manual button.
	ErrNoSource = errors.New("no audio source")

	// ErrNoInput is returned when calibration captured no audio at all.
	ErrNoInput = errors.New("calibration captured no audio")

	// ErrNotDetecting is returned by DetectTick outside the Detecting state.
	ErrNotDetecting = errors.New("detector is not detecting")

	// ErrExtinguished is returned once the candle is out.
	ErrExtinguished = errors.New("candle already extinguished")

	// ErrAlreadyStarted is returned when calibration is requested twice.
	ErrAlreadyStarted = errors.New("detector already started")
)

// State is the detector lifecycle position.
type State int

const (
	Idle State = iota
	Calibrating
	Detecting
	Extinguished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Calibrating:
		return "calibrating"
	case Detecting:
		return "detecting"
	case Extinguished:
		return "extinguished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config holds the detector tunables.
type Config struct {
	ThresholdOffset   float64         // Added to the noise floor to form the threshold
	RequiredBlow      time.Duration   // Blow must last longer than this
	FrameInterval     time.Duration   // Credited per blowing frame, regardless of real frame time
	CalibrationWindow time.Duration   // Length of the noise floor measurement
	FrameSize         int             // Samples per frame
	CelebrationDelay  time.Duration   // Out to Celebrate
	VibrationPattern  []time.Duration // Haptic pulse at extinguish
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		ThresholdOffset:   config.ThresholdOffset,
		RequiredBlow:      config.RequiredBlow,
		FrameInterval:     config.FrameInterval,
		CalibrationWindow: config.CalibrationWindow,
		FrameSize:         config.FrameSize,
		CelebrationDelay:  config.CelebrationDelay,
		VibrationPattern:  config.VibrationPattern,
	}
}

// ConfigFromSettings applies the settings file tunables over DefaultConfig.
func ConfigFromSettings(s config.DetectorSettings) Config {
	cfg := DefaultConfig()
	cfg.ThresholdOffset = s.ThresholdOffset
	cfg.RequiredBlow = s.RequiredBlow
	cfg.CalibrationWindow = s.CalibrationWindow
	cfg.FrameSize = s.FrameSize
	return cfg
}

// Reading is the outcome of one detection tick.
type Reading struct {
	RMS          float64
	NoiseFloor   float64
	Threshold    float64
	Rise         float64 // RMS minus the previous tick's RMS; informational only
	Blowing      bool
	Duration     time.Duration
	Extinguished bool
}

// Detector is the blow detector for one card session. Create it with New,
// drive it with Run, and discard it once the candle is out.
type Detector struct {
	cfg       Config
	listener  Listener
	vibrator  Vibrator
	log       logrus.FieldLogger
	newTicker func() Ticker
	afterFunc func(time.Duration, func())

	// notifyMu orders listener calls so a late event never follows Out.
	notifyMu sync.Mutex

	mu           sync.Mutex
	state        State
	trigger      string
	listening    bool
	noiseFloor   float64
	hasFloor     bool
	blowDuration time.Duration
	previousRMS  float64
	source       audio.Source
	ticker       Ticker
	runCtx       context.Context
	cancel       context.CancelFunc
	frame        []float64
}

// Option configures a Detector.
type Option func(*Detector)

// WithListener sets the event listener.
func WithListener(l Listener) Option {
	return func(d *Detector) { d.listener = l }
}

// WithVibrator sets the haptic collaborator.
func WithVibrator(v Vibrator) Option {
	return func(d *Detector) { d.vibrator = v }
}

// WithLogger sets the structured logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(d *Detector) { d.log = log }
}

// WithTicker replaces the 60 Hz frame ticker. The factory is called once
// per calibration attempt.
func WithTicker(newTicker func() Ticker) Option {
	return func(d *Detector) { d.newTicker = newTicker }
}

// WithAfterFunc replaces time.AfterFunc for the celebration delay.
func WithAfterFunc(after func(time.Duration, func())) Option {
	return func(d *Detector) { d.afterFunc = after }
}

// New creates an idle detector.
func New(cfg Config, opts ...Option) *Detector {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	d := &Detector{
		cfg:      cfg,
		listener: NopListener{},
		log:      discard,
		newTicker: func() Ticker {
			return NewFrameTicker(config.FrameRate)
		},
		afterFunc: func(delay time.Duration, f func()) {
			time.AfterFunc(delay, f)
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.cfg.FrameSize <= 0 {
		d.cfg.FrameSize = config.FrameSize
	}
	d.frame = make([]float64, d.cfg.FrameSize)
	return d
}

// State returns the current lifecycle state.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// NoiseFloor returns the calibrated noise floor, and false before
// calibration has completed.
func (d *Detector) NoiseFloor() (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.noiseFloor, d.hasFloor
}

// Trigger returns what put the candle out, "blow" or "manual", or "" while
// it is still lit.
func (d *Detector) Trigger() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.trigger
}

// BlowDuration returns how long the current blow has been sustained.
func (d *Detector) BlowDuration() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.blowDuration
}

// Run calibrates against src and then samples it once per frame until the
// candle is out, ctx is cancelled, or the source fails. The detector owns
// src from here on and releases it exactly once. A manual extinguish ends
// Run with a nil error.
func (d *Detector) Run(ctx context.Context, src audio.Source) error {
	if _, err := d.Calibrate(ctx, src); err != nil {
		return runResult(err)
	}

	d.mu.Lock()
	ticker, runCtx := d.ticker, d.runCtx
	d.mu.Unlock()

	for {
		if _, err := ticker.Next(runCtx); err != nil {
			return runResult(d.abort(err))
		}

		r, err := d.DetectTick()
		if err != nil {
			return runResult(d.abort(err))
		}
		if r.Extinguished {
			return nil
		}
	}
}

func runResult(err error) error {
	if errors.Is(err, ErrExtinguished) {
		return nil
	}
	return err
}

// Calibrate takes ownership of src, moves Idle to Calibrating, and averages
// frame RMS over the calibration window measured on tick timestamps. The
// caller is expected to keep quiet meanwhile; nothing checks that. On
// success the detector is Detecting and the noise floor is fixed.
func (d *Detector) Calibrate(ctx context.Context, src audio.Source) (float64, error) {
	if src == nil {
		return 0, ErrNoSource
	}

	d.mu.Lock()
	if d.state != Idle {
		err := ErrAlreadyStarted
		if d.state == Extinguished {
			err = ErrExtinguished
		}
		d.mu.Unlock()
		src.Close()
		return 0, err
	}

	d.ticker = d.newTicker()
	d.runCtx, d.cancel = context.WithCancel(ctx)
	d.source = src
	d.listening = true
	d.state = Calibrating
	ticker, runCtx := d.ticker, d.runCtx
	d.mu.Unlock()

	d.log.WithField("window", d.cfg.CalibrationWindow).Info("calibrating noise floor")
	d.notify(Calibrating, func() { d.listener.StateChanged(Calibrating) })

	start, err := ticker.Next(runCtx)
	if err != nil {
		return 0, d.abort(err)
	}

	var total float64
	var count int
	for now := start; now.Sub(start) < d.cfg.CalibrationWindow; {
		rms, n, err := d.sample()
		if err != nil {
			return 0, d.abort(err)
		}
		if n > 0 {
			total += rms
			count++
		}

		if now, err = ticker.Next(runCtx); err != nil {
			return 0, d.abort(err)
		}
	}

	if count == 0 {
		return 0, d.abort(ErrNoInput)
	}
	floor := total / float64(count)

	d.mu.Lock()
	if !d.listening {
		d.mu.Unlock()
		return 0, d.abort(context.Canceled)
	}
	d.noiseFloor = floor
	d.hasFloor = true
	d.blowDuration = 0
	d.previousRMS = 0
	d.state = Detecting
	d.mu.Unlock()

	d.log.WithFields(logrus.Fields{
		"noise_floor": floor,
		"frames":      count,
		"threshold":   floor + d.cfg.ThresholdOffset,
	}).Info("calibration complete")
	d.notify(Detecting, func() {
		d.listener.Calibrated(floor)
		d.listener.StateChanged(Detecting)
	})

	return floor, nil
}

// sample reads one frame while the detector is listening.
func (d *Detector) sample() (float64, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.listening {
		return 0, 0, ErrExtinguished
	}
	n, err := d.source.Latest(d.frame)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read audio frame: %w", err)
	}
	return audio.RMS(d.frame[:n]), n, nil
}

// DetectTick classifies the newest frame. A frame louder than the noise
// floor plus the offset counts as blowing and adds one nominal frame
// interval to the blow; anything else resets it. Once the blow outlasts
// RequiredBlow the candle goes out.
func (d *Detector) DetectTick() (Reading, error) {
	d.mu.Lock()
	if d.state != Detecting || !d.listening {
		err := ErrNotDetecting
		if d.state == Extinguished {
			err = ErrExtinguished
		}
		d.mu.Unlock()
		return Reading{}, err
	}

	n, err := d.source.Latest(d.frame)
	if err != nil {
		d.mu.Unlock()
		return Reading{}, fmt.Errorf("failed to read audio frame: %w", err)
	}

	rms := audio.RMS(d.frame[:n])
	r := Reading{
		RMS:        rms,
		NoiseFloor: d.noiseFloor,
		Threshold:  d.noiseFloor + d.cfg.ThresholdOffset,
		Rise:       rms - d.previousRMS,
	}
	r.Blowing = rms > r.Threshold

	if r.Blowing {
		d.blowDuration += d.cfg.FrameInterval
	} else {
		d.blowDuration = 0
	}
	r.Duration = d.blowDuration
	r.Extinguished = d.blowDuration > d.cfg.RequiredBlow
	d.previousRMS = rms
	d.mu.Unlock()

	d.notify(Detecting, func() { d.listener.Sampled(r) })
	if r.Extinguished {
		d.extinguish("blow")
	}
	return r, nil
}

// ManualExtinguish puts the candle out from any state, bypassing audio.
// It reports whether this call performed the transition.
func (d *Detector) ManualExtinguish() bool {
	return d.extinguish("manual")
}

// extinguish runs the terminal transition exactly once.
func (d *Detector) extinguish(trigger string) bool {
	d.mu.Lock()
	if d.state == Extinguished {
		d.mu.Unlock()
		return false
	}
	from := d.state
	d.state = Extinguished
	d.trigger = trigger
	d.listening = false
	d.releaseLocked()
	d.mu.Unlock()

	d.log.WithFields(logrus.Fields{"trigger": trigger, "from": from.String()}).Info("candle extinguished")
	d.notifyMu.Lock()
	d.listener.StateChanged(Extinguished)
	d.listener.Out()
	d.notifyMu.Unlock()

	if d.vibrator != nil && len(d.cfg.VibrationPattern) > 0 {
		if err := d.vibrator.Vibrate(d.cfg.VibrationPattern); err != nil {
			d.log.WithError(err).Debug("haptic pulse unavailable")
		}
	}

	d.afterFunc(d.cfg.CelebrationDelay, d.listener.Celebrate)
	return true
}

// abort stops sampling after err. Once extinguished the run simply ended,
// so ErrExtinguished is returned instead. A failure before the noise floor
// is known returns the detector to Idle so the caller may try again.
func (d *Detector) abort(err error) error {
	d.mu.Lock()
	if d.state == Extinguished {
		d.mu.Unlock()
		return ErrExtinguished
	}

	d.listening = false
	d.releaseLocked()
	reset := !d.hasFloor && d.state != Idle
	if reset {
		d.state = Idle
	}
	d.mu.Unlock()

	d.log.WithError(err).Warn("blow detection stopped")
	if reset {
		d.notify(Idle, func() { d.listener.StateChanged(Idle) })
	}
	return err
}

// notify delivers an event only while the detector is still in state.
// A concurrent extinguish either waits for it or suppresses it, so no
// stale event reaches the listener after Out.
func (d *Detector) notify(state State, event func()) {
	d.notifyMu.Lock()
	defer d.notifyMu.Unlock()
	if d.State() != state {
		return
	}
	event()
}

// releaseLocked cancels the run and closes the source once.
func (d *Detector) releaseLocked() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.ticker != nil {
		d.ticker.Stop()
	}
	if d.source != nil {
		if err := d.source.Close(); err != nil {
			d.log.WithError(err).Debug("closing audio source")
		}
		d.source = nil
	}
}
