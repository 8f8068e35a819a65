package detector

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// scriptedSource returns frames of constant amplitude, one script entry per
// read. A negative entry yields an empty frame. Past the end of the script
// the last entry repeats.
type scriptedSource struct {
	mu     sync.Mutex
	script []float64
	reads  int
	closes int
}

func (s *scriptedSource) Latest(dst []float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := 0.0
	if len(s.script) > 0 {
		v = s.script[min(s.reads, len(s.script)-1)]
	}
	s.reads++
	if v < 0 {
		return 0, nil
	}
	for i := range dst {
		dst[i] = v
	}
	return len(dst), nil
}

func (s *scriptedSource) SampleRate() int { return 48000 }

func (s *scriptedSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *scriptedSource) counts() (reads, closes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads, s.closes
}

var errTicksExhausted = errors.New("ticks exhausted")

// stepTicker advances a virtual clock one frame interval per Next and
// gives up after limit ticks.
type stepTicker struct {
	now    time.Time
	step   time.Duration
	ticks  int
	limit  int
	onTick func(n int)
}

func newStepTicker(limit int) *stepTicker {
	return &stepTicker{
		now:   time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		step:  16 * time.Millisecond,
		limit: limit,
	}
}

func (t *stepTicker) Next(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	if t.ticks > 0 {
		t.now = t.now.Add(t.step)
	}
	t.ticks++
	if t.onTick != nil {
		t.onTick(t.ticks)
		if err := ctx.Err(); err != nil {
			return time.Time{}, err
		}
	}
	if t.limit > 0 && t.ticks > t.limit {
		return time.Time{}, errTicksExhausted
	}
	return t.now, nil
}

func (t *stepTicker) Stop() {}

type recorder struct {
	mu         sync.Mutex
	states     []State
	floors     []float64
	readings   []Reading
	outs       int
	celebrates int
}

func (r *recorder) StateChanged(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) Calibrated(floor float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.floors = append(r.floors, floor)
}

func (r *recorder) Sampled(reading Reading) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readings = append(r.readings, reading)
}

func (r *recorder) Out() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outs++
}

func (r *recorder) Celebrate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.celebrates++
}

type fakeVibrator struct {
	patterns [][]time.Duration
}

func (v *fakeVibrator) Vibrate(pattern []time.Duration) error {
	v.patterns = append(v.patterns, pattern)
	return nil
}

// testConfig calibrates over ten 16ms frames.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.CalibrationWindow = 160 * time.Millisecond
	cfg.FrameSize = 64
	return cfg
}

type harness struct {
	det    *Detector
	ticker *stepTicker
	rec    *recorder
	delays []time.Duration
}

func newHarness(cfg Config, limit int, opts ...Option) *harness {
	h := &harness{ticker: newStepTicker(limit), rec: &recorder{}}
	base := []Option{
		WithListener(h.rec),
		WithTicker(func() Ticker { return h.ticker }),
		WithAfterFunc(func(d time.Duration, f func()) {
			h.delays = append(h.delays, d)
			f()
		}),
	}
	h.det = New(cfg, append(base, opts...)...)
	return h
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCalibrationAveragesFrameLevels(t *testing.T) {
	h := newHarness(testConfig(), 0)
	src := &scriptedSource{script: []float64{0.01, 0.03, 0.01, 0.03, 0.01, 0.03, 0.01, 0.03, 0.01, 0.03}}

	floor, err := h.det.Calibrate(context.Background(), src)
	if err != nil {
		t.Fatalf("Calibrate returned error: %v", err)
	}
	if !approx(floor, 0.02) {
		t.Errorf("noise floor = %v, want 0.02", floor)
	}
	if reads, _ := src.counts(); reads != 10 {
		t.Errorf("calibration read %d frames, want 10", reads)
	}
	if got := h.det.State(); got != Detecting {
		t.Errorf("state = %v, want detecting", got)
	}
	if nf, ok := h.det.NoiseFloor(); !ok || !approx(nf, 0.02) {
		t.Errorf("NoiseFloor() = %v, %v", nf, ok)
	}
}

func TestCalibrationOfConstantLevel(t *testing.T) {
	for _, v := range []float64{0, 0.05, 0.3} {
		h := newHarness(testConfig(), 0)
		floor, err := h.det.Calibrate(context.Background(), &scriptedSource{script: []float64{v}})
		if err != nil {
			t.Fatalf("Calibrate(%v) returned error: %v", v, err)
		}
		if !approx(floor, v) {
			t.Errorf("noise floor of constant %v = %v", v, floor)
		}
	}
}

func TestCalibrationSkipsEmptyFrames(t *testing.T) {
	h := newHarness(testConfig(), 0)
	src := &scriptedSource{script: []float64{-1, 0.04, -1, 0.02, -1, -1, -1, -1, -1, -1}}

	floor, err := h.det.Calibrate(context.Background(), src)
	if err != nil {
		t.Fatalf("Calibrate returned error: %v", err)
	}
	if !approx(floor, 0.03) {
		t.Errorf("noise floor = %v, want 0.03", floor)
	}
}

func TestCalibrationWithoutInput(t *testing.T) {
	h := newHarness(testConfig(), 0)
	src := &scriptedSource{script: []float64{-1}}

	err := h.det.Run(context.Background(), src)
	if !errors.Is(err, ErrNoInput) {
		t.Fatalf("Run error = %v, want ErrNoInput", err)
	}
	if got := h.det.State(); got != Idle {
		t.Errorf("state = %v, want idle", got)
	}
	if _, ok := h.det.NoiseFloor(); ok {
		t.Error("noise floor should be unset")
	}
	if _, closes := src.counts(); closes != 1 {
		t.Errorf("source closed %d times, want 1", closes)
	}

	// The manual button still works
	if !h.det.ManualExtinguish() {
		t.Error("ManualExtinguish should succeed after a failed calibration")
	}
}

func TestRunWithoutSource(t *testing.T) {
	h := newHarness(testConfig(), 0)

	if err := h.det.Run(context.Background(), nil); !errors.Is(err, ErrNoSource) {
		t.Fatalf("Run(nil) error = %v, want ErrNoSource", err)
	}
	if got := h.det.State(); got != Idle {
		t.Errorf("state = %v, want idle", got)
	}
}

func TestDetectTickBeforeCalibration(t *testing.T) {
	h := newHarness(testConfig(), 0)

	if _, err := h.det.DetectTick(); !errors.Is(err, ErrNotDetecting) {
		t.Errorf("DetectTick error = %v, want ErrNotDetecting", err)
	}
}

func TestSustainedBlowExtinguishes(t *testing.T) {
	vib := &fakeVibrator{}
	h := newHarness(testConfig(), 0, WithVibrator(vib))
	src := &scriptedSource{script: append(repeat(0.02, 10), 0.20)}

	if err := h.det.Run(context.Background(), src); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(h.rec.floors) != 1 || !approx(h.rec.floors[0], 0.02) {
		t.Fatalf("calibrated floors = %v, want [0.02]", h.rec.floors)
	}
	if len(h.rec.readings) != 32 {
		t.Fatalf("detection ticks = %d, want 32", len(h.rec.readings))
	}

	first := h.rec.readings[0]
	if !approx(first.Threshold, 0.17) {
		t.Errorf("threshold = %v, want 0.17", first.Threshold)
	}
	if !first.Blowing || first.Duration != 16*time.Millisecond {
		t.Errorf("first reading = %+v", first)
	}

	if h.rec.readings[30].Extinguished {
		t.Error("tick 31 (496ms) must not extinguish")
	}
	last := h.rec.readings[31]
	if !last.Extinguished || last.Duration != 512*time.Millisecond {
		t.Errorf("tick 32 = %+v, want extinguished at 512ms", last)
	}

	if got := h.det.State(); got != Extinguished {
		t.Errorf("state = %v, want extinguished", got)
	}
	if got := h.det.Trigger(); got != "blow" {
		t.Errorf("trigger = %q, want blow", got)
	}
	if h.rec.outs != 1 || h.rec.celebrates != 1 {
		t.Errorf("outs = %d celebrates = %d, want 1 each", h.rec.outs, h.rec.celebrates)
	}
	if len(h.delays) != 1 || h.delays[0] != 500*time.Millisecond {
		t.Errorf("celebration delays = %v, want [500ms]", h.delays)
	}
	if len(vib.patterns) != 1 || len(vib.patterns[0]) != 3 {
		t.Errorf("vibration patterns = %v", vib.patterns)
	}
	if _, closes := src.counts(); closes != 1 {
		t.Errorf("source closed %d times, want 1", closes)
	}

	want := []State{Calibrating, Detecting, Extinguished}
	if len(h.rec.states) != len(want) {
		t.Fatalf("states = %v, want %v", h.rec.states, want)
	}
	for i := range want {
		if h.rec.states[i] != want[i] {
			t.Errorf("states[%d] = %v, want %v", i, h.rec.states[i], want[i])
		}
	}
}

func TestAlternatingFramesNeverExtinguish(t *testing.T) {
	script := repeat(0.02, 10)
	for i := 0; i < 200; i++ {
		script = append(script, []float64{0.20, 0.05}[i%2])
	}

	h := newHarness(testConfig(), 220)
	src := &scriptedSource{script: script}

	err := h.det.Run(context.Background(), src)
	if !errors.Is(err, errTicksExhausted) {
		t.Fatalf("Run error = %v, want ticks exhausted", err)
	}
	if h.rec.outs != 0 {
		t.Error("alternating frames extinguished the candle")
	}
	for i, r := range h.rec.readings {
		if r.Duration > 16*time.Millisecond {
			t.Fatalf("reading %d duration = %v, want at most one frame", i, r.Duration)
		}
	}
	if got := h.det.State(); got != Detecting {
		t.Errorf("state = %v, want detecting", got)
	}
	if _, closes := src.counts(); closes != 1 {
		t.Errorf("source closed %d times, want 1", closes)
	}
}

func TestBlowDurationResetsOnQuietFrame(t *testing.T) {
	h := newHarness(testConfig(), 0)
	src := &scriptedSource{script: append(repeat(0.0, 10), 0.5, 0.5, 0.5, 0.01, 0.5)}

	if _, err := h.det.Calibrate(context.Background(), src); err != nil {
		t.Fatalf("Calibrate returned error: %v", err)
	}

	want := []time.Duration{16, 32, 48, 0, 16}
	var prev time.Duration
	for i, w := range want {
		r, err := h.det.DetectTick()
		if err != nil {
			t.Fatalf("DetectTick %d returned error: %v", i, err)
		}
		if r.Duration != w*time.Millisecond {
			t.Errorf("tick %d duration = %v, want %v", i, r.Duration, w*time.Millisecond)
		}
		if r.Blowing && r.Duration < prev {
			t.Errorf("tick %d duration decreased while blowing", i)
		}
		prev = r.Duration
	}

	if !approx(h.rec.readings[1].Rise, 0) || !approx(h.rec.readings[3].Rise, 0.01-0.5) {
		t.Errorf("rise values = %v, %v", h.rec.readings[1].Rise, h.rec.readings[3].Rise)
	}
}

func TestLevelAtThresholdIsNotBlowing(t *testing.T) {
	cfg := testConfig()
	cfg.ThresholdOffset = 0.25
	h := newHarness(cfg, 0)
	src := &scriptedSource{script: append(repeat(0.0, 10), 0.25)}

	if _, err := h.det.Calibrate(context.Background(), src); err != nil {
		t.Fatalf("Calibrate returned error: %v", err)
	}
	r, err := h.det.DetectTick()
	if err != nil {
		t.Fatalf("DetectTick returned error: %v", err)
	}
	if r.Blowing {
		t.Errorf("level equal to threshold counted as blowing: %+v", r)
	}
}

func TestManualExtinguishDuringCalibration(t *testing.T) {
	h := newHarness(testConfig(), 0)
	src := &scriptedSource{script: []float64{0.02}}

	h.ticker.onTick = func(n int) {
		if n == 4 {
			h.det.ManualExtinguish()
		}
	}

	if err := h.det.Run(context.Background(), src); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	reads, closes := src.counts()
	if reads != 3 {
		t.Errorf("source read %d times, want 3", reads)
	}
	if closes != 1 {
		t.Errorf("source closed %d times, want 1", closes)
	}
	if len(h.rec.floors) != 0 {
		t.Error("calibration should not complete after a manual extinguish")
	}
	if h.rec.outs != 1 || h.rec.celebrates != 1 {
		t.Errorf("outs = %d celebrates = %d, want 1 each", h.rec.outs, h.rec.celebrates)
	}
	if got := h.det.State(); got != Extinguished {
		t.Errorf("state = %v, want extinguished", got)
	}
}

// messageHook runs fire whenever an entry with message is logged.
type messageHook struct {
	message string
	fire    func()
}

func (h *messageHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *messageHook) Fire(e *logrus.Entry) error {
	if e.Message == h.message {
		h.fire()
	}
	return nil
}

func TestManualExtinguishAsCalibrationCompletes(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	h := newHarness(testConfig(), 0, WithLogger(log))
	log.AddHook(&messageHook{
		message: "calibration complete",
		fire:    func() { h.det.ManualExtinguish() },
	})
	src := &scriptedSource{script: []float64{0.02}}

	if err := h.det.Run(context.Background(), src); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	want := []State{Calibrating, Extinguished}
	if len(h.rec.states) != len(want) {
		t.Fatalf("states = %v, want %v", h.rec.states, want)
	}
	for i := range want {
		if h.rec.states[i] != want[i] {
			t.Fatalf("states = %v, want %v", h.rec.states, want)
		}
	}
	if len(h.rec.floors) != 0 {
		t.Errorf("noise floor reported after the candle went out: %v", h.rec.floors)
	}
	if len(h.rec.readings) != 0 {
		t.Errorf("got %d readings after the candle went out", len(h.rec.readings))
	}
	if h.rec.outs != 1 || h.rec.celebrates != 1 {
		t.Errorf("outs = %d celebrates = %d, want 1 each", h.rec.outs, h.rec.celebrates)
	}
	if got := h.det.Trigger(); got != "manual" {
		t.Errorf("trigger = %q, want manual", got)
	}
	if _, closes := src.counts(); closes != 1 {
		t.Errorf("source closed %d times, want 1", closes)
	}
}

func TestManualAndAutomaticExtinguishOnce(t *testing.T) {
	h := newHarness(testConfig(), 0)
	src := &scriptedSource{script: append(repeat(0.0, 10), 0.9)}

	if err := h.det.Run(context.Background(), src); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if h.det.ManualExtinguish() {
		t.Error("ManualExtinguish after automatic extinguish should be a no-op")
	}
	if h.det.ManualExtinguish() {
		t.Error("repeated ManualExtinguish should be a no-op")
	}

	if h.rec.outs != 1 || h.rec.celebrates != 1 {
		t.Errorf("outs = %d celebrates = %d, want 1 each", h.rec.outs, h.rec.celebrates)
	}
	if _, closes := src.counts(); closes != 1 {
		t.Errorf("source closed %d times, want 1", closes)
	}
	if _, err := h.det.DetectTick(); !errors.Is(err, ErrExtinguished) {
		t.Errorf("DetectTick after extinguish = %v, want ErrExtinguished", err)
	}
}

func TestManualExtinguishWhileIdle(t *testing.T) {
	h := newHarness(testConfig(), 0)

	if !h.det.ManualExtinguish() {
		t.Fatal("ManualExtinguish from idle should succeed")
	}
	if got := h.det.Trigger(); got != "manual" {
		t.Errorf("trigger = %q, want manual", got)
	}

	src := &scriptedSource{script: []float64{0.5}}
	if err := h.det.Run(context.Background(), src); err != nil {
		t.Errorf("Run after extinguish = %v, want nil", err)
	}
	if reads, closes := src.counts(); reads != 0 || closes != 1 {
		t.Errorf("late source reads = %d closes = %d, want 0 and 1", reads, closes)
	}
	if h.rec.outs != 1 {
		t.Errorf("outs = %d, want 1", h.rec.outs)
	}
}

func TestConcurrentManualExtinguish(t *testing.T) {
	h := newHarness(testConfig(), 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if h.det.ManualExtinguish() {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("%d callers performed the transition, want 1", wins)
	}
	if h.rec.outs != 1 {
		t.Errorf("outs = %d, want 1", h.rec.outs)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(testConfig(), 0)
	ctx, cancel := context.WithCancel(context.Background())
	h.ticker.onTick = func(n int) {
		if n == 20 {
			cancel()
		}
	}
	src := &scriptedSource{script: []float64{0.01}}

	err := h.det.Run(ctx, src)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if _, closes := src.counts(); closes != 1 {
		t.Errorf("source closed %d times, want 1", closes)
	}
	if h.rec.outs != 0 {
		t.Error("cancellation must not extinguish the candle")
	}
	if got := h.det.State(); got != Detecting {
		t.Errorf("state = %v, want detecting", got)
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		Idle:         "idle",
		Calibrating:  "calibrating",
		Detecting:    "detecting",
		Extinguished: "extinguished",
		State(9):     "state(9)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
