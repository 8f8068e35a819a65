package detector

import "time"

// Listener receives detector events. Calls are made from the sampling
// goroutine (or the caller of ManualExtinguish), one at a time. They must
// not block for long and must not call back into the Detector.
type Listener interface {
	// StateChanged reports every state transition.
	StateChanged(State)

	// Calibrated reports the measured noise floor.
	Calibrated(noiseFloor float64)

	// Sampled reports the outcome of every detection tick.
	Sampled(Reading)

	// Out reports that the flame has gone out. Sent exactly once.
	Out()

	// Celebrate fires once, CelebrationDelay after Out.
	Celebrate()
}

// Vibrator is the haptic collaborator. A nil Vibrator is ignored.
type Vibrator interface {
	Vibrate(pattern []time.Duration) error
}

// NopListener ignores every event.
type NopListener struct{}

func (NopListener) StateChanged(State) {}
func (NopListener) Calibrated(float64) {}
func (NopListener) Sampled(Reading)    {}
func (NopListener) Out()               {}
func (NopListener) Celebrate()         {}
