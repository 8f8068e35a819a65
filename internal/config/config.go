package config

import "time"

// Detector tuning
const (
	ThresholdOffset   = 0.15                   // Added to the noise floor to form the blow threshold
	RequiredBlow      = 500 * time.Millisecond // Sustained blow needed to put the flame out
	FrameInterval     = 16 * time.Millisecond  // Nominal frame time credited per blowing frame
	FrameRate         = 60                     // Sampling cadence (frames per second)
	CalibrationWindow = 2 * time.Second        // Quiet window used to measure the noise floor
	FrameSize         = 1024                   // Samples per analysed frame (fftSize 2048 / 2)
)

// Audio capture settings
const (
	CaptureSampleRate = 48000
	CaptureChannels   = 1
	RingSeconds       = 2 // Seconds of live audio retained for frame reads
)

// Celebration settings
const (
	CelebrationDelay      = 500 * time.Millisecond // Flame out to celebration
	ConfettiDuration      = 5 * time.Second
	ConfettiInterval      = 250 * time.Millisecond
	ConfettiParticles     = 50  // Particles per origin at the start of the show
	ConfettiStartVelocity = 30  // Launch speed in canvas pixels per tick
	ConfettiSpread        = 360 // Launch spread in degrees
	ConfettiTicks         = 60  // Particle lifetime in ticks
	ConfettiDecay         = 0.9
	ConfettiGravity       = 1.0
	ConfettiCanvas        = 600.0 // Canvas pixels mapped onto one unit of card space
	MusicVolume           = 0.5
	TypingSpeed           = 50 * time.Millisecond
)

// VibrationPattern alternates on and off segments, starting with on.
var VibrationPattern = []time.Duration{
	100 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
}

// Keepsake card layout
const (
	KeepsakeWidth  = 1280
	KeepsakeHeight = 720
	KeepsakeMargin = 40 // Margin in pixels from the card edges

	KeepsakeTiltDegrees = 3.0 // Clockwise tilt of the greeting

	// Brand yellow #F8B31D - greeting text
	TextColorR = 248
	TextColorG = 179
	TextColorB = 29

	// Deep plum background #2B1B3D
	BackgroundColorR = 43
	BackgroundColorG = 27
	BackgroundColorB = 61
)

// DefaultLetter is typed out when the settings file does not provide one.
const DefaultLetter = `Today is your day.
Every conversation with you makes the world feel a little smaller and a lot warmer.

For the year ahead I wish you:
Laughter that catches you by surprise...
People who love you exactly as you are...

Now make a wish and blow out the candle.`

// DefaultMessage is revealed once the candle is out.
const DefaultMessage = "Happy Birthday! May every wish come true."
