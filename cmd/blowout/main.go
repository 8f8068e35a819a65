package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/blowout/internal/audio"
	"github.com/linuxmatters/blowout/internal/celebrate"
	"github.com/linuxmatters/blowout/internal/cli"
	"github.com/linuxmatters/blowout/internal/config"
	"github.com/linuxmatters/blowout/internal/detector"
	"github.com/linuxmatters/blowout/internal/ui"
	"github.com/sirupsen/logrus"
)

// version is set via ldflags at build time
// Local dev builds: "dev"
// Release builds: git tag (e.g. "v0.1.0")
var version = "dev"

var CLI struct {
	Recording   string        `arg:"" name:"recording" help:"Replay a WAV, MP3 or FLAC recording instead of the microphone" optional:""`
	To          string        `help:"Who the card is for"`
	From        string        `help:"Who the card is from"`
	Config      string        `help:"YAML settings file" placeholder:"card.yaml"`
	Song        string        `help:"Song to play when the candle goes out" placeholder:"song.mp3"`
	Device      string        `help:"Capture device (arecord -D on Linux, ffmpeg input elsewhere)"`
	Loop        bool          `help:"Loop the recording"`
	ManualOnly  bool          `help:"Skip the microphone; blow the candle out with x"`
	Offset      float64       `help:"Level above the noise floor that counts as blowing (RMS, 0-1)"`
	Required    time.Duration `help:"How long a blow must last"`
	Calibration time.Duration `help:"How long to measure the noise floor"`
	Debug       bool          `help:"Show the detector overlay"`
	LogFile     string        `help:"Write a debug log to this file" placeholder:"blowout.log"`
	Keepsake    string        `help:"Save a PNG keepsake card after the celebration" placeholder:"card.png"`
	NoBell      bool          `help:"Do not ring the terminal bell when the candle goes out"`
	Version     bool          `help:"Show version information"`
}

func main() {
	kong.Parse(&CLI,
		kong.Name("blowout"),
		kong.Description("A birthday card for your terminal."),
		kong.Vars{"version": version},
		kong.UsageOnError(),
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if CLI.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	if CLI.Recording != "" {
		if _, err := os.Stat(CLI.Recording); os.IsNotExist(err) {
			cli.PrintError(fmt.Sprintf("recording does not exist: %s", CLI.Recording))
			os.Exit(1)
		}
	}

	settings, err := loadSettings()
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}

	log, closeLog, err := newLogger(CLI.LogFile, CLI.Debug)
	if err != nil {
		cli.PrintError(fmt.Sprintf("opening log file: %v", err))
		os.Exit(1)
	}
	defer closeLog()

	summary, err := runCard(settings, log)
	if err != nil {
		cli.PrintError(fmt.Sprintf("running card: %v", err))
		os.Exit(1)
	}
	cli.PrintSummary(summary)
}

// loadSettings reads the settings file and layers the command line on top
func loadSettings() (config.Settings, error) {
	settings, err := config.Load(CLI.Config)
	if err != nil {
		return settings, err
	}

	if CLI.To != "" {
		settings.Recipient = CLI.To
	}
	if CLI.From != "" {
		settings.Sender = CLI.From
	}
	if CLI.Song != "" {
		settings.Song = CLI.Song
	}
	if CLI.Device != "" {
		settings.Device = CLI.Device
	}
	if CLI.Offset != 0 {
		settings.Detector.ThresholdOffset = CLI.Offset
	}
	if CLI.Required != 0 {
		settings.Detector.RequiredBlow = CLI.Required
	}
	if CLI.Calibration != 0 {
		settings.Detector.CalibrationWindow = CLI.Calibration
	}

	return settings, settings.Validate()
}

// newLogger writes to path, or nowhere: the terminal belongs to the card
func newLogger(path string, debug bool) (*logrus.Logger, func(), error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetLevel(logrus.InfoLevel)
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}

	if path == "" {
		log.SetOutput(io.Discard)
		return log, func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	log.SetOutput(f)
	return log, func() { f.Close() }, nil
}

func runCard(settings config.Settings, log *logrus.Logger) (cli.Summary, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &session{
		ctx:       ctx,
		settings:  settings,
		recording: CLI.Recording,
		loop:      CLI.Loop,
		keepsake:  CLI.Keepsake,
		log:       log,
		player:    celebrate.NewPlayer(config.MusicVolume, log),
	}

	manualOnly := CLI.ManualOnly
	reason := ""
	if !manualOnly && s.recording == "" {
		if _, _, err := audio.BuildCaptureCommand(settings.Device, config.CaptureSampleRate); err != nil {
			manualOnly = true
			reason = fmt.Sprintf("No microphone available (%v). Press x to blow out the candle.", err)
			log.WithError(err).Warn("falling back to manual mode")
		}
	}

	letter := settings.Letter
	if letter == "" {
		letter = config.DefaultLetter
	}

	model := ui.NewModel(ui.Options{
		To:                settings.Recipient,
		From:              settings.Sender,
		Letter:            letter,
		Message:           settings.Message,
		Debug:             CLI.Debug,
		ManualOnly:        manualOnly,
		ManualReason:      reason,
		CalibrationWindow: settings.Detector.CalibrationWindow,
		Seed:              uint64(time.Now().UnixNano()),
		Actions: ui.Actions{
			StartMic:    s.startMic,
			Extinguish:  s.extinguish,
			OnCelebrate: s.celebrate,
		},
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	s.program = p

	var spectrum func() []float64
	if CLI.Debug {
		spectrum = s.spectrum
	}

	opts := []detector.Option{
		detector.WithListener(ui.NewProgramSink(p, spectrum)),
		detector.WithLogger(log),
	}
	if !CLI.NoBell {
		opts = append(opts, detector.WithVibrator(celebrate.NewBell(os.Stdout, log)))
	}
	s.det = detector.New(detector.ConfigFromSettings(settings.Detector), opts...)

	start := time.Now()
	log.WithFields(logrus.Fields{
		"recipient": settings.Recipient,
		"recording": s.recording,
		"manual":    manualOnly,
	}).Info("card opened")

	_, runErr := p.Run()

	cancel()
	s.wait()
	s.player.Stop()

	floor, calibrated := s.det.NoiseFloor()
	summary := cli.Summary{
		To:         settings.Recipient,
		Trigger:    s.det.Trigger(),
		NoiseFloor: floor,
		Calibrated: calibrated,
		Elapsed:    time.Since(start),
		Keepsake:   s.savedKeepsake(),
	}
	log.WithField("trigger", summary.Trigger).Info("card closed")

	if runErr != nil && ctx.Err() == nil {
		return summary, runErr
	}
	return summary, nil
}
