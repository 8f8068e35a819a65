// Package ui renders the birthday card as a bubbletea program.
package ui

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/blowout/internal/celebrate"
	"github.com/linuxmatters/blowout/internal/config"
	"github.com/linuxmatters/blowout/internal/detector"
)

// Section is one reveal step of the card
type Section int

const (
	SectionIntro Section = iota
	SectionLetter
	SectionCake
)

const (
	calibrationRefresh = 100 * time.Millisecond
	confettiFrame      = 33 * time.Millisecond
	confettiHeight     = 8
)

// Actions are the side effects the card triggers. Each runs as a command,
// off the event loop. Nil actions are skipped.
type Actions struct {
	StartMic    func() error // Begin calibration and detection
	Extinguish  func()       // Manual blow out
	OnCelebrate func()       // Music, keepsake
}

// Options configures the card
type Options struct {
	To                string
	From              string
	Letter            string
	Message           string
	Debug             bool
	ManualOnly        bool
	ManualReason      string
	CalibrationWindow time.Duration
	TypingSpeed       time.Duration
	Seed              uint64
	Actions           Actions
}

// Model is the card
type Model struct {
	opts  Options
	theme theme
	rng   *rand.Rand

	// Reveal state
	revealed      Section
	typingStarted bool
	typed         int
	letter        []rune

	// Candle state
	state        detector.State
	listening    bool
	micFailed    bool // no audio path left; only the manual button remains
	micNotice    string
	calibStart   time.Time
	calibElapsed time.Duration
	calibBar     progress.Model
	flameSkew    float64
	flameScale   float64
	out          bool

	// Debug overlay
	noiseFloor    float64
	hasNoiseFloor bool
	reading       detector.Reading
	spectrum      []float64

	// Celebration
	celebrating bool
	confetti    *celebrate.Confetti

	width  int
	height int
}

// NewModel creates the card with the intro showing
func NewModel(opts Options) *Model {
	if opts.CalibrationWindow <= 0 {
		opts.CalibrationWindow = config.CalibrationWindow
	}
	if opts.TypingSpeed <= 0 {
		opts.TypingSpeed = config.TypingSpeed
	}

	m := &Model{
		opts:       opts,
		theme:      candleTheme(),
		rng:        rand.New(rand.NewPCG(opts.Seed, opts.Seed+1)),
		letter:     []rune(opts.Letter),
		flameScale: 1,
		width:      72,
		calibBar: progress.New(
			progress.WithGradient(string(flameOrange), string(flameYellow)),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		),
	}
	if opts.ManualOnly && opts.ManualReason != "" {
		m.micNotice = opts.ManualReason
	}
	return m
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Revealed returns the furthest section shown
func (m *Model) Revealed() Section {
	return m.revealed
}

// Typed returns how much of the letter has been typed out
func (m *Model) Typed() string {
	return string(m.letter[:m.typed])
}

// Out reports whether the flame is out
func (m *Model) Out() bool {
	return m.out
}

// Celebrating reports whether the celebration has started
func (m *Model) Celebrating() bool {
	return m.celebrating
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.calibBar.Width = max(min(msg.Width-20, 40), 10)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case typeTickMsg:
		if m.typed < len(m.letter) {
			m.typed++
		}
		if m.typed < len(m.letter) {
			return m, m.typeTick()
		}
		return m, nil

	case StateMsg:
		if m.out {
			return m, nil
		}
		m.state = msg.State
		switch msg.State {
		case detector.Calibrating:
			m.calibStart = msg.At
			m.calibElapsed = 0
			return m, calibrationTick()
		case detector.Idle:
			m.listening = false
		}
		return m, nil

	case calibrationTickMsg:
		if m.state != detector.Calibrating {
			return m, nil
		}
		m.calibElapsed = time.Time(msg).Sub(m.calibStart)
		return m, calibrationTick()

	case CalibratedMsg:
		m.noiseFloor = msg.NoiseFloor
		m.hasNoiseFloor = true
		return m, nil

	case ReadingMsg:
		m.reading = msg.Reading
		m.spectrum = msg.Spectrum
		if msg.Reading.Blowing {
			m.flameSkew = -10 + m.rng.Float64()*20
			m.flameScale = 0.8 + m.rng.Float64()*0.2
		} else {
			m.flameSkew = 0
			m.flameScale = 1
		}
		return m, nil

	case MicErrorMsg:
		m.listening = false
		m.micFailed = true
		if m.micNotice == "" {
			m.micNotice = fmt.Sprintf("Microphone unavailable (%v). Press x to blow out the candle.", msg.Err)
		}
		return m, nil

	case OutMsg:
		m.out = true
		m.state = detector.Extinguished
		m.listening = false
		m.flameSkew = 0
		m.flameScale = 1
		return m, nil

	case CelebrateMsg:
		if m.celebrating {
			return m, nil
		}
		m.celebrating = true
		m.theme = partyTheme()
		m.confetti = celebrate.NewConfetti(m.opts.Seed)
		cmds := []tea.Cmd{confettiTick()}
		if m.opts.Actions.OnCelebrate != nil {
			cmds = append(cmds, runAction(m.opts.Actions.OnCelebrate))
		}
		return m, tea.Batch(cmds...)

	case confettiTickMsg:
		if m.confetti == nil {
			return m, nil
		}
		m.confetti.Step(confettiFrame)
		if m.confetti.Done() {
			return m, nil
		}
		return m, confettiTick()
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit

	case "down", "j", " ", "enter":
		if m.revealed >= SectionCake {
			return m, nil
		}
		m.revealed++
		if m.revealed == SectionLetter && !m.typingStarted {
			m.typingStarted = true
			if len(m.letter) > 0 {
				return m, m.typeTick()
			}
		}
		return m, nil

	case "b":
		if m.revealed < SectionCake || m.out || m.listening || m.micFailed || m.opts.ManualOnly || m.opts.Actions.StartMic == nil {
			return m, nil
		}
		m.listening = true
		start := m.opts.Actions.StartMic
		return m, func() tea.Msg {
			if err := start(); err != nil {
				return MicErrorMsg{Err: err}
			}
			return nil
		}

	case "x":
		if m.revealed < SectionCake || m.out || m.opts.Actions.Extinguish == nil {
			return m, nil
		}
		return m, runAction(m.opts.Actions.Extinguish)
	}

	return m, nil
}

func runAction(action func()) tea.Cmd {
	return func() tea.Msg {
		action()
		return nil
	}
}

func (m *Model) typeTick() tea.Cmd {
	return tea.Tick(m.opts.TypingSpeed, func(time.Time) tea.Msg {
		return typeTickMsg{}
	})
}

func calibrationTick() tea.Cmd {
	return tea.Tick(calibrationRefresh, func(t time.Time) tea.Msg {
		return calibrationTickMsg(t)
	})
}

func confettiTick() tea.Cmd {
	return tea.Tick(confettiFrame, func(time.Time) tea.Msg {
		return confettiTickMsg{}
	})
}

// View renders the card
func (m *Model) View() string {
	var s strings.Builder

	if m.celebrating && m.confetti != nil {
		s.WriteString(m.confetti.Render(max(m.width-2, 10), confettiHeight))
		s.WriteString("\n")
	}

	var card strings.Builder
	m.renderIntro(&card)
	if m.revealed >= SectionLetter {
		card.WriteString("\n\n")
		m.renderLetter(&card)
	}
	if m.revealed >= SectionCake {
		card.WriteString("\n\n")
		m.renderCake(&card)
	}
	s.WriteString(m.theme.border.Render(card.String()))
	s.WriteString("\n")

	if m.opts.Debug && m.revealed >= SectionCake && !m.out {
		s.WriteString(m.renderDebug())
		s.WriteString("\n")
	}

	if m.revealed < SectionCake {
		s.WriteString(m.theme.muted.Render("↓ / space to open • q to quit"))
	} else {
		s.WriteString(m.theme.muted.Render("q to quit"))
	}
	return s.String()
}

func (m *Model) renderIntro(s *strings.Builder) {
	to := m.opts.To
	if to == "" {
		to = "you"
	}
	s.WriteString(m.theme.title.Render(fmt.Sprintf("🎂 Happy Birthday, %s!", to)))
	if m.opts.From != "" {
		s.WriteString("\n")
		s.WriteString(m.theme.muted.Render("A card from " + m.opts.From))
	}
}

func (m *Model) renderLetter(s *strings.Builder) {
	s.WriteString(m.theme.body.Render(m.Typed()))
	if m.typed < len(m.letter) {
		s.WriteString(m.theme.accent.Render("▌"))
	}
}

// flameLines returns the flame glyphs for the current jitter. Skew shifts
// the flame sideways by up to two columns; a low scale shortens it.
func (m *Model) flameLines() []string {
	if m.out {
		return []string{" ~ ", "  ~"}
	}
	lines := []string{" ( ", "(_)"}
	if m.flameScale >= 0.9 {
		lines = append([]string{" , "}, lines...)
	}
	shift := int(math.Round(m.flameSkew / 5))
	for i, line := range lines {
		pad := 2 + shift
		lines[i] = strings.Repeat(" ", pad) + line
	}
	return lines
}

func (m *Model) renderCake(s *strings.Builder) {
	const indent = "        "

	for _, line := range m.flameLines() {
		s.WriteString(indent)
		s.WriteString(m.theme.flame.Render(line))
		s.WriteString("\n")
	}
	s.WriteString(indent + m.theme.candle.Render("   |"))
	s.WriteString("\n")
	s.WriteString(m.theme.cake.Render("    .-----|-----."))
	s.WriteString("\n")
	s.WriteString(m.theme.cake.Render("    | ~ ~ ~ ~ ~ |"))
	s.WriteString("\n")
	s.WriteString(m.theme.cake.Render("  .-'-----------'-."))
	s.WriteString("\n")
	s.WriteString(m.theme.cake.Render("  |  *  *  *  *  * |"))
	s.WriteString("\n")
	s.WriteString(m.theme.cake.Render("  '-----------------'"))
	s.WriteString("\n\n")
	s.WriteString(m.renderStatus())
}

func (m *Model) renderStatus() string {
	if m.celebrating {
		message := m.opts.Message
		if message == "" {
			message = config.DefaultMessage
		}
		return m.theme.title.Render("🎉 "+message) + "\n" + m.theme.muted.Render("Your wish is on its way ✨")
	}
	if m.out {
		return m.theme.accent.Render("Your wish is on its way ✨")
	}

	var s strings.Builder
	if m.micNotice != "" {
		s.WriteString(m.theme.muted.Render(m.micNotice))
		s.WriteString("\n")
	}

	if m.micFailed || m.opts.ManualOnly {
		s.WriteString(m.theme.accent.Render("Press x to blow out the candle"))
		return s.String()
	}

	switch m.state {
	case detector.Calibrating:
		ratio := float64(m.calibElapsed) / float64(m.opts.CalibrationWindow)
		s.WriteString(m.theme.accent.Render(fmt.Sprintf("Calibrating... keep quiet for %s", formatDuration(m.opts.CalibrationWindow))))
		s.WriteString("\n")
		s.WriteString(m.calibBar.ViewAs(min(max(ratio, 0), 1)))
	case detector.Detecting:
		s.WriteString(m.theme.accent.Render("Make a wish and blow! 🌬️"))
		s.WriteString("  ")
		s.WriteString(m.theme.muted.Render("(or press x)"))
	default:
		s.WriteString(m.theme.accent.Render("Press b to blow with your microphone, or x to blow by hand"))
	}
	return s.String()
}

func (m *Model) renderDebug() string {
	var s strings.Builder

	floor := "n/a"
	if m.hasNoiseFloor {
		floor = fmt.Sprintf("%.4f", m.noiseFloor)
	}
	status := "quiet"
	if m.reading.Blowing {
		status = "BLOWING"
	}

	fmt.Fprintf(&s, "RMS %.4f  floor %s  threshold %.4f  rise %+.4f  blow %s  %s  [%s]",
		m.reading.RMS, floor, m.reading.Threshold, m.reading.Rise,
		formatDuration(m.reading.Duration), status, m.state)

	if line := renderSpectrum(m.spectrum, max(m.width-4, 8)); line != "" {
		s.WriteString("\n")
		s.WriteString(line)
	}
	return m.theme.muted.Render(s.String())
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
