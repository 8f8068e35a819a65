package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const (
	appTitle       = "Blowout 🎂"
	appDescription = "A birthday card for your terminal. Make a wish and blow out the candle into your microphone."
)

// Color palette
var (
	primaryColor   = lipgloss.Color("#F8B31D") // Frosting gold
	accentColor    = lipgloss.Color("#FF8C00") // Flame orange
	successColor   = lipgloss.Color("#88FF5A") // Party green
	errorColor     = lipgloss.Color("#FF4500") // Orange-red
	mutedColor     = lipgloss.Color("#888888") // Gray
	highlightColor = lipgloss.Color("#FFD700") // Yellow
	textColor      = lipgloss.Color("#FFFFFF") // White
)

// Styles
var (
	// Title style - bold gold with cake emoji
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// Subtitle style - muted gray
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	// Section header style
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			MarginTop(1).
			MarginBottom(1)

	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(successColor)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)

	// Highlight style for important values
	HighlightStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(highlightColor)

	// Key-value pair styles
	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	// Box style for framed content
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 2).
			MarginTop(1).
			MarginBottom(1)
)

// PrintVersion prints version information
func PrintVersion(version string) {
	fmt.Println(TitleStyle.Render(appTitle))
	fmt.Printf("%s %s\n", KeyStyle.Render("Version:"), ValueStyle.Render(version))
	fmt.Println()
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("%s %s\n", HighlightStyle.Render("Warning:"), message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("%s %s\n", SuccessStyle.Render("✓"), message)
}

// FormatDuration formats a duration nicely
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.0fms", d.Seconds()*1000)
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// Summary is what happened to the candle, printed once the card closes
type Summary struct {
	To         string
	Trigger    string // "blow", "manual" or empty when the card was closed early
	NoiseFloor float64
	Calibrated bool
	Elapsed    time.Duration
	Keepsake   string
}

// FormatSummary renders the summary box contents
func FormatSummary(s Summary) string {
	var b strings.Builder

	if s.Trigger == "" {
		b.WriteString(HighlightStyle.Render("The candle is still burning 🕯️"))
	} else {
		b.WriteString(SuccessStyle.Render("✓ Candle blown out!"))
	}
	b.WriteString("\n\n")

	if s.To != "" {
		b.WriteString(KeyStyle.Render("For:         "))
		b.WriteString(ValueStyle.Render(s.To))
		b.WriteString("\n")
	}

	if s.Trigger != "" {
		how := "by breath"
		if s.Trigger == "manual" {
			how = "by hand"
		}
		b.WriteString(KeyStyle.Render("Blown out:   "))
		b.WriteString(ValueStyle.Render(how))
		b.WriteString("\n")
	}

	if s.Calibrated {
		b.WriteString(KeyStyle.Render("Noise floor: "))
		b.WriteString(ValueStyle.Render(fmt.Sprintf("%.4f RMS", s.NoiseFloor)))
		b.WriteString("\n")
	}

	b.WriteString(KeyStyle.Render("Card open:   "))
	b.WriteString(ValueStyle.Render(FormatDuration(s.Elapsed)))

	if s.Keepsake != "" {
		b.WriteString("\n")
		b.WriteString(KeyStyle.Render("Keepsake:    "))
		b.WriteString(ValueStyle.Render(s.Keepsake))
	}

	return b.String()
}

// PrintSummary prints the summary in a box
func PrintSummary(s Summary) {
	fmt.Println(BoxStyle.Render(FormatSummary(s)))
}
