package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Candlelight palette, used until the candle is out 🕯️
var (
	flameYellow = lipgloss.Color("#FFD700") // Flame tip
	flameOrange = lipgloss.Color("#FF8C00") // Flame body
	waxPink     = lipgloss.Color("#FFB6C1") // Candle
	frosting    = lipgloss.Color("#F8B31D") // Cake and headings
	nightPlum   = lipgloss.Color("#2B1B3D") // Card border
	smokeGray   = lipgloss.Color("#888888") // Smoke and muted text
)

// Party palette, switched in for the celebration 🎉
var (
	partyPink   = lipgloss.Color("#FF5E7E")
	partyBlue   = lipgloss.Color("#26CCFF")
	partyPurple = lipgloss.Color("#A25AFD")
	partyGreen  = lipgloss.Color("#88FF5A")
)

// theme is the set of styles the card renders with
type theme struct {
	title  lipgloss.Style
	body   lipgloss.Style
	muted  lipgloss.Style
	accent lipgloss.Style
	flame  lipgloss.Style
	candle lipgloss.Style
	cake   lipgloss.Style
	border lipgloss.Style
}

func candleTheme() theme {
	return theme{
		title:  lipgloss.NewStyle().Bold(true).Foreground(frosting),
		body:   lipgloss.NewStyle(),
		muted:  lipgloss.NewStyle().Foreground(smokeGray).Italic(true),
		accent: lipgloss.NewStyle().Bold(true).Foreground(flameOrange),
		flame:  lipgloss.NewStyle().Bold(true).Foreground(flameYellow),
		candle: lipgloss.NewStyle().Foreground(waxPink),
		cake:   lipgloss.NewStyle().Foreground(frosting),
		border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(nightPlum).
			Padding(1, 3),
	}
}

func partyTheme() theme {
	return theme{
		title:  lipgloss.NewStyle().Bold(true).Foreground(partyPink),
		body:   lipgloss.NewStyle(),
		muted:  lipgloss.NewStyle().Foreground(partyBlue).Italic(true),
		accent: lipgloss.NewStyle().Bold(true).Foreground(partyGreen),
		flame:  lipgloss.NewStyle().Foreground(smokeGray),
		candle: lipgloss.NewStyle().Foreground(waxPink),
		cake:   lipgloss.NewStyle().Foreground(partyPurple),
		border: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(partyPink).
			Padding(1, 3),
	}
}

// renderSpectrum draws band magnitudes as a single row of blocks, hotter
// colours for louder bands
func renderSpectrum(bands []float64, width int) string {
	if len(bands) == 0 || width <= 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	colors := []lipgloss.Color{
		lipgloss.Color("#8B0000"),
		lipgloss.Color("#DC143C"),
		lipgloss.Color("#FF4500"),
		lipgloss.Color("#FF8C00"),
		lipgloss.Color("#FFA500"),
		lipgloss.Color("#FFD700"),
	}

	stride := max(len(bands)/width, 1)

	maxHeight := 0.0
	for _, h := range bands {
		maxHeight = max(maxHeight, h)
	}
	if maxHeight == 0 {
		maxHeight = 1.0
	}

	var result strings.Builder
	shown := 0
	for i := 0; i < len(bands) && shown < width; i += stride {
		normalised := bands[i] / maxHeight
		blockIdx := min(int(normalised*float64(len(blocks)-1)), len(blocks)-1)
		colorIdx := min(int(normalised*float64(len(colors)-1)), len(colors)-1)
		result.WriteString(lipgloss.NewStyle().
			Foreground(colors[max(colorIdx, 0)]).
			Render(string(blocks[max(blockIdx, 0)])))
		shown++
	}
	return result.String()
}
