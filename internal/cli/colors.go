package cli

import "github.com/charmbracelet/lipgloss"

// Candlelight palette 🕯️
// Shared colours for consistent branding across CLI and card
var (
	FlameYellow = lipgloss.Color("#FFD700") // Flame tip
	FlameOrange = lipgloss.Color("#FF8C00") // Flame body
	Frosting    = lipgloss.Color("#F8B31D") // Cake
	PartyPink   = lipgloss.Color("#FF5E7E") // Celebration

	// Accent colours
	WaxGray = lipgloss.Color("#B8A07E") // Subtle text
)
