package output

import "github.com/charmbracelet/lipgloss"

// Palette entries from the ANSI 256-color table.
var (
	accent  = lipgloss.Color("39")
	good    = lipgloss.Color("42")
	caution = lipgloss.Color("214")
	faint   = lipgloss.Color("245")
	bright  = lipgloss.Color("255")
)

// Theme holds the styles PrettyFormatter renders a packaging result with.
type Theme struct {
	// Summary frames the function being packaged.
	Summary lipgloss.Style
	// Totals frames the archive totals.
	Totals lipgloss.Style

	Heading lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Size    lipgloss.Style
	Member  lipgloss.Style
	Source  lipgloss.Style
	Entry   lipgloss.Style
	Note    lipgloss.Style
	Warning lipgloss.Style
}

// DefaultTheme is the theme used by PrettyFormatter.
var DefaultTheme = Theme{
	Summary: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1).
		MarginBottom(1),
	Totals: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(faint).
		Padding(0, 1).
		MarginTop(1),
	Heading: lipgloss.NewStyle().Bold(true).Foreground(faint).PaddingRight(2),
	Label:   lipgloss.NewStyle().Foreground(faint),
	Value:   lipgloss.NewStyle().Foreground(bright),
	Size:    lipgloss.NewStyle().Foreground(accent).Bold(true),
	Member:  lipgloss.NewStyle().Foreground(bright),
	Source:  lipgloss.NewStyle().Foreground(faint).Italic(true),
	Entry:   lipgloss.NewStyle().Foreground(good).Bold(true),
	Note:    lipgloss.NewStyle().Foreground(faint),
	Warning: lipgloss.NewStyle().Foreground(caution),
}

// Ratio colors a compression ratio: green once the archive is at most half
// the size of its members, amber otherwise.
func (t Theme) Ratio(ratio float64) lipgloss.Style {
	if ratio <= 0.5 {
		return lipgloss.NewStyle().Foreground(good)
	}
	return lipgloss.NewStyle().Foreground(caution)
}
