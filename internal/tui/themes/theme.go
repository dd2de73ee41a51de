// Package themes holds color schemes for the ledger browser.
package themes

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style for the TUI.
type Theme struct {
	Title       lipgloss.Style
	Subtle      lipgloss.Style
	ActiveTab   lipgloss.Style
	InactiveTab lipgloss.Style
	Income      lipgloss.Style
	Expense     lipgloss.Style
	Alert       lipgloss.Style
	Box         lipgloss.Style
	Header      lipgloss.Style
	Selected    lipgloss.Style
	Primary     lipgloss.Color
	Muted       lipgloss.Color
	Border      lipgloss.Color
	Success     lipgloss.Color
	Warning     lipgloss.Color
	Error       lipgloss.Color
}

func build(primary, muted, border, success, warning, failure lipgloss.Color) Theme {
	return Theme{
		Primary: primary,
		Muted:   muted,
		Border:  border,
		Success: success,
		Warning: warning,
		Error:   failure,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(primary),
		Subtle: lipgloss.NewStyle().
			Foreground(muted),
		ActiveTab: lipgloss.NewStyle().
			Bold(true).
			Foreground(primary).
			Border(lipgloss.RoundedBorder(), true, true, false, true).
			BorderForeground(primary).
			Padding(0, 1),
		InactiveTab: lipgloss.NewStyle().
			Foreground(muted).
			Border(lipgloss.RoundedBorder(), true, true, false, true).
			BorderForeground(border).
			Padding(0, 1),
		Income: lipgloss.NewStyle().
			Foreground(success),
		Expense: lipgloss.NewStyle().
			Foreground(failure),
		Alert: lipgloss.NewStyle().
			Foreground(warning).
			Bold(true),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border),
		Header: lipgloss.NewStyle().
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(border),
		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#fafafa")).
			Background(primary),
	}
}

// Default is the default theme.
var Default = build(
	lipgloss.Color("#7c3aed"),
	lipgloss.Color("#737373"),
	lipgloss.Color("#404040"),
	lipgloss.Color("#10b981"),
	lipgloss.Color("#f59e0b"),
	lipgloss.Color("#ef4444"),
)

// CatppuccinMocha is the Catppuccin Mocha theme.
var CatppuccinMocha = build(
	lipgloss.Color("#cba6f7"),
	lipgloss.Color("#6c7086"),
	lipgloss.Color("#45475a"),
	lipgloss.Color("#a6e3a1"),
	lipgloss.Color("#f9e2af"),
	lipgloss.Color("#f38ba8"),
)

// ByName returns a theme by its config name, falling back to Default.
func ByName(name string) Theme {
	switch name {
	case "catppuccin", "catppuccin-mocha":
		return CatppuccinMocha
	default:
		return Default
	}
}
