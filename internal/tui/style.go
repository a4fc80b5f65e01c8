package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.AdaptiveColor{Light: "#5B21B6", Dark: "#8B5CF6"}
	accentColor  = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#10B981"}
	warningColor = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	errorColor   = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#EF4444"}
	mutedColor   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#94A3B8"}
	focusBg      = lipgloss.AdaptiveColor{Light: "#DDD6FE", Dark: "#334155"}
)

// styles are bound to one renderer so output can be tested without a
// terminal.
type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	cell     lipgloss.Style
	focus    lipgloss.Style
	selected lipgloss.Style
	pending  lipgloss.Style
	inserted lipgloss.Style
	deleted  lipgloss.Style
	muted    lipgloss.Style
	status   lipgloss.Style
	success  lipgloss.Style
	err      lipgloss.Style
	editor   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:    r.NewStyle().Foreground(primaryColor).Bold(true),
		header:   r.NewStyle().Foreground(primaryColor).Bold(true),
		cell:     r.NewStyle(),
		focus:    r.NewStyle().Background(focusBg).Bold(true),
		selected: r.NewStyle().Foreground(primaryColor),
		pending:  r.NewStyle().Foreground(warningColor),
		inserted: r.NewStyle().Foreground(accentColor),
		deleted:  r.NewStyle().Foreground(errorColor).Strikethrough(true),
		muted:    r.NewStyle().Foreground(mutedColor),
		status:   r.NewStyle().Foreground(mutedColor),
		success:  r.NewStyle().Foreground(accentColor).Bold(true),
		err:      r.NewStyle().Foreground(errorColor).Bold(true),
		editor:   r.NewStyle().Foreground(primaryColor),
	}
}
