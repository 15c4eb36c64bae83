// Package styles provides colour themes and styling for the TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Theme is the palette every style is derived from.
type Theme struct {
	Primary    lipgloss.Color // titles and the focused item
	Secondary  lipgloss.Color // questions and sources
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
	Border     lipgloss.Color
	Bar        lipgloss.Color // status bar background
}

// DefaultTheme is a dark palette with a teal accent.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:    lipgloss.Color("#2DD4BF"),
		Secondary:  lipgloss.Color("#93C5FD"),
		Foreground: lipgloss.Color("#E2E8F0"),
		Muted:      lipgloss.Color("#64748B"),
		Success:    lipgloss.Color("#86EFAC"),
		Warning:    lipgloss.Color("#FCD34D"),
		Error:      lipgloss.Color("#FDA4AF"),
		Border:     lipgloss.Color("#334155"),
		Bar:        lipgloss.Color("#0F172A"),
	}
}

// Styles are the lipgloss styles shared by all views.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style

	// Transcript.
	Question lipgloss.Style
	Answer   lipgloss.Style
	Source   lipgloss.Style

	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Help       lipgloss.Style
	Border     lipgloss.Style
}

// NewStyles derives styles from theme. Nil uses DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }
	rounded := lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(theme.Border)

	return &Styles{
		theme:      theme,
		Title:      fg(theme.Primary).Bold(true),
		Subtitle:   fg(theme.Secondary).Bold(true),
		Normal:     fg(theme.Foreground),
		Muted:      fg(theme.Muted),
		Selected:   fg(theme.Bar).Background(theme.Primary).Bold(true),
		Error:      fg(theme.Error),
		Success:    fg(theme.Success),
		Warning:    fg(theme.Warning),
		Question:   fg(theme.Secondary).Bold(true),
		Answer:     fg(theme.Foreground).PaddingLeft(2),
		Source:     fg(theme.Secondary).Italic(true),
		InputField: rounded.Padding(0, 1),
		StatusBar:  fg(theme.Muted).Background(theme.Bar).Padding(0, 1),
		Help:       fg(theme.Muted),
		Border:     rounded,
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// RetrievalBadge renders how an answer's context was chosen.
func (s *Styles) RetrievalBadge(state domain.RetrievalState) string {
	switch state {
	case domain.RetrievalReranked:
		return s.Success.Render("reranked")
	case domain.RetrievalRerankFallback:
		return s.Warning.Render("rerank fallback")
	case domain.RetrievalBypassed:
		return s.Muted.Render("vector order")
	case domain.RetrievalEmpty:
		return s.Warning.Render("no context")
	default:
		return ""
	}
}
