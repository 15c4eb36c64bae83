// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// ContextList displays the excerpts an answer was grounded on.
type ContextList struct {
	contexts []domain.ScoredContext
	selected int
	expanded bool
	styles   *styles.Styles
	width    int
	height   int
}

// NewContextList creates a new context list component.
func NewContextList(s *styles.Styles) *ContextList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ContextList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (l *ContextList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (l *ContextList) Update(msg tea.Msg) (*ContextList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		case "enter":
			l.expanded = !l.expanded
		}
	}
	return l, nil
}

// View renders the list. The selected excerpt is shown in full when expanded.
func (l *ContextList) View() string {
	if len(l.contexts) == 0 {
		return l.styles.Muted.Render("No sources")
	}

	lines := make([]string, 0, len(l.contexts)*2+2)
	lines = append(lines, l.styles.Subtitle.Render(fmt.Sprintf("Sources (%d)", len(l.contexts))), "")

	// Each excerpt takes two lines
	visible := max((l.height-2)/2, 1)
	start := 0
	if l.selected >= visible {
		start = l.selected - visible + 1
	}
	end := min(start+visible, len(l.contexts))

	for i := start; i < end; i++ {
		lines = append(lines, l.renderContext(i, &l.contexts[i]))
	}
	return strings.Join(lines, "\n")
}

func (l *ContextList) renderContext(index int, c *domain.ScoredContext) string {
	indicator := "  "
	if index == l.selected {
		indicator = "> "
	}

	score := fmt.Sprintf("sim %.2f", c.Score)
	if c.RerankScore != nil {
		score += fmt.Sprintf("  rel %.2f", *c.RerankScore)
	}

	heading := fmt.Sprintf("%s#%d %s", indicator, c.ID, c.Source)
	if index == l.selected {
		heading = l.styles.Selected.Render(heading)
	} else {
		heading = l.styles.Source.Render(heading)
	}
	heading += "  " + l.styles.Muted.Render(score)

	text := strings.Join(strings.Fields(c.Text), " ")
	if !(l.expanded && index == l.selected) {
		text = truncate(text, max(l.width-6, 20))
	}
	return heading + "\n" + l.styles.Muted.Render("    "+text)
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}

// SetContexts replaces the list contents.
func (l *ContextList) SetContexts(contexts []domain.ScoredContext) {
	l.contexts = contexts
	l.selected = 0
	l.expanded = false
}

// Contexts returns the current contexts.
func (l *ContextList) Contexts() []domain.ScoredContext {
	return l.contexts
}

// Selected returns the index of the selected context.
func (l *ContextList) Selected() int {
	return l.selected
}

// Expanded reports whether the selected excerpt is shown in full.
func (l *ContextList) Expanded() bool {
	return l.expanded
}

// MoveUp moves selection up.
func (l *ContextList) MoveUp() {
	if l.selected > 0 {
		l.selected--
		l.expanded = false
	}
}

// MoveDown moves selection down.
func (l *ContextList) MoveDown() {
	if l.selected < len(l.contexts)-1 {
		l.selected++
		l.expanded = false
	}
}

// SetDimensions sets the component dimensions.
func (l *ContextList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of contexts.
func (l *ContextList) Count() int {
	return len(l.contexts)
}
