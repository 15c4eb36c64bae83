// Package settings provides a read-only view of the effective settings.
package settings

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// ErrNoSettingsService is returned when the settings service is not available.
var ErrNoSettingsService = errors.New("settings not available")

// View lists every setting with its effective value. Changes are made with
// "docqa settings set" because providers are bound at startup.
type View struct {
	styles   *styles.Styles
	settings driving.SettingsService

	pairs  [][2]string
	offset int
	err    error
	width  int
	height int
	ready  bool
}

// NewView creates a new settings view.
func NewView(s *styles.Styles, settings driving.SettingsService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{styles: s, settings: settings, width: 80, height: 24}
}

// Init loads the settings.
func (v *View) Init() tea.Cmd {
	if v.settings == nil {
		v.err = ErrNoSettingsService
		return nil
	}
	return func() tea.Msg {
		pairs, err := v.settings.Display()
		return messages.SettingsLoaded{Pairs: pairs, Err: err}
	}
}

// Update handles messages for the settings view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case messages.SettingsLoaded:
		v.pairs = msg.Pairs
		v.err = msg.Err
		v.offset = 0

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q":
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewMenu}
			}
		case "up", "k":
			if v.offset > 0 {
				v.offset--
			}
		case "down", "j":
			if v.offset < max(len(v.pairs)-v.visible(), 0) {
				v.offset++
			}
		}
	}
	return v, nil
}

// visible is the number of rows that fit on screen.
func (v *View) visible() int {
	return max(v.height-6, 1)
}

// View renders the settings table.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := []string{v.styles.Title.Render("Settings"), ""}
	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()))
	} else {
		keyWidth := 0
		for _, p := range v.pairs {
			keyWidth = max(keyWidth, len(p[0]))
		}
		end := min(v.offset+v.visible(), len(v.pairs))
		rows := make([]string, 0, end-v.offset)
		for _, p := range v.pairs[v.offset:end] {
			value := p[1]
			if value == "" {
				value = v.styles.Muted.Render("(unset)")
			}
			rows = append(rows, v.styles.Subtitle.Render(fmt.Sprintf("%-*s", keyWidth, p[0]))+"  "+value)
		}
		sections = append(sections, strings.Join(rows, "\n"))
	}
	sections = append(sections, "",
		v.styles.Help.Render("Change with: docqa settings set <key> <value>   [j/k] Scroll  [Esc] Back"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Pairs returns the loaded settings.
func (v *View) Pairs() [][2]string {
	return v.pairs
}

// Offset returns the first visible row.
func (v *View) Offset() int {
	return v.offset
}

// Reset scrolls back to the top.
func (v *View) Reset() {
	v.offset = 0
	v.err = nil
}
