// Package menu provides the start screen of the TUI.
package menu

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
)

// Item is one entry of the start screen.
type Item struct {
	Label string
	Hint  string
	View  messages.ViewType
	Quit  bool
}

var defaultItems = []Item{
	{Label: "Ask", Hint: "chat with your documents", View: messages.ViewChat},
	{Label: "Upload document", Hint: "index a .txt or .pdf file", View: messages.ViewUpload},
	{Label: "Metrics", Hint: "latency and token usage", View: messages.ViewMetrics},
	{Label: "Settings", Hint: "providers and retrieval", View: messages.ViewSettings},
	{Label: "Help", Hint: "keys and commands", View: messages.ViewHelp},
	{Label: "Quit", Quit: true},
}

// View is the start screen: a short list of destinations plus an optional
// notice, e.g. when nothing has been indexed yet.
type View struct {
	styles   *styles.Styles
	items    []Item
	selected int
	notice   string
	width    int
	height   int
	ready    bool
}

// NewView creates the start screen.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	items := make([]Item, len(defaultItems))
	copy(items, defaultItems)
	return &View{styles: s, items: items, width: 80, height: 24}
}

// Init implements tea.Model.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update moves the cursor or picks an item. Digits jump straight to an item.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "up", "k":
			v.selected = max(v.selected-1, 0)
		case "down", "j":
			v.selected = min(v.selected+1, len(v.items)-1)
		case "enter":
			return v, v.choose(v.selected)
		case "q":
			return v, tea.Quit
		default:
			if len(key) == 1 && key[0] >= '1' && int(key[0]-'1') < len(v.items) {
				v.selected = int(key[0] - '1')
				return v, v.choose(v.selected)
			}
		}
	}
	return v, nil
}

func (v *View) choose(i int) tea.Cmd {
	item := v.items[i]
	if item.Quit {
		return tea.Quit
	}
	return func() tea.Msg { return messages.ViewChanged{View: item.View} }
}

// View renders the start screen.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("docqa"))
	b.WriteString("  ")
	b.WriteString(v.styles.Muted.Render("answers from your documents"))
	b.WriteString("\n\n")

	if v.notice != "" {
		b.WriteString(v.styles.Warning.Render(v.notice))
		b.WriteString("\n\n")
	}

	for i, item := range v.items {
		label := fmt.Sprintf("%d. %s", i+1, item.Label)
		if i == v.selected {
			b.WriteString("> " + v.styles.Subtitle.Render(label))
		} else {
			b.WriteString("  " + v.styles.Normal.Render(label))
		}
		if item.Hint != "" && v.width >= 60 {
			b.WriteString("  " + v.styles.Muted.Render(item.Hint))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] Navigate  [1-6] Jump  [Enter] Select  [q] Quit"))
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// SetNotice shows a one-line notice above the items. Empty hides it.
func (v *View) SetNotice(notice string) {
	v.notice = notice
}

// Selected returns the cursor position.
func (v *View) Selected() int {
	return v.selected
}
