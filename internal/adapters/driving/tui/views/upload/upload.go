// Package upload provides the view that indexes a local document.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// ErrNoIngestService is returned when the ingest service is not available.
var ErrNoIngestService = errors.New("ingest service not available")

// View asks for a file path and indexes the file.
type View struct {
	styles *styles.Styles
	input  *input.Input
	ingest driving.IngestService
	ctx    context.Context

	busy    bool
	history []string
	err     error
	width   int
	height  int
	ready   bool
}

// NewView creates a new upload view.
func NewView(s *styles.Styles, ingest driving.IngestService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles: s,
		input:  input.New(s, "File:", "path/to/document.pdf"),
		ingest: ingest,
		ctx:    context.Background(),
		width:  80,
		height: 24,
	}
}

// WithContext sets the context indexing runs under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the upload view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		//nolint:exhaustive // handling only relevant key types
		switch msg.Type {
		case tea.KeyEsc:
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewMenu}
			}
		case tea.KeyEnter:
			return v, v.submit()
		}

	case messages.IngestCompleted:
		v.busy = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.history = append(v.history, fmt.Sprintf("%s: %d chunks indexed", msg.Result.Source, msg.Result.ChunksIndexed))
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) submit() tea.Cmd {
	path := strings.TrimSpace(v.input.Value())
	if path == "" || v.busy {
		return nil
	}
	if v.ingest == nil {
		v.err = ErrNoIngestService
		return nil
	}
	path = expandHome(path)

	v.busy = true
	v.err = nil
	v.input.Reset()
	ctx := v.ctx
	return func() tea.Msg {
		result, err := v.ingest.IngestFile(ctx, path, "")
		return messages.IngestCompleted{Result: result, Err: err}
	}
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// View renders the upload view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := []string{
		v.styles.Title.Render("Upload document"),
		v.styles.Muted.Render("Index a .txt or .pdf file so questions can be answered from it."),
		"",
		v.input.View(),
		"",
	}
	switch {
	case v.busy:
		sections = append(sections, v.styles.Muted.Render("Indexing..."))
	case v.err != nil:
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()))
	}
	for _, line := range v.history {
		sections = append(sections, v.styles.Success.Render("✓ "+line))
	}
	sections = append(sections, "", v.styles.Help.Render("[Enter] Index  [Esc] Back"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.input.SetWidth(width)
}

// SetPath sets the input text.
func (v *View) SetPath(path string) {
	v.input.SetValue(path)
}

// Busy reports whether a file is being indexed.
func (v *View) Busy() bool {
	return v.busy
}

// Err returns the last indexing error.
func (v *View) Err() error {
	return v.err
}

// Indexed returns a line per successfully indexed file.
func (v *View) Indexed() []string {
	return v.history
}

// Reset clears the input and error, keeping the history.
func (v *View) Reset() {
	v.input.Reset()
	v.input.Focus()
	v.err = nil
}
