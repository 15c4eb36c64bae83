package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/views/metrics"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/views/settings"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/views/upload"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

// noDocumentsNotice is shown on the menu until something is indexed.
const noDocumentsNotice = "No documents indexed yet. Upload a TXT or PDF first."

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles

	menuView     *menu.View
	chatView     *chat.View
	uploadView   *upload.View
	metricsView  *metrics.View
	settingsView *settings.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	return &App{
		ports:        ports,
		ctx:          context.Background(),
		styles:       s,
		menuView:     menu.NewView(s),
		chatView:     chat.NewView(s, nil, ports.Chat, ports.Feedback),
		uploadView:   upload.NewView(s, ports.Ingest),
		metricsView:  metrics.NewView(s, ports.Metrics),
		settingsView: settings.NewView(s, ports.Settings),
		currentView:  messages.ViewMenu, // Start with menu
	}, nil
}

// WithContext sets the context for the app and its views.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chatView.WithContext(ctx)
	a.uploadView.WithContext(ctx)
	a.metricsView.WithContext(ctx)
	return a
}

// WithRetrievalOptions overrides the configured retrieval options for chat.
func (a *App) WithRetrievalOptions(opts *domain.RetrievalOptions) *App {
	a.chatView.SetRetrievalOptions(opts)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("docqa"),
		a.refreshNotice,
	)
}

// documentsChecked carries whether anything is indexed.
type documentsChecked struct {
	has bool
}

func (a *App) refreshNotice() tea.Msg {
	has, err := a.ports.Ingest.HasDocuments(a.ctx)
	if err != nil {
		logger.Debug("Checking for documents: %v", err)
		return nil
	}
	return documentsChecked{has: has}
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler requires complexity
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		// Global quit with ctrl+c
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.currentView == messages.ViewHelp {
			if msg.Type == tea.KeyEsc {
				a.currentView = messages.ViewMenu
			}
			return a, nil
		}

	case documentsChecked:
		if msg.has {
			a.menuView.SetNotice("")
		} else {
			a.menuView.SetNotice(noDocumentsNotice)
		}
		return a, nil

	case messages.ViewChanged:
		a.currentView = msg.View
		switch msg.View {
		case messages.ViewChat:
			return a, a.chatView.Init()
		case messages.ViewUpload:
			a.uploadView.Reset()
			return a, a.uploadView.Init()
		case messages.ViewMetrics:
			return a, a.metricsView.Init()
		case messages.ViewSettings:
			a.settingsView.Reset()
			return a, a.settingsView.Init()
		case messages.ViewMenu:
			return a, a.refreshNotice
		case messages.ViewHelp:
		}
		return a, nil

	case messages.AnswerStarted, messages.FragmentReceived, messages.AnswerCompleted, messages.FeedbackSubmitted:
		// Streams keep flowing to the chat view even if the user navigated away
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd

	case messages.IngestCompleted:
		a.uploadView, cmd = a.uploadView.Update(msg)
		return a, cmd

	case messages.MetricsLoaded:
		a.metricsView, cmd = a.metricsView.Update(msg)
		return a, cmd

	case messages.SettingsLoaded:
		a.settingsView, cmd = a.settingsView.Update(msg)
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	// Forward other messages to active view
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewUpload:
		a.uploadView, cmd = a.uploadView.Update(msg)
	case messages.ViewMetrics:
		a.metricsView, cmd = a.metricsView.Update(msg)
	case messages.ViewSettings:
		a.settingsView, cmd = a.settingsView.Update(msg)
	case messages.ViewHelp:
		// Help view doesn't need to handle other messages
	}
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewChat:
		return a.chatView.View()
	case messages.ViewUpload:
		return a.uploadView.View()
	case messages.ViewMetrics:
		return a.metricsView.View()
	case messages.ViewSettings:
		return a.settingsView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.menuView.View()
	}
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	return `Help

Navigation:
  esc         Back to Menu
  ctrl+c      Quit

Menu:
  j/k, ↑/↓    Navigate options
  enter       Select option
  q           Quit

Ask:
  (type)      Enter a question
  enter       Ask
  esc         Stop the answer being generated, or back to Menu
  ctrl+n      Start a new conversation
  tab         Browse the sources of the last answer

Sources:
  j/k, ↑/↓    Navigate excerpts
  enter       Show the full excerpt
  1-5         Rate the last answer
  pgup/pgdn   Scroll the conversation

Upload:
  enter       Index the file at the typed path

[esc] back to menu`
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.chatView.SetDimensions(width, height)
	a.uploadView.SetDimensions(width, height)
	a.metricsView.SetDimensions(width, height)
	a.settingsView.SetDimensions(width, height)
}
