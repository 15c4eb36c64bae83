package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/app/apptest"
)

func newTestApp(t *testing.T) (*apptest.Env, *App) {
	t.Helper()
	env := apptest.New(t)
	app, err := NewApp(&Ports{
		Chat:     env.App.Chat,
		Ingest:   env.App.Ingest,
		Feedback: env.App.Feedback,
		Metrics:  env.App.Metrics,
	})
	require.NoError(t, err)
	app.WithContext(t.Context())
	return env, app
}

func TestNewApp(t *testing.T) {
	_, app := newTestApp(t)

	assert.Equal(t, messages.ViewMenu, app.CurrentView())
	assert.False(t, app.Ready())
	assert.Equal(t, "Initialising...", app.View())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	env := apptest.New(t)

	_, err := NewApp(&Ports{Ingest: env.App.Ingest})
	assert.ErrorIs(t, err, ErrMissingChatService)

	_, err = NewApp(&Ports{Chat: env.App.Chat})
	assert.ErrorIs(t, err, ErrMissingIngestService)
}

func TestApp_NoDocumentsNotice(t *testing.T) {
	env, app := newTestApp(t)
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	app.Update(app.refreshNotice())
	assert.Contains(t, app.View(), noDocumentsNotice)

	env.Ingest(t, "a.txt", "Some text.")
	_, cmd := app.Update(messages.ViewChanged{View: messages.ViewMenu})
	require.NotNil(t, cmd)
	app.Update(cmd())
	assert.NotContains(t, app.View(), noDocumentsNotice)
}

func TestApp_Navigation(t *testing.T) {
	_, app := newTestApp(t)
	app.SetDimensions(100, 30)

	for _, view := range []messages.ViewType{
		messages.ViewChat, messages.ViewUpload, messages.ViewMetrics, messages.ViewSettings, messages.ViewHelp,
	} {
		app.Update(messages.ViewChanged{View: view})
		assert.Equal(t, view, app.CurrentView())
		assert.NotEmpty(t, app.View())
	}

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_AskThroughChatView(t *testing.T) {
	env, app := newTestApp(t)
	env.Ingest(t, "france.txt", "The capital of France is Paris.")
	app.SetDimensions(100, 30)
	app.Update(messages.ViewChanged{View: messages.ViewChat})

	for _, r := range "capital?" {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	for cmd != nil {
		msg := cmd()
		switch msg.(type) {
		case messages.AnswerStarted, messages.FragmentReceived, messages.AnswerCompleted:
			_, cmd = app.Update(msg)
		default:
			cmd = nil
		}
	}

	assert.Contains(t, app.View(), "The capital of France is Paris.")
}

func TestApp_CtrlCQuits(t *testing.T) {
	_, app := newTestApp(t)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = app.Update(messages.Quit{})
	require.NotNil(t, cmd)
}
