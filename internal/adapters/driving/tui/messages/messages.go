// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewChat is the question and answer view.
	ViewChat
	// ViewUpload indexes a local file.
	ViewUpload
	// ViewMetrics shows the request metrics summary.
	ViewMetrics
	// ViewSettings shows the effective settings.
	ViewSettings
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewChat:
		return "chat"
	case ViewUpload:
		return "upload"
	case ViewMetrics:
		return "metrics"
	case ViewSettings:
		return "settings"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// AnswerStarted carries a stream whose fragments are ready to be read.
type AnswerStarted struct {
	Stream driving.AnswerStream
	Err    error
}

// FragmentReceived carries the next piece of a streamed answer.
type FragmentReceived struct {
	Text string
}

// AnswerCompleted signals the stream closed. Err is set when it ended early.
type AnswerCompleted struct {
	Response *driving.ChatResponse
	Err      error
}

// FeedbackSubmitted signals a rating was recorded.
type FeedbackSubmitted struct {
	Rating int
	Err    error
}

// IngestCompleted carries the outcome of indexing a file.
type IngestCompleted struct {
	Result *domain.IngestResult
	Err    error
}

// MetricsLoaded carries the metrics summary.
type MetricsLoaded struct {
	Summary *domain.MetricsSummary
	Err     error
}

// SettingsLoaded carries the effective settings as key/value pairs.
type SettingsLoaded struct {
	Pairs [][2]string
	Err   error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
