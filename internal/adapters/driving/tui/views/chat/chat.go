// Package chat provides the question and answer view for the TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// exchange is one question and its answer in the transcript.
type exchange struct {
	question string
	answer   strings.Builder
	state    domain.RetrievalState
	err      error
	stopped  bool
	done     bool
	rating   int
}

// View is the chat view: a transcript, a question input, the excerpts the
// last answer was grounded on, and a status bar.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	input      *input.Input
	list       *list.ContextList
	statusbar  *status.Bar
	transcript viewport.Model

	chat     driving.ChatService
	feedback driving.FeedbackService
	options  *domain.RetrievalOptions
	ctx      context.Context

	sessionID string
	exchanges []*exchange
	stream    driving.AnswerStream
	cancel    context.CancelFunc

	width      int
	height     int
	ready      bool
	focusInput bool
}

// NewView creates a new chat view. feedback may be nil.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	chat driving.ChatService,
	feedback driving.FeedbackService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.New(s, "Ask:", "Ask a question about your documents..."),
		list:       list.NewContextList(s),
		statusbar:  status.NewBar(s, km),
		transcript: viewport.New(80, 10),
		chat:       chat,
		feedback:   feedback,
		ctx:        context.Background(),
		width:      80,
		height:     24,
		focusInput: true,
	}
}

// WithContext sets the context requests are made under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetRetrievalOptions overrides the configured retrieval options. Nil restores them.
func (v *View) SetRetrievalOptions(opts *domain.RetrievalOptions) {
	v.options = opts
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerStarted:
		return v.handleAnswerStarted(msg)

	case messages.FragmentReceived:
		if cur := v.current(); cur != nil && !cur.done {
			cur.answer.WriteString(msg.Text)
			v.refreshTranscript()
		}
		return v, v.waitForFragment()

	case messages.AnswerCompleted:
		v.handleAnswerCompleted(msg)
		return v, nil

	case messages.FeedbackSubmitted:
		if msg.Err != nil {
			v.statusbar.Report(msg.Err)
			return v, nil
		}
		v.statusbar.SetMessage(fmt.Sprintf("Rated %d/5, thanks", msg.Rating))
		return v, nil

	case messages.ErrorOccurred:
		v.statusbar.Report(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	if v.focusInput {
		v.input, cmd = v.input.Update(msg)
	}
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if keymap.Matches(msg.String(), v.keymap.Back) {
		if v.Busy() {
			v.cancel()
			return v, nil
		}
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if keymap.Matches(msg.String(), v.keymap.NewSession) {
		if !v.Busy() {
			v.Reset()
		}
		return v, nil
	}

	if keymap.Matches(msg.String(), v.keymap.Focus) {
		if v.list.Count() > 0 {
			v.setFocusInput(!v.focusInput)
		}
		return v, nil
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			return v, v.submit()
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	// Browsing the context list
	if keymap.Matches(msg.String(), v.keymap.Rate) {
		return v, v.rate(int(msg.Runes[0] - '0'))
	}
	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		v.transcript, cmd = v.transcript.Update(msg)
		return v, cmd
	}
	v.list, _ = v.list.Update(msg)
	return v, nil
}

// submit starts answering the typed question.
func (v *View) submit() tea.Cmd {
	question := strings.TrimSpace(v.input.Value())
	if question == "" || v.Busy() {
		return nil
	}
	if v.chat == nil {
		return func() tea.Msg { return messages.ErrorOccurred{Err: ErrNoChatService} }
	}

	v.input.Reset()
	v.exchanges = append(v.exchanges, &exchange{question: question})
	v.refreshTranscript()
	v.statusbar.SetState(status.StateThinking)
	v.statusbar.SetMessage("")

	ctx, cancel := context.WithCancel(v.ctx)
	v.cancel = cancel
	req := driving.ChatRequest{
		Question:  question,
		SessionID: v.sessionID,
		Retrieval: v.options,
	}
	return func() tea.Msg {
		stream, err := v.chat.AskStream(ctx, req)
		return messages.AnswerStarted{Stream: stream, Err: err}
	}
}

func (v *View) handleAnswerStarted(msg messages.AnswerStarted) (*View, tea.Cmd) {
	cur := v.current()
	if msg.Err != nil {
		v.finish()
		if cur != nil {
			cur.done = true
			if errors.Is(msg.Err, context.Canceled) {
				cur.stopped = true
			} else {
				cur.err = msg.Err
			}
		}
		v.statusbar.Report(msg.Err)
		v.refreshTranscript()
		return v, nil
	}

	v.stream = msg.Stream
	v.sessionID = msg.Stream.SessionID()
	v.statusbar.SetSession(v.sessionID)
	v.statusbar.SetState(status.StateStreaming)
	v.list.SetContexts(msg.Stream.Contexts())
	return v, v.waitForFragment()
}

// waitForFragment reads the next fragment, or the result once the stream closes.
func (v *View) waitForFragment() tea.Cmd {
	stream := v.stream
	if stream == nil {
		return nil
	}
	return func() tea.Msg {
		if text, ok := <-stream.Fragments(); ok {
			return messages.FragmentReceived{Text: text}
		}
		resp, err := stream.Result()
		return messages.AnswerCompleted{Response: resp, Err: err}
	}
}

func (v *View) handleAnswerCompleted(msg messages.AnswerCompleted) {
	v.finish()
	cur := v.current()
	if cur == nil {
		return
	}
	cur.done = true

	switch {
	case errors.Is(msg.Err, context.Canceled):
		cur.stopped = true
		v.statusbar.Report(msg.Err)
	case msg.Err != nil:
		cur.err = msg.Err
		v.statusbar.Report(msg.Err)
	default:
		cur.answer.Reset()
		cur.answer.WriteString(msg.Response.Answer)
		cur.state = msg.Response.State
		v.statusbar.SetState(status.StateReady)
		if v.feedback != nil {
			v.statusbar.SetMessage("tab then 1-5 to rate")
		}
	}
	v.refreshTranscript()
}

// rate records a rating for the last answered question.
func (v *View) rate(rating int) tea.Cmd {
	cur := v.current()
	if cur == nil || !cur.done || cur.err != nil || cur.stopped || v.Busy() {
		return nil
	}
	if v.feedback == nil {
		return func() tea.Msg { return messages.FeedbackSubmitted{Err: ErrNoFeedbackService} }
	}
	cur.rating = rating
	fb := domain.Feedback{
		SessionID: v.sessionID,
		Question:  cur.question,
		Answer:    cur.answer.String(),
		Rating:    rating,
	}
	ctx := v.ctx
	return func() tea.Msg {
		return messages.FeedbackSubmitted{Rating: rating, Err: v.feedback.Submit(ctx, fb)}
	}
}

func (v *View) finish() {
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.stream = nil
}

func (v *View) current() *exchange {
	if len(v.exchanges) == 0 {
		return nil
	}
	return v.exchanges[len(v.exchanges)-1]
}

func (v *View) setFocusInput(focus bool) {
	v.focusInput = focus
	if focus {
		v.input.Focus()
		v.statusbar.SetState(status.StateReady)
		return
	}
	v.input.Blur()
	v.statusbar.SetState(status.StateBrowsing)
}

// refreshTranscript re-renders the exchanges and scrolls to the latest.
func (v *View) refreshTranscript() {
	answerStyle := v.styles.Answer.Width(max(v.width-4, 20))
	parts := make([]string, 0, len(v.exchanges)*3)
	for _, ex := range v.exchanges {
		parts = append(parts, v.styles.Question.Render("Q: "+ex.question))
		switch {
		case ex.err != nil:
			parts = append(parts, v.styles.Error.Render("  "+ex.err.Error()))
		case ex.answer.Len() > 0:
			parts = append(parts, answerStyle.Render(ex.answer.String()))
		case !ex.done:
			parts = append(parts, v.styles.Muted.Render("  ..."))
		}
		var meta []string
		if badge := v.styles.RetrievalBadge(ex.state); badge != "" {
			meta = append(meta, badge)
		}
		if ex.stopped {
			meta = append(meta, v.styles.Warning.Render("stopped"))
		}
		if ex.rating > 0 {
			meta = append(meta, v.styles.Muted.Render(fmt.Sprintf("rated %d/5", ex.rating)))
		}
		if len(meta) > 0 {
			parts = append(parts, "  "+strings.Join(meta, "  "))
		}
		parts = append(parts, "")
	}
	v.transcript.SetContent(strings.Join(parts, "\n"))
	v.transcript.GotoBottom()
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 8)
	sections = append(sections, v.styles.Title.Render("docqa"), "")

	if len(v.exchanges) == 0 {
		sections = append(sections, v.styles.Muted.Render("Answers come only from uploaded documents."))
	} else {
		sections = append(sections, v.transcript.View())
	}

	sections = append(sections, "", v.input.View())
	if v.list.Count() > 0 {
		sections = append(sections, "", v.list.View())
	}
	sections = append(sections, "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	listHeight := min(8, height/3)
	v.input.SetWidth(width)
	v.list.SetDimensions(width, listHeight)
	v.statusbar.SetWidth(width)
	v.transcript.Width = width
	// Reserve space for header, input, list and status bar
	v.transcript.Height = max(height-listHeight-10, 3)
	v.refreshTranscript()
}

// Busy reports whether an answer is being retrieved or generated.
func (v *View) Busy() bool {
	return v.cancel != nil
}

// SessionID returns the current session, empty before the first answer.
func (v *View) SessionID() string {
	return v.sessionID
}

// SetQuestion sets the input text.
func (v *View) SetQuestion(q string) {
	v.input.SetValue(q)
}

// Answers returns the answer text of every exchange in order.
func (v *View) Answers() []string {
	out := make([]string, len(v.exchanges))
	for i, ex := range v.exchanges {
		out[i] = ex.answer.String()
	}
	return out
}

// Contexts returns the excerpts the latest answer was grounded on.
func (v *View) Contexts() []domain.ScoredContext {
	return v.list.Contexts()
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// StatusMessage returns the status bar message.
func (v *View) StatusMessage() string {
	return v.statusbar.Message()
}

// Reset starts a new session with an empty transcript.
func (v *View) Reset() {
	v.finish()
	v.sessionID = ""
	v.exchanges = nil
	v.list.SetContexts(nil)
	v.input.Reset()
	v.setFocusInput(true)
	v.statusbar.Clear()
	v.refreshTranscript()
}
