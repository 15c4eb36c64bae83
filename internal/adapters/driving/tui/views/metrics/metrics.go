// Package metrics provides the request metrics dashboard view.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// recentLimit is how many recent requests are listed.
const recentLimit = 15

// ErrNoMetricsService is returned when the metrics service is not available.
var ErrNoMetricsService = errors.New("metrics not available")

// View shows request totals, average latencies and recent requests.
type View struct {
	styles  *styles.Styles
	metrics driving.MetricsService
	ctx     context.Context

	summary *domain.MetricsSummary
	err     error
	loading bool
	width   int
	height  int
	ready   bool
}

// NewView creates a new metrics view.
func NewView(s *styles.Styles, metrics driving.MetricsService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:  s,
		metrics: metrics,
		ctx:     context.Background(),
		width:   80,
		height:  24,
	}
}

// WithContext sets the context the summary is loaded under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the summary.
func (v *View) Init() tea.Cmd {
	return v.load()
}

func (v *View) load() tea.Cmd {
	if v.metrics == nil {
		v.err = ErrNoMetricsService
		return nil
	}
	v.loading = true
	ctx := v.ctx
	return func() tea.Msg {
		summary, err := v.metrics.Summary(ctx, recentLimit)
		return messages.MetricsLoaded{Summary: summary, Err: err}
	}
}

// Update handles messages for the metrics view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q":
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewMenu}
			}
		case "r":
			return v, v.load()
		}

	case messages.MetricsLoaded:
		v.loading = false
		v.summary = msg.Summary
		v.err = msg.Err
	}
	return v, nil
}

// View renders the dashboard.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := []string{v.styles.Title.Render("Metrics"), ""}
	switch {
	case v.err != nil:
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()))
	case v.loading || v.summary == nil:
		sections = append(sections, v.styles.Muted.Render("Loading..."))
	case v.summary.TotalRequests == 0:
		sections = append(sections, v.styles.Muted.Render("No requests recorded yet."))
	default:
		sections = append(sections, v.renderTotals(), "", v.renderRecent())
	}
	sections = append(sections, "", v.styles.Help.Render("[r] Refresh  [Esc] Back"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderTotals() string {
	s := v.summary
	firstToken := "n/a"
	if s.AvgFirstTokenLatencySec != nil {
		firstToken = fmt.Sprintf("%.2fs", *s.AvgFirstTokenLatencySec)
	}
	rows := [][2]string{
		{"Requests", fmt.Sprintf("%d", s.TotalRequests)},
		{"Avg latency", fmt.Sprintf("%.2fs", s.AvgLatencySec)},
		{"Avg first token", firstToken},
		{"Estimated cost", fmt.Sprintf("$%.4f", s.TotalCost)},
	}
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = v.styles.Muted.Render(fmt.Sprintf("%-16s", r[0])) + v.styles.Normal.Render(r[1])
	}
	return strings.Join(lines, "\n")
}

func (v *View) renderRecent() string {
	lines := []string{v.styles.Subtitle.Render(fmt.Sprintf("Recent (%d)", len(v.summary.Recent)))}
	questionWidth := max(v.width-48, 16)
	for _, r := range v.summary.Recent {
		q := strings.Join(strings.Fields(r.Question), " ")
		if len([]rune(q)) > questionWidth {
			q = string([]rune(q)[:questionWidth-3]) + "..."
		}
		lines = append(lines, fmt.Sprintf("%s  %-12s %6.2fs  %-16s %s",
			r.Timestamp.Local().Format("01-02 15:04:05"),
			r.Endpoint,
			r.TotalLatencySec,
			r.RetrievalState,
			q,
		))
	}
	return strings.Join(lines, "\n")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Summary returns the loaded summary.
func (v *View) Summary() *domain.MetricsSummary {
	return v.summary
}

// Err returns the last load error.
func (v *View) Err() error {
	return v.err
}
