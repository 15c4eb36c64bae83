package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui"
	"github.com/custodia-labs/docqa/internal/app"
)

var tuiFiles []string

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for docqa.

The TUI lets you ask questions with streamed answers, inspect the context
each answer used, rate answers, upload documents and browse metrics.

Controls:
  ↑/k, ↓/j - Navigate
  Enter    - Ask / Select
  Tab      - Toggle context panel
  1-5      - Rate the last answer
  Ctrl+N   - New session
  Esc      - Stop answer / Back
  ?        - Toggle help
  q        - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringArrayVarP(&tuiFiles, "file", "f", nil, "TXT or PDF file to index first (repeatable)")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	return withApp(cmd, func(a *app.App) error {
		if err := ingestFiles(cmd, a.Ingest, tuiFiles); err != nil {
			return err
		}

		program, err := newTUI(cmd, a)
		if err != nil {
			return err
		}
		if err := program.Run(); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	})
}

func newTUI(cmd *cobra.Command, a *app.App) (*tui.App, error) {
	ports := &tui.Ports{
		Chat:     a.Chat,
		Ingest:   a.Ingest,
		Feedback: a.Feedback,
		Metrics:  a.Metrics,
		Settings: settingsService,
	}
	program, err := tui.NewApp(ports)
	if err != nil {
		return nil, fmt.Errorf("failed to create TUI: %w", err)
	}
	opts := a.Settings.Retrieval.Options()
	return program.WithContext(cmd.Context()).WithRetrievalOptions(&opts), nil
}
