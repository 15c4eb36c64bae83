package cli

import (
	"bufio"
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docqa/internal/app"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

var chatFiles []string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question-answer session",
	Long: `Index the given files, then answer questions read line by line.
Answers stream as they are generated and the whole session shares one history.

Commands:
  /new       start a new session
  /rate N    rate the last answer from 1 to 5
  /exit      leave`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringArrayVarP(&chatFiles, "file", "f", nil, "TXT or PDF file to index first (repeatable)")
	rootCmd.AddCommand(chatCmd)
}

// chatSession is the state carried between REPL lines.
type chatSession struct {
	id       string
	question string
	answer   string
}

func runChat(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(a *app.App) error {
		if err := ingestFiles(cmd, a.Ingest, chatFiles); err != nil {
			return err
		}
		return chatLoop(cmd, a)
	})
}

func chatLoop(cmd *cobra.Command, a *app.App) error {
	interactive := isInteractive(cmd)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	var session chatSession

	for {
		if interactive {
			cmd.Print("> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if err := cmd.Context().Err(); err != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/exit" || line == "/quit":
			return nil
		case line == "/new":
			session = chatSession{}
			cmd.Println("Started a new session.")
			continue
		case strings.HasPrefix(line, "/rate"):
			rateAnswer(cmd, a.Feedback, session, strings.TrimSpace(strings.TrimPrefix(line, "/rate")))
			continue
		}

		resp, err := streamAnswer(cmd, a.Chat, driving.ChatRequest{
			Question:  line,
			SessionID: session.id,
			Endpoint:  domain.EndpointCLI,
		})
		if err != nil {
			if cmd.Context().Err() != nil {
				return nil
			}
			// Errors end the turn, not the session.
			cmd.PrintErrf("Error: %v\n", err)
			continue
		}
		session = chatSession{id: resp.SessionID, question: line, answer: resp.Answer}
	}
}

func rateAnswer(cmd *cobra.Command, feedback driving.FeedbackService, session chatSession, arg string) {
	if feedback == nil {
		cmd.PrintErrln("Feedback is not enabled.")
		return
	}
	if session.id == "" {
		cmd.PrintErrln("Nothing to rate yet.")
		return
	}
	rating, err := strconv.Atoi(arg)
	if err != nil {
		cmd.PrintErrln("Usage: /rate N (1-5)")
		return
	}
	err = feedback.Submit(cmd.Context(), domain.Feedback{
		SessionID: session.id,
		Question:  session.question,
		Answer:    session.answer,
		Rating:    rating,
	})
	if errors.Is(err, domain.ErrInvalidInput) {
		cmd.PrintErrln("Usage: /rate N (1-5)")
		return
	}
	if err != nil {
		cmd.PrintErrf("Error: %v\n", err)
		return
	}
	cmd.Println("Thanks for the feedback.")
}

// isInteractive reports whether input comes from a terminal, so prompts are shown.
func isInteractive(cmd *cobra.Command) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
