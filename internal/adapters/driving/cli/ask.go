package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/app"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

var (
	askFiles    []string
	askStream   bool
	askNoRerank bool
	askJSON     bool
	askSession  string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question from your documents",
	Long: `Index the given files, then answer a single question from them.

Examples:
  docqa ask --file report.pdf "What was the revenue in 2023?"
  docqa ask --file a.txt --file b.pdf --stream "Summarise both documents"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringArrayVarP(&askFiles, "file", "f", nil, "TXT or PDF file to index first (repeatable)")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "print the answer as it is generated")
	askCmd.Flags().BoolVar(&askNoRerank, "no-rerank", false, "skip the rerank stage")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the response as JSON")
	askCmd.Flags().StringVar(&askSession, "session", "", "continue an existing session")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	return withApp(cmd, func(a *app.App) error {
		if err := ingestFiles(cmd, a.Ingest, askFiles); err != nil {
			return err
		}

		req := driving.ChatRequest{
			Question:  question,
			SessionID: askSession,
			Endpoint:  domain.EndpointCLI,
		}
		if askNoRerank {
			opts := a.Settings.Retrieval.Options()
			opts.Rerank = false
			req.Retrieval = &opts
		}

		var (
			resp *driving.ChatResponse
			err  error
		)
		if askStream && !askJSON {
			resp, err = streamAnswer(cmd, a.Chat, req)
		} else {
			resp, err = a.Chat.Ask(cmd.Context(), req)
		}
		if err != nil {
			return fmt.Errorf("ask failed: %w", err)
		}

		if askJSON {
			return outputAnswerJSON(cmd, resp)
		}
		if !askStream {
			cmd.Println(resp.Answer)
		}
		printSources(cmd.OutOrStdout(), resp)
		return nil
	})
}

// streamAnswer prints fragments as they arrive and returns the committed response.
func streamAnswer(cmd *cobra.Command, chat driving.ChatService, req driving.ChatRequest) (*driving.ChatResponse, error) {
	stream, err := chat.AskStream(cmd.Context(), req)
	if err != nil {
		return nil, err
	}
	out := cmd.OutOrStdout()
	for fragment := range stream.Fragments() {
		fmt.Fprint(out, fragment)
	}
	fmt.Fprintln(out)
	return stream.Result()
}

type answerJSON struct {
	SessionID string                `json:"session_id"`
	Answer    string                `json:"answer"`
	State     domain.RetrievalState `json:"retrieval_state"`
	Context   []contextJSON         `json:"context"`
	Metrics   domain.MetricsRecord  `json:"monitoring"`
}

type contextJSON struct {
	ID          int64    `json:"id"`
	Source      string   `json:"source"`
	Text        string   `json:"text"`
	Score       float64  `json:"score"`
	RerankScore *float64 `json:"rerank_score,omitempty"`
}

func outputAnswerJSON(cmd *cobra.Command, resp *driving.ChatResponse) error {
	out := answerJSON{
		SessionID: resp.SessionID,
		Answer:    resp.Answer,
		State:     resp.State,
		Context:   make([]contextJSON, 0, len(resp.Contexts)),
		Metrics:   resp.Metrics,
	}
	for _, c := range resp.Contexts {
		out.Context = append(out.Context, contextJSON{
			ID:          c.ID,
			Source:      c.Source,
			Text:        c.Text,
			Score:       c.Score,
			RerankScore: c.RerankScore,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printSources(w io.Writer, resp *driving.ChatResponse) {
	if len(resp.Contexts) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Sources (%s):\n", resp.State)
	for i, c := range resp.Contexts {
		score := fmt.Sprintf("%.2f", c.Score)
		if c.RerankScore != nil {
			score = fmt.Sprintf("%.2f rerank", *c.RerankScore)
		}
		fmt.Fprintf(w, "  [%d] %s #%d (%s)\n", i+1, c.Source, c.ID, score)
	}
}
