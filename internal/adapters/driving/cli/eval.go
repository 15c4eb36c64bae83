package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/app"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/normalisers"
)

var (
	evalCasesPath string
	evalFiles     []string
	evalK         int
	evalJSON      bool
	evalConfigs   []string
	evalPairsPath string
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate retrieval and answer quality",
	Long: `Offline evaluation against labelled cases.

A cases file is YAML (or JSON):
  cases:
    - query: What is the capital of France?
      relevant_sources: [france.txt]
      reference: Paris`,
}

var evalRetrievalCmd = &cobra.Command{
	Use:   "retrieval",
	Short: "Precision@k, recall@k and MRR of vector search",
	Args:  cobra.NoArgs,
	RunE:  runEvalRetrieval,
}

var evalJudgeCmd = &cobra.Command{
	Use:   "judge",
	Short: "Grade answers with the LLM as judge",
	Args:  cobra.NoArgs,
	RunE:  runEvalJudge,
}

var evalSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Compare chunk configurations on a corpus",
	Long: `Report how many chunks each chunk_size/overlap pair produces.

Examples:
  docqa eval sweep --file report.pdf
  docqa eval sweep --file report.pdf --config 300/60 --config 600/120`,
	Args: cobra.NoArgs,
	RunE: runEvalSweep,
}

var evalScenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "Upload documents and hold graded conversations about them",
	Long: `Run conversation scenarios. Each scenario uploads a document, then asks
its questions in one session. Every answer is timed and graded against its
gold answer.

A scenarios file is YAML (or JSON); doc_path is relative to the file:
  - id: refunds
    doc_path: docs/policy.pdf
    questions:
      - q: How long is the refund window?
        gold_answer: 30 days
        max_latency_sec: 10`,
	Args: cobra.NoArgs,
	RunE: runEvalScenarios,
}

var evalEmbeddingsCmd = &cobra.Command{
	Use:   "embeddings",
	Short: "Check that the embedding model separates related from unrelated text",
	Long: `Embed pairs of related and unrelated sentences and compare their mean
cosine similarity. Without --pairs a small built-in set is used.

A pairs file is YAML (or JSON):
  similar:
    - {a: An embedding turns text into a vector., b: Text becomes a vector.}
  dissimilar:
    - {a: An embedding turns text into a vector., b: It is raining today.}`,
	Args: cobra.NoArgs,
	RunE: runEvalEmbeddings,
}

func init() {
	for _, c := range []*cobra.Command{evalRetrievalCmd, evalJudgeCmd, evalScenariosCmd} {
		c.Flags().StringVar(&evalCasesPath, "cases", "", "YAML or JSON cases file")
		_ = c.MarkFlagRequired("cases")
	}
	for _, c := range []*cobra.Command{evalRetrievalCmd, evalJudgeCmd, evalSweepCmd} {
		c.Flags().StringArrayVarP(&evalFiles, "file", "f", nil, "TXT or PDF file to index first (repeatable)")
		c.Flags().BoolVar(&evalJSON, "json", false, "output results as JSON")
	}
	for _, c := range []*cobra.Command{evalScenariosCmd, evalEmbeddingsCmd} {
		c.Flags().BoolVar(&evalJSON, "json", false, "output results as JSON")
	}
	evalEmbeddingsCmd.Flags().StringVar(&evalPairsPath, "pairs", "", "YAML or JSON file of similar and dissimilar pairs")
	evalRetrievalCmd.Flags().IntVarP(&evalK, "k", "k", 5, "number of hits scored per case")
	evalSweepCmd.Flags().StringArrayVar(&evalConfigs, "config", nil, "chunk_size/overlap pair (repeatable, default 200/50 500/100 800/200)")

	evalCmd.AddCommand(evalRetrievalCmd)
	evalCmd.AddCommand(evalJudgeCmd)
	evalCmd.AddCommand(evalSweepCmd)
	evalCmd.AddCommand(evalScenariosCmd)
	evalCmd.AddCommand(evalEmbeddingsCmd)
	rootCmd.AddCommand(evalCmd)
}

func runEvalRetrieval(cmd *cobra.Command, _ []string) error {
	cases, err := file.LoadEvalCases(evalCasesPath)
	if err != nil {
		return err
	}

	return withApp(cmd, func(a *app.App) error {
		if err := ingestFiles(cmd, a.Ingest, evalFiles); err != nil {
			return err
		}
		report, err := a.Eval.EvaluateRetrieval(cmd.Context(), cases, evalK)
		if err != nil {
			return fmt.Errorf("evaluation failed: %w", err)
		}
		if evalJSON {
			return printJSON(cmd, report)
		}

		cmd.Printf("Retrieval @%d over %d cases\n\n", report.K, len(report.Cases))
		for _, c := range report.Cases {
			cmd.Printf("  P=%.2f  R=%.2f  RR=%.2f  %s\n", c.PrecisionAtK, c.RecallAtK, c.ReciprocalRank, truncate(c.Query, 60))
		}
		cmd.Println()
		cmd.Printf("  Mean precision@%d: %.3f\n", report.K, report.MeanPrecision)
		cmd.Printf("  Mean recall@%d:    %.3f\n", report.K, report.MeanRecall)
		cmd.Printf("  MRR:               %.3f\n", report.MRR)
		return nil
	})
}

func runEvalJudge(cmd *cobra.Command, _ []string) error {
	cases, err := file.LoadEvalCases(evalCasesPath)
	if err != nil {
		return err
	}

	return withApp(cmd, func(a *app.App) error {
		if err := ingestFiles(cmd, a.Ingest, evalFiles); err != nil {
			return err
		}
		verdicts, err := a.Eval.Judge(cmd.Context(), cases)
		if err != nil {
			return fmt.Errorf("evaluation failed: %w", err)
		}
		if evalJSON {
			return printJSON(cmd, verdicts)
		}

		var relevance, hallucination, correctness float64
		for _, v := range verdicts {
			mark := ""
			if !v.Parsed {
				mark = "  (unparsed)"
			}
			cmd.Printf("  rel=%.0f  hal=%.0f  cor=%.0f  %s%s\n",
				v.Relevance, v.Hallucination, v.Correctness, truncate(v.Query, 60), mark)
			relevance += v.Relevance
			hallucination += v.Hallucination
			correctness += v.Correctness
		}
		if n := float64(len(verdicts)); n > 0 {
			cmd.Println()
			cmd.Printf("  Mean relevance:     %.3f\n", relevance/n)
			cmd.Printf("  Mean hallucination: %.3f\n", hallucination/n)
			cmd.Printf("  Mean correctness:   %.3f\n", correctness/n)
		}
		return nil
	})
}

func runEvalSweep(cmd *cobra.Command, _ []string) error {
	if len(evalFiles) == 0 {
		return fmt.Errorf("%w: at least one --file is required", domain.ErrInvalidInput)
	}
	configs, err := parseChunkConfigs(evalConfigs)
	if err != nil {
		return err
	}

	registry := normalisers.Default()
	texts := make([]string, 0, len(evalFiles))
	for _, path := range evalFiles {
		text, err := registry.Extract(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		texts = append(texts, text)
	}

	results, err := services.SweepChunking(texts, configs)
	if err != nil {
		return err
	}
	if evalJSON {
		return printJSON(cmd, results)
	}

	cmd.Printf("  %-10s %-8s %-8s %s\n", "chunk_size", "overlap", "chunks", "avg_words")
	for _, r := range results {
		cmd.Printf("  %-10d %-8d %-8d %.1f\n", r.ChunkSize, r.Overlap, r.Chunks, r.AvgWords)
	}
	return nil
}

func runEvalScenarios(cmd *cobra.Command, _ []string) error {
	scenarios, err := file.LoadScenarios(evalCasesPath)
	if err != nil {
		return err
	}

	return withApp(cmd, func(a *app.App) error {
		report, err := a.Eval.RunScenarios(cmd.Context(), scenarios)
		if err != nil {
			return fmt.Errorf("evaluation failed: %w", err)
		}
		if evalJSON {
			return printJSON(cmd, report)
		}

		for _, skipped := range report.Skipped {
			cmd.Printf("  skipped %s\n", skipped)
		}
		for _, ans := range report.Answers {
			mark := ""
			if !ans.WithinLimit {
				mark = fmt.Sprintf("  (over %.0fs)", ans.MaxLatencySec)
			}
			if ans.Verdict == nil {
				cmd.Printf("  %-12s %6.2fs  no answer  %s%s\n",
					truncate(ans.ScenarioID, 12), ans.LatencySec, truncate(ans.Question, 50), mark)
				continue
			}
			cmd.Printf("  %-12s %6.2fs  cor=%.2f   %s%s\n",
				truncate(ans.ScenarioID, 12), ans.LatencySec, ans.Verdict.Correctness, truncate(ans.Question, 50), mark)
		}
		if len(report.Answers) == 0 {
			cmd.Println("No questions were answered.")
			return nil
		}
		cmd.Println()
		cmd.Printf("  Average latency:     %.2fs\n", report.AvgLatencySec)
		cmd.Printf("  Average correctness: %.3f\n", report.AvgCorrectness)
		cmd.Printf("  Over the limit:      %d of %d\n", report.SlowAnswers, len(report.Answers))
		return nil
	})
}

func runEvalEmbeddings(cmd *cobra.Command, _ []string) error {
	var similar, dissimilar []domain.TextPair
	if evalPairsPath != "" {
		var err error
		if similar, dissimilar, err = file.LoadTextPairs(evalPairsPath); err != nil {
			return err
		}
	}

	return withApp(cmd, func(a *app.App) error {
		check, err := a.Eval.CheckEmbeddings(cmd.Context(), similar, dissimilar)
		if err != nil {
			return fmt.Errorf("embedding check failed: %w", err)
		}
		if evalJSON {
			return printJSON(cmd, check)
		}

		cmd.Printf("Embedding model: %s\n\n", check.Model)
		cmd.Printf("  Mean similarity, similar pairs:    %.3f\n", check.SimilarMean)
		cmd.Printf("  Mean similarity, dissimilar pairs: %.3f\n", check.DissimilarMean)
		cmd.Printf("  Margin:                            %.3f\n", check.Margin())
		if check.Margin() <= 0 {
			cmd.Println("\n  The model does not separate related from unrelated text.")
		}
		return nil
	})
}

// parseChunkConfigs parses "size/overlap" pairs.
func parseChunkConfigs(raw []string) ([]domain.ChunkConfig, error) {
	configs := make([]domain.ChunkConfig, 0, len(raw))
	for _, r := range raw {
		size, overlap, ok := strings.Cut(r, "/")
		if !ok {
			return nil, fmt.Errorf("%w: chunk config %q must be size/overlap", domain.ErrInvalidInput, r)
		}
		s, err1 := strconv.Atoi(strings.TrimSpace(size))
		o, err2 := strconv.Atoi(strings.TrimSpace(overlap))
		if err := errors.Join(err1, err2); err != nil {
			return nil, fmt.Errorf("%w: chunk config %q: %v", domain.ErrInvalidInput, r, err)
		}
		configs = append(configs, domain.ChunkConfig{ChunkSize: s, Overlap: o})
	}
	return configs, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
