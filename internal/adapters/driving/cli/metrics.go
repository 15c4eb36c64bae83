package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/app"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

var (
	metricsLimit int
	metricsJSON  bool
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Inspect request metrics",
}

var metricsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarise the request log",
	Long: `Show totals over every logged request and the most recent records,
newest first.`,
	Args: cobra.NoArgs,
	RunE: runMetricsSummary,
}

func init() {
	metricsSummaryCmd.Flags().IntVarP(&metricsLimit, "limit", "n", 50, "number of recent records to show")
	metricsSummaryCmd.Flags().BoolVar(&metricsJSON, "json", false, "output the summary as JSON")
	metricsCmd.AddCommand(metricsSummaryCmd)
	rootCmd.AddCommand(metricsCmd)
}

func runMetricsSummary(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(a *app.App) error {
		if a.Metrics == nil {
			return errors.New("metrics are not enabled")
		}
		summary, err := a.Metrics.Summary(cmd.Context(), metricsLimit)
		if err != nil {
			return fmt.Errorf("failed to summarise metrics: %w", err)
		}
		if metricsJSON {
			data, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal summary: %w", err)
			}
			cmd.Println(string(data))
			return nil
		}
		outputMetricsTable(cmd, summary)
		return nil
	})
}

func outputMetricsTable(cmd *cobra.Command, s *domain.MetricsSummary) {
	firstToken := "n/a"
	if s.AvgFirstTokenLatencySec != nil {
		firstToken = fmt.Sprintf("%.2fs", *s.AvgFirstTokenLatencySec)
	}

	cmd.Println("Metrics Summary")
	cmd.Println("===============")
	cmd.Printf("  Requests:                %d\n", s.TotalRequests)
	cmd.Printf("  Avg latency:             %.2fs\n", s.AvgLatencySec)
	cmd.Printf("  Avg first-token latency: %s\n", firstToken)
	cmd.Printf("  Total cost:              $%.6f\n", s.TotalCost)

	if len(s.Recent) == 0 {
		cmd.Println()
		cmd.Println("No requests logged yet.")
		return
	}

	cmd.Println()
	cmd.Println("Recent:")
	for _, r := range s.Recent {
		cmd.Printf("  %s  %-16s %6.2fs  $%.6f  %s\n",
			r.Timestamp.Format("2006-01-02 15:04:05"), r.Endpoint, r.TotalLatencySec, r.CostEstimate, truncate(r.Question, 48))
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
