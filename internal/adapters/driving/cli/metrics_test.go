package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestMetricsCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range metricsCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "summary")
}

func TestMetricsSummaryCmd_Empty(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "", "metrics", "summary")

	require.NoError(t, err)
	assert.Contains(t, out, "Requests:                0")
	assert.Contains(t, out, "Avg first-token latency: n/a")
	assert.Contains(t, out, "No requests logged yet.")
}

func TestMetricsSummaryCmd_AfterAsking(t *testing.T) {
	env := setupTestServices(t)
	env.Ingest(t, "france.txt", "The capital of France is Paris.")

	for range 3 {
		_, err := execute(t, "", "ask", "capital of France?")
		require.NoError(t, err)
	}

	out, err := execute(t, "", "metrics", "summary", "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Requests:                3")
	assert.Contains(t, out, domain.EndpointCLI)

	out, err = execute(t, "", "metrics", "summary", "--limit", "2", "--json")
	require.NoError(t, err)

	var summary domain.MetricsSummary
	require.NoError(t, json.Unmarshal([]byte(jsonPart(out)), &summary))
	assert.Equal(t, 3, summary.TotalRequests)
	assert.Len(t, summary.Recent, 2)
	assert.Greater(t, summary.TotalCost, 0.0)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "héllo", truncate("héllo", 5))
}
