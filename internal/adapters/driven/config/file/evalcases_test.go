package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestParseEvalCases(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []domain.EvalCase
	}{
		{
			name: "yaml list",
			data: `
- query: How long is the refund window?
  relevant_ids: [3, 4]
  reference: 30 days
- query: Who signs off expenses?
  relevant_sources: [policy.pdf]
`,
			want: []domain.EvalCase{
				{Query: "How long is the refund window?", RelevantIDs: []int64{3, 4}, Reference: "30 days"},
				{Query: "Who signs off expenses?", RelevantSources: []string{"policy.pdf"}},
			},
		},
		{
			name: "yaml cases key",
			data: `
cases:
  - query: What is the SLA?
    relevant_ids: [0]
`,
			want: []domain.EvalCase{{Query: "What is the SLA?", RelevantIDs: []int64{0}}},
		},
		{
			name: "json list",
			data: `[{"query": "q1", "relevant_ids": [1, 2]}, {"query": "q2", "relevant_sources": ["a.txt"]}]`,
			want: []domain.EvalCase{
				{Query: "q1", RelevantIDs: []int64{1, 2}},
				{Query: "q2", RelevantSources: []string{"a.txt"}},
			},
		},
		{
			name: "question and gold answer aliases",
			data: `[{"id": "c1", "question": "  Who founded it?  ", "gold_answer": "Ada"}]`,
			want: []domain.EvalCase{{Query: "Who founded it?", Reference: "Ada"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEvalCases([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEvalCases_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		message string
	}{
		{"empty", "   \n", "empty"},
		{"no cases", "cases: []", "no eval cases"},
		{"missing query", `[{"id": "c7", "relevant_ids": [1]}]`, "c7 has no query"},
		{"missing query unnamed", "- relevant_ids: [1]", "#1 has no query"},
		{"not cases", "just a string", "parse eval cases"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEvalCases([]byte(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoadEvalCases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- query: hello\n  relevant_ids: [9]\n"), 0600))

	cases, err := LoadEvalCases(path)

	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, []int64{9}, cases[0].RelevantIDs)

	_, err = LoadEvalCases(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read eval cases")
}
