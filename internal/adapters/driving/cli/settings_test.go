package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Test helper functions in settings.go

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{
			name:       "Empty input returns default",
			input:      "",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Valid choice within range",
			input:      "3",
			maxVal:     5,
			defaultVal: 1,
			expected:   3,
		},
		{
			name:       "Choice below minimum returns default",
			input:      "0",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Choice above maximum returns default",
			input:      "6",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Invalid input returns default",
			input:      "abc",
			maxVal:     5,
			defaultVal: 2,
			expected:   2,
		},
		{
			name:       "Negative number returns default",
			input:      "-1",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Whitespace returns default",
			input:      "   ",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Maximum value is valid",
			input:      "5",
			maxVal:     5,
			defaultVal: 1,
			expected:   5,
		},
		{
			name:       "Minimum value is valid",
			input:      "1",
			maxVal:     5,
			defaultVal: 3,
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseChoice(tt.input, tt.maxVal, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSettingsShowCmd(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "", "settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "[chunking]")
	assert.Contains(t, out, "chunking.chunk_size = 500")
	assert.Contains(t, out, "llm.api_key = (not set)")
}

func TestSettingsShowCmd_NoService(t *testing.T) {
	setupTestServices(t)
	settingsService = nil

	_, err := execute(t, "", "settings", "show")

	assert.EqualError(t, err, "settings service not configured")
}

func TestSettingsSetCmd(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "", "settings", "set", "retrieval.top_k", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "retrieval.top_k = 10")

	got, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, 10, got.Retrieval.TopK)
}

func TestSettingsSetCmd_ReadsSecretFromInput(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "sk-1234567890abcdef\n", "settings", "set", "llm.api_key")
	require.NoError(t, err)
	assert.Contains(t, out, "llm.api_key = sk-1...cdef")
	assert.NotContains(t, out, "sk-1234567890abcdef")

	got, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, "sk-1234567890abcdef", got.LLM.APIKey)
}

func TestSettingsSetCmd_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown key", args: []string{"nope.key", "1"}},
		{name: "wrong type", args: []string{"retrieval.top_k", "many"}},
		{name: "overlap not below chunk size", args: []string{"chunking.overlap", "500"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestServices(t)

			_, err := execute(t, "", append([]string{"settings", "set"}, tt.args...)...)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestSettingsLLMCmd(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "3\n\nsk-ant-0123456789\n", "settings", "llm")
	require.NoError(t, err)
	assert.Contains(t, out, "Validating configuration... OK")
	assert.Contains(t, out, "LLM provider configured: Anthropic (cloud)")

	got, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderAnthropic, got.LLM.Provider)
	assert.Equal(t, domain.DefaultLLMModels()[domain.AIProviderAnthropic], got.LLM.Model)
	assert.Equal(t, "sk-ant-0123456789", got.LLM.APIKey)
}

func TestSettingsEmbeddingCmd_Ollama(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "1\nnomic-embed-text\n", "settings", "embedding")
	require.NoError(t, err)

	got, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, got.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", got.Embedding.Model)
}

func TestIsSecretKey(t *testing.T) {
	assert.True(t, isSecretKey("llm.api_key"))
	assert.True(t, isSecretKey("vector.pg_dsn"))
	assert.False(t, isSecretKey("llm.model"))
}
