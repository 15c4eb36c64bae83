package messages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// TestViewChanged tests the ViewChanged message type
func TestViewChanged(t *testing.T) {
	t.Run("to chat view", func(t *testing.T) {
		msg := ViewChanged{View: ViewChat}
		assert.Equal(t, ViewChat, msg.View)
	})

	t.Run("to help view", func(t *testing.T) {
		msg := ViewChanged{View: ViewHelp}
		assert.Equal(t, ViewHelp, msg.View)
	})
}

// TestViewType_String tests all ViewType string representations
func TestViewType_String(t *testing.T) {
	tests := []struct {
		name     string
		view     ViewType
		expected string
	}{
		{"ViewMenu", ViewMenu, "menu"},
		{"ViewChat", ViewChat, "chat"},
		{"ViewUpload", ViewUpload, "upload"},
		{"ViewMetrics", ViewMetrics, "metrics"},
		{"ViewSettings", ViewSettings, "settings"},
		{"ViewHelp", ViewHelp, "help"},
		{"UnknownView", ViewType(99), "unknown"},
		{"NegativeView", ViewType(-1), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.view.String())
		})
	}
}

func TestAnswerStarted_WithError(t *testing.T) {
	msg := AnswerStarted{Err: domain.ErrNoDocuments}

	assert.Nil(t, msg.Stream)
	assert.ErrorIs(t, msg.Err, domain.ErrNoDocuments)
}

func TestAnswerCompleted(t *testing.T) {
	t.Run("with response", func(t *testing.T) {
		resp := &driving.ChatResponse{SessionID: "s1", Answer: "Paris", State: domain.RetrievalReranked}
		msg := AnswerCompleted{Response: resp}

		require.NotNil(t, msg.Response)
		assert.Equal(t, "Paris", msg.Response.Answer)
		assert.NoError(t, msg.Err)
	})

	t.Run("ended early", func(t *testing.T) {
		msg := AnswerCompleted{Err: domain.ErrGenerationUnavailable}

		assert.Nil(t, msg.Response)
		assert.ErrorIs(t, msg.Err, domain.ErrGenerationUnavailable)
	})
}

func TestIngestCompleted(t *testing.T) {
	msg := IngestCompleted{Result: &domain.IngestResult{Source: "a.txt", ChunksIndexed: 3}}

	require.NotNil(t, msg.Result)
	assert.Equal(t, 3, msg.Result.ChunksIndexed)
	assert.NoError(t, msg.Err)
}

func TestSettingsLoaded(t *testing.T) {
	msg := SettingsLoaded{Pairs: [][2]string{{"retrieval.top_k", "5"}}}

	require.Len(t, msg.Pairs, 1)
	assert.Equal(t, "retrieval.top_k", msg.Pairs[0][0])
}

// TestErrorOccurred tests the ErrorOccurred message type
func TestErrorOccurred(t *testing.T) {
	t.Run("with standard error", func(t *testing.T) {
		err := errors.New("something went wrong")
		msg := ErrorOccurred{Err: err}

		assert.Error(t, msg.Err)
		assert.Equal(t, "something went wrong", msg.Err.Error())
	})

	t.Run("with wrapped error", func(t *testing.T) {
		baseErr := errors.New("base error")
		wrappedErr := errors.Join(baseErr, errors.New("additional context"))
		msg := ErrorOccurred{Err: wrappedErr}

		assert.ErrorIs(t, msg.Err, baseErr)
	})
}
