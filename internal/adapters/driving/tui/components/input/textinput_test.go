package input

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	in := New(nil, "Ask:", "type a question")

	require.NotNil(t, in)
	assert.True(t, in.Focused())
	assert.Empty(t, in.Value())
	assert.Contains(t, in.View(), "Ask:")
}

func TestInput_Typing(t *testing.T) {
	in := New(nil, "Ask:", "")

	for _, r := range "hi" {
		in, _ = in.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	assert.Equal(t, "hi", in.Value())

	in.Reset()
	assert.Empty(t, in.Value())
}

func TestInput_FocusAndBlur(t *testing.T) {
	in := New(nil, "Path:", "")

	in.Blur()
	assert.False(t, in.Focused())
	in.Focus()
	assert.True(t, in.Focused())
}

func TestInput_SetWidth(t *testing.T) {
	in := New(nil, "Ask:", "")

	in.SetWidth(100)
	assert.Equal(t, 100, in.Width())

	in.SetWidth(5)
	assert.Equal(t, 5, in.Width())
}
