package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset() {
	SetVerbose(false)
	SetLevel(slog.LevelWarn)
	_ = SetFormat(FormatPretty)
	SetOutput(os.Stderr)
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestDebug_WhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Debug("test message %s", "arg")

	assert.Contains(t, buf.String(), "DEBUG: test message arg")
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("test message")

	assert.Zero(t, buf.Len())
}

func TestLevels(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Info("hidden at warn level")
	Warn("shown %d", 1)
	Error("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN: shown 1")
	assert.Contains(t, out, "ERROR: shown 2")

	buf.Reset()
	SetLevel(slog.LevelInfo)
	Info("now visible")
	assert.Contains(t, buf.String(), "INFO: now visible")
}

func TestSection(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Section("Hidden")
	assert.Zero(t, buf.Len())

	SetVerbose(true)
	Section("Retrieval")
	assert.Equal(t, "\n=== Retrieval ===\n", buf.String())
}

func TestSetFormat_JSON(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(slog.LevelInfo)
	require.NoError(t, SetFormat("JSON"))

	Log(context.Background(), slog.LevelInfo, "request", "status", 200)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "request", rec["msg"])
	assert.Equal(t, float64(200), rec["status"])
}

func TestSetFormat_Unknown(t *testing.T) {
	assert.Error(t, SetFormat("xml"))
}

func TestPrettyHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: slog.LevelDebug},
		NoColor:  true,
	})

	rec := slog.NewRecord(time.Now(), slog.LevelWarn, "warning message", 0)
	rec.AddAttrs(slog.Bool("flag", true))
	require.NoError(t, h.WithGroup("http").WithAttrs([]slog.Attr{slog.String("path", "/chat")}).Handle(context.Background(), rec))

	out := buf.String()
	assert.Contains(t, out, "WARN: warning message")
	assert.Contains(t, out, "http.path=/chat")
	assert.Contains(t, out, "http.flag=true")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestPrettyHandler_Enabled(t *testing.T) {
	h := NewPrettyHandler(&bytes.Buffer{}, PrettyHandlerOptions{})

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
}
