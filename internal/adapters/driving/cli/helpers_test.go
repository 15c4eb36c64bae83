package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/app"
	"github.com/custodia-labs/docqa/internal/app/apptest"
	"github.com/custodia-labs/docqa/internal/core/services"
)

// setupTestServices points every command at a pipeline built on fakes.
func setupTestServices(t *testing.T) *apptest.Env {
	t.Helper()
	env := apptest.New(t)

	settings := services.NewSettingsService(memory.NewConfigStore(), nil)
	settings.SetEnvLookup(func(string) string { return "" })

	origFactory, origSettings := appFactory, settingsService
	appFactory = func(context.Context) (*app.App, error) { return env.App, nil }
	settingsService = settings
	resetFlags()

	t.Cleanup(func() {
		appFactory = origFactory
		settingsService = origSettings
		resetFlags()
	})
	return env
}

// resetFlags restores flag variables, which cobra keeps between executions.
func resetFlags() {
	verbose, envFile, configDir = false, defaultEnvFile, ""
	askFiles, askStream, askNoRerank, askJSON, askSession = nil, false, false, false, ""
	chatFiles = nil
	serveAddr = ""
	mcpAddr, mcpFiles = "", nil
	tuiFiles = nil
	metricsLimit, metricsJSON = 50, false
	evalCasesPath, evalFiles, evalK, evalJSON, evalConfigs = "", nil, 5, false, nil
	evalPairsPath = ""
}

// execute runs the root command with args and stdin, returning combined output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// writeDoc writes a text document into dir and returns its path.
func writeDoc(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o600))
	return path
}

// jsonPart returns output from the first '{' or '[' on, skipping indexing notices.
func jsonPart(out string) string {
	if i := strings.IndexAny(out, "{["); i >= 0 {
		return out[i:]
	}
	return out
}
