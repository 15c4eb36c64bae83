// Package cli provides the docqa command line interface.
// It implements a driving adapter: every command resolves settings, builds
// the pipeline and calls the driving ports.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/app"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

const defaultEnvFile = ".env"

var (
	// version is set at build time via -ldflags.
	version = "dev"

	verbose   bool
	envFile   string
	configDir string

	settingsService driving.SettingsService
	settingsFactory SettingsFactory

	// appFactory builds the pipeline for commands that need one.
	appFactory = newApp
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about your documents",
	Long: `docqa indexes TXT and PDF documents and answers questions about them
with retrieval-augmented generation.

Upload documents once, then ask from the terminal, the interactive TUI,
the HTTP API (docqa serve) or an MCP client (docqa mcp).`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory holding config.toml and prompts (default ~/.docqa)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", defaultEnvFile, "dotenv file loaded before settings")
}

// SetSettingsService sets the settings service used by every command.
func SetSettingsService(s driving.SettingsService) {
	settingsService = s
}

// SettingsFactory opens the settings for a config directory. An empty dir
// selects the default; the resolved directory is returned.
type SettingsFactory func(dir string) (driving.SettingsService, string, error)

// SetSettingsFactory makes commands resolve settings from --config-dir.
func SetSettingsFactory(f SettingsFactory) {
	settingsFactory = f
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func setup(_ *cobra.Command, _ []string) error {
	if envFile != "" {
		// A missing dotenv file is normal; the environment may be set already.
		if err := godotenv.Load(envFile); err != nil && envFile != defaultEnvFile {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	logger.SetVerbose(verbose)

	if settingsFactory != nil {
		svc, dir, err := settingsFactory(configDir)
		if err != nil {
			return fmt.Errorf("failed to open settings: %w", err)
		}
		settingsService, configDir = svc, dir
	}
	return nil
}

func newApp(ctx context.Context) (*app.App, error) {
	if settingsService == nil {
		return nil, errors.New("settings service not configured")
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := logger.SetFormat(settings.LogFormat); err != nil {
		return nil, err
	}
	return app.New(ctx, *settings, app.Options{ConfigDir: configDir})
}

// withApp builds the pipeline, runs fn and closes the pipeline.
func withApp(cmd *cobra.Command, fn func(*app.App) error) error {
	a, err := appFactory(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Warn("Close pipeline: %v", cerr)
		}
	}()
	return fn(a)
}

// ingestFiles indexes each path before a question is asked.
func ingestFiles(cmd *cobra.Command, ingest driving.IngestService, paths []string) error {
	for _, path := range paths {
		res, err := ingest.IngestFile(cmd.Context(), path, "")
		if err != nil {
			return fmt.Errorf("failed to index %s: %w", path, err)
		}
		cmd.PrintErrf("Indexed %s (%d chunks)\n", res.Source, res.ChunksIndexed)
	}
	return nil
}
