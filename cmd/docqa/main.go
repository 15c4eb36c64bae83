// Command docqa answers questions about TXT and PDF documents.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/core/services"
)

const envConfigDir = "DOCQA_CONFIG_DIR"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetSettingsFactory(openSettings)
	if err := cli.Execute(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openSettings resolves dir from the flag, then DOCQA_CONFIG_DIR, then ~/.docqa.
func openSettings(dir string) (driving.SettingsService, string, error) {
	if dir == "" {
		dir = os.Getenv(envConfigDir)
	}
	if dir == "" {
		d, err := file.DefaultConfigDir()
		if err != nil {
			return nil, "", fmt.Errorf("resolve config directory: %w", err)
		}
		dir = d
	}

	store, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, "", fmt.Errorf("open config: %w", err)
	}
	return services.NewSettingsService(store, ai.NewConfigValidator()), dir, nil
}
