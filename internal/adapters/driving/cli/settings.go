package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure chunking, retrieval, AI providers, storage and server options.

Settings resolve in order: defaults, config.toml, then environment variables
(OPENAI_API_KEY, ANTHROPIC_API_KEY, DOCQA_*).`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Set one setting",
	Long: `Set one dotted key in config.toml, for example:

  docqa settings set retrieval.top_k 10
  docqa settings set llm.provider anthropic
  docqa settings set llm.api_key          (prompts without echo)`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsSet,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Args:  cobra.NoArgs,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Args:  cobra.NoArgs,
	RunE:  runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	pairs, err := settingsService.Display()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	section := ""
	for _, kv := range pairs {
		group, _, _ := strings.Cut(kv[0], ".")
		if group != section {
			section = group
			cmd.Println()
			cmd.Printf("[%s]\n", section)
		}
		value := kv[1]
		if value == "" {
			value = "(not set)"
		}
		cmd.Printf("  %s = %s\n", kv[0], value)
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key := args[0]
	var value string
	if len(args) == 2 {
		value = args[1]
	} else {
		cmd.Printf("Enter value for %s: ", key)
		value = readPassword(cmd.InOrStdin(), bufio.NewReader(cmd.InOrStdin()))
		cmd.Println()
	}

	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	if isSecretKey(key) {
		value = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", key, value)
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	reader := bufio.NewReader(cmd.InOrStdin())
	return configureProvider(cmd, reader, "embedding",
		domain.AllEmbeddingProviders())
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	reader := bufio.NewReader(cmd.InOrStdin())
	return configureProvider(cmd, reader, "llm",
		domain.AllLLMProviders())
}

// configureProvider asks for a provider, model and credential and stores them under prefix.
func configureProvider(cmd *cobra.Command, reader *bufio.Reader, prefix string, providers []domain.AIProvider) error {
	title := "LLM"
	if prefix == "embedding" {
		title = "Embedding"
	}

	cmd.Printf("Select %s provider\n", title)
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	provider := providers[idx-1]

	if err := settingsService.Set(prefix+".provider", provider.String()); err != nil {
		return fmt.Errorf("failed to set provider: %w", err)
	}

	// The service fills in the provider's default model once the provider changes.
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	defaultModel := settings.LLM.Model
	if prefix == "embedding" {
		defaultModel = settings.Embedding.Model
	}

	cmd.Printf("Enter model name [%s]: ", defaultModel)
	if model := readLine(reader); model != "" {
		if err := settingsService.Set(prefix+".model", model); err != nil {
			return fmt.Errorf("failed to set model: %w", err)
		}
	}

	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key (empty keeps the environment's): ")
		if apiKey := readPassword(cmd.InOrStdin(), reader); apiKey != "" {
			if err := settingsService.Set(prefix+".api_key", apiKey); err != nil {
				return fmt.Errorf("failed to set API key: %w", err)
			}
		}
		cmd.Println()
	}

	if provider == domain.AIProviderLocal {
		cmd.Print("Enter model directory: ")
		if dir := readLine(reader); dir != "" {
			if err := settingsService.Set(prefix+".model_path", dir); err != nil {
				return fmt.Errorf("failed to set model path: %w", err)
			}
		}
	}

	if v, ok := settingsService.(interface {
		ValidateEmbeddingConfig() error
		ValidateLLMConfig() error
	}); ok {
		validate := v.ValidateLLMConfig
		if prefix == "embedding" {
			validate = v.ValidateEmbeddingConfig
		}
		cmd.Print("Validating configuration... ")
		if err := validate(); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("%s configuration validation failed: %w", prefix, err)
		}
		cmd.Println("OK")
	}

	cmd.Printf("%s provider configured: %s\n", title, provider.Description())
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal, otherwise a line from reader.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func isSecretKey(key string) bool {
	return strings.HasSuffix(key, ".api_key") || strings.HasSuffix(key, "_dsn")
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
