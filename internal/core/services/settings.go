package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkSize      = "chunking.chunk_size"
	keyChunkOverlap   = "chunking.overlap"
	keyTopK           = "retrieval.top_k"
	keyUseChunks      = "retrieval.use_chunks"
	keyUseRerank      = "retrieval.use_rerank"
	keySnippetChars   = "retrieval.rerank_snippet_chars"
	keyEmbedProvider  = "embedding.provider"
	keyEmbedModel     = "embedding.model"
	keyEmbedBaseURL   = "embedding.base_url"
	keyEmbedAPIKey    = "embedding.api_key"
	keyEmbedDims      = "embedding.dimensions"
	keyEmbedModelPath = "embedding.model_path"
	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyLLMTemperature = "llm.temperature"
	keyVectorBackend  = "vector.backend"
	keyVectorColl     = "vector.collection"
	keyQdrantURL      = "vector.qdrant_url"
	keyPostgresDSN    = "vector.pg_dsn"
	keyMetricsLog     = "metrics.log_path"
	keyMetricsSQLite  = "metrics.sqlite_path"
	keyCostInput      = "metrics.cost_per_1k_input"
	keyCostOutput     = "metrics.cost_per_1k_output"
	keyFeedbackLog    = "feedback.log_path"
	keyServerAddr     = "server.addr"
	keyUploadDir      = "server.upload_dir"
	keyMaxUploadMB    = "server.max_upload_mb"
	keyRateLimitRPS   = "server.rate_limit_rps"
	keyRateLimitBurst = "server.rate_limit_burst"
	keyLogFormat      = "logging.format"
)

const (
	defaultOllamaURL  = "http://localhost:11434"
	envOpenAIKey      = "OPENAI_API_KEY"
	envAnthropicKey   = "ANTHROPIC_API_KEY"
	envEmbedProvider  = "DOCQA_EMBEDDING_PROVIDER"
	envLLMProvider    = "DOCQA_LLM_PROVIDER"
	envLLMModel       = "DOCQA_LLM_MODEL"
	envVectorBackend  = "DOCQA_VECTOR_BACKEND"
	envQdrantURL      = "DOCQA_QDRANT_URL"
	envPostgresDSN    = "DOCQA_PG_DSN"
	envEmbedModelPath = "DOCQA_EMBEDDING_MODEL_PATH"
	envOllamaBaseURL  = "OLLAMA_HOST"
	secretPlaceholder = "********"
)

// Value kinds accepted by config keys.
const (
	valueKindString    = "string"
	valueKindInt       = "int"
	valueKindFloat     = "float"
	valueKindBool      = "bool"
	valueKindProvider  = "provider"
	valueKindBackend   = "backend"
	valueKindLogFormat = "log format"
)

// setting binds one config key to a field of domain.AppSettings.
type setting struct {
	kind  string
	apply func(s *domain.AppSettings, v any)
}

// settingKeys lists every key the config file may carry.
var settingKeys = map[string]setting{
	keyChunkSize:      {valueKindInt, func(s *domain.AppSettings, v any) { s.Chunking.ChunkSize = v.(int) }},
	keyChunkOverlap:   {valueKindInt, func(s *domain.AppSettings, v any) { s.Chunking.Overlap = v.(int) }},
	keyTopK:           {valueKindInt, func(s *domain.AppSettings, v any) { s.Retrieval.TopK = v.(int) }},
	keyUseChunks:      {valueKindInt, func(s *domain.AppSettings, v any) { s.Retrieval.UseChunks = v.(int) }},
	keyUseRerank:      {valueKindBool, func(s *domain.AppSettings, v any) { s.Retrieval.UseRerank = v.(bool) }},
	keySnippetChars:   {valueKindInt, func(s *domain.AppSettings, v any) { s.Retrieval.SnippetChars = v.(int) }},
	keyEmbedProvider:  {valueKindProvider, func(s *domain.AppSettings, v any) { s.Embedding.Provider = domain.AIProvider(v.(string)) }},
	keyEmbedModel:     {valueKindString, func(s *domain.AppSettings, v any) { s.Embedding.Model = v.(string) }},
	keyEmbedBaseURL:   {valueKindString, func(s *domain.AppSettings, v any) { s.Embedding.BaseURL = v.(string) }},
	keyEmbedAPIKey:    {valueKindString, func(s *domain.AppSettings, v any) { s.Embedding.APIKey = v.(string) }},
	keyEmbedDims:      {valueKindInt, func(s *domain.AppSettings, v any) { s.Embedding.Dimensions = v.(int) }},
	keyEmbedModelPath: {valueKindString, func(s *domain.AppSettings, v any) { s.Embedding.ModelPath = v.(string) }},
	keyLLMProvider:    {valueKindProvider, func(s *domain.AppSettings, v any) { s.LLM.Provider = domain.AIProvider(v.(string)) }},
	keyLLMModel:       {valueKindString, func(s *domain.AppSettings, v any) { s.LLM.Model = v.(string) }},
	keyLLMBaseURL:     {valueKindString, func(s *domain.AppSettings, v any) { s.LLM.BaseURL = v.(string) }},
	keyLLMAPIKey:      {valueKindString, func(s *domain.AppSettings, v any) { s.LLM.APIKey = v.(string) }},
	keyLLMTemperature: {valueKindFloat, func(s *domain.AppSettings, v any) { s.LLM.Temperature = v.(float64) }},
	keyVectorBackend:  {valueKindBackend, func(s *domain.AppSettings, v any) { s.Vector.Backend = domain.VectorBackend(v.(string)) }},
	keyVectorColl:     {valueKindString, func(s *domain.AppSettings, v any) { s.Vector.Collection = v.(string) }},
	keyQdrantURL:      {valueKindString, func(s *domain.AppSettings, v any) { s.Vector.QdrantURL = v.(string) }},
	keyPostgresDSN:    {valueKindString, func(s *domain.AppSettings, v any) { s.Vector.PostgresDSN = v.(string) }},
	keyMetricsLog:     {valueKindString, func(s *domain.AppSettings, v any) { s.Metrics.LogPath = v.(string) }},
	keyMetricsSQLite:  {valueKindString, func(s *domain.AppSettings, v any) { s.Metrics.SQLitePath = v.(string) }},
	keyCostInput:      {valueKindFloat, func(s *domain.AppSettings, v any) { s.Metrics.Pricing.CostPer1KInput = v.(float64) }},
	keyCostOutput:     {valueKindFloat, func(s *domain.AppSettings, v any) { s.Metrics.Pricing.CostPer1KOutput = v.(float64) }},
	keyFeedbackLog:    {valueKindString, func(s *domain.AppSettings, v any) { s.FeedbackLogPath = v.(string) }},
	keyServerAddr:     {valueKindString, func(s *domain.AppSettings, v any) { s.Server.Addr = v.(string) }},
	keyUploadDir:      {valueKindString, func(s *domain.AppSettings, v any) { s.Server.UploadDir = v.(string) }},
	keyMaxUploadMB:    {valueKindInt, func(s *domain.AppSettings, v any) { s.Server.MaxUploadMB = v.(int) }},
	keyRateLimitRPS:   {valueKindFloat, func(s *domain.AppSettings, v any) { s.Server.RateLimitRPS = v.(float64) }},
	keyRateLimitBurst: {valueKindInt, func(s *domain.AppSettings, v any) { s.Server.RateLimitBurst = v.(int) }},
	keyLogFormat:      {valueKindLogFormat, func(s *domain.AppSettings, v any) { s.LogFormat = v.(string) }},
}

// SettingKeys returns every supported config key, sorted.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SettingsService resolves settings from defaults, the config file and the environment.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service. aiValidator may be nil.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// SetEnvLookup replaces the environment lookup, for tests.
func (s *SettingsService) SetEnvLookup(getenv func(string) string) {
	if getenv != nil {
		s.getenv = getenv
	}
}

// Get retrieves the effective settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := domain.DefaultAppSettings()

	for key, def := range settingKeys {
		raw, exists := s.configStore.Get(key)
		if !exists {
			continue
		}
		v, err := coerce(def.kind, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s in %s: %w", domain.ErrInvalidInput, key, s.configStore.Path(), err)
		}
		def.apply(&settings, v)
	}

	s.applyEnv(&settings)
	fillProviderDefaults(&settings)

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w (config: %s)", err, s.configStore.Path())
	}
	return &settings, nil
}

// Set validates and persists one config key.
// The resulting settings must still pass validation.
func (s *SettingsService) Set(key string, value any) error {
	def, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	v, err := coerce(def.kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}

	current, err := s.Get()
	if err != nil {
		return err
	}
	def.apply(current, v)
	if err := current.Validate(); err != nil {
		return err
	}

	if err := s.configStore.Set(key, v); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Display returns the effective settings as sorted key/value pairs with secrets masked.
func (s *SettingsService) Display() ([][2]string, error) {
	settings, err := s.Get()
	if err != nil {
		return nil, err
	}
	values := map[string]any{
		keyChunkSize:      settings.Chunking.ChunkSize,
		keyChunkOverlap:   settings.Chunking.Overlap,
		keyTopK:           settings.Retrieval.TopK,
		keyUseChunks:      settings.Retrieval.UseChunks,
		keyUseRerank:      settings.Retrieval.UseRerank,
		keySnippetChars:   settings.Retrieval.SnippetChars,
		keyEmbedProvider:  settings.Embedding.Provider,
		keyEmbedModel:     settings.Embedding.Model,
		keyEmbedBaseURL:   settings.Embedding.BaseURL,
		keyEmbedAPIKey:    mask(settings.Embedding.APIKey),
		keyEmbedDims:      settings.Embedding.Dimensions,
		keyEmbedModelPath: settings.Embedding.ModelPath,
		keyLLMProvider:    settings.LLM.Provider,
		keyLLMModel:       settings.LLM.Model,
		keyLLMBaseURL:     settings.LLM.BaseURL,
		keyLLMAPIKey:      mask(settings.LLM.APIKey),
		keyLLMTemperature: settings.LLM.Temperature,
		keyVectorBackend:  settings.Vector.Backend,
		keyVectorColl:     settings.Vector.Collection,
		keyQdrantURL:      settings.Vector.QdrantURL,
		keyPostgresDSN:    mask(settings.Vector.PostgresDSN),
		keyMetricsLog:     settings.Metrics.LogPath,
		keyMetricsSQLite:  settings.Metrics.SQLitePath,
		keyCostInput:      settings.Metrics.Pricing.CostPer1KInput,
		keyCostOutput:     settings.Metrics.Pricing.CostPer1KOutput,
		keyFeedbackLog:    settings.FeedbackLogPath,
		keyServerAddr:     settings.Server.Addr,
		keyUploadDir:      settings.Server.UploadDir,
		keyMaxUploadMB:    settings.Server.MaxUploadMB,
		keyRateLimitRPS:   settings.Server.RateLimitRPS,
		keyRateLimitBurst: settings.Server.RateLimitBurst,
		keyLogFormat:      settings.LogFormat,
	}
	pairs := make([][2]string, 0, len(values))
	for _, k := range SettingKeys() {
		pairs = append(pairs, [2]string{k, fmt.Sprint(values[k])})
	}
	return pairs, nil
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// applyEnv overlays environment variables on top of the config file.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	if v := s.getenv(envEmbedProvider); v != "" {
		settings.Embedding.Provider = domain.AIProvider(v)
	}
	if v := s.getenv(envLLMProvider); v != "" {
		settings.LLM.Provider = domain.AIProvider(v)
	}
	if v := s.getenv(envLLMModel); v != "" {
		settings.LLM.Model = v
	}
	if v := s.getenv(envVectorBackend); v != "" {
		settings.Vector.Backend = domain.VectorBackend(v)
	}
	if v := s.getenv(envQdrantURL); v != "" {
		settings.Vector.QdrantURL = v
	}
	if v := s.getenv(envPostgresDSN); v != "" {
		settings.Vector.PostgresDSN = v
	}
	if v := s.getenv(envEmbedModelPath); v != "" {
		settings.Embedding.ModelPath = v
	}

	// Provider keys only fill gaps; a key in the config file wins.
	keys := map[domain.AIProvider]string{
		domain.AIProviderOpenAI:    s.getenv(envOpenAIKey),
		domain.AIProviderAnthropic: s.getenv(envAnthropicKey),
	}
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = keys[settings.Embedding.Provider]
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = keys[settings.LLM.Provider]
	}

	if host := s.getenv(envOllamaBaseURL); host != "" {
		if settings.Embedding.Provider == domain.AIProviderOllama && settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = host
		}
		if settings.LLM.Provider == domain.AIProviderOllama && settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = host
		}
	}
}

// fillProviderDefaults picks models and dimensions that match a switched provider.
func fillProviderDefaults(settings *domain.AppSettings) {
	defaults := domain.DefaultAppSettings()

	if settings.Embedding.Provider != defaults.Embedding.Provider &&
		settings.Embedding.Model == defaults.Embedding.Model {
		if m, ok := domain.DefaultEmbeddingModels()[settings.Embedding.Provider]; ok {
			settings.Embedding.Model = m
		}
	}
	if settings.Embedding.Dimensions == defaults.Embedding.Dimensions {
		if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
			settings.Embedding.Dimensions = d
		}
	}
	if settings.LLM.Provider != defaults.LLM.Provider && settings.LLM.Model == defaults.LLM.Model {
		if m, ok := domain.DefaultLLMModels()[settings.LLM.Provider]; ok {
			settings.LLM.Model = m
		}
	}

	if settings.Embedding.Provider == domain.AIProviderOllama && settings.Embedding.BaseURL == "" {
		settings.Embedding.BaseURL = defaultOllamaURL
	}
	if settings.LLM.Provider == domain.AIProviderOllama && settings.LLM.BaseURL == "" {
		settings.LLM.BaseURL = defaultOllamaURL
	}
}

// coerce converts a config or command-line value to the key's type.
func coerce(kind string, raw any) (any, error) {
	switch kind {
	case valueKindInt:
		switch v := raw.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v != float64(int(v)) {
				return nil, fmt.Errorf("%v is not a whole number", v)
			}
			return int(v), nil
		case string:
			return strconv.Atoi(strings.TrimSpace(v))
		}
	case valueKindFloat:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case string:
			return strconv.ParseFloat(strings.TrimSpace(v), 64)
		}
	case valueKindBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			return strconv.ParseBool(strings.TrimSpace(v))
		}
	case valueKindProvider:
		if v, ok := raw.(string); ok {
			if !domain.AIProvider(v).IsValid() {
				return nil, fmt.Errorf("unknown provider %q", v)
			}
			return v, nil
		}
	case valueKindBackend:
		if v, ok := raw.(string); ok {
			if !domain.VectorBackend(v).IsValid() {
				return nil, fmt.Errorf("unknown vector backend %q", v)
			}
			return v, nil
		}
	case valueKindLogFormat:
		if v, ok := raw.(string); ok {
			if v != "pretty" && v != "json" {
				return nil, fmt.Errorf("log format must be pretty or json, got %q", v)
			}
			return v, nil
		}
	default:
		if v, ok := raw.(string); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("expected %s, got %T", kind, raw)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return secretPlaceholder
}
