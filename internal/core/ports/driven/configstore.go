package driven

// ConfigStore holds flat configuration values under dotted keys that mirror
// TOML tables, e.g. "retrieval.top_k" for top_k under [retrieval].
// Typed getters return the zero value for missing keys and mismatched types.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int

	// GetFloat widens integers, so "llm.temperature = 1" reads as 1.0.
	GetFloat(key string) float64
	GetBool(key string) bool

	// Set stores value and persists it before returning.
	Set(key string, value any) error

	// Load rereads the backing storage, replacing in-memory values.
	Load() error

	// Path identifies the backing file, or ":memory:".
	Path() string
}
