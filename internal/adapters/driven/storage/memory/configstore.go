package memory

import (
	"sync"

	"github.com/custodia-labs/docqa/internal/adapters/driven/config/values"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore is an in-memory driven.ConfigStore. Nothing is persisted, so
// settings resolve from defaults, the environment and values set in process.
type ConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewConfigStore creates a new in-memory config store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		values: make(map[string]any),
	}
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok
}

// GetString returns the string at key, or "".
func (s *ConfigStore) GetString(key string) string {
	return values.String(s.value(key))
}

// GetInt returns the integer at key, or 0.
func (s *ConfigStore) GetInt(key string) int {
	return values.Int(s.value(key))
}

// GetFloat returns the number at key, widening integers, or 0.
func (s *ConfigStore) GetFloat(key string) float64 {
	return values.Float(s.value(key))
}

// GetBool returns the bool at key, or false.
func (s *ConfigStore) GetBool(key string) bool {
	return values.Bool(s.value(key))
}

// Set stores a configuration value.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Load is a no-op for the memory store.
func (s *ConfigStore) Load() error {
	return nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return ":memory:"
}

func (s *ConfigStore) value(key string) any {
	v, _ := s.Get(key)
	return v
}
