package driving

import "github.com/custodia-labs/docqa/internal/core/domain"

// SettingsService resolves application settings from config and environment.
type SettingsService interface {
	// Get returns the effective settings: defaults, then config file, then environment.
	Get() (*domain.AppSettings, error)

	// Set persists one dotted config key.
	Set(key string, value any) error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// Display returns every key with its effective value, secrets masked.
	Display() ([][2]string, error)
}
