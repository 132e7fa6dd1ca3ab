package config

// Store loads and saves the configuration.
type Store interface {
	// Load returns the configuration. A missing file yields Default().
	Load() (*Config, error)

	// Save persists cfg.
	Save(cfg *Config) error

	// Path returns the file path used by this store.
	Path() string
}
