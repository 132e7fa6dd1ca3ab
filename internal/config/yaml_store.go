package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// DefaultPath is where the daemon looks for its configuration.
const DefaultPath = "/etc/ampvol/config.yaml"

// YAMLStore reads the configuration from a YAML file.
type YAMLStore struct {
	path string
}

// NewYAMLStore creates a store for the file at path.
func NewYAMLStore(path string) *YAMLStore {
	return &YAMLStore{path: path}
}

// Path returns the file path used by this store.
func (s *YAMLStore) Path() string { return s.path }

// Load reads and validates the file. A missing file yields Default(); a file
// that fails to parse is an error, unlike a missing one.
func (s *YAMLStore) Load() (*Config, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Info("config: no config file, using defaults", "path", s.path)
			def := Default()
			return &def, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", s.path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return &cfg, nil
}

// Save validates cfg and writes it atomically.
func (s *YAMLStore) Save(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := Marshal(*cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	// Write to temp file, then rename (atomic on Linux)
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

// Watch calls fn with each successfully reloaded configuration until ctx is
// cancelled. Invalid edits are logged and skipped.
func (s *YAMLStore) Watch(ctx context.Context, fn func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	// Watch the directory so editors that replace the file are still seen.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("config: watch %s: %w", filepath.Dir(s.path), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				cfg, err := s.Load()
				if err != nil {
					slog.Warn("config: failed to reload", "err", err)
					continue
				}
				slog.Debug("config: reloaded", "path", s.path)
				fn(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("config: watcher error", "err", err)
			}
		}
	}()
	return nil
}

var _ Store = (*YAMLStore)(nil)
