// Package home locates the marquee home directory that holds the config file.
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the marquee home directory.
	DefaultDirName = ".marquee"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// EnvVar overrides the default home directory when set.
	EnvVar = "MARQUEE_HOME"
)

// Dir represents the marquee home directory.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// An empty path falls back to $MARQUEE_HOME, then ~/.marquee.
func New(path string) (*Dir, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory if it doesn't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return fmt.Errorf("failed to create home directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
