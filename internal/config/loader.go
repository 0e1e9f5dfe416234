package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".speccheck"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .speccheck configuration file.
// It carries settings that have no natural CLI flag: extra fetch headers and
// local extensions to the resolver's static tables.
type File struct {
	// Headers are extra HTTP headers sent with every fetch.
	// Typically Authorization for member-only editor's drafts.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Aliases maps deprecated or renamed shortnames to their current
	// shortname, extending the built-in alias table.
	Aliases map[string]string `yaml:"aliases,omitempty"`

	// Outdated lists shortnames of superseded specs that should no longer
	// be referenced, extending the built-in obsolescence table.
	Outdated []string `yaml:"outdated,omitempty"`
}

// LoadConfigFile loads settings from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound. Callers should
// handle this based on whether the path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	if cf.Headers == nil {
		cf.Headers = make(map[string]string)
	}
	if cf.Aliases == nil {
		cf.Aliases = make(map[string]string)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
//  1. If configPath is specified, use it directly
//  2. Look for .speccheck in the current directory
//  3. Look for .speccheck in the user's home directory
//
// Returns the path to the configuration file, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
