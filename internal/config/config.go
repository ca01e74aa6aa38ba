package config

import (
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Config holds the optional settings read from a YAML file
type Config struct {
	// DisabledTools lists tools that are neither listed nor callable
	DisabledTools []string `yaml:"disabledTools"`

	// DatasetsEndpoint is the API path used by list-datasets, e.g. "/datasets"
	DatasetsEndpoint string `yaml:"datasetsEndpoint"`

	// UserAgent overrides the User-Agent header sent upstream
	UserAgent string `yaml:"userAgent"`
}

// DefaultConfig returns a configuration with every tool enabled
func DefaultConfig() *Config {
	return &Config{
		DisabledTools: []string{},
	}
}

// LoadFile loads configuration from a file. An empty path or a missing
// file yields the default configuration.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("error opening config file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load loads configuration from an io.Reader
func Load(r io.Reader) (*Config, error) {
	config := DefaultConfig()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading config data: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config YAML: %w", err)
	}

	if config.DatasetsEndpoint != "" && config.DatasetsEndpoint[0] != '/' {
		return nil, fmt.Errorf("datasetsEndpoint must start with '/': %q", config.DatasetsEndpoint)
	}

	return config, nil
}

// IsToolDisabled checks if a tool is in the disabled list
func (c *Config) IsToolDisabled(name string) bool {
	return slices.Contains(c.DisabledTools, name)
}
