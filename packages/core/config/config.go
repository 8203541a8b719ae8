package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the httpspy configuration
type Config struct {
	Verbose       *bool       `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor       *bool       `json:"noColor,omitempty" yaml:"noColor,omitempty"`
	RedactHeaders []string    `json:"redactHeaders,omitempty" yaml:"redactHeaders,omitempty"` // Headers replaced by <redacted> when recorded
	Format        string      `json:"format,omitempty" yaml:"format,omitempty"`               // Export format: json or yaml
	Expectations  string      `json:"expectations,omitempty" yaml:"expectations,omitempty"`   // Default expectations file for verify
	Recordings    string      `json:"recordings,omitempty" yaml:"recordings,omitempty"`       // Default recordings source
	Proxy         ProxyConfig `json:"proxy,omitempty" yaml:"proxy,omitempty"`
}

// ProxyConfig configures the recording proxy.
type ProxyConfig struct {
	Port   int    `json:"port,omitempty" yaml:"port,omitempty"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
}

// boolPtr returns a pointer to a bool value
func boolPtr(b bool) *bool {
	return &b
}

// BoolPtr is exported version of boolPtr for external use
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".httpspy.yaml",
	".httpspy.yml",
	".httpspy.json",
	"httpspy.yaml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// loadConfigFromFile loads configuration from a specific file. JSON files
// are read by the YAML decoder as well.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fileConfig Config
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return DefaultConfig().Merge(&fileConfig), nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Format != "" {
		result.Format = other.Format
	}
	if other.Expectations != "" {
		result.Expectations = other.Expectations
	}
	if other.Recordings != "" {
		result.Recordings = other.Recordings
	}
	if other.Proxy.Port > 0 {
		result.Proxy.Port = other.Proxy.Port
	}
	if other.Proxy.Target != "" {
		result.Proxy.Target = other.Proxy.Target
	}

	// Boolean flags - only override if explicitly set in other config
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(other.RedactHeaders) > 0 {
		result.RedactHeaders = other.RedactHeaders
	}

	return &result
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
