// Package config handles configuration loading and management for httpspy.
//
// It provides functionality for:
//   - Loading configuration from .httpspy.yaml, .httpspy.yml or .httpspy.json
//   - Default configuration values
//   - HTTPSPY_* environment overrides, optionally read from a .env file
package config
