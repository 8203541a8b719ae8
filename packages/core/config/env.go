package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix is the prefix of environment variables that override config values.
const EnvPrefix = "HTTPSPY_"

// LoadDotEnv parses a .env file and returns key-value pairs.
// Supports: KEY=value, KEY="quoted value", KEY='single quoted', # comments
func LoadDotEnv(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open env file: %w", err)
	}
	defer file.Close()

	result := make(map[string]string)
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		result[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading env file: %w", err)
	}

	return result, nil
}

// ApplyEnv returns a copy of c with HTTPSPY_* overrides applied. lookup is
// usually os.LookupEnv; values from a .env file can be layered in front of it
// with DotEnvLookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) (*Config, error) {
	override := &Config{}

	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	if v, ok := get("VERBOSE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %sVERBOSE: %w", EnvPrefix, err)
		}
		override.Verbose = boolPtr(b)
	}
	if v, ok := get("NO_COLOR"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %sNO_COLOR: %w", EnvPrefix, err)
		}
		override.NoColor = boolPtr(b)
	}
	if v, ok := get("REDACT_HEADERS"); ok {
		for _, h := range strings.Split(v, ",") {
			if h = strings.TrimSpace(h); h != "" {
				override.RedactHeaders = append(override.RedactHeaders, h)
			}
		}
	}
	if v, ok := get("FORMAT"); ok {
		override.Format = v
	}
	if v, ok := get("EXPECTATIONS"); ok {
		override.Expectations = v
	}
	if v, ok := get("RECORDINGS"); ok {
		override.Recordings = v
	}
	if v, ok := get("PROXY_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid %sPROXY_PORT: %q", EnvPrefix, v)
		}
		override.Proxy.Port = port
	}
	if v, ok := get("PROXY_TARGET"); ok {
		override.Proxy.Target = v
	}

	return c.Merge(override), nil
}

// DotEnvLookup returns a lookup function that consults the process
// environment first and falls back to vars.
func DotEnvLookup(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}
}
