package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Verbose:       boolPtr(false),
		NoColor:       boolPtr(false),
		RedactHeaders: []string{"Authorization", "Cookie", "X-Api-Key", "Api-Key"},
		Format:        "json",
		Expectations:  "expectations.yaml",
		Recordings:    "recordings.json",
		Proxy: ProxyConfig{
			Port: 8080,
		},
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.GetVerbose() == defaults.GetVerbose() &&
		c.GetNoColor() == defaults.GetNoColor() &&
		len(c.RedactHeaders) == len(defaults.RedactHeaders) &&
		c.Format == defaults.Format &&
		c.Expectations == defaults.Expectations &&
		c.Recordings == defaults.Recordings &&
		c.Proxy == defaults.Proxy
}
