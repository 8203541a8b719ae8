package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestApplyEnv(t *testing.T) {
	cfg, err := DefaultConfig().ApplyEnv(mapLookup(map[string]string{
		"HTTPSPY_VERBOSE":        "true",
		"HTTPSPY_REDACT_HEADERS": "X-One, X-Two,",
		"HTTPSPY_FORMAT":         "yaml",
		"HTTPSPY_PROXY_PORT":     "9000",
		"HTTPSPY_PROXY_TARGET":   "http://upstream",
		"HTTPSPY_RECORDINGS":     "   ",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.GetVerbose())
	assert.Equal(t, []string{"X-One", "X-Two"}, cfg.RedactHeaders)
	assert.Equal(t, "yaml", cfg.Format)
	assert.Equal(t, 9000, cfg.Proxy.Port)
	assert.Equal(t, "http://upstream", cfg.Proxy.Target)
	assert.Equal(t, "recordings.json", cfg.Recordings)
}

func TestApplyEnv_Invalid(t *testing.T) {
	_, err := DefaultConfig().ApplyEnv(mapLookup(map[string]string{"HTTPSPY_VERBOSE": "maybe"}))
	assert.Error(t, err)

	_, err = DefaultConfig().ApplyEnv(mapLookup(map[string]string{"HTTPSPY_PROXY_PORT": "70000"}))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := `# comment
HTTPSPY_FORMAT=yaml
export HTTPSPY_PROXY_TARGET="http://quoted"
HTTPSPY_EXPECTATIONS='spy.yaml'
not a pair
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	vars, err := LoadDotEnv(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"HTTPSPY_FORMAT":       "yaml",
		"HTTPSPY_PROXY_TARGET": "http://quoted",
		"HTTPSPY_EXPECTATIONS": "spy.yaml",
	}, vars)
}

func TestLoadDotEnv_Missing(t *testing.T) {
	_, err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestDotEnvLookup_ProcessEnvWins(t *testing.T) {
	t.Setenv("HTTPSPY_FORMAT", "json")
	lookup := DotEnvLookup(map[string]string{"HTTPSPY_FORMAT": "yaml", "HTTPSPY_RECORDINGS": "r.yaml"})

	v, ok := lookup("HTTPSPY_FORMAT")
	assert.True(t, ok)
	assert.Equal(t, "json", v)

	v, ok = lookup("HTTPSPY_RECORDINGS")
	assert.True(t, ok)
	assert.Equal(t, "r.yaml", v)
}
