package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.GetVerbose())
	assert.False(t, cfg.GetNoColor())
	assert.Equal(t, "json", cfg.Format)
	assert.Contains(t, cfg.RedactHeaders, "Authorization")
	assert.Equal(t, 8080, cfg.Proxy.Port)
	assert.True(t, cfg.IsDefault())
}

func TestFindAndLoadConfig_NoFile(t *testing.T) {
	cfg, err := FindAndLoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.True(t, cfg.IsDefault())
}

func TestFindAndLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	content := `verbose: true
format: yaml
redactHeaders:
  - X-Secret
proxy:
  port: 9090
  target: http://localhost:3000
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".httpspy.yaml"), []byte(content), 0644))

	cfg, err := FindAndLoadConfig(dir)
	require.NoError(t, err)

	assert.True(t, cfg.GetVerbose())
	assert.False(t, cfg.GetNoColor())
	assert.Equal(t, "yaml", cfg.Format)
	assert.Equal(t, []string{"X-Secret"}, cfg.RedactHeaders)
	assert.Equal(t, 9090, cfg.Proxy.Port)
	assert.Equal(t, "http://localhost:3000", cfg.Proxy.Target)
	assert.Equal(t, "expectations.yaml", cfg.Expectations)
}

func TestLoadConfig_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".httpspy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"noColor": true, "recordings": "sqlite:./spy.db"}`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.GetNoColor())
	assert.Equal(t, "sqlite:./spy.db", cfg.Recordings)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".httpspy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("verbose: [unclosed"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()

	merged := base.Merge(&Config{NoColor: BoolPtr(true), Format: "yaml"})
	assert.True(t, merged.GetNoColor())
	assert.Equal(t, "yaml", merged.Format)
	assert.False(t, base.GetNoColor(), "merge must not modify the receiver")

	assert.Same(t, base, base.Merge(nil))
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".httpspy.yaml")
	cfg := DefaultConfig()
	cfg.Proxy.Target = "http://api.local"
	require.NoError(t, cfg.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://api.local", loaded.Proxy.Target)
}
