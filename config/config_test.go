package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/effective-security/neighborhood/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load_Empty(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.LLM.Token)
	assert.Empty(t, cfg.Keys.GoogleMaps)
}

func Test_Load_Yaml(t *testing.T) {
	t.Setenv("TEST_OPENROUTER_KEY", "sk-or-test")

	dir := t.TempDir()
	file := filepath.Join(dir, "cfg.yaml")
	content := `
llm:
  token: ${TEST_OPENROUTER_KEY}
  base_url: https://openrouter.ai/api/v1
  model: anthropic/claude-3.5-sonnet
keys:
  google_maps: maps-key
  rapid_api: rapid-key
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	cfg, err := config.Load(file)
	require.NoError(t, err)
	assert.Equal(t, "sk-or-test", cfg.LLM.Token)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "anthropic/claude-3.5-sonnet", cfg.LLM.Model)
	assert.Equal(t, "maps-key", cfg.Keys.GoogleMaps)
	assert.Equal(t, "rapid-key", cfg.Keys.RapidAPI)
	assert.Empty(t, cfg.Keys.WalkScore)
}

func Test_Load_Missing(t *testing.T) {
	_, err := config.Load("/nonexistent/cfg.yaml")
	assert.Error(t, err)
}
