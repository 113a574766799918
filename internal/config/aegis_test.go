package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAegisConfigDefaultsWhenNoFileFound(t *testing.T) {
	t.Setenv("AEGIS_CONFIG_PATH", "")
	cfg, err := LoadAegisConfig("")
	require.NoError(t, err)
	require.Equal(t, NodeOrchestrator, cfg.Node.Type)
	require.Equal(t, StrategyPreferCloud, cfg.LLMSelection.Strategy)
	require.Equal(t, 2049, cfg.Network.NFSPort)
}

func TestLoadAegisConfigReadsExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aegis-config.yaml")
	yaml := `
node:
  id: edge-01
  type: edge
  region: us-west
llm_providers:
  - name: local-ollama
    type: ollama
    endpoint: http://localhost:11434
    enabled: true
    models:
      - alias: fast
        model: llama3
llm_selection:
  strategy: prefer-local
  default_provider: local-ollama
  max_retries: 5
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadAegisConfig(path)
	require.NoError(t, err)
	require.Equal(t, "edge-01", cfg.Node.ID)
	require.Equal(t, NodeEdge, cfg.Node.Type)
	require.Len(t, cfg.LLMProviders, 1)
	require.Equal(t, "local-ollama", cfg.LLMProviders[0].Name)
	require.Equal(t, StrategyPreferLocal, cfg.LLMSelection.Strategy)
	require.Equal(t, 5, cfg.LLMSelection.MaxRetries)
}

func TestLLMProviderResolveAPIKeyEnvIndirection(t *testing.T) {
	t.Setenv("MY_PROVIDER_KEY", "secret-value")
	p := LLMProvider{APIKey: "env:MY_PROVIDER_KEY"}
	require.Equal(t, "secret-value", p.ResolveAPIKey())

	literal := LLMProvider{APIKey: "sk-literal"}
	require.Equal(t, "sk-literal", literal.ResolveAPIKey())
}
