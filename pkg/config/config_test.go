package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_ParsesServicesAndDurations(t *testing.T) {
	path := writeConfig(t, `
app:
  name: labpilot
  listen: ":9090"
orchestrator:
  max_candidates: 3
  plan_budget: "45s"
services:
  - key: labs-semantic-search
    name: Workshop Semantic Search
    base_url: http://localhost:8001
    use_when: ["workshop search"]
    role: consumer
    operations:
      search: /search
    query_param: query
    timeout: "15s"
    enabled: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.App.Listen)
	assert.Equal(t, 3, cfg.Orchestrator.MaxCandidates)
	assert.Equal(t, 45*time.Second, cfg.Orchestrator.PlanBudget.Std())

	require.Len(t, cfg.Services, 1)
	svc := cfg.Services[0]
	assert.Equal(t, "labs-semantic-search", svc.Key)
	assert.Equal(t, 15*time.Second, svc.Timeout.Std())
	assert.Equal(t, "/search", svc.Operations["search"])
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: labpilot
services:
  - key: svc
    base_url: http://localhost:8001
    operations:
      op: /op
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.App.Listen)
	assert.Equal(t, 5, cfg.Orchestrator.MaxCandidates)
	assert.Equal(t, 60*time.Second, cfg.Orchestrator.PlanBudget.Std())
	assert.Equal(t, 1, cfg.Orchestrator.RetryAttempts)
	assert.Equal(t, "./prompts", cfg.Prompts)
	assert.Equal(t, 30*time.Second, cfg.Services[0].Timeout.Std())
}

func TestLoadConfig_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("LABPILOT_TEST_KEY", "sk-from-env")
	path := writeConfig(t, `
providers:
  openai:
    api_key: ${LABPILOT_TEST_KEY}
    model: gpt-4o-mini
    enabled: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Providers["openai"].APIKey)
}

func TestLoadConfig_RejectsInvalidDuration(t *testing.T) {
	path := writeConfig(t, `
orchestrator:
  plan_budget: "not-a-duration"
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestGetDefaultProvider(t *testing.T) {
	cfg := &Config{Providers: map[string]ProviderConfig{
		"openai":     {APIKey: "sk-test", Enabled: true},
		"openrouter": {Enabled: false},
	}}
	name, p := cfg.GetDefaultProvider()
	assert.Equal(t, "openai", name)
	assert.Equal(t, "sk-test", p.APIKey)

	empty := &Config{}
	name, _ = empty.GetDefaultProvider()
	assert.Empty(t, name)
}
