package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration parses human-readable values like "30s" from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	App          AppConfig                 `yaml:"app"`
	Providers    map[string]ProviderConfig `yaml:"providers"`
	Orchestrator OrchestratorConfig        `yaml:"orchestrator"`
	Memory       MemoryConfig              `yaml:"memory"`
	Prompts      string                    `yaml:"prompts"`
	Services     []ServiceConfig           `yaml:"services"`
}

type AppConfig struct {
	Name   string `yaml:"name"`
	Listen string `yaml:"listen"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
	Enabled bool   `yaml:"enabled"`
}

type OrchestratorConfig struct {
	MaxCandidates int      `yaml:"max_candidates"`
	PlanBudget    Duration `yaml:"plan_budget"`
	RetryAttempts int      `yaml:"retry_attempts"`
}

type MemoryConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

// ServiceConfig describes one capability service the orchestrator may call.
// It is the on-disk form of a registry descriptor.
type ServiceConfig struct {
	Key              string            `yaml:"key"`
	Name             string            `yaml:"name"`
	Description      string            `yaml:"description"`
	BaseURL          string            `yaml:"base_url"`
	UseWhen          []string          `yaml:"use_when"`
	Role             string            `yaml:"role"` // prerequisite or consumer
	Provides         []string          `yaml:"provides,omitempty"`
	Operations       map[string]string `yaml:"operations"`
	DefaultOperation string            `yaml:"default_operation"`
	QueryParam       string            `yaml:"query_param"`
	Timeout          Duration          `yaml:"timeout"`
	Enabled          bool              `yaml:"enabled"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Secrets like API keys are referenced as ${VAR} and resolved from
	// the environment at load time.
	expanded := []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Orchestrator.MaxCandidates <= 0 {
		c.Orchestrator.MaxCandidates = 5
	}
	if c.Orchestrator.PlanBudget <= 0 {
		c.Orchestrator.PlanBudget = Duration(60 * time.Second)
	}
	if c.Orchestrator.RetryAttempts <= 0 {
		c.Orchestrator.RetryAttempts = 1
	}
	if c.App.Listen == "" {
		c.App.Listen = ":8080"
	}
	if c.Prompts == "" {
		c.Prompts = "./prompts"
	}
	for i := range c.Services {
		if c.Services[i].Timeout <= 0 {
			c.Services[i].Timeout = Duration(30 * time.Second)
		}
	}
}

// GetDefaultProvider returns the first enabled provider.
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}
