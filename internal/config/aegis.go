package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/aegis-run/orchestrator/internal/cortex"
)

// NodeType is the role a node plays in the deployment topology.
type NodeType string

const (
	NodeEdge         NodeType = "edge"
	NodeOrchestrator NodeType = "orchestrator"
	NodeHybrid       NodeType = "hybrid"
)

// NodeResources bounds what this node advertises it can run.
type NodeResources struct {
	CPUCores  int `mapstructure:"cpu_cores"`
	MemoryMB  int `mapstructure:"memory_mb"`
	MaxAgents int `mapstructure:"max_agents"`
}

// NodeConfig identifies this node within the fleet.
type NodeConfig struct {
	ID        string        `mapstructure:"id"`
	Type      NodeType      `mapstructure:"type"`
	Region    string        `mapstructure:"region"`
	Tags      []string      `mapstructure:"tags"`
	Resources NodeResources `mapstructure:"resources"`
}

// LLMModel is one alias a provider exposes, with the metadata the
// selection strategy needs to compare candidates.
type LLMModel struct {
	Alias           string   `mapstructure:"alias"`
	Model           string   `mapstructure:"model"`
	Capabilities    []string `mapstructure:"capabilities"`
	ContextWindow   int      `mapstructure:"context_window"`
	CostPer1kTokens float64  `mapstructure:"cost_per_1k_tokens"`
}

// LLMProvider is one entry in llm_providers[]. APIKey may be a literal
// or the form "env:VAR_NAME", resolved by ResolveAPIKey.
type LLMProvider struct {
	Name     string     `mapstructure:"name"`
	Type     string     `mapstructure:"type"`
	Endpoint string     `mapstructure:"endpoint"`
	APIKey   string     `mapstructure:"api_key"`
	Enabled  bool       `mapstructure:"enabled"`
	Models   []LLMModel `mapstructure:"models"`
}

// ResolveAPIKey follows the "env:VAR" indirection for
// llm_providers[].api_key, returning the literal value unchanged
// otherwise.
func (p LLMProvider) ResolveAPIKey() string {
	if rest, ok := strings.CutPrefix(p.APIKey, "env:"); ok {
		return os.Getenv(rest)
	}
	return p.APIKey
}

// SelectionStrategy is how llm_selection picks among enabled providers.
type SelectionStrategy string

const (
	StrategyPreferLocal      SelectionStrategy = "prefer-local"
	StrategyPreferCloud      SelectionStrategy = "prefer-cloud"
	StrategyCostOptimized    SelectionStrategy = "cost-optimized"
	StrategyLatencyOptimized SelectionStrategy = "latency-optimized"
)

// LLMSelection is the llm_selection config block.
type LLMSelection struct {
	Strategy         SelectionStrategy `mapstructure:"strategy"`
	DefaultProvider  string            `mapstructure:"default_provider"`
	FallbackProvider string            `mapstructure:"fallback_provider"`
	MaxRetries       int               `mapstructure:"max_retries"`
	RetryDelayMs     int               `mapstructure:"retry_delay_ms"`
}

// NetworkConfig is the optional network block (bind addresses, NFS port).
type NetworkConfig struct {
	HTTPBindAddr string `mapstructure:"http_bind_addr"`
	NFSBindAddr  string `mapstructure:"nfs_bind_addr"`
	NFSPort      int    `mapstructure:"nfs_port"`
	NATSURL      string `mapstructure:"nats_url"`
}

// DatabaseConfig selects and configures the repository backend. An
// empty URL keeps the in-memory repositories (suitable for a single
// edge node or tests); a "file:" or "libsql://" URL switches serve.go
// to internal/repo/sqlite.
type DatabaseConfig struct {
	URL             string  `mapstructure:"url"`
	PruneSchedule   string  `mapstructure:"prune_schedule"`
	PruneMinWeight  float64 `mapstructure:"prune_min_weight"`
	PruneMaxAgeDays int     `mapstructure:"prune_max_age_days"`
}

// SecurityConfig carries the SMCP session signing secret. TokenSecret
// may be a literal or "env:VAR_NAME" like LLMProvider.APIKey; an empty
// value means serve.go mints an ephemeral per-process secret, which
// invalidates every issued token across a restart.
type SecurityConfig struct {
	TokenSecret string `mapstructure:"token_secret"`
}

// ResolveTokenSecret follows the same "env:VAR" indirection as
// LLMProvider.ResolveAPIKey.
func (s SecurityConfig) ResolveTokenSecret() string {
	if rest, ok := strings.CutPrefix(s.TokenSecret, "env:"); ok {
		return os.Getenv(rest)
	}
	return s.TokenSecret
}

// ObservabilityConfig is the optional observability block.
type ObservabilityConfig struct {
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// AegisConfig is the daemon's keyed-table configuration, unmarshaled
// from whichever YAML file the discovery order below finds.
type AegisConfig struct {
	Node          NodeConfig          `mapstructure:"node"`
	LLMProviders  []LLMProvider       `mapstructure:"llm_providers"`
	LLMSelection  LLMSelection        `mapstructure:"llm_selection"`
	Network       NetworkConfig       `mapstructure:"network"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

func defaultAegisConfig() AegisConfig {
	return AegisConfig{
		Node: NodeConfig{Type: NodeOrchestrator},
		LLMSelection: LLMSelection{
			Strategy:     StrategyPreferCloud,
			MaxRetries:   3,
			RetryDelayMs: 500,
		},
		Network: NetworkConfig{
			HTTPBindAddr: ":8080",
			NFSPort:      2049,
		},
		Database: DatabaseConfig{
			PruneSchedule:   cortex.DefaultPruneSchedule,
			PruneMinWeight:  0.2,
			PruneMaxAgeDays: 30,
		},
		Observability: ObservabilityConfig{LogLevel: "info"},
	}
}

// LoadAegisConfig resolves the config file in discovery order:
// explicit path (CLI flag), AEGIS_CONFIG_PATH env var,
// ./aegis-config.yaml, ~/.aegis/config.yaml, /etc/aegis/config.yaml,
// and unmarshals it over the documented defaults. A missing file at
// every candidate path is not an error: the defaults stand alone,
// mirroring cmd/main/main.go's initConfig tolerating a missing
// station config.
func LoadAegisConfig(explicitPath string) (*AegisConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	path := resolveAegisConfigPath(explicitPath)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("load aegis config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("AEGIS")
	v.AutomaticEnv()

	cfg := defaultAegisConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal aegis config: %w", err)
	}
	return &cfg, nil
}

// resolveAegisConfigPath walks the CLI-flag/env/cwd/home/system search
// order, returning the first candidate that exists, or "" if none do.
func resolveAegisConfigPath(explicitPath string) string {
	candidates := []string{explicitPath, os.Getenv("AEGIS_CONFIG_PATH"), "./aegis-config.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".aegis", "config.yaml"))
	}
	candidates = append(candidates, "/etc/aegis/config.yaml")

	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}
