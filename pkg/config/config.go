// Package config loads and validates the scout configuration from a
// YAML file, with environment overrides for credentials. Validation
// failures are the one fatal error class: the run aborts before any
// external call is made.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Kubernetes KubernetesConfig `yaml:"kubernetes"`
	Policy     PolicyConfig     `yaml:"update_policy"`
	GitHub     GitHubConfig     `yaml:"github"`
	AI         AIConfig         `yaml:"ai"`
	Registry   RegistryConfig   `yaml:"registry"`
}

// KubernetesConfig controls cluster scanning and manifest discovery.
type KubernetesConfig struct {
	Kubeconfig    string   `yaml:"kubeconfig"`
	Namespaces    []string `yaml:"namespaces"`
	ManifestPaths []string `yaml:"manifest_paths"`
	RepoPath      string   `yaml:"repo_path"` // local checkout of the manifests repo
}

// PolicyConfig is the per-magnitude update gate.
type PolicyConfig struct {
	AllowMajor   bool     `yaml:"allow_major"`
	AllowMinor   *bool    `yaml:"allow_minor"`
	AllowPatch   *bool    `yaml:"allow_patch"`
	IgnoreImages []string `yaml:"ignore_images"`
}

// GitHubConfig identifies the manifests repository and credentials.
type GitHubConfig struct {
	Token        string `yaml:"token"`
	Owner        string `yaml:"owner"`
	Repo         string `yaml:"repo"`
	BaseBranch   string `yaml:"base_branch"`
	BranchPrefix string `yaml:"branch_prefix"`
}

// AIConfig controls the narrative analysis tier.
type AIConfig struct {
	Enabled           *bool  `yaml:"enabled"`
	APIKey            string `yaml:"openai_api_key"`
	Model             string `yaml:"model"`
	AnalyzeChangelogs *bool  `yaml:"analyze_changelogs"`
	RiskPrediction    *bool  `yaml:"risk_prediction"`
}

// RegistryConfig tunes registry and release feed requests.
type RegistryConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Load reads the configuration file, applies environment overrides, and
// validates it. requirePublish controls whether the GitHub section must
// be complete (it is not needed for dry runs).
func Load(path string, requirePublish bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.validate(requirePublish); err != nil {
		return nil, err
	}
	slog.Info("configuration loaded", "path", path)
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		c.GitHub.Token = token
		slog.Info("using GITHUB_TOKEN from environment")
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.AI.APIKey = key
	}
	if kubeconfig := os.Getenv("KUBECONFIG"); kubeconfig != "" {
		c.Kubernetes.Kubeconfig = kubeconfig
	}
}

func (c *Config) applyDefaults() {
	if c.GitHub.BranchPrefix == "" {
		c.GitHub.BranchPrefix = "image-updates"
	}
	if c.AI.Model == "" {
		c.AI.Model = "gpt-4o-mini"
	}
	if c.Registry.TimeoutSeconds <= 0 {
		c.Registry.TimeoutSeconds = 10
	}
}

func (c *Config) validate(requirePublish bool) error {
	if !requirePublish {
		return nil
	}
	if c.GitHub.Token == "" {
		return fmt.Errorf("github token not configured: set in config file or GITHUB_TOKEN env var")
	}
	required := map[string]string{
		"owner":       c.GitHub.Owner,
		"repo":        c.GitHub.Repo,
		"base_branch": c.GitHub.BaseBranch,
	}
	for key, value := range required {
		if value == "" {
			return fmt.Errorf("missing required github config: %s", key)
		}
	}
	return nil
}

// AIEnabled reports whether narrative analysis should run at all.
// Enabled defaults to true but is useless without an API key.
func (c *Config) AIEnabled() bool {
	if c.AI.Enabled != nil && !*c.AI.Enabled {
		return false
	}
	return c.AI.APIKey != ""
}

// AnalyzeChangelogs defaults to true.
func (c *Config) AnalyzeChangelogs() bool {
	return c.AI.AnalyzeChangelogs == nil || *c.AI.AnalyzeChangelogs
}

// RiskPrediction defaults to true.
func (c *Config) RiskPrediction() bool {
	return c.AI.RiskPrediction == nil || *c.AI.RiskPrediction
}

// AllowMinor defaults to true.
func (c *Config) AllowMinor() bool {
	return c.Policy.AllowMinor == nil || *c.Policy.AllowMinor
}

// AllowPatch defaults to true.
func (c *Config) AllowPatch() bool {
	return c.Policy.AllowPatch == nil || *c.Policy.AllowPatch
}

// RequestTimeout is the bounded timeout for registry and release feed
// calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Registry.TimeoutSeconds) * time.Second
}
