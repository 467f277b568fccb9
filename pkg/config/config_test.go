package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validConfig = `
kubernetes:
  namespaces: [media]
  manifest_paths: [./manifests]
update_policy:
  allow_major: false
  allow_minor: true
  allow_patch: true
  ignore_images:
    - "^busybox"
github:
  token: tok
  owner: example
  repo: homelab
  base_branch: main
ai:
  enabled: true
  openai_api_key: key
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig), true)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Policy.AllowMajor {
		t.Error("allow_major should be false")
	}
	if !cfg.AllowMinor() || !cfg.AllowPatch() {
		t.Error("minor and patch should be allowed")
	}
	if !cfg.AIEnabled() {
		t.Error("ai should be enabled")
	}
	if cfg.GitHub.BranchPrefix != "image-updates" {
		t.Errorf("BranchPrefix default = %q", cfg.GitHub.BranchPrefix)
	}
	if cfg.AI.Model != "gpt-4o-mini" {
		t.Errorf("Model default = %q", cfg.AI.Model)
	}
	if cfg.RequestTimeout() != 10*time.Second {
		t.Errorf("RequestTimeout default = %v", cfg.RequestTimeout())
	}
}

func TestLoadDefaultsWhenOmitted(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := Load(writeConfig(t, "github:\n  token: t\n  owner: o\n  repo: r\n  base_branch: main\n"), true)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.AllowMinor() || !cfg.AllowPatch() {
		t.Error("minor and patch default to allowed")
	}
	if cfg.Policy.AllowMajor {
		t.Error("major defaults to denied")
	}
	if !cfg.AnalyzeChangelogs() || !cfg.RiskPrediction() {
		t.Error("analysis toggles default to true")
	}
	if cfg.AIEnabled() {
		t.Error("ai requires an api key")
	}
}

func TestLoadMissingGitHubFields(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"no token", "github:\n  owner: o\n  repo: r\n  base_branch: main\n", "token"},
		{"no owner", "github:\n  token: t\n  repo: r\n  base_branch: main\n", "owner"},
		{"no repo", "github:\n  token: t\n  owner: o\n  base_branch: main\n", "repo"},
		{"no base branch", "github:\n  token: t\n  owner: o\n  repo: r\n", "base_branch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), true)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDryRunSkipsGitHubValidation(t *testing.T) {
	if _, err := Load(writeConfig(t, "update_policy:\n  allow_major: true\n"), false); err != nil {
		t.Errorf("dry-run load should not require github config: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "env-token")
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("KUBECONFIG", "/tmp/kubeconfig")

	cfg, err := Load(writeConfig(t, "github:\n  owner: o\n  repo: r\n  base_branch: main\n"), true)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GitHub.Token != "env-token" {
		t.Errorf("Token = %q, want env override", cfg.GitHub.Token)
	}
	if cfg.AI.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env override", cfg.AI.APIKey)
	}
	if cfg.Kubernetes.Kubeconfig != "/tmp/kubeconfig" {
		t.Errorf("Kubeconfig = %q, want env override", cfg.Kubernetes.Kubeconfig)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), false); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "kubernetes: [not: a: map"), false); err == nil {
		t.Error("expected parse error")
	}
}
