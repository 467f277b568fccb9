package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nvestri/imagescout/pkg/changelog"
	"github.com/nvestri/imagescout/pkg/config"
	"github.com/nvestri/imagescout/pkg/inventory"
	"github.com/nvestri/imagescout/pkg/manifest"
	"github.com/nvestri/imagescout/pkg/publisher"
	"github.com/nvestri/imagescout/pkg/registry"
	"github.com/nvestri/imagescout/pkg/report"
	"github.com/nvestri/imagescout/pkg/risk"
	"github.com/nvestri/imagescout/pkg/scout"
	"github.com/nvestri/imagescout/pkg/types"
)

// run executes one full scan. Configuration problems are the only fatal
// error class before the pipeline starts; per-image failures degrade to
// skips inside the pipeline.
func run(ctx context.Context) error {
	cfg, err := config.Load(configFile, !dryRun)
	if err != nil {
		return err
	}

	scanner, err := inventory.NewScanner(cfg.Kubernetes.Kubeconfig, cfg.Kubernetes.Namespaces, cfg.Policy.IgnoreImages)
	if err != nil {
		return fmt.Errorf("connecting to cluster: %w", err)
	}

	client := registry.NewClient(cfg.RequestTimeout())
	resolver := registry.NewResolver(client, registry.Policy{
		AllowMajor: cfg.Policy.AllowMajor,
		AllowMinor: cfg.AllowMinor(),
		AllowPatch: cfg.AllowPatch(),
	})

	var collector *changelog.Collector
	if cfg.AnalyzeChangelogs() {
		feed := changelog.NewGitHubFeed(cfg.GitHub.Token, cfg.RequestTimeout())
		collector = changelog.NewCollector(feed, client, registry.DescriptionURL)
	}

	var analyzer risk.Analyzer
	if cfg.AIEnabled() && cfg.RiskPrediction() {
		analyzer, err = risk.NewOpenAIAnalyzer(cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			return fmt.Errorf("configuring analyzer: %w", err)
		}
		slog.Info("narrative risk analysis enabled", "model", cfg.AI.Model)
	}

	pipeline := &scout.Pipeline{
		Inventory: scanner,
		Resolver:  resolver,
		Collector: collector,
		Assessor:  risk.NewAssessor(analyzer),
	}

	r, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	summary, err := report.RenderSummary(r)
	if err != nil {
		return fmt.Errorf("rendering summary: %w", err)
	}
	fmt.Fprintln(stdout, summary)

	if dryRun {
		slog.Info("dry run complete, no changes made", "updates", len(r.Items))
		return nil
	}
	if len(r.Items) == 0 {
		slog.Info("no updates available")
		return nil
	}

	files, err := manifest.NewUpdater(cfg.Kubernetes.ManifestPaths).Apply(r.Items)
	if err != nil {
		return fmt.Errorf("patching manifests: %w", err)
	}
	if len(files) == 0 {
		slog.Warn("updates found but no manifest files matched, skipping pull request")
		return nil
	}

	pub := publisher.NewGitHub(publisher.Options{
		RepoPath:     cfg.Kubernetes.RepoPath,
		Owner:        cfg.GitHub.Owner,
		Repo:         cfg.GitHub.Repo,
		BaseBranch:   cfg.GitHub.BaseBranch,
		BranchPrefix: cfg.GitHub.BranchPrefix,
		Token:        cfg.GitHub.Token,
	})
	url, err := pub.Publish(ctx, r, prBody(r, summary), files)
	if err != nil {
		return fmt.Errorf("publishing updates: %w", err)
	}
	fmt.Fprintln(stdout, url)
	return nil
}

// prBody combines the rendered summary with cross-update insights and
// the per-update detail section.
func prBody(r *types.Report, summary string) string {
	assessments := make([]*types.RiskAssessment, 0, len(r.Items))
	for _, item := range r.Items {
		if item.Risk != nil {
			assessments = append(assessments, item.Risk)
		}
	}

	var b strings.Builder
	b.WriteString(summary)
	if len(assessments) > 0 {
		b.WriteString("\n")
		b.WriteString(report.RenderInsights(assessments))
	}
	if details := report.RenderDetails(report.Metadata(r)); details != "" {
		b.WriteString("\n")
		b.WriteString(details)
	}
	return b.String()
}
