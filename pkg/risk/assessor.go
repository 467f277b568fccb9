// Package risk scores the deployment risk of an image update. Tier 1
// is a deterministic heuristic over the update magnitude and is always
// computed; Tier 2 optionally augments it with findings from a
// narrative analyzer. Augmentation is all-or-nothing: any analyzer
// failure yields the unmodified Tier 1 result.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/nvestri/imagescout/pkg/types"
)

// baseScores is the fixed magnitude -> base score table.
var baseScores = map[types.Magnitude]float64{
	types.MagnitudeMajor:   7.0,
	types.MagnitudeMinor:   4.0,
	types.MagnitudePatch:   2.0,
	types.MagnitudeUnknown: 5.0,
}

// baseRecommendations is the fixed magnitude -> advice table used when
// no analyzer findings are available.
var baseRecommendations = map[types.Magnitude][]string{
	types.MagnitudeMajor: {
		"Test thoroughly in staging environment",
		"Review changelog for breaking changes",
	},
	types.MagnitudeMinor: {
		"Review release notes",
		"Monitor application after deployment",
	},
	types.MagnitudePatch: {
		"Low risk update - can deploy with standard process",
	},
	types.MagnitudeUnknown: {
		"Low risk update - can deploy with standard process",
	},
}

// LevelFor buckets a score into a risk level. Shared by both tiers.
func LevelFor(score float64) types.RiskLevel {
	switch {
	case score < 3.0:
		return types.RiskLow
	case score < 6.0:
		return types.RiskMedium
	case score < 8.0:
		return types.RiskHigh
	default:
		return types.RiskCritical
	}
}

// Findings is the fixed schema the narrative analyzer must produce.
type Findings struct {
	BreakingChanges []string `json:"breaking_changes"`
	SecurityUpdates []string `json:"security_updates"`
	NotableChanges  []string `json:"notable_changes"`
	Recommendations []string `json:"recommendations"`
	Summary         string   `json:"summary"`
}

// Analyzer produces structured findings from free-form context text.
// A disabled analyzer always returns an error and performs no I/O.
type Analyzer interface {
	Analyze(ctx context.Context, contextText string) (*Findings, error)
}

// Disabled is an Analyzer that always fails, forcing Tier 1.
type Disabled struct{}

// Analyze always reports the analyzer as disabled.
func (Disabled) Analyze(_ context.Context, _ string) (*Findings, error) {
	return nil, fmt.Errorf("narrative analysis disabled")
}

// Assessor computes risk assessments for resolved updates.
type Assessor struct {
	analyzer Analyzer
}

// NewAssessor builds an assessor. A nil analyzer disables Tier 2.
func NewAssessor(analyzer Analyzer) *Assessor {
	if analyzer == nil {
		analyzer = Disabled{}
	}
	return &Assessor{analyzer: analyzer}
}

// Assess scores the update for the given workload. The changelog bundle
// may be nil; its absence is stated explicitly in the analyzer context
// rather than omitted.
func (a *Assessor) Assess(ctx context.Context, workload types.Workload, decision types.UpdateDecision, bundle *types.ChangelogBundle) *types.RiskAssessment {
	contextText := buildContext(workload, decision, bundle)

	findings, err := a.analyzer.Analyze(ctx, contextText)
	if err != nil {
		slog.Debug("narrative analysis unavailable, using heuristic tier",
			"workload", workload.Name(), "error", err)
		return heuristic(decision.Magnitude)
	}

	score := baseScores[decision.Magnitude]
	score += math.Min(float64(len(findings.BreakingChanges))*1.5, 3.0)
	score -= math.Min(float64(len(findings.SecurityUpdates))*0.5, 2.0)
	score = math.Max(0.0, math.Min(10.0, score))
	score = math.Round(score*10) / 10

	return &types.RiskAssessment{
		Score:           score,
		Level:           LevelFor(score),
		BreakingChanges: findings.BreakingChanges,
		SecurityUpdates: findings.SecurityUpdates,
		NotableChanges:  findings.NotableChanges,
		Recommendations: findings.Recommendations,
		Summary:         findings.Summary,
		AIAugmented:     true,
	}
}

// heuristic is the full Tier 1 result for a magnitude.
func heuristic(m types.Magnitude) *types.RiskAssessment {
	score := baseScores[m]
	recs := baseRecommendations[m]
	return &types.RiskAssessment{
		Score:           score,
		Level:           LevelFor(score),
		BreakingChanges: []string{},
		SecurityUpdates: []string{},
		NotableChanges:  []string{},
		Recommendations: append([]string(nil), recs...),
		Summary:         fmt.Sprintf("Automated analysis: %s version update", m),
		AIAugmented:     false,
	}
}

// buildContext renders the analyzer input: deployment identity, version
// transition, and the changelog content when one was collected.
func buildContext(workload types.Workload, decision types.UpdateDecision, bundle *types.ChangelogBundle) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Application: %s\n", workload.Deployment)
	fmt.Fprintf(&sb, "Container Image: %s\n", decision.Image)
	fmt.Fprintf(&sb, "Current Version: %s\n", decision.CurrentTag)
	fmt.Fprintf(&sb, "New Version: %s\n", decision.CandidateTag)
	fmt.Fprintf(&sb, "Update Type: %s\n\n", decision.Magnitude)

	if bundle != nil {
		sb.WriteString("Changelog:\n")
		sb.WriteString(strings.Repeat("=", 60) + "\n")
		sb.WriteString(bundle.Content + "\n")
		sb.WriteString(strings.Repeat("=", 60))
	} else {
		sb.WriteString("Changelog: Not available")
	}
	return sb.String()
}
