package report

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/nvestri/imagescout/pkg/types"
)

const summaryTemplate = `{{ rule }}
IMAGE UPDATE SUMMARY
{{ rule }}
Date: {{ .Report.GeneratedAt.Format "2006-01-02" }}
Total Updates: {{ len .Report.Items }}

Updates by Category:

  Major: {{ index .Report.MagnitudeCounts "major" }}
  Minor: {{ index .Report.MagnitudeCounts "minor" }}
  Patch: {{ index .Report.MagnitudeCounts "patch" }}
{{- if .HasRisk }}

Risk Distribution:

  Critical: {{ index .Report.RiskCounts "critical" }}
  High: {{ index .Report.RiskCounts "high" }}
  Medium: {{ index .Report.RiskCounts "medium" }}
  Low: {{ index .Report.RiskCounts "low" }}
{{- end }}

Detailed Updates:

{{ range .Report.Items -}}
  * {{ .Workload.Namespace }}/{{ .Workload.Name }}: {{ .Decision.Image }}:{{ .Decision.CurrentTag }} -> :{{ .Decision.CandidateTag }} [{{ upper .Decision.Magnitude.String }}]{{ if .Risk }} {{ badge .Risk.Level }}{{ end }}
{{ if .Risk -}}
{{ range firstN .Risk.BreakingChanges 2 -}}
      ! {{ . }}
{{ end -}}
{{ end -}}
{{ end -}}
{{- if or .Report.Skipped .Report.Blocked }}
Skipped (no resolvable update): {{ .Report.Skipped }}
Blocked by policy: {{ .Report.Blocked }}
{{ end -}}
{{ rule }}
`

// RenderSummary renders the human-readable run summary.
func RenderSummary(r *types.Report) (string, error) {
	tmpl, err := template.New("summary").Funcs(template.FuncMap{
		"rule":  func() string { return strings.Repeat("=", 60) },
		"upper": strings.ToUpper,
		"badge": Badge,
		"index": func(m any, k string) int {
			switch counts := m.(type) {
			case map[types.Magnitude]int:
				return counts[types.Magnitude(k)]
			case map[types.RiskLevel]int:
				return counts[types.RiskLevel(k)]
			}
			return 0
		},
		"firstN": func(items []string, n int) []string {
			if len(items) > n {
				return items[:n]
			}
			return items
		},
	}).Parse(summaryTemplate)
	if err != nil {
		return "", err
	}

	ctx := struct {
		Report  *types.Report
		HasRisk bool
	}{Report: r, HasRisk: len(r.RiskCounts) > 0}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderDetails renders the per-update section of the pull request
// body from the publisher metadata: identity, tag transition,
// magnitude, risk badge, up to three breaking changes, and the
// changelog link.
func RenderDetails(metas []UpdateMeta) string {
	if len(metas) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Detailed Changes\n\n")
	for _, m := range metas {
		fmt.Fprintf(&sb, "- **%s**: `%s:%s` -> `:%s` (%s)", m.Identity, m.Image, m.CurrentTag, m.CandidateTag, m.Magnitude)
		if m.RiskBadge != "" {
			sb.WriteString(" " + m.RiskBadge)
		}
		sb.WriteString("\n")
		for _, change := range m.BreakingChanges {
			sb.WriteString("  - Breaking: " + change + "\n")
		}
		if m.ChangelogURL != "" {
			fmt.Fprintf(&sb, "  - [View Changelog](%s)\n", m.ChangelogURL)
		}
	}
	return sb.String()
}

// RenderInsights produces the risk analysis block for the PR body:
// risk distribution, up to five leading breaking-change bullets, and
// one overall recommendation tier selected by the worst risk level
// present (critical or high -> cautious, medium -> standard, else safe).
func RenderInsights(assessments []*types.RiskAssessment) string {
	counts := map[types.RiskLevel]int{}
	var breaking []string
	for _, a := range assessments {
		if a == nil {
			continue
		}
		counts[a.Level]++
		breaking = append(breaking, a.BreakingChanges...)
	}

	var sb strings.Builder
	sb.WriteString("## Risk Analysis\n\n")
	sb.WriteString("### Risk Distribution\n")
	fmt.Fprintf(&sb, "- Critical: %d\n", counts[types.RiskCritical])
	fmt.Fprintf(&sb, "- High: %d\n", counts[types.RiskHigh])
	fmt.Fprintf(&sb, "- Medium: %d\n", counts[types.RiskMedium])
	fmt.Fprintf(&sb, "- Low: %d\n\n", counts[types.RiskLow])

	if len(breaking) > 0 {
		sb.WriteString("### Breaking Changes Detected\n\n")
		if len(breaking) > 5 {
			breaking = breaking[:5]
		}
		for _, change := range breaking {
			sb.WriteString("- " + change + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("### Recommendation\n\n")
	switch {
	case counts[types.RiskCritical] > 0 || counts[types.RiskHigh] > 0:
		sb.WriteString("**High-risk updates detected.** Please:\n")
		sb.WriteString("- Review all breaking changes carefully\n")
		sb.WriteString("- Test in staging environment first\n")
		sb.WriteString("- Plan for potential rollback\n")
	case counts[types.RiskMedium] > 0:
		sb.WriteString("**Medium-risk updates.** Standard deployment process recommended:\n")
		sb.WriteString("- Review release notes\n")
		sb.WriteString("- Monitor applications after deployment\n")
	default:
		sb.WriteString("**Low-risk updates.** Safe to deploy with standard process.\n")
	}
	return sb.String()
}
