// Package report aggregates resolved updates into a deterministic
// run summary, independent of where the summary ends up (log output or
// a pull request body).
package report

import (
	"sort"
	"time"

	"github.com/nvestri/imagescout/pkg/types"
)

// Aggregate builds the report for a run. Items are re-sorted by
// namespace then deployment name so the output is stable regardless of
// the completion order of the per-image stages.
func Aggregate(items []types.UpdateItem, skipped, blocked int) *types.Report {
	sorted := append([]types.UpdateItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Workload.Namespace != sorted[j].Workload.Namespace {
			return sorted[i].Workload.Namespace < sorted[j].Workload.Namespace
		}
		return sorted[i].Workload.Deployment < sorted[j].Workload.Deployment
	})

	r := &types.Report{
		GeneratedAt:     time.Now(),
		Items:           sorted,
		MagnitudeCounts: make(map[types.Magnitude]int),
		RiskCounts:      make(map[types.RiskLevel]int),
		Skipped:         skipped,
		Blocked:         blocked,
	}
	for _, item := range sorted {
		r.MagnitudeCounts[item.Decision.Magnitude]++
		if item.Risk != nil {
			r.RiskCounts[item.Risk.Level]++
		}
	}
	return r
}

// Badge returns the marker used for a risk level in rendered output.
func Badge(level types.RiskLevel) string {
	switch level {
	case types.RiskLow:
		return "[LOW]"
	case types.RiskMedium:
		return "[MEDIUM]"
	case types.RiskHigh:
		return "[HIGH]"
	case types.RiskCritical:
		return "[CRITICAL]"
	default:
		return "[UNSCORED]"
	}
}

// UpdateMeta is the per-update metadata handed to the publisher.
type UpdateMeta struct {
	Identity        string // namespace/deployment/container
	Image           string
	CurrentTag      string
	CandidateTag    string
	Magnitude       types.Magnitude
	RiskBadge       string
	BreakingChanges []string // top 3
	ChangelogURL    string
}

// Metadata extracts publisher metadata for every item in the report.
func Metadata(r *types.Report) []UpdateMeta {
	metas := make([]UpdateMeta, 0, len(r.Items))
	for _, item := range r.Items {
		meta := UpdateMeta{
			Identity:     item.Workload.Namespace + "/" + item.Workload.Name(),
			Image:        item.Decision.Image,
			CurrentTag:   item.Decision.CurrentTag,
			CandidateTag: item.Decision.CandidateTag,
			Magnitude:    item.Decision.Magnitude,
		}
		if item.Risk != nil {
			meta.RiskBadge = Badge(item.Risk.Level)
			breaking := item.Risk.BreakingChanges
			if len(breaking) > 3 {
				breaking = breaking[:3]
			}
			meta.BreakingChanges = append([]string(nil), breaking...)
		}
		if item.Changelog != nil {
			meta.ChangelogURL = item.Changelog.URL
		}
		metas = append(metas, meta)
	}
	return metas
}
