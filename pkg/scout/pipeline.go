// Package scout runs the update discovery pipeline: inventory ->
// resolve -> collect changelog -> assess risk -> aggregate. Per-image
// stages are independent and run concurrently with a bounded limit;
// the aggregator re-sorts deterministically, so completion order never
// shows in the report.
package scout

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/nvestri/imagescout/pkg/changelog"
	"github.com/nvestri/imagescout/pkg/inventory"
	"github.com/nvestri/imagescout/pkg/registry"
	"github.com/nvestri/imagescout/pkg/report"
	"github.com/nvestri/imagescout/pkg/risk"
	"github.com/nvestri/imagescout/pkg/types"
)

const defaultConcurrency = 4

// Pipeline wires the per-image stages over their capability interfaces.
type Pipeline struct {
	Inventory inventory.Provider
	Resolver  *registry.Resolver
	Collector *changelog.Collector // nil disables changelog collection
	Assessor  *risk.Assessor

	// Concurrency bounds the number of images processed at once.
	// Zero means the default.
	Concurrency int
}

// Run processes every workload from the inventory and aggregates the
// results. Only inventory failure is fatal; every per-image stage
// degrades to its documented fallback.
func (p *Pipeline) Run(ctx context.Context) (*types.Report, error) {
	workloads, err := p.Inventory.Scan(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("checking registries for image updates", "workloads", len(workloads))

	limit := p.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	results := make([]*types.UpdateItem, len(workloads))
	var skipped, blocked atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, w := range workloads {
		i, w := i, w
		g.Go(func() error {
			item := p.processWorkload(gctx, w, &skipped, &blocked)
			results[i] = item
			return nil
		})
	}
	// Workers never return errors; Wait only propagates ctx cancellation.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]types.UpdateItem, 0, len(results))
	for _, item := range results {
		if item != nil {
			items = append(items, *item)
		}
	}
	return report.Aggregate(items, int(skipped.Load()), int(blocked.Load())), nil
}

func (p *Pipeline) processWorkload(ctx context.Context, w types.Workload, skipped, blocked *atomic.Int64) *types.UpdateItem {
	decision := p.Resolver.Resolve(ctx, w.Image, w.CurrentTag)
	if decision == nil {
		skipped.Add(1)
		return nil
	}
	if !decision.Allowed {
		blocked.Add(1)
		return nil
	}

	var bundle *types.ChangelogBundle
	if p.Collector != nil {
		bundle = p.Collector.Collect(ctx, w.Image, decision.CurrentTag, decision.CandidateTag)
	}

	var assessment *types.RiskAssessment
	if p.Assessor != nil {
		assessment = p.Assessor.Assess(ctx, w, *decision, bundle)
	}

	logUpdate(w, decision, assessment)
	return &types.UpdateItem{
		Workload:  w,
		Decision:  *decision,
		Changelog: bundle,
		Risk:      assessment,
	}
}

func logUpdate(w types.Workload, decision *types.UpdateDecision, assessment *types.RiskAssessment) {
	args := []any{
		"workload", w.Namespace + "/" + w.Name(),
		"current", decision.CurrentTag,
		"candidate", decision.CandidateTag,
		"magnitude", decision.Magnitude,
	}
	if assessment != nil {
		args = append(args, "risk", assessment.Level)
	}
	slog.Info("update available", args...)
}
