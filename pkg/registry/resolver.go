package registry

import (
	"context"
	"log/slog"

	"github.com/nvestri/imagescout/pkg/types"
	"github.com/nvestri/imagescout/pkg/version"
)

// Policy is the per-magnitude gate deciding whether a detected update
// may be surfaced. Unknown-magnitude updates are never allowed.
type Policy struct {
	AllowMajor bool
	AllowMinor bool
	AllowPatch bool
}

// Allows reports whether the policy permits surfacing an update of the
// given magnitude.
func (p Policy) Allows(m types.Magnitude) bool {
	switch m {
	case types.MagnitudeMajor:
		return p.AllowMajor
	case types.MagnitudeMinor:
		return p.AllowMinor
	case types.MagnitudePatch:
		return p.AllowPatch
	default:
		return false
	}
}

// Resolver picks the greatest acceptable version for a deployed image.
type Resolver struct {
	tags   TagLister
	policy Policy
}

// NewResolver builds a resolver over the given tag source and policy.
func NewResolver(tags TagLister, policy Policy) *Resolver {
	return &Resolver{tags: tags, policy: policy}
}

// Resolve determines whether a newer version exists for image:currentTag.
// It returns nil when the current tag does not parse, no candidate tag
// parses, or the best candidate is not strictly greater than the current
// version. Policy-blocked updates are still returned, with Allowed=false,
// so callers can account for them without surfacing them.
func (r *Resolver) Resolve(ctx context.Context, image, currentTag string) *types.UpdateDecision {
	current, ok := version.Parse(currentTag)
	if !ok {
		slog.Debug("current tag not parseable", "image", image, "tag", currentTag)
		return nil
	}

	available := r.tags.ListTags(ctx, image)
	if len(available) == 0 {
		slog.Warn("no tags available", "image", image)
		return nil
	}

	var bestTag string
	var bestKey version.Key
	for _, tag := range available {
		key, ok := version.Parse(tag)
		if !ok {
			continue
		}
		if bestKey == nil || version.Compare(key, bestKey) > 0 {
			bestKey, bestTag = key, tag
		}
	}
	if bestKey == nil {
		slog.Debug("no parseable candidate tags", "image", image)
		return nil
	}

	if version.Compare(bestKey, current) <= 0 {
		slog.Debug("no newer version", "image", image, "current", currentTag)
		return nil
	}

	magnitude := version.Classify(currentTag, bestTag)
	decision := &types.UpdateDecision{
		Image:        image,
		CurrentTag:   currentTag,
		CandidateTag: bestTag,
		Magnitude:    magnitude,
		Allowed:      r.policy.Allows(magnitude),
	}

	if !decision.Allowed {
		slog.Info("update blocked by policy",
			"image", image, "current", currentTag, "candidate", bestTag, "magnitude", magnitude)
	}
	return decision
}
