package registry

import (
	"context"
	"testing"

	"github.com/nvestri/imagescout/pkg/types"
)

type staticTags struct {
	tags []string
}

func (s staticTags) ListTags(_ context.Context, _ string) []string {
	return s.tags
}

func TestResolvePicksGreatestAllowed(t *testing.T) {
	// Policy allows minor+patch, disallows major.
	r := NewResolver(
		staticTags{tags: []string{"3.1.2", "3.1.3", "3.2.0"}},
		Policy{AllowMinor: true, AllowPatch: true},
	)

	d := r.Resolve(context.Background(), "linuxserver/sonarr", "3.1.2")
	if d == nil {
		t.Fatal("expected a decision")
	}
	if d.CandidateTag != "3.2.0" {
		t.Errorf("CandidateTag = %q, want %q", d.CandidateTag, "3.2.0")
	}
	if d.Magnitude != types.MagnitudeMinor {
		t.Errorf("Magnitude = %s, want minor", d.Magnitude)
	}
	if !d.Allowed {
		t.Error("expected decision to be allowed")
	}
}

func TestResolveMajorBlockedByPolicy(t *testing.T) {
	r := NewResolver(
		staticTags{tags: []string{"4.0.0"}},
		Policy{AllowMinor: true, AllowPatch: true},
	)

	d := r.Resolve(context.Background(), "app/api", "3.1.2")
	if d == nil {
		t.Fatal("expected an audit decision for a blocked update")
	}
	if d.Allowed {
		t.Error("expected major update to be blocked")
	}
	if d.Magnitude != types.MagnitudeMajor {
		t.Errorf("Magnitude = %s, want major", d.Magnitude)
	}
}

func TestResolveNoUpdateCases(t *testing.T) {
	policy := Policy{AllowMajor: true, AllowMinor: true, AllowPatch: true}

	tests := []struct {
		name    string
		current string
		tags    []string
	}{
		{"current not parseable", "latest", []string{"1.0.0", "2.0.0"}},
		{"no parseable candidates", "1.0.0", []string{"latest", "develop"}},
		{"no tags at all", "1.0.0", nil},
		{"best equals current", "2.0.0", []string{"1.0.0", "2.0.0"}},
		{"best below current", "3.0.0", []string{"1.0.0", "2.0.0"}},
		// Suffix-insensitive comparison: keys are identical, no update.
		{"suffix-only difference", "4.0.16.2944-ls301", []string{"4.0.16.2944-ls302"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(staticTags{tags: tt.tags}, policy)
			if d := r.Resolve(context.Background(), "app/api", tt.current); d != nil {
				t.Errorf("expected nil decision, got %+v", d)
			}
		})
	}
}

func TestPolicyAllows(t *testing.T) {
	p := Policy{AllowMinor: true, AllowPatch: true}

	if p.Allows(types.MagnitudeMajor) {
		t.Error("major should be denied")
	}
	if !p.Allows(types.MagnitudeMinor) || !p.Allows(types.MagnitudePatch) {
		t.Error("minor and patch should be allowed")
	}
	if p.Allows(types.MagnitudeUnknown) {
		t.Error("unknown magnitude must never be allowed")
	}
}
