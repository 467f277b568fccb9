package changelog

import (
	"context"
	"strings"
	"testing"

	"github.com/nvestri/imagescout/pkg/types"
)

type staticFeed struct {
	releases []types.ReleaseEntry
}

func (s staticFeed) ListReleases(_ context.Context, _ string) []types.ReleaseEntry {
	return s.releases
}

type staticDescriptor struct {
	description string
}

func (s staticDescriptor) Describe(_ context.Context, _ string) string {
	return s.description
}

func release(tag string) types.ReleaseEntry {
	return types.ReleaseEntry{Tag: tag, Title: "Release " + tag, Body: "notes for " + tag}
}

func TestProjectFor(t *testing.T) {
	tests := []struct {
		image, want string
	}{
		{"linuxserver/sonarr", "linuxserver/docker-sonarr"},
		{"lscr.io/linuxserver/radarr", "linuxserver/docker-radarr"},
		{"ghcr.io/owner/app", "owner/app"},
		{"ghcr.io/owner/app/extra", "owner/app"},
		{"ghcr.io/justowner", ""},
		{"bitnami/redis", ""},
		{"redis", ""},
	}
	for _, tt := range tests {
		if got := ProjectFor(tt.image); got != tt.want {
			t.Errorf("ProjectFor(%q) = %q, want %q", tt.image, got, tt.want)
		}
	}
}

func TestCollectRangeInclusivity(t *testing.T) {
	// Releases at 1.0, 1.1, 1.2, 2.0; transition 1.0 -> 1.2 must include
	// exactly 1.1 and 1.2, ascending.
	feed := staticFeed{releases: []types.ReleaseEntry{
		release("2.0"), release("1.2"), release("1.1"), release("1.0"),
	}}
	c := NewCollector(feed, nil, nil)

	bundle := c.Collect(context.Background(), "linuxserver/sonarr", "1.0", "1.2")
	if bundle == nil {
		t.Fatal("expected a bundle")
	}
	if bundle.Source != types.SourceGitHubRelease {
		t.Errorf("Source = %s, want github_release", bundle.Source)
	}
	if len(bundle.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(bundle.Entries))
	}
	if bundle.Entries[0].Tag != "1.1" || bundle.Entries[1].Tag != "1.2" {
		t.Errorf("entries out of order: %s, %s", bundle.Entries[0].Tag, bundle.Entries[1].Tag)
	}
	if !strings.Contains(bundle.Content, "## 1.1 - Release 1.1") {
		t.Errorf("content missing 1.1 section:\n%s", bundle.Content)
	}
	if strings.Contains(bundle.Content, "## 2.0") || strings.Contains(bundle.Content, "## 1.0 ") {
		t.Errorf("content includes out-of-range releases:\n%s", bundle.Content)
	}
	if !strings.Contains(bundle.URL, "linuxserver/docker-sonarr/releases") {
		t.Errorf("unexpected URL %q", bundle.URL)
	}
}

func TestCollectFallsThroughToDescription(t *testing.T) {
	descURL := func(string) string { return "https://hub.docker.com/r/library/redis" }

	tests := []struct {
		name  string
		feed  ReleaseFeed
		image string
	}{
		// Unmappable image never consults the feed.
		{"no project mapping", staticFeed{releases: []types.ReleaseEntry{release("9.9")}}, "bitnami/redis"},
		// Empty feed and empty range both fall through.
		{"empty feed", staticFeed{}, "linuxserver/sonarr"},
		{"no releases in range", staticFeed{releases: []types.ReleaseEntry{release("1.0")}}, "linuxserver/sonarr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollector(tt.feed, staticDescriptor{description: "full description"}, descURL)
			bundle := c.Collect(context.Background(), tt.image, "1.0", "1.2")
			if bundle == nil {
				t.Fatal("expected fallback bundle")
			}
			if bundle.Source != types.SourceDockerHub {
				t.Errorf("Source = %s, want dockerhub", bundle.Source)
			}
			if bundle.Content != "full description" {
				t.Errorf("Content = %q", bundle.Content)
			}
			if len(bundle.Entries) != 0 {
				t.Errorf("description bundles carry no entries, got %d", len(bundle.Entries))
			}
		})
	}
}

func TestCollectNothingAvailable(t *testing.T) {
	c := NewCollector(staticFeed{}, staticDescriptor{}, nil)
	if bundle := c.Collect(context.Background(), "bitnami/redis", "1.0", "1.2"); bundle != nil {
		t.Errorf("expected nil bundle, got %+v", bundle)
	}
}

func TestCollectSkipsUnparseableReleaseTags(t *testing.T) {
	feed := staticFeed{releases: []types.ReleaseEntry{
		release("nightly"), release("1.1"),
	}}
	c := NewCollector(feed, nil, nil)

	bundle := c.Collect(context.Background(), "linuxserver/sonarr", "1.0", "1.2")
	if bundle == nil {
		t.Fatal("expected a bundle")
	}
	if len(bundle.Entries) != 1 || bundle.Entries[0].Tag != "1.1" {
		t.Errorf("unexpected entries %+v", bundle.Entries)
	}
}
