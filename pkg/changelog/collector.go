// Package changelog gathers release evidence for a version transition.
// Two sources are tried in order: GitHub releases for images that map
// to a hosted project, then the Docker Hub repository description. The
// first source that yields anything wins; no source failure is fatal.
package changelog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/nvestri/imagescout/pkg/types"
	"github.com/nvestri/imagescout/pkg/version"
)

// knownProjects maps popular images to the GitHub project that carries
// their release notes. The linuxserver fleet publishes notes on the
// docker-* packaging repos, not the upstream application repos.
var knownProjects = map[string]string{
	"linuxserver/sonarr":    "linuxserver/docker-sonarr",
	"linuxserver/radarr":    "linuxserver/docker-radarr",
	"linuxserver/overseerr": "linuxserver/docker-overseerr",
	"linuxserver/prowlarr":  "linuxserver/docker-prowlarr",
	"linuxserver/readarr":   "linuxserver/docker-readarr",
	"linuxserver/lidarr":    "linuxserver/docker-lidarr",
	"linuxserver/bazarr":    "linuxserver/docker-bazarr",
	"linuxserver/tautulli":  "linuxserver/docker-tautulli",
	"linuxserver/plex":      "linuxserver/docker-plex",
}

// ProjectFor maps an image to a GitHub "owner/repo" project, or ""
// when no mapping exists. ghcr.io image paths already encode the
// project, so they map structurally.
func ProjectFor(image string) string {
	clean := strings.TrimPrefix(image, "lscr.io/")
	if project, ok := knownProjects[clean]; ok {
		return project
	}

	if rest, ok := strings.CutPrefix(image, "ghcr.io/"); ok {
		parts := strings.Split(rest, "/")
		if len(parts) >= 2 {
			return parts[0] + "/" + parts[1]
		}
	}
	return ""
}

// Descriptor fetches free-text registry descriptions. Satisfied by
// registry.Client.
type Descriptor interface {
	Describe(ctx context.Context, image string) string
}

// DescriptionURLFunc resolves the human-facing page for a registry
// description bundle.
type DescriptionURLFunc func(image string) string

// Collector assembles changelog bundles from the configured sources.
type Collector struct {
	feed       ReleaseFeed
	descriptor Descriptor
	descURL    DescriptionURLFunc
}

// NewCollector builds a collector over a release feed and a registry
// description source. Either may be nil, disabling that source.
func NewCollector(feed ReleaseFeed, descriptor Descriptor, descURL DescriptionURLFunc) *Collector {
	return &Collector{feed: feed, descriptor: descriptor, descURL: descURL}
}

// Collect gathers the changelog for the transition currentTag ->
// candidateTag. Releases are filtered to versions strictly above the
// current and at most the candidate, ascending. When no hosted project
// matches, or the range is empty, the registry description is used
// instead. Returns nil when no source yields anything.
func (c *Collector) Collect(ctx context.Context, image, currentTag, candidateTag string) *types.ChangelogBundle {
	if bundle := c.fromReleases(ctx, image, currentTag, candidateTag); bundle != nil {
		return bundle
	}
	if bundle := c.fromDescription(ctx, image); bundle != nil {
		return bundle
	}
	slog.Warn("no changelog source available", "image", image)
	return nil
}

func (c *Collector) fromReleases(ctx context.Context, image, currentTag, candidateTag string) *types.ChangelogBundle {
	if c.feed == nil {
		return nil
	}
	project := ProjectFor(image)
	if project == "" {
		return nil
	}

	current, ok := version.Parse(currentTag)
	if !ok {
		return nil
	}
	candidate, ok := version.Parse(candidateTag)
	if !ok {
		return nil
	}

	var entries []types.ReleaseEntry
	for _, rel := range c.feed.ListReleases(ctx, project) {
		key, ok := version.Parse(rel.Tag)
		if !ok {
			continue
		}
		// Strict lower bound, inclusive upper bound.
		if version.Compare(key, current) > 0 && version.Compare(key, candidate) <= 0 {
			entries = append(entries, rel)
		}
	}
	if len(entries) == 0 {
		slog.Debug("no releases in range", "project", project, "current", currentTag, "candidate", candidateTag)
		return nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, _ := version.Parse(entries[i].Tag)
		b, _ := version.Parse(entries[j].Tag)
		return version.Compare(a, b) < 0
	})

	var sb strings.Builder
	for i, rel := range entries {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "## %s - %s\n%s", rel.Tag, rel.Title, rel.Body)
	}

	return &types.ChangelogBundle{
		Source:  types.SourceGitHubRelease,
		URL:     fmt.Sprintf("https://github.com/%s/releases", project),
		Content: sb.String(),
		Entries: entries,
	}
}

func (c *Collector) fromDescription(ctx context.Context, image string) *types.ChangelogBundle {
	if c.descriptor == nil {
		return nil
	}
	content := c.descriptor.Describe(ctx, image)
	if content == "" {
		return nil
	}

	url := ""
	if c.descURL != nil {
		url = c.descURL(image)
	}
	return &types.ChangelogBundle{
		Source:  types.SourceDockerHub,
		URL:     url,
		Content: content,
	}
}
