package changelog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nvestri/imagescout/pkg/types"
)

// ReleaseFeed enumerates published releases for a hosted project
// ("owner/repo"). Implementations never return an error: failures are
// reported as an empty list so the collector can fall through to the
// next evidence source.
type ReleaseFeed interface {
	ListReleases(ctx context.Context, project string) []types.ReleaseEntry
}

// GitHubFeed lists releases through the GitHub REST API. An empty token
// works for public repositories within the unauthenticated rate limit.
type GitHubFeed struct {
	httpClient *http.Client
	token      string
	baseURL    string
}

// NewGitHubFeed builds a release feed with a bounded request timeout.
func NewGitHubFeed(token string, timeout time.Duration) *GitHubFeed {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GitHubFeed{
		httpClient: &http.Client{Timeout: timeout},
		token:      token,
		baseURL:    "https://api.github.com",
	}
}

// ListReleases fetches up to one page of releases for the project,
// newest first as GitHub returns them.
func (f *GitHubFeed) ListReleases(ctx context.Context, project string) []types.ReleaseEntry {
	u := fmt.Sprintf("%s/repos/%s/releases?per_page=100", f.baseURL, project)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "imagescout/1.0")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		slog.Warn("fetching releases failed", "project", project, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("release feed request rejected", "project", project, "status", resp.StatusCode)
		return nil
	}

	var payload []struct {
		TagName     string    `json:"tag_name"`
		Name        string    `json:"name"`
		Body        string    `json:"body"`
		HTMLURL     string    `json:"html_url"`
		PublishedAt time.Time `json:"published_at"`
		Prerelease  bool      `json:"prerelease"`
		Draft       bool      `json:"draft"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		slog.Warn("decoding releases failed", "project", project, "error", err)
		return nil
	}

	entries := make([]types.ReleaseEntry, 0, len(payload))
	for _, r := range payload {
		entries = append(entries, types.ReleaseEntry{
			Tag:         r.TagName,
			Title:       r.Name,
			Body:        r.Body,
			URL:         r.HTMLURL,
			PublishedAt: r.PublishedAt,
			Prerelease:  r.Prerelease,
			Draft:       r.Draft,
		})
	}
	return entries
}
