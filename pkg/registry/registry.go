// Package registry resolves newer versions for deployed container
// images. Tag listing is abstracted behind TagLister so the resolver
// stays testable without network access; the Docker Hub implementation
// covers plain Docker Hub images and the LinuxServer.io fleet, which
// publishes through Docker Hub under the linuxserver namespace.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Family identifies the registry an image reference belongs to.
type Family string

const (
	FamilyDockerHub    Family = "dockerhub"
	FamilyLinuxServer  Family = "lscr"
	FamilyGHCR         Family = "ghcr"
	FamilyUnresolvable Family = ""
)

// Identify determines the registry family from the shape of an image
// reference. Explicit host prefixes win; a first path segment without a
// dot, or a bare name, implies Docker Hub.
func Identify(image string) Family {
	switch {
	case strings.HasPrefix(image, "lscr.io/"), strings.HasPrefix(image, "linuxserver/"):
		return FamilyLinuxServer
	case strings.HasPrefix(image, "ghcr.io/"):
		return FamilyGHCR
	case strings.Contains(image, "/"):
		if first := image[:strings.Index(image, "/")]; !strings.Contains(first, ".") {
			return FamilyDockerHub
		}
		return FamilyUnresolvable
	default:
		// Bare official image, e.g. "redis"
		return FamilyDockerHub
	}
}

// TagLister enumerates tags for an image repository. Implementations
// never return an error: any registry failure yields an empty list so a
// single unreachable registry cannot abort a scan.
type TagLister interface {
	ListTags(ctx context.Context, image string) []string
}

// Client queries public registry HTTP APIs for tags.
type Client struct {
	httpClient *http.Client
	pageSize   int
}

// NewClient builds a registry client with a bounded request timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		pageSize:   100,
	}
}

// ListTags fetches available tags for the image from its registry.
// Failures are logged and reported as an empty list.
func (c *Client) ListTags(ctx context.Context, image string) []string {
	switch Identify(image) {
	case FamilyDockerHub:
		return c.dockerHubTags(ctx, image)
	case FamilyLinuxServer:
		return c.dockerHubTags(ctx, normalizeLinuxServer(image))
	case FamilyGHCR:
		// GHCR has no public tag listing API without a token.
		slog.Warn("ghcr tag listing not supported without auth", "image", image)
		return nil
	default:
		slog.Warn("unknown registry for image", "image", image)
		return nil
	}
}

// normalizeLinuxServer maps lscr.io references onto the Docker Hub
// linuxserver namespace where the same tags are published.
func normalizeLinuxServer(image string) string {
	image = strings.TrimPrefix(image, "lscr.io/")
	if !strings.HasPrefix(image, "linuxserver/") {
		image = "linuxserver/" + image
	}
	return image
}

// splitRepository splits an image into Docker Hub namespace and
// repository, defaulting to the official "library" namespace.
func splitRepository(image string) (string, string) {
	if i := strings.LastIndex(image, "/"); i >= 0 {
		return image[:i], image[i+1:]
	}
	return "library", image
}

func (c *Client) dockerHubTags(ctx context.Context, image string) []string {
	namespace, repo := splitRepository(image)

	u := fmt.Sprintf(
		"https://registry.hub.docker.com/v2/repositories/%s/%s/tags?page_size=%d",
		url.PathEscape(namespace), url.PathEscape(repo), c.pageSize,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		slog.Warn("building tag list request failed", "image", image, "error", err)
		return nil
	}
	req.Header.Set("User-Agent", "imagescout/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("fetching tags failed", "image", image, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("tag list request rejected", "image", image, "status", resp.StatusCode)
		return nil
	}

	var payload struct {
		Results []struct {
			Name string `json:"name"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		slog.Warn("decoding tag list failed", "image", image, "error", err)
		return nil
	}

	tags := make([]string, 0, len(payload.Results))
	for _, r := range payload.Results {
		tags = append(tags, r.Name)
	}
	slog.Debug("fetched tags", "image", image, "count", len(tags))
	return tags
}

// Describe fetches the free-text repository description from Docker
// Hub. It returns "" when the image is not a Docker Hub image or the
// description is unavailable.
func (c *Client) Describe(ctx context.Context, image string) string {
	switch Identify(image) {
	case FamilyLinuxServer:
		image = normalizeLinuxServer(image)
	case FamilyDockerHub:
	default:
		return ""
	}

	namespace, repo := splitRepository(image)
	u := fmt.Sprintf(
		"https://hub.docker.com/v2/repositories/%s/%s",
		url.PathEscape(namespace), url.PathEscape(repo),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "imagescout/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("fetching description failed", "image", image, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var payload struct {
		FullDescription string `json:"full_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ""
	}
	return payload.FullDescription
}

// DescriptionURL returns the human-facing Docker Hub page for an image.
func DescriptionURL(image string) string {
	if Identify(image) == FamilyLinuxServer {
		image = normalizeLinuxServer(image)
	}
	namespace, repo := splitRepository(image)
	return fmt.Sprintf("https://hub.docker.com/r/%s/%s", namespace, repo)
}
