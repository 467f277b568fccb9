// Package publisher turns a finished run into a pull request against
// the manifests repository. Git operations run against the local
// checkout through go-git; only the pull request itself goes through
// the GitHub REST API.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/nvestri/imagescout/pkg/types"
)

// Publisher accepts the final report and the already-patched manifest
// paths and returns an opaque reference to where it was published.
type Publisher interface {
	Publish(ctx context.Context, report *types.Report, body string, files []string) (string, error)
}

// Options configures the GitHub publisher.
type Options struct {
	RepoPath     string // local checkout of the manifests repository
	Owner        string
	Repo         string
	BaseBranch   string
	BranchPrefix string
	Token        string
}

// GitHub publishes a run as a branch, commit, and pull request.
type GitHub struct {
	opts       Options
	httpClient *http.Client
	apiBase    string
	now        func() time.Time
}

// NewGitHub builds a publisher for the given repository options.
func NewGitHub(opts Options) *GitHub {
	return &GitHub{
		opts:       opts,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiBase:    "https://api.github.com",
		now:        time.Now,
	}
}

// Publish commits the patched files on a fresh branch, pushes it, and
// opens a pull request whose body is the rendered report. It returns
// the pull request URL.
func (g *GitHub) Publish(ctx context.Context, report *types.Report, body string, files []string) (string, error) {
	if len(files) == 0 {
		return "", fmt.Errorf("nothing to publish: no files were modified")
	}

	branch := fmt.Sprintf("%s/%s", g.opts.BranchPrefix, g.now().Format("20060102-150405"))
	if err := g.commitAndPush(ctx, branch, report, files); err != nil {
		return "", err
	}
	return g.openPullRequest(ctx, branch, report, body)
}

func (g *GitHub) commitAndPush(ctx context.Context, branch string, report *types.Report, files []string) error {
	repo, err := git.PlainOpen(g.opts.RepoPath)
	if err != nil {
		return fmt.Errorf("opening manifests repository %s: %w", g.opts.RepoPath, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}

	if err := worktree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: true,
	}); err != nil {
		return fmt.Errorf("creating branch %s: %w", branch, err)
	}
	slog.Info("created branch", "branch", branch)

	for _, file := range files {
		rel, err := filepath.Rel(g.opts.RepoPath, file)
		if err != nil {
			return fmt.Errorf("file %s outside repository: %w", file, err)
		}
		if _, err := worktree.Add(rel); err != nil {
			return fmt.Errorf("staging %s: %w", rel, err)
		}
	}

	when := g.now()
	if _, err := worktree.Commit(commitMessage(report), &git.CommitOptions{
		Author: &object.Signature{
			Name:  "imagescout",
			Email: "imagescout@noreply.local",
			When:  when,
		},
	}); err != nil {
		return fmt.Errorf("committing updates: %w", err)
	}

	refspec := gitconfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	if err := repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{refspec},
		Auth: &githttp.BasicAuth{
			Username: "x-access-token",
			Password: g.opts.Token,
		},
	}); err != nil {
		return fmt.Errorf("pushing branch %s: %w", branch, err)
	}
	slog.Info("pushed branch", "branch", branch)
	return nil
}

func commitMessage(report *types.Report) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "chore: update %d container image(s)\n\n", len(report.Items))
	for _, item := range report.Items {
		fmt.Fprintf(&buf, "- %s/%s: %s %s -> %s\n",
			item.Workload.Namespace, item.Workload.Deployment,
			item.Decision.Image, item.Decision.CurrentTag, item.Decision.CandidateTag)
	}
	return buf.String()
}

func (g *GitHub) openPullRequest(ctx context.Context, branch string, report *types.Report, body string) (string, error) {
	title := fmt.Sprintf("Automated image updates (%d) - %s", len(report.Items), g.now().Format("2006-01-02"))

	payload, err := json.Marshal(map[string]string{
		"title": title,
		"head":  branch,
		"base":  g.opts.BaseBranch,
		"body":  body,
	})
	if err != nil {
		return "", err
	}

	u := fmt.Sprintf("%s/repos/%s/%s/pulls", g.apiBase, g.opts.Owner, g.opts.Repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+g.opts.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("creating pull request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("pull request rejected (status %d): %s", resp.StatusCode, msg)
	}

	var pr struct {
		HTMLURL string `json:"html_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", fmt.Errorf("decoding pull request response: %w", err)
	}
	slog.Info("pull request created", "url", pr.HTMLURL)
	return pr.HTMLURL, nil
}
