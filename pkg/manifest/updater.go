// Package manifest patches Kubernetes deployment manifests with
// resolved image tags. Patching is a verbatim string replacement of the
// deployed image:tag inside the matched file, so the resolver's
// decision is the contract: the old reference must appear exactly as
// deployed for the patch to apply. Re-running once a file is already
// patched is a no-op.
package manifest

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nvestri/imagescout/pkg/types"
)

// Updater locates and patches deployment manifests under a set of
// search paths.
type Updater struct {
	paths []string
}

// NewUpdater builds an updater over the configured manifest paths.
func NewUpdater(paths []string) *Updater {
	return &Updater{paths: paths}
}

// manifestDoc is the subset of a Kubernetes manifest needed to match a
// file to a deployment.
type manifestDoc struct {
	Kind     string `yaml:"kind"`
	Metadata struct {
		Name      string `yaml:"name"`
		Namespace string `yaml:"namespace"`
	} `yaml:"metadata"`
}

// Apply patches the manifest files for every item and returns the list
// of modified file paths. An item whose manifest cannot be found, or
// whose old image reference no longer appears, is logged and skipped.
func (u *Updater) Apply(items []types.UpdateItem) ([]string, error) {
	files, err := u.findDeploymentFiles()
	if err != nil {
		return nil, err
	}
	slog.Info("found deployment manifest files", "count", len(files))

	var updated []string
	seen := map[string]bool{}
	for _, item := range items {
		path := u.matchFile(files, item.Workload)
		if path == "" {
			slog.Warn("no manifest file for deployment",
				"namespace", item.Workload.Namespace, "deployment", item.Workload.Deployment)
			continue
		}
		changed, err := patchFile(path, item)
		if err != nil {
			slog.Warn("patching manifest failed", "file", path, "error", err)
			continue
		}
		if changed && !seen[path] {
			seen[path] = true
			updated = append(updated, path)
		}
	}
	return updated, nil
}

// findDeploymentFiles walks the search paths for YAML files containing
// at least one Deployment document.
func (u *Updater) findDeploymentFiles() ([]string, error) {
	var files []string
	for _, root := range u.paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ext := filepath.Ext(path)
			if ext != ".yaml" && ext != ".yml" {
				return nil
			}
			if hasDeploymentDoc(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking manifest path %s: %w", root, err)
		}
	}
	return files, nil
}

func hasDeploymentDoc(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	for {
		var doc manifestDoc
		if err := dec.Decode(&doc); err != nil {
			if err == io.EOF {
				return false
			}
			// Not clean YAML; cannot be a manifest we should touch.
			return false
		}
		if doc.Kind == "Deployment" {
			return true
		}
	}
}

// matchFile picks the manifest file declaring the workload's
// deployment. The file must both name the deployment and contain the
// deployed image reference.
func (u *Updater) matchFile(files []string, w types.Workload) string {
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if !strings.Contains(string(content), w.FullImage) {
			continue
		}
		if declaresDeployment(content, w.Deployment) {
			return path
		}
	}
	return ""
}

func declaresDeployment(content []byte, name string) bool {
	dec := yaml.NewDecoder(strings.NewReader(string(content)))
	for {
		var doc manifestDoc
		if err := dec.Decode(&doc); err != nil {
			return false
		}
		if doc.Kind == "Deployment" && doc.Metadata.Name == name {
			return true
		}
	}
}

// patchFile rewrites old image:tag to the candidate tag. Returns false
// without touching the file when the old reference is absent, which
// makes a re-run over already-patched manifests a no-op.
func patchFile(path string, item types.UpdateItem) (bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	oldRef := item.Workload.FullImage
	newRef := item.Decision.Image + ":" + item.Decision.CandidateTag
	if !strings.Contains(string(content), oldRef) {
		slog.Debug("image reference not present, nothing to patch", "file", path, "image", oldRef)
		return false, nil
	}

	patched := strings.ReplaceAll(string(content), oldRef, newRef)

	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, []byte(patched), info.Mode()); err != nil {
		return false, err
	}
	slog.Info("patched manifest", "file", path, "from", oldRef, "to", newRef)
	return true, nil
}
