package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvestri/imagescout/pkg/types"
)

const sonarrManifest = `apiVersion: apps/v1
kind: Deployment
metadata:
  name: sonarr
  namespace: media
spec:
  template:
    spec:
      containers:
        - name: sonarr
          image: linuxserver/sonarr:3.1.2
`

func updateItem() types.UpdateItem {
	return types.UpdateItem{
		Workload: types.Workload{
			Namespace:  "media",
			Deployment: "sonarr",
			Container:  "sonarr",
			Image:      "linuxserver/sonarr",
			CurrentTag: "3.1.2",
			FullImage:  "linuxserver/sonarr:3.1.2",
		},
		Decision: types.UpdateDecision{
			Image:        "linuxserver/sonarr",
			CurrentTag:   "3.1.2",
			CandidateTag: "3.2.0",
			Magnitude:    types.MagnitudeMinor,
			Allowed:      true,
		},
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestApplyPatchesMatchingManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sonarr.yaml", sonarrManifest)
	// Decoy: different deployment, same directory.
	writeFile(t, dir, "radarr.yaml", strings.ReplaceAll(sonarrManifest, "sonarr", "radarr"))

	u := NewUpdater([]string{dir})
	updated, err := u.Apply([]types.UpdateItem{updateItem()})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(updated) != 1 || updated[0] != path {
		t.Fatalf("updated = %v, want [%s]", updated, path)
	}

	content, _ := os.ReadFile(path)
	if !strings.Contains(string(content), "linuxserver/sonarr:3.2.0") {
		t.Errorf("new tag missing:\n%s", content)
	}
	if strings.Contains(string(content), "3.1.2") {
		t.Errorf("old tag still present:\n%s", content)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	// Manifest already carries the candidate tag.
	writeFile(t, dir, "sonarr.yaml", strings.ReplaceAll(sonarrManifest, "3.1.2", "3.2.0"))

	u := NewUpdater([]string{dir})
	updated, err := u.Apply([]types.UpdateItem{updateItem()})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(updated) != 0 {
		t.Errorf("re-run should be a no-op, got %v", updated)
	}
}

func TestApplySkipsNonDeploymentFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "kind: ConfigMap\nmetadata:\n  name: sonarr\ndata:\n  image: linuxserver/sonarr:3.1.2\n")
	writeFile(t, dir, "notes.txt", "image: linuxserver/sonarr:3.1.2")

	u := NewUpdater([]string{dir})
	updated, err := u.Apply([]types.UpdateItem{updateItem()})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(updated) != 0 {
		t.Errorf("expected no files patched, got %v", updated)
	}
}

func TestApplyMissingManifestIsNotFatal(t *testing.T) {
	u := NewUpdater([]string{t.TempDir()})
	updated, err := u.Apply([]types.UpdateItem{updateItem()})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(updated) != 0 {
		t.Errorf("expected no updates, got %v", updated)
	}
}

func TestApplyMultiDocManifest(t *testing.T) {
	dir := t.TempDir()
	multi := "apiVersion: v1\nkind: Service\nmetadata:\n  name: sonarr\n---\n" + sonarrManifest
	path := writeFile(t, dir, "stack.yaml", multi)

	u := NewUpdater([]string{dir})
	updated, err := u.Apply([]types.UpdateItem{updateItem()})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(updated) != 1 || updated[0] != path {
		t.Fatalf("updated = %v, want [%s]", updated, path)
	}
}
