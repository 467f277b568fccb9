// Package inventory discovers deployed container images. The Kubernetes
// scanner walks Deployments and emits one workload record per
// container; the Provider interface keeps the pipeline testable with a
// static fixture.
package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/nvestri/imagescout/pkg/types"
)

// Provider returns the finite set of workloads for one run.
type Provider interface {
	Scan(ctx context.Context) ([]types.Workload, error)
}

// Scanner lists Deployments from a Kubernetes cluster.
type Scanner struct {
	clientset  kubernetes.Interface
	namespaces []string
	ignore     []*regexp.Regexp
}

// NewScanner connects to the cluster, preferring in-cluster
// configuration and falling back to the given kubeconfig path (or the
// default location when empty). Namespaces may be empty to scan all.
func NewScanner(kubeconfig string, namespaces, ignorePatterns []string) (*Scanner, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		if kubeconfig == "" {
			kubeconfig = clientcmd.RecommendedHomeFile
		}
		cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("could not configure kubernetes client: %w", err)
		}
		slog.Info("using kubeconfig file", "path", kubeconfig)
	} else {
		slog.Info("using in-cluster kubernetes configuration")
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating clientset: %w", err)
	}
	return newScanner(clientset, namespaces, ignorePatterns)
}

func newScanner(clientset kubernetes.Interface, namespaces, ignorePatterns []string) (*Scanner, error) {
	ignore := make([]*regexp.Regexp, 0, len(ignorePatterns))
	for _, p := range ignorePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		ignore = append(ignore, re)
	}
	return &Scanner{clientset: clientset, namespaces: namespaces, ignore: ignore}, nil
}

// Scan lists deployments across the configured namespaces and returns
// one workload per container. A namespace that fails to list is logged
// and skipped; the scan continues.
func (s *Scanner) Scan(ctx context.Context) ([]types.Workload, error) {
	namespaces := s.namespaces
	if len(namespaces) == 0 {
		nsList, err := s.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, fmt.Errorf("listing namespaces: %w", err)
		}
		for _, ns := range nsList.Items {
			namespaces = append(namespaces, ns.Name)
		}
	}

	var workloads []types.Workload
	for _, ns := range namespaces {
		deps, err := s.clientset.AppsV1().Deployments(ns).List(ctx, metav1.ListOptions{})
		if err != nil {
			slog.Error("listing deployments failed", "namespace", ns, "error", err)
			continue
		}
		for _, dep := range deps.Items {
			for _, container := range dep.Spec.Template.Spec.Containers {
				full := container.Image
				if s.ignored(full) {
					slog.Debug("ignoring image", "image", full)
					continue
				}
				image, tag := splitImage(full)
				workloads = append(workloads, types.Workload{
					Namespace:  ns,
					Deployment: dep.Name,
					Container:  container.Name,
					Image:      image,
					CurrentTag: tag,
					FullImage:  full,
				})
			}
		}
	}
	slog.Info("cluster scan complete", "workloads", len(workloads))
	return workloads, nil
}

func (s *Scanner) ignored(image string) bool {
	for _, re := range s.ignore {
		if re.MatchString(image) {
			return true
		}
	}
	return false
}

// splitImage separates repository and tag, defaulting to "latest".
// The split is on the last colon so registry ports are not mistaken
// for tags.
func splitImage(full string) (string, string) {
	if i := strings.LastIndex(full, ":"); i >= 0 && !strings.Contains(full[i+1:], "/") {
		return full[:i], full[i+1:]
	}
	return full, "latest"
}

// Static is a fixed-inventory Provider used by tests and dry runs
// against a known workload set.
type Static struct {
	Workloads []types.Workload
}

// Scan returns the fixed workload list.
func (s Static) Scan(_ context.Context) ([]types.Workload, error) {
	return s.Workloads, nil
}
