package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	dryRun     bool
	verbose    bool

	// stdout is swappable for tests.
	stdout io.Writer = os.Stdout
)

var rootCmd = &cobra.Command{
	Use:   "imagescout",
	Short: "Discover and publish container image updates for Kubernetes workloads",
	Long: `imagescout scans Kubernetes deployments for container images, checks
registries for newer versions under the configured update policy,
gathers changelog evidence, scores deployment risk, and opens a pull
request updating the manifest files.

Risk scoring always has a deterministic heuristic tier; when an OpenAI
API key is configured, changelogs are additionally analyzed for
breaking changes and security fixes.`,
	Example: `  # Report available updates without touching anything
  imagescout --config config.yaml --dry-run

  # Full run: patch manifests and open a pull request
  imagescout --config config.yaml`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		return run(cmd.Context())
	},
}

// Execute runs the root cobra command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "config.yaml", "Path to configuration file")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Scan and report updates without patching or creating a PR")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")

	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("imagescout {{.Version}}\n")
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
