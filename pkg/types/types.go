package types

import "time"

// Magnitude classifies the scope of a version transition.
type Magnitude string

const (
	MagnitudeMajor   Magnitude = "major"
	MagnitudeMinor   Magnitude = "minor"
	MagnitudePatch   Magnitude = "patch"
	MagnitudeUnknown Magnitude = "unknown"
)

// String returns the string form of the magnitude.
func (m Magnitude) String() string {
	return string(m)
}

// RiskLevel buckets a risk score into a deployment posture.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// String returns the string form of the risk level.
func (l RiskLevel) String() string {
	return string(l)
}

// Workload identifies one container of a deployed workload.
type Workload struct {
	Namespace  string
	Deployment string
	Container  string
	Image      string // repository without tag
	CurrentTag string
	FullImage  string // original image:tag string as deployed
}

// Name returns the deployment/container identity used in logs and reports.
func (w Workload) Name() string {
	return w.Deployment + "/" + w.Container
}

// UpdateDecision is the resolver's verdict for a single image. It is
// created once and never mutated; Allowed=false decisions are kept for
// audit but never surfaced as available updates.
type UpdateDecision struct {
	Image        string
	CurrentTag   string
	CandidateTag string
	Magnitude    Magnitude
	Allowed      bool
}

// SourceKind names the evidence source a changelog bundle came from.
type SourceKind string

const (
	SourceGitHubRelease SourceKind = "github_release"
	SourceDockerHub     SourceKind = "dockerhub"
)

// ReleaseEntry is a single published release note.
type ReleaseEntry struct {
	Tag         string
	Title       string
	Body        string
	URL         string
	PublishedAt time.Time
	Prerelease  bool
	Draft       bool
}

// ChangelogBundle holds the release evidence for one version transition.
// Entries cover exactly the versions in (current, candidate], ascending.
// The Docker Hub fallback has no range semantics: Entries is empty and
// Content carries the repository description verbatim.
type ChangelogBundle struct {
	Source  SourceKind
	URL     string
	Content string
	Entries []ReleaseEntry
}

// RiskAssessment is the classifier's output for one update.
type RiskAssessment struct {
	Score           float64
	Level           RiskLevel
	BreakingChanges []string
	SecurityUpdates []string
	NotableChanges  []string
	Recommendations []string
	Summary         string
	AIAugmented     bool
}

// UpdateItem ties one workload's decision to its gathered evidence.
type UpdateItem struct {
	Workload  Workload
	Decision  UpdateDecision
	Changelog *ChangelogBundle // nil when no source yielded anything
	Risk      *RiskAssessment
}

// Report is the deterministic aggregation of a full run.
type Report struct {
	GeneratedAt     time.Time
	Items           []UpdateItem
	MagnitudeCounts map[Magnitude]int
	RiskCounts      map[RiskLevel]int
	Skipped         int // images with no resolvable update
	Blocked         int // updates suppressed by policy
}
