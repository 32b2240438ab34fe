package domain

import (
	"time"
)

// EcosystemUnknown is the sentinel returned when no signature matches.
const EcosystemUnknown = "unknown"

// DetectedEcosystem is one implementation ecosystem found in a repository,
// with the manifest files that matched and a confidence in [0,1].
type DetectedEcosystem struct {
	ID         string   `json:"id"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence,omitempty"`
}

// Invocation describes an external command run inside the repository root.
type Invocation struct {
	Argv           []string `json:"argv" yaml:"argv" koanf:"argv"`
	TimeoutSeconds int      `json:"timeout_seconds" yaml:"timeout_seconds" koanf:"timeout_seconds"`
}

// Empty reports whether the invocation is unset.
func (i Invocation) Empty() bool { return len(i.Argv) == 0 }

// Timeout returns the wall-clock budget, defaulting to two minutes.
func (i Invocation) Timeout() time.Duration {
	if i.TimeoutSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(i.TimeoutSeconds) * time.Second
}

// ManifestSpec describes the packaging manifest of an ecosystem.
type ManifestSpec struct {
	File       string `json:"file" yaml:"file" koanf:"file"`
	VersionKey string `json:"version_key" yaml:"version_key" koanf:"version_key"`
}

// CapabilitySet is the immutable per-ecosystem capability entry: ignore
// rules, tool invocations, manifest shape, CI template and thresholds.
// Looked up once per run, never mutated.
type CapabilitySet struct {
	Ecosystem      string       `json:"ecosystem" yaml:"ecosystem" koanf:"ecosystem"`
	IgnorePatterns []string     `json:"ignore_patterns" yaml:"ignore_patterns" koanf:"ignore_patterns"`
	Lint           Invocation   `json:"lint" yaml:"lint" koanf:"lint"`
	Test           Invocation   `json:"test" yaml:"test" koanf:"test"`
	Build          Invocation   `json:"build" yaml:"build" koanf:"build"`
	Manifest       ManifestSpec `json:"manifest" yaml:"manifest" koanf:"manifest"`
	CITemplate     string       `json:"ci_template" yaml:"ci_template" koanf:"ci_template"`
	CIWorkflowFile string       `json:"ci_workflow_file" yaml:"ci_workflow_file" koanf:"ci_workflow_file"`
	LargeFileBytes int64        `json:"large_file_bytes" yaml:"large_file_bytes" koanf:"large_file_bytes"`
}

// Finding categories, ordered by report precedence.
const (
	CategorySecretExposure = "secret-exposure"
	CategoryStaleReference = "stale-reference"
	CategoryStructural     = "structural"
	CategoryStyle          = "style"
)

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Finding is a single audit result. Findings are immutable once produced;
// re-auditing regenerates the whole set.
type Finding struct {
	Rule        string   `json:"rule"`
	Category    string   `json:"category"`
	Severity    string   `json:"severity"`
	Paths       []string `json:"paths,omitempty"`
	Message     string   `json:"message"`
	Remediation PhaseID  `json:"remediation,omitempty"`
	Ecosystem   string   `json:"ecosystem,omitempty"`
}

// CategoryRank orders finding categories for report grouping.
func CategoryRank(category string) int {
	switch category {
	case CategorySecretExposure:
		return 0
	case CategoryStaleReference:
		return 1
	case CategoryStructural:
		return 2
	case CategoryStyle:
		return 3
	default:
		return 4
	}
}

// PhaseID identifies a transformation phase. Per-ecosystem instances are
// suffixed with "@<ecosystem>" so polyglot sub-plans stay independent.
type PhaseID string

// Phase is one checkpointed transformation over the repository.
type Phase struct {
	ID          PhaseID   `json:"id"`
	Kind        string    `json:"kind"`
	Ecosystem   string    `json:"ecosystem,omitempty"`
	DependsOn   []PhaseID `json:"depends_on,omitempty"`
	Destructive bool      `json:"destructive"`
	Verify      bool      `json:"verify"`
	WriteSet    []string  `json:"write_set"`
	Description string    `json:"description,omitempty"`
}

// TransformationPlan is the ordered phase sequence selected to address a
// finding set. It may be amended before approval, never after execution
// starts.
type TransformationPlan struct {
	ID        string    `json:"id"`
	RepoRoot  string    `json:"repo_root"`
	CreatedAt time.Time `json:"created_at"`
	Phases    []Phase   `json:"phases"`
	Findings  []Finding `json:"findings,omitempty"`
}

// Phase returns the phase with the given id, or nil.
func (p *TransformationPlan) Phase(id PhaseID) *Phase {
	for i := range p.Phases {
		if p.Phases[i].ID == id {
			return &p.Phases[i]
		}
	}
	return nil
}

// Subset returns a copy of the plan holding only the named phases.
// Dependencies on phases outside the subset are dropped so the remaining
// graph stays executable.
func (p *TransformationPlan) Subset(ids []PhaseID) *TransformationPlan {
	keep := make(map[PhaseID]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	out := *p
	out.Phases = nil
	for _, ph := range p.Phases {
		if !keep[ph.ID] {
			continue
		}
		cp := ph
		cp.DependsOn = nil
		for _, dep := range ph.DependsOn {
			if keep[dep] {
				cp.DependsOn = append(cp.DependsOn, dep)
			}
		}
		out.Phases = append(out.Phases, cp)
	}
	return &out
}

// Operator decisions.
const (
	DecisionApproveAll    = "approve-all"
	DecisionApproveSubset = "approve-subset"
	DecisionReject        = "reject"
	DecisionAmend         = "amend"
)

// OperatorResponse is one answer from the operator channel. For
// approve-subset and amend, PhaseIDs carries the selected phases.
// DestructiveOK names destructive phases the operator explicitly
// confirmed; an unnamed destructive phase is never run.
type OperatorResponse struct {
	Decision      string    `json:"decision"`
	PhaseIDs      []PhaseID `json:"phase_ids,omitempty"`
	DestructiveOK []PhaseID `json:"destructive_ok,omitempty"`
	Reason        string    `json:"reason,omitempty"`
}

// ApprovalRecord is the persisted outcome of one approval gate pass.
type ApprovalRecord struct {
	ID            string    `json:"id"`
	PlanID        string    `json:"plan_id"`
	Decision      string    `json:"decision"`
	PhaseIDs      []PhaseID `json:"phase_ids,omitempty"`
	DestructiveOK []PhaseID `json:"destructive_ok,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Approved reports whether the record allows any phase to run.
func (r ApprovalRecord) Approved() bool {
	return r.Decision == DecisionApproveAll || r.Decision == DecisionApproveSubset
}

// Covers reports whether the record authorizes the given phase.
// Destructive phases must additionally be named in DestructiveOK; absence
// of explicit naming is rejection for that phase even under approve-all.
func (r ApprovalRecord) Covers(ph Phase) bool {
	if !r.Approved() {
		return false
	}
	if r.Decision == DecisionApproveSubset {
		if !containsPhase(r.PhaseIDs, ph.ID) {
			return false
		}
	}
	if ph.Destructive && !containsPhase(r.DestructiveOK, ph.ID) {
		return false
	}
	return true
}

func containsPhase(ids []PhaseID, id PhaseID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Per-phase execution states.
const (
	StateNotStarted = "NotStarted"
	StateRunning    = "Running"
	StateApplied    = "Applied"
	StateSkipped    = "Skipped"
	StateFailed     = "Failed"
)

// VerificationResult is the outcome of one build/test verification.
type VerificationResult struct {
	Passed   bool          `json:"passed"`
	TimedOut bool          `json:"timed_out,omitempty"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// PhaseResult is the per-phase outcome reported at the end of a run.
type PhaseResult struct {
	Phase        PhaseID             `json:"phase"`
	State        string              `json:"state"`
	PreHash      string              `json:"pre_hash,omitempty"`
	PostHash     string              `json:"post_hash,omitempty"`
	RolledBack   bool                `json:"rolled_back,omitempty"`
	Error        string              `json:"error,omitempty"`
	DiffSummary  string              `json:"diff_summary,omitempty"`
	Verification *VerificationResult `json:"verification,omitempty"`
	Duration     time.Duration       `json:"duration,omitempty"`
}

// RunReport is the structured end-of-run report: every phase with its
// final state and, for failures, the restored-state guarantee.
type RunReport struct {
	RunID      string        `json:"run_id"`
	PlanID     string        `json:"plan_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Results    []PhaseResult `json:"results"`
}

// Result returns the result for the given phase id, or nil.
func (r *RunReport) Result(id PhaseID) *PhaseResult {
	for i := range r.Results {
		if r.Results[i].Phase == id {
			return &r.Results[i]
		}
	}
	return nil
}

// TrackerEntry is one append-only idempotency log record.
type TrackerEntry struct {
	Phase      PhaseID   `json:"phase"`
	PreHash    string    `json:"pre_hash"`
	PostHash   string    `json:"post_hash"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ScanResult holds the file inventory of a repository walk.
type ScanResult struct {
	RootPath string   `json:"root_path"`
	AllFiles []string `json:"all_files"`
}

// Has reports whether a file with the exact relative path exists.
func (s *ScanResult) Has(relPath string) bool {
	for _, f := range s.AllFiles {
		if f == relPath {
			return true
		}
	}
	return false
}

// FileStatus mirrors the versioned filesystem's view of one path.
type FileStatus struct {
	Path      string `json:"path"`
	Staged    bool   `json:"staged"`
	Modified  bool   `json:"modified"`
	Untracked bool   `json:"untracked"`
}

// SecretMatch is one detected secret inside a file.
type SecretMatch struct {
	RuleID      string `json:"rule_id"`
	Description string `json:"description"`
	Line        int    `json:"line"`
}
