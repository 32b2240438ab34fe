package domain

import "context"

// ProjectScanner walks a repository root and returns its file inventory.
type ProjectScanner interface {
	Scan(repoRoot string) (*ScanResult, error)
}

// EcosystemDetector classifies a scanned repository into one or more
// ecosystems. Read-only and deterministic: identical contents yield the
// same ordered list.
type EcosystemDetector interface {
	Detect(scan *ScanResult) ([]DetectedEcosystem, error)
}

// CapabilityRegistry is a pure lookup table from ecosystem id to
// capability set. Built once at startup, immutable afterwards.
type CapabilityRegistry interface {
	Get(ecosystem string) (CapabilitySet, error)
}

// VersionedFS is the underlying versioned-filesystem collaborator,
// exposing the primitive stage/remove/status/diff operations the
// orchestrator is allowed to invoke.
type VersionedFS interface {
	Status() ([]FileStatus, error)
	TrackedFiles() ([]string, error)
	Stage(paths []string) error
	Untrack(paths []string) error
	Diff(paths []string) (string, error)
	CheckIgnored(paths []string) (map[string]bool, error)
	CommitHash() (string, error)
}

// SecretScanner detects secrets in file content.
type SecretScanner interface {
	Detect(content string) ([]SecretMatch, error)
}

// Snapshot is a content-addressed reference to the pre-phase state of a
// write-set. Owned by the executor for the duration of one phase.
type Snapshot interface {
	// Restore puts every write-set path back to its snapshotted state,
	// removing files that did not exist when the snapshot was taken.
	Restore() error
	// Discard releases the snapshot after successful verification.
	Discard() error
}

// Snapshotter captures the pre-phase state of a write-set.
type Snapshotter interface {
	Take(repoRoot string, paths []string) (Snapshot, error)
}

// IdempotencyTracker is the append-only log of applied transformations.
// Lookups key on the current pre-hash; superseded entries are dead
// history, not an inconsistency.
type IdempotencyTracker interface {
	RecordApplied(phase PhaseID, preHash, postHash string) error
	Lookup(phase PhaseID, preHash string) (postHash string, ok bool, err error)
	Entries() ([]TrackerEntry, error)
}

// ApprovalStore persists approval records for the audit trail.
type ApprovalStore interface {
	Append(record ApprovalRecord) error
	Load() ([]ApprovalRecord, error)
}

// Verifier invokes the ecosystem's build and/or test capability against
// the repository, bounded by the invocation timeout.
type Verifier interface {
	Verify(ctx context.Context, repoRoot string, caps CapabilitySet) VerificationResult
}

// OperatorChannel is the request/response exchange with the external
// operator. Present blocks until the operator responds or ctx is
// cancelled. It must never auto-approve.
type OperatorChannel interface {
	Present(ctx context.Context, plan *TransformationPlan) (OperatorResponse, error)
}

// ApplyFunc is a phase's idempotent transformation over the repository.
type ApplyFunc func(ctx context.Context, repoRoot string, caps CapabilitySet) error

// TransformResolver maps a planned phase to its apply function.
type TransformResolver interface {
	Resolve(phase Phase) (ApplyFunc, error)
}
