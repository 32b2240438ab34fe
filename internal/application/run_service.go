package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/repoforge/repoforge/internal/domain"
	"github.com/repoforge/repoforge/internal/domain/phase"
)

// RunService is the phase executor: it schedules the approved phases of
// a plan over the repository as a bounded-concurrency DAG, one
// transaction per phase (snapshot, apply, verify, record).
type RunService struct {
	snapshots  domain.Snapshotter
	tracker    domain.IdempotencyTracker
	verifier   domain.Verifier
	transforms domain.TransformResolver
	fs         domain.VersionedFS
	workers    int
	logger     *zap.Logger
}

func NewRunService(
	snapshots domain.Snapshotter,
	tracker domain.IdempotencyTracker,
	verifier domain.Verifier,
	transforms domain.TransformResolver,
	fs domain.VersionedFS,
	workers int,
	logger *zap.Logger,
) *RunService {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunService{
		snapshots:  snapshots,
		tracker:    tracker,
		verifier:   verifier,
		transforms: transforms,
		fs:         fs,
		workers:    workers,
		logger:     logger,
	}
}

type completion struct {
	id  domain.PhaseID
	res domain.PhaseResult
}

// Execute runs every phase the approval record covers, in dependency
// order. Independent phases run concurrently up to the worker limit;
// phases sharing a write-set path are serialized regardless of the
// declared graph. A failed phase halts its dependents only. Phases the
// record does not cover stay NotStarted.
func (s *RunService) Execute(ctx context.Context, p *domain.TransformationPlan, record domain.ApprovalRecord, caps map[string]domain.CapabilitySet) (*domain.RunReport, error) {
	report := &domain.RunReport{
		RunID:     uuid.NewString(),
		PlanID:    p.ID,
		StartedAt: time.Now().UTC(),
	}

	graph, err := phase.NewGraph(p.Phases)
	if err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	states := make(map[domain.PhaseID]string, len(p.Phases))
	results := make(map[domain.PhaseID]domain.PhaseResult, len(p.Phases))
	for _, id := range graph.Phases() {
		states[id] = domain.StateNotStarted
	}
	stateOf := func(id domain.PhaseID) string { return states[id] }

	if record.Approved() {
		done := make(chan completion)
		running := map[domain.PhaseID]domain.Phase{}

		for {
			// Launch everything startable under the worker limit. A
			// cancelled context stops new launches; running phases roll
			// back on their own.
			if ctx.Err() == nil {
				for _, id := range graph.Phases() {
					if len(running) >= s.workers {
						break
					}
					ph := graph.Phase(id)
					if states[id] != domain.StateNotStarted ||
						!record.Covers(ph) ||
						graph.Blocked(id, stateOf) ||
						!graph.Ready(id, stateOf) ||
						conflictsWithRunning(ph, running) {
						continue
					}
					states[id] = domain.StateRunning
					running[id] = ph
					go func(ph domain.Phase) {
						done <- completion{ph.ID, s.runPhase(ctx, p.RepoRoot, ph, caps)}
					}(ph)
				}
			}
			if len(running) == 0 {
				break
			}
			c := <-done
			delete(running, c.id)
			states[c.id] = c.res.State
			results[c.id] = c.res
			s.logger.Info("phase finished",
				zap.String("phase", string(c.id)),
				zap.String("state", c.res.State))
		}
	}

	// Report in plan declaration order; untouched phases surface as
	// NotStarted with the reason they never ran.
	for _, id := range graph.Phases() {
		if res, ok := results[id]; ok {
			report.Results = append(report.Results, res)
			continue
		}
		report.Results = append(report.Results, domain.PhaseResult{
			Phase: id,
			State: domain.StateNotStarted,
			Error: notStartedReason(graph, graph.Phase(id), record, stateOf, ctx),
		})
	}
	report.FinishedAt = time.Now().UTC()
	return report, nil
}

func notStartedReason(g *phase.Graph, ph domain.Phase, record domain.ApprovalRecord, stateOf func(domain.PhaseID) string, ctx context.Context) string {
	switch {
	case !record.Approved():
		return "plan not approved"
	case !record.Covers(ph):
		if ph.Destructive {
			return "destructive phase not explicitly approved"
		}
		return "not in approved subset"
	case g.Blocked(ph.ID, stateOf):
		return "dependency failed"
	case ctx.Err() != nil:
		return "run cancelled"
	case !g.Ready(ph.ID, stateOf):
		return "dependency did not run"
	default:
		return ""
	}
}

func conflictsWithRunning(ph domain.Phase, running map[domain.PhaseID]domain.Phase) bool {
	for _, other := range running {
		if phase.Conflicts(ph, other) {
			return true
		}
	}
	return false
}

// runPhase is the per-phase transaction: pre-hash, idempotency lookup,
// snapshot, apply, verify, record. Strictly sequential within a phase.
func (s *RunService) runPhase(ctx context.Context, repoRoot string, ph domain.Phase, caps map[string]domain.CapabilitySet) domain.PhaseResult {
	start := time.Now()
	res := domain.PhaseResult{Phase: ph.ID}
	defer func() { res.Duration = time.Since(start) }()

	capSet, ok := caps[ph.Ecosystem]
	if !ok {
		capSet = domain.GenericCapabilities()
	}

	preHash, err := domain.HashPaths(repoRoot, ph.WriteSet)
	if err != nil {
		res.State = domain.StateFailed
		res.Error = fmt.Sprintf("hashing write-set: %v", err)
		return res
	}
	res.PreHash = preHash

	if postHash, hit, err := s.tracker.Lookup(ph.ID, preHash); err == nil && hit {
		res.State = domain.StateSkipped
		res.PostHash = postHash
		return res
	}

	snap, err := s.snapshots.Take(repoRoot, ph.WriteSet)
	if err != nil {
		res.State = domain.StateFailed
		res.Error = fmt.Sprintf("taking snapshot: %v", err)
		return res
	}

	apply, err := s.transforms.Resolve(ph)
	if err != nil {
		snap.Discard()
		res.State = domain.StateFailed
		res.Error = err.Error()
		return res
	}

	if err := apply(ctx, repoRoot, capSet); err != nil {
		return s.rollback(snap, res, (&domain.PhaseApplyError{Phase: ph.ID, Err: err}).Error())
	}
	if ctx.Err() != nil {
		return s.rollback(snap, res, "run cancelled during apply")
	}

	if ph.Verify {
		vr := s.verifier.Verify(ctx, repoRoot, capSet)
		res.Verification = &vr
		if !vr.Passed {
			return s.rollback(snap, res, "verification failed: "+vr.Detail)
		}
	}

	postHash, err := domain.HashPaths(repoRoot, ph.WriteSet)
	if err != nil {
		return s.rollback(snap, res, fmt.Sprintf("hashing result: %v", err))
	}
	res.PostHash = postHash

	if diff, err := s.fs.Diff(ph.WriteSet); err == nil {
		res.DiffSummary = diff
	}

	if err := s.tracker.RecordApplied(ph.ID, preHash, postHash); err != nil {
		// The transformation itself succeeded; a lost tracker entry only
		// costs a redundant re-apply on the next run.
		s.logger.Warn("recording idempotency entry",
			zap.String("phase", string(ph.ID)),
			zap.Error(err))
	} else if postHash != preHash {
		// The applied state is a fixed point of the transform: record it
		// as its own pre-hash so an unchanged repository skips next run.
		if err := s.tracker.RecordApplied(ph.ID, postHash, postHash); err != nil {
			s.logger.Warn("recording idempotency entry",
				zap.String("phase", string(ph.ID)),
				zap.Error(err))
		}
	}
	snap.Discard()
	res.State = domain.StateApplied
	return res
}

func (s *RunService) rollback(snap domain.Snapshot, res domain.PhaseResult, reason string) domain.PhaseResult {
	if err := snap.Restore(); err != nil {
		s.logger.Error("rollback failed", zap.String("phase", string(res.Phase)), zap.Error(err))
		res.Error = fmt.Sprintf("%s; rollback failed: %v", reason, err)
	} else {
		res.RolledBack = true
		res.Error = reason
	}
	res.State = domain.StateFailed
	return res
}
