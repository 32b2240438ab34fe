package application_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repoforge/repoforge/internal/adapters/outbound/snapshot"
	"github.com/repoforge/repoforge/internal/application"
	"github.com/repoforge/repoforge/internal/domain"
)

type memTracker struct {
	mu      sync.Mutex
	entries []domain.TrackerEntry
}

func (m *memTracker) RecordApplied(phase domain.PhaseID, preHash, postHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, domain.TrackerEntry{Phase: phase, PreHash: preHash, PostHash: postHash})
	return nil
}

func (m *memTracker) Lookup(phase domain.PhaseID, preHash string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var post string
	var ok bool
	for _, e := range m.entries {
		if e.Phase == phase && e.PreHash == preHash {
			post, ok = e.PostHash, true
		}
	}
	return post, ok, nil
}

func (m *memTracker) Entries() ([]domain.TrackerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TrackerEntry(nil), m.entries...), nil
}

type fakeVerifier struct {
	result domain.VerificationResult
	calls  atomic.Int32
}

func (v *fakeVerifier) Verify(ctx context.Context, repoRoot string, caps domain.CapabilitySet) domain.VerificationResult {
	v.calls.Add(1)
	return v.result
}

type mapResolver struct {
	applies map[domain.PhaseID]domain.ApplyFunc
}

func (r *mapResolver) Resolve(ph domain.Phase) (domain.ApplyFunc, error) {
	if apply, ok := r.applies[ph.ID]; ok {
		return apply, nil
	}
	return func(ctx context.Context, repoRoot string, caps domain.CapabilitySet) error { return nil }, nil
}

func approveAll(p *domain.TransformationPlan) domain.ApprovalRecord {
	rec := domain.ApprovalRecord{ID: "rec", PlanID: p.ID, Decision: domain.DecisionApproveAll}
	for _, ph := range p.Phases {
		if ph.Destructive {
			rec.DestructiveOK = append(rec.DestructiveOK, ph.ID)
		}
	}
	return rec
}

func newRunner(tracker domain.IdempotencyTracker, verifier domain.Verifier, resolver domain.TransformResolver, workers int) *application.RunService {
	return application.NewRunService(snapshot.New(), tracker, verifier, resolver, &recordingFS{}, workers, nil)
}

func writeApply(rel, content string) domain.ApplyFunc {
	return func(ctx context.Context, repoRoot string, caps domain.CapabilitySet) error {
		writeRaw(repoRoot, rel, content)
		return nil
	}
}

func writeRaw(root, rel, content string) {
	abs := filepath.Join(root, rel)
	_ = os.MkdirAll(filepath.Dir(abs), 0755)
	_ = os.WriteFile(abs, []byte(content), 0644)
}

func TestExecute_AppliesInDependencyOrder(t *testing.T) {
	root := t.TempDir()

	var mu sync.Mutex
	var order []domain.PhaseID
	track := func(id domain.PhaseID, apply domain.ApplyFunc) domain.ApplyFunc {
		return func(ctx context.Context, repoRoot string, caps domain.CapabilitySet) error {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			return apply(ctx, repoRoot, caps)
		}
	}

	p := &domain.TransformationPlan{
		ID:       "plan-1",
		RepoRoot: root,
		Phases: []domain.Phase{
			{ID: "a", Kind: "a", WriteSet: []string{"a.txt"}},
			{ID: "b", Kind: "b", DependsOn: []domain.PhaseID{"a"}, WriteSet: []string{"b.txt"}},
		},
	}
	resolver := &mapResolver{applies: map[domain.PhaseID]domain.ApplyFunc{
		"a": track("a", writeApply("a.txt", "a")),
		"b": track("b", writeApply("b.txt", "b")),
	}}

	svc := newRunner(&memTracker{}, &fakeVerifier{result: domain.VerificationResult{Passed: true}}, resolver, 2)
	report, err := svc.Execute(context.Background(), p, approveAll(p), nil)
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.Equal(t, domain.StateApplied, report.Result("a").State)
	assert.Equal(t, domain.StateApplied, report.Result("b").State)
	require.Len(t, order, 2)
	assert.Equal(t, domain.PhaseID("a"), order[0], "dependency runs first")
}

func TestExecute_SecondRunAllSkipped(t *testing.T) {
	root := t.TempDir()

	var applies atomic.Int32
	counted := func(apply domain.ApplyFunc) domain.ApplyFunc {
		return func(ctx context.Context, repoRoot string, caps domain.CapabilitySet) error {
			applies.Add(1)
			return apply(ctx, repoRoot, caps)
		}
	}

	p := &domain.TransformationPlan{
		ID:       "plan-1",
		RepoRoot: root,
		Phases: []domain.Phase{
			{ID: "a", Kind: "a", WriteSet: []string{"a.txt"}},
			{ID: "b", Kind: "b", WriteSet: []string{"b.txt"}},
		},
	}
	resolver := &mapResolver{applies: map[domain.PhaseID]domain.ApplyFunc{
		"a": counted(writeApply("a.txt", "a")),
		"b": counted(writeApply("b.txt", "b")),
	}}

	tracker := &memTracker{}
	svc := newRunner(tracker, &fakeVerifier{result: domain.VerificationResult{Passed: true}}, resolver, 1)

	first, err := svc.Execute(context.Background(), p, approveAll(p), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StateApplied, first.Result("a").State)
	assert.Equal(t, domain.StateApplied, first.Result("b").State)

	second, err := svc.Execute(context.Background(), p, approveAll(p), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StateSkipped, second.Result("a").State)
	assert.Equal(t, domain.StateSkipped, second.Result("b").State)
	assert.Equal(t, int32(2), applies.Load(), "skipped phases never touch the filesystem")
}

func TestExecute_VerifyFailureRollsBackAndHaltsDependents(t *testing.T) {
	root := t.TempDir()
	writeRaw(root, "m.txt", "orig")

	preHash, err := domain.HashPaths(root, []string{"m.txt"})
	require.NoError(t, err)

	p := &domain.TransformationPlan{
		ID:       "plan-1",
		RepoRoot: root,
		Phases: []domain.Phase{
			{ID: "m", Kind: "m", Verify: true, WriteSet: []string{"m.txt"}},
			{ID: "n", Kind: "n", DependsOn: []domain.PhaseID{"m"}, WriteSet: []string{"n.txt"}},
		},
	}
	resolver := &mapResolver{applies: map[domain.PhaseID]domain.ApplyFunc{
		"m": writeApply("m.txt", "mutated"),
	}}

	verifier := &fakeVerifier{result: domain.VerificationResult{Passed: false, TimedOut: true, Detail: "test timed out after 2m0s"}}
	svc := newRunner(&memTracker{}, verifier, resolver, 2)

	report, err := svc.Execute(context.Background(), p, approveAll(p), nil)
	require.NoError(t, err)

	m := report.Result("m")
	require.NotNil(t, m)
	assert.Equal(t, domain.StateFailed, m.State)
	assert.True(t, m.RolledBack)
	require.NotNil(t, m.Verification)
	assert.True(t, m.Verification.TimedOut)

	// Rollback correctness: the write-set hash equals the pre-phase hash.
	postHash, err := domain.HashPaths(root, []string{"m.txt"})
	require.NoError(t, err)
	assert.Equal(t, preHash, postHash)

	n := report.Result("n")
	require.NotNil(t, n)
	assert.Equal(t, domain.StateNotStarted, n.State)
	assert.Equal(t, "dependency failed", n.Error)
}

func TestExecute_ApplyErrorRollsBack(t *testing.T) {
	root := t.TempDir()
	writeRaw(root, "f.txt", "orig")

	p := &domain.TransformationPlan{
		ID:       "plan-1",
		RepoRoot: root,
		Phases:   []domain.Phase{{ID: "f", Kind: "f", WriteSet: []string{"f.txt"}}},
	}
	resolver := &mapResolver{applies: map[domain.PhaseID]domain.ApplyFunc{
		"f": func(ctx context.Context, repoRoot string, caps domain.CapabilitySet) error {
			writeRaw(repoRoot, "f.txt", "half-written")
			return assert.AnError
		},
	}}

	svc := newRunner(&memTracker{}, &fakeVerifier{result: domain.VerificationResult{Passed: true}}, resolver, 1)
	report, err := svc.Execute(context.Background(), p, approveAll(p), nil)
	require.NoError(t, err)

	res := report.Result("f")
	assert.Equal(t, domain.StateFailed, res.State)
	assert.True(t, res.RolledBack)

	data, err := os.ReadFile(filepath.Join(root, "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "orig", string(data))
}

func TestExecute_DestructiveNeedsExplicitNaming(t *testing.T) {
	root := t.TempDir()
	p := &domain.TransformationPlan{
		ID:       "plan-1",
		RepoRoot: root,
		Phases: []domain.Phase{
			{ID: "untrack-secrets", Kind: "u", Destructive: true, WriteSet: []string{"s.txt"}},
			{ID: "add-readme", Kind: "r", WriteSet: []string{"README.md"}},
		},
	}
	resolver := &mapResolver{applies: map[domain.PhaseID]domain.ApplyFunc{
		"add-readme": writeApply("README.md", "# x\n"),
	}}

	// Approve-all, but without naming the destructive phase.
	rec := domain.ApprovalRecord{Decision: domain.DecisionApproveAll}

	svc := newRunner(&memTracker{}, &fakeVerifier{result: domain.VerificationResult{Passed: true}}, resolver, 2)
	report, err := svc.Execute(context.Background(), p, rec, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StateApplied, report.Result("add-readme").State)
	destr := report.Result("untrack-secrets")
	assert.Equal(t, domain.StateNotStarted, destr.State)
	assert.Equal(t, "destructive phase not explicitly approved", destr.Error)
}

func TestExecute_SubsetLeavesOthersNotStarted(t *testing.T) {
	root := t.TempDir()
	p := &domain.TransformationPlan{
		ID:       "plan-1",
		RepoRoot: root,
		Phases: []domain.Phase{
			{ID: "a", Kind: "a", WriteSet: []string{"a.txt"}},
			{ID: "b", Kind: "b", WriteSet: []string{"b.txt"}},
			{ID: "c", Kind: "c", WriteSet: []string{"c.txt"}},
		},
	}
	resolver := &mapResolver{applies: map[domain.PhaseID]domain.ApplyFunc{
		"a": writeApply("a.txt", "a"),
	}}
	rec := domain.ApprovalRecord{Decision: domain.DecisionApproveSubset, PhaseIDs: []domain.PhaseID{"a"}}

	svc := newRunner(&memTracker{}, &fakeVerifier{result: domain.VerificationResult{Passed: true}}, resolver, 2)
	report, err := svc.Execute(context.Background(), p, rec, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StateApplied, report.Result("a").State)
	for _, id := range []domain.PhaseID{"b", "c"} {
		res := report.Result(id)
		assert.Equal(t, domain.StateNotStarted, res.State)
		assert.Equal(t, "not in approved subset", res.Error)
	}
}

func TestExecute_DependencyOutsideSubsetExplained(t *testing.T) {
	root := t.TempDir()
	p := &domain.TransformationPlan{
		ID:       "plan-1",
		RepoRoot: root,
		Phases: []domain.Phase{
			{ID: "a", Kind: "a", WriteSet: []string{"a.txt"}},
			{ID: "b", Kind: "b", DependsOn: []domain.PhaseID{"a"}, WriteSet: []string{"b.txt"}},
		},
	}
	rec := domain.ApprovalRecord{Decision: domain.DecisionApproveSubset, PhaseIDs: []domain.PhaseID{"b"}}

	svc := newRunner(&memTracker{}, &fakeVerifier{result: domain.VerificationResult{Passed: true}}, &mapResolver{}, 2)
	report, err := svc.Execute(context.Background(), p, rec, nil)
	require.NoError(t, err)

	a := report.Result("a")
	assert.Equal(t, domain.StateNotStarted, a.State)
	assert.Equal(t, "not in approved subset", a.Error)

	// b is approved but its dependency never ran; the report still has
	// to say why it was left untouched.
	b := report.Result("b")
	assert.Equal(t, domain.StateNotStarted, b.State)
	assert.Equal(t, "dependency did not run", b.Error)
}

func TestExecute_RejectedPlanRunsNothing(t *testing.T) {
	root := t.TempDir()
	p := &domain.TransformationPlan{
		ID:       "plan-1",
		RepoRoot: root,
		Phases:   []domain.Phase{{ID: "a", Kind: "a", WriteSet: []string{"a.txt"}}},
	}
	rec := domain.ApprovalRecord{Decision: domain.DecisionReject}

	svc := newRunner(&memTracker{}, &fakeVerifier{result: domain.VerificationResult{Passed: true}}, &mapResolver{}, 2)
	report, err := svc.Execute(context.Background(), p, rec, nil)
	require.NoError(t, err)

	res := report.Result("a")
	assert.Equal(t, domain.StateNotStarted, res.State)
	assert.Equal(t, "plan not approved", res.Error)
}

func TestExecute_OverlappingWriteSetsSerialized(t *testing.T) {
	root := t.TempDir()

	var inFlight atomic.Int32
	var violated atomic.Bool
	guarded := func(rel string) domain.ApplyFunc {
		return func(ctx context.Context, repoRoot string, caps domain.CapabilitySet) error {
			if inFlight.Add(1) > 1 {
				violated.Store(true)
			}
			time.Sleep(20 * time.Millisecond)
			inFlight.Add(-1)
			writeRaw(repoRoot, rel, rel)
			return nil
		}
	}

	p := &domain.TransformationPlan{
		ID:       "plan-1",
		RepoRoot: root,
		Phases: []domain.Phase{
			{ID: "x", Kind: "x", WriteSet: []string{"shared.txt", "x.txt"}},
			{ID: "y", Kind: "y", WriteSet: []string{"shared.txt", "y.txt"}},
		},
	}
	resolver := &mapResolver{applies: map[domain.PhaseID]domain.ApplyFunc{
		"x": guarded("x.txt"),
		"y": guarded("y.txt"),
	}}

	svc := newRunner(&memTracker{}, &fakeVerifier{result: domain.VerificationResult{Passed: true}}, resolver, 4)
	report, err := svc.Execute(context.Background(), p, approveAll(p), nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StateApplied, report.Result("x").State)
	assert.Equal(t, domain.StateApplied, report.Result("y").State)
	assert.False(t, violated.Load(), "phases sharing a write-set path must never run concurrently")
}

func TestExecute_CancelledContextStartsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	root := t.TempDir()
	p := &domain.TransformationPlan{
		ID:       "plan-1",
		RepoRoot: root,
		Phases:   []domain.Phase{{ID: "a", Kind: "a", WriteSet: []string{"a.txt"}}},
	}

	svc := newRunner(&memTracker{}, &fakeVerifier{result: domain.VerificationResult{Passed: true}}, &mapResolver{}, 2)
	report, err := svc.Execute(ctx, p, approveAll(p), nil)
	require.NoError(t, err)

	res := report.Result("a")
	assert.Equal(t, domain.StateNotStarted, res.State)
	assert.Equal(t, "run cancelled", res.Error)
}

func TestExecute_InvalidGraphRejected(t *testing.T) {
	p := &domain.TransformationPlan{
		ID: "plan-1",
		Phases: []domain.Phase{
			{ID: "a", DependsOn: []domain.PhaseID{"b"}},
			{ID: "b", DependsOn: []domain.PhaseID{"a"}},
		},
	}
	svc := newRunner(&memTracker{}, &fakeVerifier{}, &mapResolver{}, 1)
	_, err := svc.Execute(context.Background(), p, approveAll(p), nil)
	require.Error(t, err)
}
