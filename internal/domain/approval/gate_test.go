package approval_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repoforge/repoforge/internal/domain"
	"github.com/repoforge/repoforge/internal/domain/approval"
)

// scriptedOperator replays canned responses, one per Present call.
type scriptedOperator struct {
	responses []domain.OperatorResponse
	presented []*domain.TransformationPlan
}

func (o *scriptedOperator) Present(ctx context.Context, plan *domain.TransformationPlan) (domain.OperatorResponse, error) {
	if ctx.Err() != nil {
		return domain.OperatorResponse{}, ctx.Err()
	}
	o.presented = append(o.presented, plan)
	resp := o.responses[0]
	o.responses = o.responses[1:]
	return resp, nil
}

type memStore struct {
	records []domain.ApprovalRecord
}

func (s *memStore) Append(r domain.ApprovalRecord) error { s.records = append(s.records, r); return nil }
func (s *memStore) Load() ([]domain.ApprovalRecord, error) { return s.records, nil }

func testPlan() *domain.TransformationPlan {
	return &domain.TransformationPlan{
		ID: "plan-1",
		Phases: []domain.Phase{
			{ID: "write-ignore-rules@go-like"},
			{ID: "untrack-secrets", Destructive: true, DependsOn: []domain.PhaseID{"write-ignore-rules@go-like"}},
			{ID: "add-readme"},
		},
	}
}

func TestGate_ApproveAll(t *testing.T) {
	op := &scriptedOperator{responses: []domain.OperatorResponse{
		{Decision: domain.DecisionApproveAll, DestructiveOK: []domain.PhaseID{"untrack-secrets"}},
	}}
	store := &memStore{}
	gate := approval.NewGate(op, store, nil)

	rec, plan, err := gate.Present(context.Background(), testPlan())
	require.NoError(t, err)
	assert.True(t, rec.Approved())
	assert.Equal(t, "plan-1", rec.PlanID)
	assert.Equal(t, []domain.PhaseID{"untrack-secrets"}, rec.DestructiveOK)
	assert.Len(t, plan.Phases, 3)
	require.Len(t, store.records, 1, "the decision is persisted for the audit trail")
	assert.Equal(t, domain.DecisionApproveAll, store.records[0].Decision)
}

func TestGate_Reject(t *testing.T) {
	op := &scriptedOperator{responses: []domain.OperatorResponse{
		{Decision: domain.DecisionReject, Reason: "not now"},
	}}
	store := &memStore{}
	gate := approval.NewGate(op, store, nil)

	rec, _, err := gate.Present(context.Background(), testPlan())
	require.NoError(t, err)
	assert.False(t, rec.Approved())
	assert.Equal(t, "not now", rec.Reason)
	assert.Len(t, store.records, 1)
}

func TestGate_AmendLoopsBackWithRevisedPlan(t *testing.T) {
	op := &scriptedOperator{responses: []domain.OperatorResponse{
		{Decision: domain.DecisionAmend, PhaseIDs: []domain.PhaseID{"write-ignore-rules@go-like", "add-readme"}},
		{Decision: domain.DecisionApproveAll},
	}}
	gate := approval.NewGate(op, &memStore{}, nil)

	rec, plan, err := gate.Present(context.Background(), testPlan())
	require.NoError(t, err)
	assert.True(t, rec.Approved())

	// The approved plan is the amended one, re-presented before approval.
	require.Len(t, op.presented, 2)
	assert.Len(t, plan.Phases, 2)
	assert.Nil(t, plan.Phase("untrack-secrets"))
}

func TestGate_CancellationIsRejection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	op := &scriptedOperator{}
	store := &memStore{}
	gate := approval.NewGate(op, store, nil)

	rec, _, err := gate.Present(ctx, testPlan())
	require.ErrorIs(t, err, domain.ErrApprovalCancelled)
	assert.Equal(t, domain.DecisionReject, rec.Decision)
	assert.Equal(t, "cancelled", rec.Reason)
	require.Len(t, store.records, 1, "cancellation still leaves an audit trail entry")
	assert.Equal(t, "cancelled", store.records[0].Reason)
}

func TestGate_UnknownDecisionIsError(t *testing.T) {
	op := &scriptedOperator{responses: []domain.OperatorResponse{{Decision: "maybe"}}}
	gate := approval.NewGate(op, &memStore{}, nil)

	_, _, err := gate.Present(context.Background(), testPlan())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maybe")
}
