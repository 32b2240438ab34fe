package console_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repoforge/repoforge/internal/adapters/inbound/console"
	"github.com/repoforge/repoforge/internal/domain"
)

func planWithDestructive() *domain.TransformationPlan {
	return &domain.TransformationPlan{
		ID: "plan-1",
		Phases: []domain.Phase{
			{ID: "write-ignore-rules@go-like", Description: "add ignore rules"},
			{ID: "untrack-secrets", Destructive: true, Description: "remove secrets from version control"},
		},
	}
}

func present(t *testing.T, input string, plan *domain.TransformationPlan) (domain.OperatorResponse, string) {
	t.Helper()
	var out bytes.Buffer
	op := console.New(strings.NewReader(input), &out)
	resp, err := op.Present(context.Background(), plan)
	require.NoError(t, err)
	return resp, out.String()
}

func TestPresent_ApproveAllConfirmsDestructive(t *testing.T) {
	resp, out := present(t, "a\ny\n", planWithDestructive())

	assert.Equal(t, domain.DecisionApproveAll, resp.Decision)
	assert.Equal(t, []domain.PhaseID{"untrack-secrets"}, resp.DestructiveOK)
	assert.Contains(t, out, "untrack-secrets")
	assert.Contains(t, out, "destructive")
}

func TestPresent_ApproveAllDecliningDestructive(t *testing.T) {
	resp, _ := present(t, "a\nn\n", planWithDestructive())

	assert.Equal(t, domain.DecisionApproveAll, resp.Decision)
	assert.Empty(t, resp.DestructiveOK, "an unconfirmed destructive phase is never authorized")
}

func TestPresent_ApproveSubset(t *testing.T) {
	resp, _ := present(t, "s write-ignore-rules@go-like\n", planWithDestructive())

	assert.Equal(t, domain.DecisionApproveSubset, resp.Decision)
	assert.Equal(t, []domain.PhaseID{"write-ignore-rules@go-like"}, resp.PhaseIDs)
	assert.Empty(t, resp.DestructiveOK, "destructive phase outside the subset is not prompted")
}

func TestPresent_Amend(t *testing.T) {
	resp, _ := present(t, "m write-ignore-rules@go-like,untrack-secrets\n", planWithDestructive())

	assert.Equal(t, domain.DecisionAmend, resp.Decision)
	assert.Equal(t, []domain.PhaseID{"write-ignore-rules@go-like", "untrack-secrets"}, resp.PhaseIDs)
}

func TestPresent_Reject(t *testing.T) {
	resp, _ := present(t, "r\n", planWithDestructive())
	assert.Equal(t, domain.DecisionReject, resp.Decision)
}

func TestPresent_UnrecognizedAnswerIsReject(t *testing.T) {
	resp, out := present(t, "whatever\n", planWithDestructive())
	assert.Equal(t, domain.DecisionReject, resp.Decision)
	assert.Contains(t, out, "unrecognized")
}

func TestPresent_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A reader that never delivers a line; cancellation must win.
	op := console.New(blockingReader{}, &bytes.Buffer{})
	_, err := op.Present(ctx, planWithDestructive())
	require.ErrorIs(t, err, context.Canceled)
}

type blockingReader struct{}

func (blockingReader) Read(p []byte) (int, error) {
	select {}
}
