// Package approval implements the operator approval gate: a blocking
// state machine between planning and execution.
package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/repoforge/repoforge/internal/domain"
)

// Gate presents plans to the operator channel and resolves to an
// ApprovalRecord. States: Pending -> {Approved, Rejected, Amended};
// Amended loops back to Pending with the revised plan.
type Gate struct {
	operator domain.OperatorChannel
	store    domain.ApprovalStore
	logger   *zap.Logger
}

func NewGate(operator domain.OperatorChannel, store domain.ApprovalStore, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{operator: operator, store: store, logger: logger}
}

// Present blocks until the operator resolves the gate. On amendment the
// revised plan is re-presented. Cancellation resolves to a persisted
// Rejected record with reason "cancelled" and ErrApprovalCancelled.
// The returned plan is the (possibly amended) plan the record covers.
func (g *Gate) Present(ctx context.Context, plan *domain.TransformationPlan) (domain.ApprovalRecord, *domain.TransformationPlan, error) {
	current := plan
	for {
		resp, err := g.operator.Present(ctx, current)
		if err != nil {
			if ctx.Err() != nil || err == context.Canceled {
				rec := g.record(current, domain.OperatorResponse{
					Decision: domain.DecisionReject,
					Reason:   "cancelled",
				})
				return rec, current, domain.ErrApprovalCancelled
			}
			return domain.ApprovalRecord{}, current, fmt.Errorf("operator channel: %w", err)
		}

		switch resp.Decision {
		case domain.DecisionAmend:
			// Loop back to Pending with the revised plan.
			current = current.Subset(resp.PhaseIDs)
			g.logger.Info("plan amended",
				zap.String("plan", current.ID),
				zap.Int("phases", len(current.Phases)))
			continue

		case domain.DecisionApproveAll, domain.DecisionApproveSubset, domain.DecisionReject:
			rec := g.record(current, resp)
			return rec, current, nil

		default:
			return domain.ApprovalRecord{}, current, fmt.Errorf("unknown operator decision %q", resp.Decision)
		}
	}
}

func (g *Gate) record(plan *domain.TransformationPlan, resp domain.OperatorResponse) domain.ApprovalRecord {
	rec := domain.ApprovalRecord{
		ID:            uuid.NewString(),
		PlanID:        plan.ID,
		Decision:      resp.Decision,
		PhaseIDs:      resp.PhaseIDs,
		DestructiveOK: resp.DestructiveOK,
		Reason:        resp.Reason,
		CreatedAt:     time.Now().UTC(),
	}
	if g.store != nil {
		if err := g.store.Append(rec); err != nil {
			g.logger.Warn("persisting approval record", zap.Error(err))
		}
	}
	return rec
}
