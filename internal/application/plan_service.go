package application

import (
	"context"

	"github.com/repoforge/repoforge/internal/domain"
	"github.com/repoforge/repoforge/internal/domain/plan"
)

// PlanService turns an audit into a transformation plan.
type PlanService struct {
	audit *AuditService
}

func NewPlanService(audit *AuditService) *PlanService {
	return &PlanService{audit: audit}
}

// Plan audits the repository and selects the phase sequence addressing
// the findings. The plan may be amended at the approval gate but never
// after execution starts.
func (s *PlanService) Plan(ctx context.Context, repoRoot string) (*domain.TransformationPlan, *AuditResult, error) {
	result, err := s.audit.Audit(ctx, repoRoot)
	if err != nil {
		return nil, nil, err
	}
	p := plan.Build(result.RepoRoot, result.Findings, result.Caps)
	return p, result, nil
}
