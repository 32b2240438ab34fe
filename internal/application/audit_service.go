package application

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/repoforge/repoforge/internal/domain"
	"github.com/repoforge/repoforge/internal/domain/audit"
)

// AuditResult bundles everything the audit produced: the detected
// ecosystems, their capability sets and the ordered finding set.
type AuditResult struct {
	RepoRoot   string                          `json:"repo_root"`
	Ecosystems []domain.DetectedEcosystem      `json:"ecosystems"`
	Findings   []domain.Finding                `json:"findings"`
	Caps       map[string]domain.CapabilitySet `json:"-"`
}

// AuditService orchestrates the read-only audit pipeline:
// scan -> detect -> capability lookup -> rules.
type AuditService struct {
	detect   *DetectService
	registry domain.CapabilityRegistry
	fs       domain.VersionedFS
	secrets  domain.SecretScanner
	auditor  *audit.Auditor
	logger   *zap.Logger
}

func NewAuditService(
	detect *DetectService,
	registry domain.CapabilityRegistry,
	fs domain.VersionedFS,
	secrets domain.SecretScanner,
	logger *zap.Logger,
) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		detect:   detect,
		registry: registry,
		fs:       fs,
		secrets:  secrets,
		auditor:  audit.New(logger),
		logger:   logger,
	}
}

// Audit never mutates the repository. An unknown ecosystem falls back to
// the generic capability set; only an unreadable root is fatal.
func (s *AuditService) Audit(ctx context.Context, repoRoot string) (*AuditResult, error) {
	ecosystems, scan, err := s.detect.Detect(repoRoot)
	if err != nil {
		return nil, err
	}

	caps := make(map[string]domain.CapabilitySet, len(ecosystems))
	for _, eco := range ecosystems {
		set, err := s.registry.Get(eco.ID)
		if err != nil {
			if !errors.Is(err, domain.ErrUnknownEcosystem) {
				return nil, fmt.Errorf("capability lookup for %s: %w", eco.ID, err)
			}
			s.logger.Info("no capability entry, using generic checks",
				zap.String("ecosystem", eco.ID))
			set = domain.GenericCapabilities()
		}
		caps[eco.ID] = set
	}

	findings := s.auditor.Audit(ctx, &audit.Context{
		Root:       scan.RootPath,
		Scan:       scan,
		Ecosystems: ecosystems,
		Caps:       caps,
		FS:         s.fs,
		Secrets:    s.secrets,
	})

	return &AuditResult{
		RepoRoot:   scan.RootPath,
		Ecosystems: ecosystems,
		Findings:   findings,
		Caps:       caps,
	}, nil
}
