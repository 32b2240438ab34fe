package cli

import (
	"fmt"

	"go.uber.org/zap"

	appconfig "github.com/repoforge/repoforge/internal/adapters/outbound/config"
	"github.com/repoforge/repoforge/internal/adapters/outbound/detector"
	"github.com/repoforge/repoforge/internal/adapters/outbound/gitfs"
	"github.com/repoforge/repoforge/internal/adapters/outbound/registry"
	"github.com/repoforge/repoforge/internal/adapters/outbound/scanner"
	"github.com/repoforge/repoforge/internal/adapters/outbound/secrets"
	"github.com/repoforge/repoforge/internal/application"
)

// deps is the per-invocation wiring for one target repository.
type deps struct {
	cfg    *appconfig.Config
	fs     *gitfs.GitFS
	audit  *application.AuditService
	plans  *application.PlanService
	logger *zap.Logger
}

// buildDeps wires the read-side services for the repository at path.
func buildDeps(path string, verbose bool) (*deps, error) {
	cfg, err := appconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(verbose || cfg.Verbose)

	fs, err := gitfs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("repoforge needs a git repository: %w", err)
	}

	reg, err := registry.Load(cfg.CapabilityOverrides)
	if err != nil {
		return nil, fmt.Errorf("loading capability registry: %w", err)
	}

	secretScanner, err := secrets.New()
	if err != nil {
		return nil, fmt.Errorf("building secret scanner: %w", err)
	}

	detectSvc := application.NewDetectService(scanner.New(), detector.New())
	auditSvc := application.NewAuditService(detectSvc, reg, fs, secretScanner, logger)

	return &deps{
		cfg:    cfg,
		fs:     fs,
		audit:  auditSvc,
		plans:  application.NewPlanService(auditSvc),
		logger: logger,
	}, nil
}
