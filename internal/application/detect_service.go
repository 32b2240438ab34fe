package application

import (
	"fmt"

	"github.com/repoforge/repoforge/internal/domain"
)

// DetectService runs the read-only ecosystem detection pipeline:
// scan -> detect.
type DetectService struct {
	scanner  domain.ProjectScanner
	detector domain.EcosystemDetector
}

func NewDetectService(scanner domain.ProjectScanner, detector domain.EcosystemDetector) *DetectService {
	return &DetectService{scanner: scanner, detector: detector}
}

func (s *DetectService) Detect(repoRoot string) ([]domain.DetectedEcosystem, *domain.ScanResult, error) {
	scan, err := s.scanner.Scan(repoRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("scanning repository: %w", err)
	}
	ecosystems, err := s.detector.Detect(scan)
	if err != nil {
		return nil, nil, fmt.Errorf("detecting ecosystems: %w", err)
	}
	return ecosystems, scan, nil
}
