// Package verify invokes the ecosystem's build and test capabilities
// after a mutating phase.
package verify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/repoforge/repoforge/internal/domain"
)

// Runner implements domain.Verifier by executing the capability's build
// and test invocations inside the repository root.
type Runner struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger}
}

// Verify runs the build invocation first, then tests. Each attempt has
// the invocation's wall-clock budget; exceeding it is a timeout failure,
// which the executor treats like any other failure.
func (r *Runner) Verify(ctx context.Context, repoRoot string, caps domain.CapabilitySet) domain.VerificationResult {
	start := time.Now()
	for _, inv := range []struct {
		name string
		inv  domain.Invocation
	}{
		{"build", caps.Build},
		{"test", caps.Test},
	} {
		if inv.inv.Empty() {
			continue
		}
		if res := r.run(ctx, repoRoot, inv.name, inv.inv); !res.Passed {
			res.Duration = time.Since(start)
			return res
		}
	}
	return domain.VerificationResult{Passed: true, Duration: time.Since(start)}
}

func (r *Runner) run(ctx context.Context, repoRoot, name string, inv domain.Invocation) domain.VerificationResult {
	runCtx, cancel := context.WithTimeout(ctx, inv.Timeout())
	defer cancel()

	cmd := exec.CommandContext(runCtx, inv.Argv[0], inv.Argv[1:]...)
	cmd.Dir = repoRoot
	out, err := cmd.CombinedOutput()
	if err == nil {
		return domain.VerificationResult{Passed: true}
	}

	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded)
	detail := fmt.Sprintf("%s failed: %v", name, err)
	if timedOut {
		detail = fmt.Sprintf("%s timed out after %s", name, inv.Timeout())
	}
	r.logger.Debug("verification failed",
		zap.String("step", name),
		zap.Bool("timeout", timedOut),
		zap.ByteString("output", tail(out, 2048)))

	return domain.VerificationResult{
		Passed:   false,
		TimedOut: timedOut,
		Detail:   detail,
	}
}

func tail(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[len(b)-n:]
}
