package domain

import (
	"errors"
	"fmt"
)

// ErrUnknownEcosystem is returned by the capability registry when no entry
// exists for an ecosystem. Callers fall back to GenericCapabilities.
var ErrUnknownEcosystem = errors.New("unknown ecosystem")

// ErrApprovalCancelled is returned when the approval gate is cancelled
// before the operator responds. Treated as rejection: no phases run.
var ErrApprovalCancelled = errors.New("approval cancelled")

// ErrPlanExecuting guards plan amendment after execution has started.
var ErrPlanExecuting = errors.New("plan already executing")

// AccessError means the repository root could not be read. Fatal: no
// partial audit is possible.
type AccessError struct {
	Path string
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("repository %s unreadable: %v", e.Path, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// PhaseApplyError wraps a failure inside a phase's apply step. The
// executor rolls the write-set back to the pre-phase snapshot.
type PhaseApplyError struct {
	Phase PhaseID
	Err   error
}

func (e *PhaseApplyError) Error() string {
	return fmt.Sprintf("phase %s apply failed: %v", e.Phase, e.Err)
}

func (e *PhaseApplyError) Unwrap() error { return e.Err }
