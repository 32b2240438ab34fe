// Package console is the terminal operator channel: it prints the plan
// and blocks on stdin for the approval decision. It never auto-approves.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/repoforge/repoforge/internal/adapters/outbound/tui"
	"github.com/repoforge/repoforge/internal/domain"
)

// Operator implements domain.OperatorChannel over an io reader/writer
// pair (stdin/stdout in production, buffers in tests).
type Operator struct {
	in  *bufio.Reader
	out io.Writer
}

func New(in io.Reader, out io.Writer) *Operator {
	return &Operator{in: bufio.NewReader(in), out: out}
}

// Present shows the plan and reads one decision. Recognized answers:
//
//	a            approve all phases
//	s id,id,...  approve only the listed phases
//	m id,id,...  amend the plan down to the listed phases
//	r            reject
//
// Destructive phases are confirmed one by one afterwards; an unconfirmed
// destructive phase stays out of the approval.
func (o *Operator) Present(ctx context.Context, plan *domain.TransformationPlan) (domain.OperatorResponse, error) {
	fmt.Fprint(o.out, tui.RenderPlan(plan))
	fmt.Fprintln(o.out)
	fmt.Fprint(o.out, "[a]pprove all, approve [s]ubset, a[m]end, [r]eject: ")

	line, err := o.readLine(ctx)
	if err != nil {
		return domain.OperatorResponse{}, err
	}

	verb, rest := splitAnswer(line)
	switch verb {
	case "a":
		resp := domain.OperatorResponse{Decision: domain.DecisionApproveAll}
		resp.DestructiveOK, err = o.confirmDestructive(ctx, plan, nil)
		return resp, err
	case "s":
		ids := parseIDs(rest)
		resp := domain.OperatorResponse{Decision: domain.DecisionApproveSubset, PhaseIDs: ids}
		resp.DestructiveOK, err = o.confirmDestructive(ctx, plan, ids)
		return resp, err
	case "m":
		return domain.OperatorResponse{Decision: domain.DecisionAmend, PhaseIDs: parseIDs(rest)}, nil
	case "r":
		return domain.OperatorResponse{Decision: domain.DecisionReject, Reason: "rejected by operator"}, nil
	default:
		fmt.Fprintf(o.out, "unrecognized answer %q, treating as reject\n", line)
		return domain.OperatorResponse{Decision: domain.DecisionReject, Reason: "unrecognized answer"}, nil
	}
}

// confirmDestructive asks for each destructive phase in scope by name.
func (o *Operator) confirmDestructive(ctx context.Context, plan *domain.TransformationPlan, subset []domain.PhaseID) ([]domain.PhaseID, error) {
	inScope := func(id domain.PhaseID) bool {
		if subset == nil {
			return true
		}
		for _, s := range subset {
			if s == id {
				return true
			}
		}
		return false
	}

	var confirmed []domain.PhaseID
	for _, ph := range plan.Phases {
		if !ph.Destructive || !inScope(ph.ID) {
			continue
		}
		fmt.Fprintf(o.out, "phase %s is destructive (%s). run it? [y/N]: ", ph.ID, ph.Description)
		line, err := o.readLine(ctx)
		if err != nil {
			return confirmed, err
		}
		if strings.EqualFold(strings.TrimSpace(line), "y") {
			confirmed = append(confirmed, ph.ID)
		}
	}
	return confirmed, nil
}

// readLine reads one line, honoring context cancellation.
func (o *Operator) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := o.in.ReadString('\n')
		ch <- result{strings.TrimRight(line, "\r\n"), err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil && r.line == "" {
			return "", r.err
		}
		return r.line, nil
	}
}

func splitAnswer(line string) (verb, rest string) {
	fields := strings.SplitN(strings.TrimSpace(line), " ", 2)
	verb = strings.ToLower(fields[0])
	if len(fields) > 1 {
		rest = fields[1]
	}
	return verb, rest
}

func parseIDs(s string) []domain.PhaseID {
	var ids []domain.PhaseID
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		ids = append(ids, domain.PhaseID(part))
	}
	return ids
}
