// Package phase holds the pure scheduling logic of the executor: the
// dependency graph, readiness computation and write-set conflict checks.
package phase

import (
	"fmt"

	"github.com/repoforge/repoforge/internal/domain"
)

// Graph is the dependency view over a plan's phases.
type Graph struct {
	phases map[domain.PhaseID]domain.Phase
	order  []domain.PhaseID
}

// NewGraph validates the plan's phase graph: every dependency must exist
// and the graph must be acyclic.
func NewGraph(phases []domain.Phase) (*Graph, error) {
	g := &Graph{phases: make(map[domain.PhaseID]domain.Phase, len(phases))}
	for _, p := range phases {
		if _, dup := g.phases[p.ID]; dup {
			return nil, fmt.Errorf("duplicate phase %s", p.ID)
		}
		g.phases[p.ID] = p
		g.order = append(g.order, p.ID)
	}
	for _, p := range phases {
		for _, dep := range p.DependsOn {
			if _, ok := g.phases[dep]; !ok {
				return nil, fmt.Errorf("phase %s depends on unknown phase %s", p.ID, dep)
			}
		}
	}
	if cycle := g.findCycle(); cycle != "" {
		return nil, fmt.Errorf("dependency cycle through phase %s", cycle)
	}
	return g, nil
}

// Phases returns the phase ids in declaration order.
func (g *Graph) Phases() []domain.PhaseID { return g.order }

// Phase returns the phase by id.
func (g *Graph) Phase(id domain.PhaseID) domain.Phase { return g.phases[id] }

// Ready reports whether every dependency of id reached a terminal
// success state (Applied or Skipped).
func (g *Graph) Ready(id domain.PhaseID, state func(domain.PhaseID) string) bool {
	for _, dep := range g.phases[id].DependsOn {
		s := state(dep)
		if s != domain.StateApplied && s != domain.StateSkipped {
			return false
		}
	}
	return true
}

// Blocked reports whether any dependency of id, directly or transitively,
// has failed. Blocked phases stay NotStarted.
func (g *Graph) Blocked(id domain.PhaseID, state func(domain.PhaseID) string) bool {
	for _, dep := range g.phases[id].DependsOn {
		if state(dep) == domain.StateFailed || g.Blocked(dep, state) {
			return true
		}
	}
	return false
}

// Conflicts reports whether two phases share any write-set path.
// Conflicting phases are serialized regardless of the declared graph.
func Conflicts(a, b domain.Phase) bool {
	set := make(map[string]bool, len(a.WriteSet))
	for _, p := range a.WriteSet {
		set[p] = true
	}
	for _, p := range b.WriteSet {
		if set[p] {
			return true
		}
	}
	return false
}

func (g *Graph) findCycle() domain.PhaseID {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[domain.PhaseID]int, len(g.phases))
	var visit func(id domain.PhaseID) bool
	visit = func(id domain.PhaseID) bool {
		color[id] = gray
		for _, dep := range g.phases[id].DependsOn {
			switch color[dep] {
			case gray:
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}
	for _, id := range g.order {
		if color[id] == white && visit(id) {
			return id
		}
	}
	return ""
}
