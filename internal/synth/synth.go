// Package synth turns a parsed problem into a plan with one greedy,
// non-backtracking synthesizer per domain family. Every call builds its own
// world model, so synthesizers hold no state and are safe to share.
package synth

import (
	"fmt"

	"plansynth/internal/logging"
	"plansynth/internal/pddl"
	"plansynth/internal/types"
)

// Synthesizer produces a plan for a single problem.
type Synthesizer interface {
	Synthesize(p *pddl.Problem) (types.Plan, error)
}

// ForProblem returns the synthesizer for the problem's domain family.
func ForProblem(p *pddl.Problem) (Synthesizer, error) {
	kind, err := p.Kind()
	if err != nil {
		return nil, err
	}
	switch kind {
	case pddl.KindBlocks:
		return Blocks{}, nil
	case pddl.KindLogistics:
		return Logistics{}, nil
	}
	return nil, fmt.Errorf("no synthesizer for domain family %s", kind)
}

// Solve picks a synthesizer for p and runs it.
func Solve(p *pddl.Problem) (types.Plan, error) {
	s, err := ForProblem(p)
	if err != nil {
		return nil, err
	}
	timer := logging.StartTimer(logging.CategorySynth, "synthesize "+p.Name)
	plan, err := s.Synthesize(p)
	timer.Stop()
	if err != nil {
		return nil, err
	}
	logging.Synth("problem %s: %d actions", p.Name, len(plan))
	return plan, nil
}

// recorder appends actions to a plan while replaying them on a simulator.
// A rejected action means the synthesizer itself is wrong, so it is
// reported as a plain error rather than one of the input error kinds.
type recorder struct {
	plan  types.Plan
	apply func(types.Action) error
}

func (r *recorder) emit(name string, args ...string) error {
	a := types.NewAction(name, args...)
	if err := r.apply(a); err != nil {
		return fmt.Errorf("synthesized action rejected by simulator: %w", err)
	}
	r.plan = append(r.plan, a)
	return nil
}
