package synth

import (
	"fmt"
	"strings"

	"plansynth/internal/logging"
	"plansynth/internal/pddl"
	"plansynth/internal/types"
	"plansynth/internal/world"
)

// Blocks synthesizes stacking plans in two passes: disassemble every block
// that is not already in its final position, then rebuild each goal tower
// bottom to top.
type Blocks struct{}

// Synthesize implements Synthesizer.
func (Blocks) Synthesize(p *pddl.Problem) (types.Plan, error) {
	b, err := world.BuildBlocks(p)
	if err != nil {
		return nil, err
	}
	return SynthesizeBlocks(b)
}

// SynthesizeBlocks plans from an already built model.
func SynthesizeBlocks(b *world.Blocks) (types.Plan, error) {
	state := b.InitialState()
	rec := &recorder{apply: state.Apply}
	wp := newPlacement(b)

	if b.Held != "" {
		if err := rec.emit("putdown", b.Held); err != nil {
			return nil, err
		}
	}

	if err := disassemble(b, wp, rec); err != nil {
		return nil, err
	}
	if err := reassemble(b, wp, rec); err != nil {
		return nil, err
	}

	if b.GoalHeld != "" {
		// Holding the goal block from the start with nothing else to do is
		// already a goal state.
		if b.Held == b.GoalHeld && len(rec.plan) == 1 {
			logging.SynthDebug("held block %s already satisfies the goal", b.Held)
			return types.Plan{}, nil
		}
		if err := rec.emit("pickup", b.GoalHeld); err != nil {
			return nil, err
		}
	}

	if missing := state.Unsatisfied(b); len(missing) > 0 {
		return nil, fmt.Errorf("stacking plan leaves goals unsatisfied: %s", strings.Join(missing, " "))
	}
	if rec.plan == nil {
		rec.plan = types.Plan{}
	}
	return rec.plan, nil
}

// placement memoizes which blocks are already in their final position. The
// initially held block counts as standing on the table, where the first
// action puts it.
type placement struct {
	b    *world.Blocks
	memo map[string]bool
}

func newPlacement(b *world.Blocks) *placement {
	return &placement{b: b, memo: make(map[string]bool, len(b.Names))}
}

func (w *placement) support(x string) string {
	if x == w.b.Held {
		return world.Table
	}
	return w.b.Support[x]
}

// wellPlaced reports whether x can stay where it is for the rest of the plan.
// The support chain is acyclic once the model is built, so the recursion
// terminates.
func (w *placement) wellPlaced(x string) bool {
	if v, ok := w.memo[x]; ok {
		return v
	}
	v := w.compute(x)
	w.memo[x] = v
	return v
}

func (w *placement) compute(x string) bool {
	if x == w.b.GoalHeld {
		return false
	}
	goal, hasGoal := w.b.GoalSupport[x]
	under := w.support(x)
	if under == world.Table {
		return !hasGoal || goal == world.Table
	}
	if !w.wellPlaced(under) {
		return false
	}
	if hasGoal {
		return goal == under
	}
	want, reserved := w.b.GoalTop[under]
	return !reserved || want == x
}

func disassemble(b *world.Blocks, wp *placement, rec *recorder) error {
	for _, stack := range b.Stacks {
		first := len(stack)
		for i, x := range stack {
			if !wp.wellPlaced(x) {
				first = i
				break
			}
		}
		if first == len(stack) {
			continue
		}
		// The base stays on the table even when misplaced.
		if first == 0 {
			first = 1
		}
		for i := len(stack) - 1; i >= first; i-- {
			logging.SynthDebug("clearing %s from %s", stack[i], stack[i-1])
			if err := rec.emit("unstack", stack[i], stack[i-1]); err != nil {
				return err
			}
			if err := rec.emit("putdown", stack[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func reassemble(b *world.Blocks, wp *placement, rec *recorder) error {
	inGoal := make(map[string]bool, len(b.Names))
	for _, x := range b.Names {
		if inGoal[x] {
			continue
		}
		_, below := b.GoalSupport[x]
		_, above := b.GoalTop[x]
		if !below && !above {
			continue
		}

		base, err := goalBase(b, x)
		if err != nil {
			return err
		}
		inGoal[base] = true
		for cur := base; ; {
			top, ok := b.GoalTop[cur]
			if !ok {
				break
			}
			if inGoal[top] {
				return &types.InvalidStateError{Msg: fmt.Sprintf("goal tower on %s revisits %s", base, top)}
			}
			inGoal[top] = true
			if !wp.wellPlaced(top) {
				if err := rec.emit("pickup", top); err != nil {
					return err
				}
				if err := rec.emit("stack", top, cur); err != nil {
					return err
				}
			}
			cur = top
		}
	}
	return nil
}

// goalBase follows goal supports down from x to the bottom of its goal tower.
func goalBase(b *world.Blocks, x string) (string, error) {
	seen := map[string]bool{x: true}
	base := x
	for {
		under, ok := b.GoalSupport[base]
		if !ok || under == world.Table {
			return base, nil
		}
		if seen[under] {
			return "", &types.InvalidStateError{Msg: fmt.Sprintf("goal supports of %s form a cycle", x)}
		}
		seen[under] = true
		base = under
	}
}
