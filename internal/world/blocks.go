// Package world builds domain models from problem facts and simulates
// actions against them. Models are read-only once built; each simulation
// starts from a fresh InitialState.
package world

import (
	"fmt"
	"sort"
	"strings"

	"plansynth/internal/kb"
	"plansynth/internal/logging"
	"plansynth/internal/pddl"
	"plansynth/internal/types"
)

// Table is the support of every block standing directly on the table.
const Table = "table"

// Blocks is the stacking-domain model.
type Blocks struct {
	// Names lists every block, sorted.
	Names []string
	// Support maps a block to the block under it, or Table. The initially
	// held block has no entry.
	Support map[string]string
	// Stacks are the initial stacks, bottom to top, ordered by base name.
	Stacks [][]string
	// Held is the block in the arm initially, or "".
	Held string

	// GoalSupport maps a block to its required support (a block or Table).
	// Blocks absent from the goal have no entry.
	GoalSupport map[string]string
	// GoalTop maps a support block to the block required on it.
	GoalTop map[string]string
	// GoalHeld is the block the goal requires in the arm, or "".
	GoalHeld string
}

// BuildBlocks resolves initial stacks and goal relations from a problem.
func BuildBlocks(p *pddl.Problem) (*Blocks, error) {
	b := &Blocks{
		Support:     make(map[string]string),
		GoalSupport: make(map[string]string),
		GoalTop:     make(map[string]string),
	}
	names := make(map[string]bool)
	for _, o := range p.ObjectNames() {
		names[o] = true
	}

	top := make(map[string]string)
	armEmpty := false
	for _, f := range p.Init {
		switch f.Predicate {
		case "on":
			if f.Arity() != 2 {
				return nil, arityError(f, 2)
			}
			x, y := f.Args[0], f.Args[1]
			if x == y {
				return nil, &types.InvalidStateError{Msg: fmt.Sprintf("block %s is on itself", x)}
			}
			if prev, ok := b.Support[x]; ok {
				return nil, &types.InvalidStateError{Msg: fmt.Sprintf("block %s is on both %s and %s", x, prev, y)}
			}
			if prev, ok := top[y]; ok {
				return nil, &types.InvalidStateError{Msg: fmt.Sprintf("blocks %s and %s are both on %s", prev, x, y)}
			}
			b.Support[x] = y
			top[y] = x
			names[x], names[y] = true, true
		case "on-table", "ontable":
			if f.Arity() != 1 {
				return nil, arityError(f, 1)
			}
			x := f.Args[0]
			if prev, ok := b.Support[x]; ok {
				return nil, &types.InvalidStateError{Msg: fmt.Sprintf("block %s is on both %s and the table", x, prev)}
			}
			b.Support[x] = Table
			names[x] = true
		case "holding":
			if f.Arity() != 1 {
				return nil, arityError(f, 1)
			}
			if b.Held != "" {
				return nil, &types.InvalidStateError{Msg: fmt.Sprintf("holding more than one block (%s, %s)", b.Held, f.Args[0])}
			}
			b.Held = f.Args[0]
			names[b.Held] = true
		case "arm-empty", "handempty", "hand-empty":
			armEmpty = true
		case "clear":
		default:
			logging.WorldDebug("ignoring init fact %s", f)
		}
	}

	if b.Held != "" {
		if armEmpty {
			return nil, &types.InvalidStateError{Msg: fmt.Sprintf("arm is empty and holds %s", b.Held)}
		}
		if _, ok := b.Support[b.Held]; ok {
			return nil, &types.InvalidStateError{Msg: fmt.Sprintf("held block %s is also placed", b.Held)}
		}
		if x, ok := top[b.Held]; ok {
			return nil, &types.InvalidStateError{Msg: fmt.Sprintf("block %s is on held block %s", x, b.Held)}
		}
	}

	if err := checkAcyclic(b.Support); err != nil {
		return nil, err
	}

	for n := range names {
		b.Names = append(b.Names, n)
	}
	sort.Strings(b.Names)

	if err := b.resolveStacks(top); err != nil {
		return nil, err
	}
	if err := b.buildGoal(p.Goal, names); err != nil {
		return nil, err
	}

	logging.WorldDebug("blocks model: %d blocks, %d stacks, held=%q, %d goal relations",
		len(b.Names), len(b.Stacks), b.Held, len(b.GoalSupport))
	return b, nil
}

// checkAcyclic asks the fact base for cycles in the on relation.
func checkAcyclic(support map[string]string) error {
	engine, err := kb.New(kb.BlocksProgram)
	if err != nil {
		return err
	}
	for x, y := range support {
		if y == Table {
			continue
		}
		if err := engine.Add("bw_on", x, y); err != nil {
			return err
		}
	}
	rows, err := engine.Query("bw_cyclic")
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		cyc := make([]string, len(rows))
		for i, r := range rows {
			cyc[i] = r[0]
		}
		return &types.InvalidStateError{Msg: "cycle in on relation through " + strings.Join(cyc, ", ")}
	}
	return nil
}

// resolveStacks walks each table block upward. The walk is bounded by a
// visited set so malformed input cannot loop.
func (b *Blocks) resolveStacks(top map[string]string) error {
	placed := make(map[string]bool)
	for _, base := range b.Names {
		if b.Support[base] != Table {
			continue
		}
		var stack []string
		for cur := base; cur != ""; cur = top[cur] {
			if placed[cur] {
				return &types.InvalidStateError{Msg: fmt.Sprintf("block %s repeats in stack on %s", cur, base)}
			}
			placed[cur] = true
			stack = append(stack, cur)
		}
		b.Stacks = append(b.Stacks, stack)
	}

	for _, n := range b.Names {
		if placed[n] || n == b.Held {
			continue
		}
		if _, ok := b.Support[n]; ok {
			return &types.InvalidStateError{Msg: fmt.Sprintf("block %s does not rest on the table", n)}
		}
		return &types.MissingInitialStateError{Entity: "block " + n}
	}
	return nil
}

func (b *Blocks) buildGoal(goal []types.Fact, known map[string]bool) error {
	for _, f := range goal {
		switch f.Predicate {
		case "on":
			if f.Arity() != 2 {
				return arityError(f, 2)
			}
			x, y := f.Args[0], f.Args[1]
			if err := b.setGoalSupport(x, y); err != nil {
				return err
			}
			if prev, ok := b.GoalTop[y]; ok && prev != x {
				return &types.InvalidStateError{Msg: fmt.Sprintf("goal puts both %s and %s on %s", prev, x, y)}
			}
			b.GoalTop[y] = x
		case "on-table", "ontable":
			if f.Arity() != 1 {
				return arityError(f, 1)
			}
			if err := b.setGoalSupport(f.Args[0], Table); err != nil {
				return err
			}
		case "holding":
			if f.Arity() != 1 {
				return arityError(f, 1)
			}
			if b.GoalHeld != "" && b.GoalHeld != f.Args[0] {
				return &types.InvalidStateError{Msg: fmt.Sprintf("goal holds more than one block (%s, %s)", b.GoalHeld, f.Args[0])}
			}
			b.GoalHeld = f.Args[0]
		case "arm-empty", "handempty", "hand-empty", "clear":
		default:
			logging.WorldDebug("ignoring goal fact %s", f)
		}
		for _, a := range f.Args {
			if !known[a] {
				return &types.MissingInitialStateError{Entity: "goal block " + a}
			}
		}
	}

	if h := b.GoalHeld; h != "" {
		if _, ok := b.GoalSupport[h]; ok {
			return &types.InvalidStateError{Msg: fmt.Sprintf("goal both holds and places %s", h)}
		}
		if x, ok := b.GoalTop[h]; ok {
			return &types.InvalidStateError{Msg: fmt.Sprintf("goal places %s on held block %s", x, h)}
		}
	}
	return nil
}

func (b *Blocks) setGoalSupport(x, y string) error {
	if x == y {
		return &types.InvalidStateError{Msg: fmt.Sprintf("goal puts %s on itself", x)}
	}
	if prev, ok := b.GoalSupport[x]; ok && prev != y {
		return &types.InvalidStateError{Msg: fmt.Sprintf("goal puts %s on both %s and %s", x, prev, y)}
	}
	b.GoalSupport[x] = y
	return nil
}

func arityError(f types.Fact, want int) error {
	return &types.ParseError{Msg: fmt.Sprintf("fact %s must have %d argument(s)", f, want)}
}

// InitialState returns a fresh simulator positioned at the initial state.
func (b *Blocks) InitialState() *BlocksState {
	s := &BlocksState{
		support: make(map[string]string, len(b.Support)),
		top:     make(map[string]string),
		held:    b.Held,
	}
	for x, y := range b.Support {
		s.support[x] = y
		if y != Table {
			s.top[y] = x
		}
	}
	return s
}
