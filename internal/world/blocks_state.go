package world

import (
	"fmt"
	"sort"

	"plansynth/internal/types"
)

// BlocksState simulates the stacking domain one action at a time. It checks
// preconditions so tests and the plan stepper can replay plans; it is not a
// substitute for the external validator.
type BlocksState struct {
	support map[string]string
	top     map[string]string
	held    string
}

// Held returns the block in the arm, or "".
func (s *BlocksState) Held() string { return s.held }

// Support returns what x rests on (a block or Table) and whether x is placed.
func (s *BlocksState) Support(x string) (string, bool) {
	y, ok := s.support[x]
	return y, ok
}

// Clear reports whether nothing rests on x and x is not held.
func (s *BlocksState) Clear(x string) bool {
	_, covered := s.top[x]
	_, placed := s.support[x]
	return placed && !covered
}

// Stacks returns the current stacks, bottom to top, ordered by base name.
func (s *BlocksState) Stacks() [][]string {
	var bases []string
	for x, y := range s.support {
		if y == Table {
			bases = append(bases, x)
		}
	}
	sort.Strings(bases)
	stacks := make([][]string, 0, len(bases))
	for _, base := range bases {
		var stack []string
		seen := make(map[string]bool)
		for cur := base; cur != "" && !seen[cur]; cur = s.top[cur] {
			seen[cur] = true
			stack = append(stack, cur)
		}
		stacks = append(stacks, stack)
	}
	return stacks
}

// Apply executes one action, failing without side effects when a
// precondition does not hold.
func (s *BlocksState) Apply(a types.Action) error {
	switch a.Name {
	case "pickup", "pick-up":
		if len(a.Args) != 1 {
			return badArity(a, 1)
		}
		x := a.Args[0]
		if s.held != "" {
			return fmt.Errorf("%s: arm already holds %s", a, s.held)
		}
		if s.support[x] != Table || !s.Clear(x) {
			return fmt.Errorf("%s: %s is not clear on the table", a, x)
		}
		delete(s.support, x)
		s.held = x
	case "putdown", "put-down":
		if len(a.Args) != 1 {
			return badArity(a, 1)
		}
		x := a.Args[0]
		if s.held != x {
			return fmt.Errorf("%s: arm does not hold %s", a, x)
		}
		s.support[x] = Table
		s.held = ""
	case "stack":
		if len(a.Args) != 2 {
			return badArity(a, 2)
		}
		x, y := a.Args[0], a.Args[1]
		if s.held != x {
			return fmt.Errorf("%s: arm does not hold %s", a, x)
		}
		if !s.Clear(y) {
			return fmt.Errorf("%s: %s is not clear", a, y)
		}
		s.support[x] = y
		s.top[y] = x
		s.held = ""
	case "unstack":
		if len(a.Args) != 2 {
			return badArity(a, 2)
		}
		x, y := a.Args[0], a.Args[1]
		if s.held != "" {
			return fmt.Errorf("%s: arm already holds %s", a, s.held)
		}
		if s.support[x] != y || !s.Clear(x) {
			return fmt.Errorf("%s: %s is not clear on %s", a, x, y)
		}
		delete(s.support, x)
		delete(s.top, y)
		s.held = x
	default:
		return fmt.Errorf("unknown stacking action %s", a)
	}
	return nil
}

// Unsatisfied lists the goal relations of b that do not hold in s, in a
// canonical order. An empty result means the goal is reached.
func (s *BlocksState) Unsatisfied(b *Blocks) []string {
	var missing []string
	for _, x := range b.Names {
		want, ok := b.GoalSupport[x]
		if !ok {
			continue
		}
		if got := s.support[x]; got != want {
			if want == Table {
				missing = append(missing, fmt.Sprintf("(on-table %s)", x))
			} else {
				missing = append(missing, fmt.Sprintf("(on %s %s)", x, want))
			}
		}
	}
	if b.GoalHeld != "" && s.held != b.GoalHeld {
		missing = append(missing, fmt.Sprintf("(holding %s)", b.GoalHeld))
	}
	return missing
}

func badArity(a types.Action, want int) error {
	return fmt.Errorf("%s: expected %d argument(s)", a, want)
}
