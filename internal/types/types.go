// Package types provides shared type definitions used across plansynth packages.
// Facts, actions and plans live here so the parser, the synthesizers and the
// landmark orderer agree on a single canonical serialization.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// FACTS
// =============================================================================

// Fact is a single ground atom from an :init or :goal section, e.g. (on b1 b2).
type Fact struct {
	Predicate string
	Args      []string
}

// NewFact builds a fact with canonical (lower-case) symbols.
func NewFact(predicate string, args ...string) Fact {
	f := Fact{Predicate: strings.ToLower(predicate), Args: make([]string, len(args))}
	for i, a := range args {
		f.Args[i] = strings.ToLower(a)
	}
	return f
}

// String returns the PDDL representation of the fact.
func (f Fact) String() string {
	if len(f.Args) == 0 {
		return "(" + f.Predicate + ")"
	}
	return "(" + f.Predicate + " " + strings.Join(f.Args, " ") + ")"
}

// Arity returns the number of arguments.
func (f Fact) Arity() int {
	return len(f.Args)
}

// Arg returns the i-th argument or "" when out of range.
func (f Fact) Arg(i int) string {
	if i < 0 || i >= len(f.Args) {
		return ""
	}
	return f.Args[i]
}

// =============================================================================
// ACTIONS AND PLANS
// =============================================================================

// Action is a ground action in canonical form: lower-case name and arguments.
// Its String form, "(name a1 a2)", is the serialization shared by every
// component that emits or matches plan text.
type Action struct {
	Name string
	Args []string
}

// NewAction builds a canonical action.
func NewAction(name string, args ...string) Action {
	a := Action{Name: strings.ToLower(name), Args: make([]string, len(args))}
	for i, arg := range args {
		a.Args[i] = strings.ToLower(arg)
	}
	return a
}

// String renders the canonical serialization.
func (a Action) String() string {
	if len(a.Args) == 0 {
		return "(" + a.Name + ")"
	}
	return "(" + a.Name + " " + strings.Join(a.Args, " ") + ")"
}

// Equal reports whether two actions are identical.
func (a Action) Equal(b Action) bool {
	if a.Name != b.Name || len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if a.Args[i] != b.Args[i] {
			return false
		}
	}
	return true
}

// ParseAction parses "(name a b)" with arbitrary whitespace and case into its
// canonical form. Surrounding whitespace is ignored.
func ParseAction(s string) (Action, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return Action{}, &ParseError{Msg: fmt.Sprintf("action %q is not parenthesized", s)}
	}
	inner := s[1 : len(s)-1]
	if strings.ContainsAny(inner, "()") {
		return Action{}, &ParseError{Msg: fmt.Sprintf("action %q contains nested parentheses", s)}
	}
	fields := strings.Fields(inner)
	if len(fields) == 0 {
		return Action{}, &ParseError{Msg: "empty action"}
	}
	return NewAction(fields[0], fields[1:]...), nil
}

// Plan is an ordered action sequence.
type Plan []Action

// String renders one action per line, without a trailing newline.
func (p Plan) String() string {
	lines := make([]string, len(p))
	for i, a := range p {
		lines[i] = a.String()
	}
	return strings.Join(lines, "\n")
}

// Lines returns the canonical serialization of each action.
func (p Plan) Lines() []string {
	lines := make([]string, len(p))
	for i, a := range p {
		lines[i] = a.String()
	}
	return lines
}

// ParsePlan parses plan text, one action per line. Blank lines and ';'
// comment lines (e.g. "; cost = 12 (unit cost)") are skipped.
func ParsePlan(text string) (Plan, error) {
	var plan Plan
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		a, err := ParseAction(line)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Line = i + 1
			}
			return nil, err
		}
		plan = append(plan, a)
	}
	return plan, nil
}
