package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestFactString(t *testing.T) {
	f := NewFact("ON", "B1", "b2")
	if got, want := f.String(), "(on b1 b2)"; got != want {
		t.Fatalf("unexpected fact string: want %s, got %s", want, got)
	}
	if got := NewFact("arm-empty").String(); got != "(arm-empty)" {
		t.Fatalf("unexpected nullary fact string: %s", got)
	}
	if f.Arg(5) != "" {
		t.Fatalf("expected empty arg for out of range index")
	}
}

func TestParseActionCanonicalizes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"(unstack b2 b1)", "(unstack b2 b1)"},
		{"  ( PICKUP   B1 )  ", "(pickup b1)"},
		{"(drive-truck t0 l1-0\tl1-1 c1)", "(drive-truck t0 l1-0 l1-1 c1)"},
		{"(noop)", "(noop)"},
	}
	for _, tt := range tests {
		a, err := ParseAction(tt.in)
		if err != nil {
			t.Fatalf("ParseAction(%q) error: %v", tt.in, err)
		}
		if a.String() != tt.want {
			t.Errorf("ParseAction(%q) = %s, want %s", tt.in, a.String(), tt.want)
		}
	}
}

func TestParseActionRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "pickup b1", "(pickup b1", "()", "(a (b))"} {
		if _, err := ParseAction(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestParsePlanSkipsCommentsAndBlanks(t *testing.T) {
	text := "(pickup b1)\n\n; cost = 2 (unit cost)\n(stack b1 b2)\n"
	plan, err := ParsePlan(text)
	if err != nil {
		t.Fatalf("ParsePlan error: %v", err)
	}
	if len(plan) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(plan))
	}
	if plan.String() != "(pickup b1)\n(stack b1 b2)" {
		t.Fatalf("unexpected plan text: %q", plan.String())
	}
}

func TestParsePlanReportsLine(t *testing.T) {
	_, err := ParsePlan("(pickup b1)\nstack b1 b2\n")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Line != 2 {
		t.Fatalf("expected line 2, got %d", pe.Line)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&ParseError{Msg: "x"}, "parse"},
		{fmt.Errorf("wrapped: %w", &InvalidStateError{Msg: "two holds"}), "invalid_state"},
		{&MissingInitialStateError{Entity: "p0"}, "missing_initial_state"},
		{&UnknownLocationError{Location: "l9"}, "unknown_location"},
		{&UnreachableGoalError{Package: "p0", Reason: "no truck"}, "unreachable_goal"},
		{&LandmarkNotFoundError{Landmark: "(pickup b1)"}, "landmark_not_found"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
