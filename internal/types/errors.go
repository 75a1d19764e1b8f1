package types

import (
	"errors"
	"fmt"
)

// ParseError reports malformed problem, plan or landmark text.
type ParseError struct {
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Col, e.Msg)
	}
	return "parse error: " + e.Msg
}

// InvalidStateError reports a structurally impossible state, such as two held
// blocks or a cycle in the on relation.
type InvalidStateError struct {
	Msg string
}

func (e *InvalidStateError) Error() string {
	return "invalid state: " + e.Msg
}

// MissingInitialStateError reports an entity that has no initial position.
type MissingInitialStateError struct {
	Entity string
}

func (e *MissingInitialStateError) Error() string {
	return fmt.Sprintf("%s has no initial state", e.Entity)
}

// UnknownLocationError reports a location that was never declared, or that
// belongs to no city.
type UnknownLocationError struct {
	Location string
	Reason   string
}

func (e *UnknownLocationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unknown location %s: %s", e.Location, e.Reason)
	}
	return "unknown location " + e.Location
}

// UnreachableGoalError reports that no truck, airplane or airport route can
// bring a package to its goal.
type UnreachableGoalError struct {
	Package string
	Reason  string
}

func (e *UnreachableGoalError) Error() string {
	return fmt.Sprintf("goal of %s unreachable: %s", e.Package, e.Reason)
}

// LandmarkNotFoundError reports a landmark that does not occur in the
// reference plan.
type LandmarkNotFoundError struct {
	Landmark string
}

func (e *LandmarkNotFoundError) Error() string {
	return fmt.Sprintf("landmark %s not found in plan", e.Landmark)
}

// Kind returns a short stable name for the error class of err, used in logs
// and persisted results. Unclassified errors map to "error"; nil maps to "".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var (
		parseErr    *ParseError
		stateErr    *InvalidStateError
		missingErr  *MissingInitialStateError
		locErr      *UnknownLocationError
		unreachErr  *UnreachableGoalError
		landmarkErr *LandmarkNotFoundError
	)
	switch {
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &stateErr):
		return "invalid_state"
	case errors.As(err, &missingErr):
		return "missing_initial_state"
	case errors.As(err, &locErr):
		return "unknown_location"
	case errors.As(err, &unreachErr):
		return "unreachable_goal"
	case errors.As(err, &landmarkErr):
		return "landmark_not_found"
	default:
		return "error"
	}
}
