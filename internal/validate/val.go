// Package validate runs the external VAL plan validator and interprets its
// output. VAL is the authority on plan correctness; the simulators in the
// world package are only a development aid.
package validate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"plansynth/internal/logging"
	"plansynth/internal/types"
)

const (
	DefaultBinary    = "Validate"
	DefaultTolerance = 0.001
	DefaultTimeout   = 60 * time.Second
)

// Diagnostics reported when VAL rejects a plan.
const (
	DiagBadOperator     = "bad operator in plan"
	DiagTypeChecking    = "error in type-checking"
	DiagFailedToExecute = "plan failed to execute"
	DiagBadDescription  = "bad plan description"
	DiagGoalNotMet      = "goal not satisfied"
	DiagUnknown         = "unknown validation result"
)

// Result is the outcome of one validation.
type Result struct {
	Valid      bool
	Diagnostic string
	// Output is VAL's stdout, kept for reports.
	Output string
}

// Validator checks a plan file against a domain and problem.
type Validator interface {
	Validate(ctx context.Context, domain, problem, plan string) (*Result, error)
}

// VAL invokes the Validate binary as a subprocess.
type VAL struct {
	Binary    string
	Tolerance float64
	Timeout   time.Duration
}

// New returns a VAL adapter with defaults filled in for zero fields.
func New(binary string, tolerance float64, timeout time.Duration) *VAL {
	v := &VAL{Binary: binary, Tolerance: tolerance, Timeout: timeout}
	if v.Binary == "" {
		v.Binary = DefaultBinary
	}
	if v.Tolerance <= 0 {
		v.Tolerance = DefaultTolerance
	}
	if v.Timeout <= 0 {
		v.Timeout = DefaultTimeout
	}
	return v
}

// Validate runs VAL on the three files. An error means VAL could not be run
// at all; a rejected plan is a Result with Valid false.
func (v *VAL) Validate(ctx context.Context, domain, problem, plan string) (*Result, error) {
	timer := logging.StartTimer(logging.CategoryValidate, "VAL "+plan)
	defer timer.Stop()

	for _, path := range []string{domain, problem, plan} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("validate: %w", err)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, v.Timeout)
	defer cancel()

	args := []string{"-v", "-t", strconv.FormatFloat(v.Tolerance, 'g', -1, 64), domain, problem, plan}
	cmd := exec.CommandContext(runCtx, v.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	logging.ValidateDebug("running %s %s", v.Binary, strings.Join(args, " "))
	err := cmd.Run()
	if ctxErr := runCtx.Err(); ctxErr != nil {
		if ctx.Err() == nil && errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("validate: %s timed out after %s", v.Binary, v.Timeout)
		}
		return nil, fmt.Errorf("validate: %w", ctxErr)
	}
	if err != nil {
		// VAL exits non-zero for some invalid plans; only a failure to start
		// is fatal.
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("validate: failed to run %s: %w", v.Binary, err)
		}
		logging.ValidateDebug("%s exited with code %d", v.Binary, exitErr.ExitCode())
	}

	res := Interpret(stdout.String(), stderr.String())
	if res.Valid {
		logging.ValidateDebug("plan %s is valid", plan)
	} else {
		logging.Validate("plan %s rejected: %s", plan, res.Diagnostic)
	}
	return res, nil
}

// Interpret maps VAL's output to a Result. Checks run in a fixed order so a
// plan that fails several ways reports the earliest failure.
func Interpret(stdout, stderr string) *Result {
	res := &Result{Output: stdout}
	switch {
	case strings.Contains(stderr, "Bad operator in plan"):
		res.Diagnostic = DiagBadOperator
	case strings.Contains(stderr, "Error in type-checking"):
		res.Diagnostic = DiagTypeChecking
	case strings.Contains(stdout, "Plan failed to execute"):
		res.Diagnostic = DiagFailedToExecute
	case strings.Contains(stdout, "Bad plan description!"):
		res.Diagnostic = DiagBadDescription
	case strings.Contains(stdout, "Goal not satisfied"), strings.Contains(stdout, "Plan invalid"):
		res.Diagnostic = DiagGoalNotMet
	case strings.Contains(stdout, "Plan executed successfully - checking goal") && strings.Contains(stdout, "Plan valid"):
		res.Valid = true
	default:
		res.Diagnostic = DiagUnknown
	}
	return res
}

// WritePlan writes plan in the one-action-per-line format VAL reads.
func WritePlan(path string, plan types.Plan) error {
	text := plan.String()
	if text != "" {
		text += "\n"
	}
	return os.WriteFile(path, []byte(text), 0o644)
}
