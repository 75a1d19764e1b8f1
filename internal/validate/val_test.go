package validate

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"plansynth/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpret(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		stderr string
		valid  bool
		diag   string
	}{
		{"valid", "Plan executed successfully - checking goal\nPlan valid\n", "", true, ""},
		{"bad operator", "", "Error: Bad operator in plan!", false, DiagBadOperator},
		{"type checking", "", "Error: Error in type-checking!", false, DiagTypeChecking},
		{"failed to execute", "Plan failed to execute\nPlan valid", "", false, DiagFailedToExecute},
		{"bad description", "Bad plan description!", "", false, DiagBadDescription},
		{"goal", "Plan executed successfully - checking goal\nGoal not satisfied\nPlan invalid", "", false, DiagGoalNotMet},
		{"unknown", "something else", "", false, DiagUnknown},
		{"valid without execution marker", "Plan valid", "", false, DiagUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Interpret(tt.stdout, tt.stderr)
			assert.Equal(t, tt.valid, res.Valid)
			assert.Equal(t, tt.diag, res.Diagnostic)
			assert.Equal(t, tt.stdout, res.Output)
		})
	}
}

func TestNewDefaults(t *testing.T) {
	v := New("", 0, 0)
	assert.Equal(t, DefaultBinary, v.Binary)
	assert.Equal(t, DefaultTolerance, v.Tolerance)
	assert.Equal(t, DefaultTimeout, v.Timeout)
}

// fakeVAL writes a shell script that echoes its arguments and then out.
func fakeVAL(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake validator is a shell script")
	}
	path := filepath.Join(t.TempDir(), "Validate")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func inputs(t *testing.T) (string, string, string) {
	t.Helper()
	dir := t.TempDir()
	domain := filepath.Join(dir, "domain.pddl")
	problem := filepath.Join(dir, "p01.pddl")
	plan := filepath.Join(dir, "p01.pddl.soln")
	require.NoError(t, os.WriteFile(domain, []byte("(define (domain blocksworld))"), 0o644))
	require.NoError(t, os.WriteFile(problem, []byte("(define (problem p01))"), 0o644))
	require.NoError(t, WritePlan(plan, types.Plan{types.NewAction("pickup", "b1")}))
	return domain, problem, plan
}

func TestValidateRunsBinary(t *testing.T) {
	bin := fakeVAL(t, `[ "$1" = "-v" ] && [ "$2" = "-t" ] && [ "$3" = "0.001" ] || exit 3
echo "Plan executed successfully - checking goal"
echo "Plan valid"`)
	domain, problem, plan := inputs(t)

	res, err := New(bin, 0, time.Minute).Validate(context.Background(), domain, problem, plan)
	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestValidateNonZeroExitIsAResult(t *testing.T) {
	bin := fakeVAL(t, `echo "Error: Bad operator in plan!" >&2
exit 1`)
	domain, problem, plan := inputs(t)

	res, err := New(bin, 0, time.Minute).Validate(context.Background(), domain, problem, plan)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, DiagBadOperator, res.Diagnostic)
}

func TestValidateTimeout(t *testing.T) {
	bin := fakeVAL(t, "exec sleep 5")
	domain, problem, plan := inputs(t)

	_, err := New(bin, 0, 50*time.Millisecond).Validate(context.Background(), domain, problem, plan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestValidateCancelledIsNotAVerdict(t *testing.T) {
	bin := fakeVAL(t, "exec sleep 5")
	domain, problem, plan := inputs(t)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	defer cancel()

	res, err := New(bin, 0, 10*time.Second).Validate(ctx, domain, problem, plan)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, err.Error(), "timed out")
}

func TestValidateMissingInputs(t *testing.T) {
	_, err := New("Validate", 0, 0).Validate(context.Background(), "nope.pddl", "nope.pddl", "nope.soln")
	assert.Error(t, err)
}

func TestValidateMissingBinary(t *testing.T) {
	domain, problem, plan := inputs(t)
	_, err := New(filepath.Join(t.TempDir(), "no-such-validator"), 0, 0).Validate(context.Background(), domain, problem, plan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to run")
}

func TestWritePlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan")
	require.NoError(t, WritePlan(path, types.Plan{types.NewAction("pickup", "a"), types.NewAction("stack", "a", "b")}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "(pickup a)\n(stack a b)\n", string(data))

	require.NoError(t, WritePlan(path, types.Plan{}))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}
