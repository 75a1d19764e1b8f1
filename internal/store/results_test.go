package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"plansynth/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *ResultStore {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func boolPtr(b bool) *bool { return &b }

func TestResultStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	run, err := s.StartRun(ctx, "nightly")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	plan := types.Plan{types.NewAction("pickup", "b1"), types.NewAction("stack", "b1", "b2")}
	require.NoError(t, s.Record(ctx, Result{
		RunID: run.ID, Instance: "blocksworld/p02.pddl", Domain: "blocksworld",
		Actions: 2, Valid: boolPtr(true), Plan: plan, Duration: 12 * time.Millisecond,
	}))
	require.NoError(t, s.Record(ctx, Result{
		RunID: run.ID, Instance: "blocksworld/p01.pddl", Domain: "blocksworld",
		Plan: types.Plan{},
	}))
	require.NoError(t, s.Record(ctx, Result{
		RunID: run.ID, Instance: "logistics/p01.pddl", Domain: "logistics",
		ErrorKind: "unreachable_goal", Error: "goal of p0 unreachable: no truck in city c1",
	}))

	got, err := s.Results(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "blocksworld/p01.pddl", got[0].Instance, "ordered by instance")
	assert.Equal(t, types.Plan{}, got[0].Plan)
	assert.Nil(t, got[0].Valid)

	if diff := cmp.Diff(plan, got[1].Plan); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
	require.NotNil(t, got[1].Valid)
	assert.True(t, *got[1].Valid)
	assert.Equal(t, 12*time.Millisecond, got[1].Duration)

	assert.False(t, got[2].Solved())
	assert.Nil(t, got[2].Plan)
	assert.Equal(t, "unreachable_goal", got[2].ErrorKind)
}

func TestResultStoreRecordReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	run, err := s.StartRun(ctx, "")
	require.NoError(t, err)

	r := Result{RunID: run.ID, Instance: "p01.pddl", Domain: "blocksworld", Error: "boom", ErrorKind: "error"}
	require.NoError(t, s.Record(ctx, r))
	r.Error, r.ErrorKind, r.Plan, r.Actions = "", "", types.Plan{types.NewAction("pickup", "a")}, 1
	require.NoError(t, s.Record(ctx, r))

	got, err := s.Results(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Solved())
	assert.Equal(t, 1, got[0].Actions)
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	run, err := s.StartRun(ctx, "")
	require.NoError(t, err)

	records := []Result{
		{Instance: "b1", Domain: "blocksworld", Plan: types.Plan{}, Valid: boolPtr(true)},
		{Instance: "b2", Domain: "blocksworld", Plan: types.Plan{}, Valid: boolPtr(false)},
		{Instance: "b3", Domain: "blocksworld", Error: "x", ErrorKind: "invalid_state"},
		{Instance: "l1", Domain: "logistics", Plan: types.Plan{}},
		{Instance: "l2", Domain: "logistics", Error: "y", ErrorKind: "unreachable_goal"},
		{Instance: "l3", Domain: "logistics", Error: "z", ErrorKind: "unreachable_goal"},
	}
	for _, r := range records {
		r.RunID = run.ID
		require.NoError(t, s.Record(ctx, r))
	}

	got, err := s.Summary(ctx, run.ID)
	require.NoError(t, err)
	want := []DomainSummary{
		{Domain: "blocksworld", Instances: 3, Solved: 2, Valid: 1, Invalid: 1, Failed: 1, Errors: map[string]int{"invalid_state": 1}},
		{Domain: "logistics", Instances: 3, Solved: 1, Failed: 2, Errors: map[string]int{"unreachable_goal": 2}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestLatestRun(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "results.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.LatestRun(ctx)
	assert.ErrorIs(t, err, ErrNoRuns)

	_, err = s.StartRun(ctx, "first")
	require.NoError(t, err)
	second, err := s.StartRun(ctx, "second")
	require.NoError(t, err)

	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, "second", latest.Label)
	assert.WithinDuration(t, second.StartedAt, latest.StartedAt, time.Millisecond)
}

func TestCompressPlan(t *testing.T) {
	blob, err := compressPlan(nil)
	require.NoError(t, err)
	assert.Nil(t, blob)

	blob, err = compressPlan(types.Plan{})
	require.NoError(t, err)
	assert.NotEmpty(t, blob)
	plan, err := decompressPlan(blob)
	require.NoError(t, err)
	assert.Equal(t, types.Plan{}, plan)

	_, err = decompressPlan([]byte("not zstd"))
	assert.Error(t, err)
}
