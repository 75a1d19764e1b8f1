package synth

import (
	"os"
	"path/filepath"
	"testing"

	"plansynth/internal/pddl"
	"plansynth/internal/types"
	"plansynth/internal/world"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func problem(t *testing.T, src string) *pddl.Problem {
	t.Helper()
	p, err := pddl.ParseProblem(src)
	require.NoError(t, err)
	return p
}

func testdata(t *testing.T, name string) *pddl.Problem {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "pddl", "testdata", name))
	require.NoError(t, err)
	return problem(t, string(data))
}

func plan(t *testing.T, lines ...string) types.Plan {
	t.Helper()
	p := make(types.Plan, 0, len(lines))
	for _, l := range lines {
		a, err := types.ParseAction(l)
		require.NoError(t, err)
		p = append(p, a)
	}
	return p
}

func blocksProblem(objects, init, goal string) string {
	return "(define (problem t) (:domain blocksworld) (:objects " + objects +
		") (:init " + init + ") (:goal (and " + goal + ")))"
}

// replayBlocks checks that plan reaches the goal from the initial state.
func replayBlocks(t *testing.T, p *pddl.Problem, got types.Plan) {
	t.Helper()
	b, err := world.BuildBlocks(p)
	require.NoError(t, err)
	s := b.InitialState()
	for _, a := range got {
		require.NoError(t, s.Apply(a))
	}
	assert.Empty(t, s.Unsatisfied(b))
}

func TestSolveDispatch(t *testing.T) {
	s, err := ForProblem(testdata(t, "blocks_p01.pddl"))
	require.NoError(t, err)
	assert.IsType(t, Blocks{}, s)

	s, err = ForProblem(testdata(t, "logistics_p01.pddl"))
	require.NoError(t, err)
	assert.IsType(t, Logistics{}, s)

	_, err = Solve(problem(t, "(define (problem x) (:domain gripper) (:init (free left)) (:goal (free right)))"))
	var parseErr *types.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestBlocksScenario(t *testing.T) {
	p := testdata(t, "blocks_p01.pddl")
	got, err := Solve(p)
	require.NoError(t, err)

	want := plan(t, "(pickup b1)", "(stack b1 b2)")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "(pickup b1)\n(stack b1 b2)", got.String())
}

func TestBlocksPlans(t *testing.T) {
	tests := []struct {
		name    string
		objects string
		init    string
		goal    string
		want    []string
	}{
		{
			name:    "goal already satisfied",
			objects: "a b c",
			init:    "(on a b) (on-table b) (on-table c) (arm-empty)",
			goal:    "(on a b) (on-table c)",
			want:    nil,
		},
		{
			name:    "reverse a tower",
			objects: "a b c",
			init:    "(on a b) (on b c) (on-table c) (arm-empty)",
			goal:    "(on c b) (on b a)",
			want: []string{
				"(unstack a b)", "(putdown a)",
				"(unstack b c)", "(putdown b)",
				"(pickup b)", "(stack b a)",
				"(pickup c)", "(stack c b)",
			},
		},
		{
			name:    "keep the correct base",
			objects: "a b c d",
			init:    "(on d b) (on b a) (on-table a) (on-table c) (arm-empty)",
			goal:    "(on b a) (on c b)",
			want:    []string{"(unstack d b)", "(putdown d)", "(pickup c)", "(stack c b)"},
		},
		{
			name:    "held block put down first",
			objects: "a b",
			init:    "(holding a) (on-table b)",
			goal:    "(on a b)",
			want:    []string{"(putdown a)", "(pickup a)", "(stack a b)"},
		},
		{
			name:    "held block stays held",
			objects: "a b",
			init:    "(holding a) (on-table b)",
			goal:    "(holding a)",
			want:    nil,
		},
		{
			name:    "goal holds a buried block",
			objects: "a b",
			init:    "(on a b) (on-table b) (arm-empty)",
			goal:    "(holding b)",
			want:    []string{"(unstack a b)", "(putdown a)", "(pickup b)"},
		},
		{
			name:    "unconstrained block on a reserved base",
			objects: "a b c",
			init:    "(on c a) (on-table a) (on-table b) (arm-empty)",
			goal:    "(on b a)",
			want:    []string{"(unstack c a)", "(putdown c)", "(pickup b)", "(stack b a)"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := problem(t, blocksProblem(tt.objects, tt.init, tt.goal))
			got, err := Blocks{}.Synthesize(p)
			require.NoError(t, err)

			want := plan(t, tt.want...)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("plan mismatch (-want +got):\n%s", diff)
			}
			if len(tt.want) == 0 {
				assert.NotNil(t, got, "empty plans are non-nil")
				return
			}
			replayBlocks(t, p, got)
		})
	}
}

func TestBlocksGoalCycle(t *testing.T) {
	p := problem(t, blocksProblem("a b", "(on-table a) (on-table b) (arm-empty)", "(on a b) (on b a)"))
	_, err := Blocks{}.Synthesize(p)
	var target *types.InvalidStateError
	assert.ErrorAs(t, err, &target)
}

func TestBlocksInitialCycle(t *testing.T) {
	p := problem(t, blocksProblem("a b", "(on a b) (on b a)", "(on-table a)"))
	_, err := Blocks{}.Synthesize(p)
	var target *types.InvalidStateError
	assert.ErrorAs(t, err, &target)
}

func TestBlocksDeterministic(t *testing.T) {
	p := problem(t, blocksProblem("a b c d e",
		"(on e d) (on d c) (on-table c) (on b a) (on-table a) (arm-empty)",
		"(on a b) (on b c) (on c d) (on d e) (on-table e)"))
	first, err := Solve(p)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Solve(p)
		require.NoError(t, err)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
	replayBlocks(t, p, first)
}

func TestLogisticsScenario(t *testing.T) {
	got, err := Solve(testdata(t, "logistics_p01.pddl"))
	require.NoError(t, err)

	want := plan(t,
		"(drive-truck t2 l2-1 l2-2 c2)",
		"(load-truck p0 t2 l2-2)",
		"(drive-truck t2 l2-2 l2-0 c2)",
		"(unload-truck p0 t2 l2-0)",
		"(fly-airplane a0 l1-0 l2-0)",
		"(load-airplane p0 a0 l2-0)",
		"(fly-airplane a0 l2-0 l1-0)",
		"(unload-airplane p0 a0 l1-0)",
	)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
}

const logisticsHeader = `(define (problem t) (:domain logistics)
  (:init
    (city c1) (city c2)
    (location a1) (airport a1) (in-city a1 c1)
    (location x1) (in-city x1 c1)
    (location y1) (in-city y1 c1)
    (location a2) (airport a2) (in-city a2 c2)
    (location x2) (in-city x2 c2)
`

func logisticsProblem(init, goal string) string {
	return logisticsHeader + init + ")\n  (:goal (and " + goal + ")))"
}

func TestLogisticsPlans(t *testing.T) {
	tests := []struct {
		name string
		init string
		goal string
		want []string
	}{
		{
			name: "already delivered",
			init: "(obj p) (at p x1) (truck t) (at t x1)",
			goal: "(at p x1)",
			want: nil,
		},
		{
			name: "same city prefers truck on the spot",
			init: "(obj p) (at p x1) (truck ta) (at ta y1) (truck tb) (at tb x1)",
			goal: "(at p y1)",
			want: []string{"(load-truck p tb x1)", "(drive-truck tb x1 y1 c1)", "(unload-truck p tb y1)"},
		},
		{
			name: "same city picks smallest truck in city",
			init: "(obj p) (at p x1) (truck tz) (at tz a1) (truck ty) (at ty y1) (truck tx) (at tx x2)",
			goal: "(at p y1)",
			want: []string{
				"(drive-truck ty y1 x1 c1)", "(load-truck p ty x1)",
				"(drive-truck ty x1 y1 c1)", "(unload-truck p ty y1)",
			},
		},
		{
			name: "package starts inside a truck",
			init: "(obj p) (truck t) (at t y1) (in p t)",
			goal: "(at p x1)",
			want: []string{
				"(unload-truck p t y1)",
				"(load-truck p t y1)", "(drive-truck t y1 x1 c1)", "(unload-truck p t x1)",
			},
		},
		{
			name: "airport to airport",
			init: "(obj p) (at p a1) (airplane pl2) (at pl2 a2) (airplane pl1) (at pl1 a1)",
			goal: "(at p a2)",
			want: []string{"(load-airplane p pl1 a1)", "(fly-airplane pl1 a1 a2)", "(unload-airplane p pl1 a2)"},
		},
		{
			name: "full route",
			init: "(obj p) (at p x1) (truck t1) (at t1 x1) (truck t2) (at t2 x2) (airplane pl) (at pl a2)",
			goal: "(at p x2)",
			want: []string{
				"(load-truck p t1 x1)", "(drive-truck t1 x1 a1 c1)", "(unload-truck p t1 a1)",
				"(fly-airplane pl a2 a1)", "(load-airplane p pl a1)", "(fly-airplane pl a1 a2)", "(unload-airplane p pl a2)",
				"(drive-truck t2 x2 a2 c2)", "(load-truck p t2 a2)", "(drive-truck t2 a2 x2 c2)", "(unload-truck p t2 x2)",
			},
		},
		{
			name: "packages in sorted order",
			init: "(obj q) (obj p) (at p x1) (at q y1) (truck t) (at t x1)",
			goal: "(at q x1) (at p y1)",
			want: []string{
				"(load-truck p t x1)", "(drive-truck t x1 y1 c1)", "(unload-truck p t y1)",
				"(load-truck q t y1)", "(drive-truck t y1 x1 c1)", "(unload-truck q t x1)",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := problem(t, logisticsProblem(tt.init, tt.goal))
			got, err := Logistics{}.Synthesize(p)
			require.NoError(t, err)
			if diff := cmp.Diff(plan(t, tt.want...), got); diff != "" {
				t.Errorf("plan mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLogisticsErrors(t *testing.T) {
	t.Run("no initial location", func(t *testing.T) {
		p := problem(t, logisticsProblem("(obj p) (truck t) (at t x1)", "(at p y1)"))
		_, err := Logistics{}.Synthesize(p)
		var target *types.MissingInitialStateError
		assert.ErrorAs(t, err, &target)
	})
	t.Run("goal location unknown", func(t *testing.T) {
		p := problem(t, logisticsProblem("(obj p) (at p x1) (truck t) (at t x1)", "(at p nowhere)"))
		_, err := Logistics{}.Synthesize(p)
		var target *types.UnknownLocationError
		assert.ErrorAs(t, err, &target)
	})
	t.Run("initial location unknown", func(t *testing.T) {
		p := problem(t, logisticsProblem("(obj p) (at p nowhere) (truck t) (at t x1)", "(at p y1)"))
		_, err := Logistics{}.Synthesize(p)
		var target *types.UnknownLocationError
		require.ErrorAs(t, err, &target)
		assert.Equal(t, "nowhere", target.Location)
		assert.Equal(t, "not declared", target.Reason)
	})
	t.Run("initial location without city", func(t *testing.T) {
		p := problem(t, logisticsProblem("(location z) (obj p) (at p z) (truck t) (at t x1)", "(at p y1)"))
		_, err := Logistics{}.Synthesize(p)
		var target *types.UnknownLocationError
		require.ErrorAs(t, err, &target)
		assert.Equal(t, "z", target.Location)
		assert.Equal(t, "belongs to no city", target.Reason)
	})
	t.Run("no truck", func(t *testing.T) {
		p := problem(t, logisticsProblem("(obj p) (at p x1)", "(at p y1)"))
		_, err := Logistics{}.Synthesize(p)
		var target *types.UnreachableGoalError
		require.ErrorAs(t, err, &target)
		assert.Equal(t, "p", target.Package)
	})
	t.Run("no airplane", func(t *testing.T) {
		p := problem(t, logisticsProblem("(obj p) (at p a1)", "(at p a2)"))
		_, err := Logistics{}.Synthesize(p)
		var target *types.UnreachableGoalError
		assert.ErrorAs(t, err, &target)
	})
	t.Run("no airport", func(t *testing.T) {
		src := `(define (problem t) (:domain logistics)
		  (:init (city c1) (city c3) (location x1) (in-city x1 c1) (location a1) (airport a1) (in-city a1 c1)
		    (location z3) (in-city z3 c3) (obj p) (at p x1) (truck t) (at t x1) (airplane pl) (at pl a1))
		  (:goal (at p z3)))`
		_, err := Logistics{}.Synthesize(problem(t, src))
		var target *types.UnreachableGoalError
		assert.ErrorAs(t, err, &target)
	})
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "at-origin-airport", AtOriginAirport.String())
	assert.Equal(t, "stage(9)", Stage(9).String())
}
