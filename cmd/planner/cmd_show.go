package main

import (
	"fmt"
	"os"
	"path/filepath"

	"plansynth/internal/pddl"
	"plansynth/internal/render"
	"plansynth/internal/synth"
	"plansynth/internal/types"
	"plansynth/internal/world"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	showStep     bool
	showPlanFile string
)

var showCmd = &cobra.Command{
	Use:   "show [problem]",
	Short: "Draw a problem, or step through its plan",
	Long: `Draws the initial and goal configuration of a problem. With --step an
interactive viewer replays the synthesized plan (or --plan) one action at a
time.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showStep, "step", false, "Step through the plan interactively")
	showCmd.Flags().StringVar(&showPlanFile, "plan", "", "Plan file to step through instead of synthesizing")
}

func runShow(cmd *cobra.Command, args []string) error {
	p, err := (&pddl.Reader{}).ReadProblem(args[0])
	if err != nil {
		return err
	}
	kind, err := p.Kind()
	if err != nil {
		return err
	}

	var (
		view  string
		state render.Simulator
	)
	switch kind {
	case pddl.KindBlocks:
		b, err := world.BuildBlocks(p)
		if err != nil {
			return err
		}
		view, state = render.Blocks(b), b.InitialState()
	case pddl.KindLogistics:
		l, err := world.BuildLogistics(p)
		if err != nil {
			return err
		}
		view, state = render.Logistics(l), l.InitialState()
	}

	if !showStep {
		fmt.Fprintln(cmd.OutOrStdout(), view)
		return nil
	}

	var plan types.Plan
	if showPlanFile != "" {
		data, err := os.ReadFile(showPlanFile)
		if err != nil {
			return err
		}
		if plan, err = types.ParsePlan(string(data)); err != nil {
			return fmt.Errorf("%s: %w", showPlanFile, err)
		}
	} else if plan, err = synth.Solve(p); err != nil {
		return err
	}

	stepper := render.NewStepper(filepath.Base(args[0]), state, plan)
	_, err = tea.NewProgram(stepper, tea.WithContext(cmd.Context())).Run()
	return err
}
