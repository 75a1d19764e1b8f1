package main

import (
	"fmt"
	"os"
	"path/filepath"

	"plansynth/internal/batch"
	"plansynth/internal/logging"
	"plansynth/internal/pddl"
	"plansynth/internal/synth"
	"plansynth/internal/validate"

	"github.com/spf13/cobra"
)

var (
	solveOutput     string
	solveValidate   bool
	solveDomainFile string
)

var solveCmd = &cobra.Command{
	Use:   "solve [problem]",
	Short: "Synthesize a plan for one problem",
	Long: `Reads a blocksworld or logistics problem file and prints one action per line.
With -o the plan is written to a file instead. --validate runs VAL on the
result; the domain file defaults to the nearest domain.pddl above the problem.`,
	Args: cobra.ExactArgs(1),
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().StringVarP(&solveOutput, "output", "o", "", "Write the plan to this file")
	solveCmd.Flags().BoolVar(&solveValidate, "validate", false, "Validate the plan with VAL")
	solveCmd.Flags().StringVar(&solveDomainFile, "domain-file", "", "Domain file for validation")
}

func runSolve(cmd *cobra.Command, args []string) error {
	path := args[0]
	p, err := (&pddl.Reader{}).ReadProblem(path)
	if err != nil {
		return err
	}
	plan, err := synth.Solve(p)
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	planFile := solveOutput
	if planFile != "" {
		if err := validate.WritePlan(planFile, plan); err != nil {
			return err
		}
		logging.Synth("wrote %d actions to %s", len(plan), planFile)
	} else if len(plan) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), plan.String())
	}

	if !solveValidate {
		return nil
	}
	domain := solveDomainFile
	if domain == "" {
		found, ok := batch.FindDomain(filepath.Dir(path), "")
		if !ok {
			return fmt.Errorf("no %s found above %s; pass --domain-file", batch.DomainFile, path)
		}
		domain = found
	}
	if planFile == "" {
		tmp, err := os.CreateTemp("", "plan-*"+batch.SolutionSuffix)
		if err != nil {
			return err
		}
		planFile = tmp.Name()
		_ = tmp.Close()
		defer os.Remove(planFile)
		if err := validate.WritePlan(planFile, plan); err != nil {
			return err
		}
	}
	return reportValidation(cmd, domain, path, planFile)
}

// reportValidation runs the configured validator and prints its verdict. An
// invalid plan is an error so scripts can rely on the exit status.
func reportValidation(cmd *cobra.Command, domain, problem, plan string) error {
	v := validate.New(cfg.Validator.Binary, cfg.Validator.Tolerance, cfg.GetValidatorTimeout())
	res, err := v.Validate(cmd.Context(), domain, problem, plan)
	if err != nil {
		return err
	}
	if res.Valid {
		fmt.Fprintln(cmd.ErrOrStderr(), "plan valid")
		return nil
	}
	return fmt.Errorf("plan invalid: %s", res.Diagnostic)
}
