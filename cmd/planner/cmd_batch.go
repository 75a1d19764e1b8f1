package main

import (
	"fmt"
	"io"
	"strconv"

	"plansynth/internal/batch"
	"plansynth/internal/store"
	"plansynth/internal/types"
	"plansynth/internal/validate"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	batchWorkers   int
	batchSolutions string
	batchLabel     string
	batchNoStore   bool
	batchValidate  bool
)

var batchCmd = &cobra.Command{
	Use:   "batch [dir]",
	Short: "Solve every problem under a directory",
	Long: `Walks dir for *.pddl problems (skipping domain.pddl and hidden directories),
writes a .soln file per solved instance and prints a per-domain summary.
Failures are reported and the batch continues. Results are recorded in the
result store unless --no-store is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "j", 0, "Concurrent instances (default from config)")
	batchCmd.Flags().StringVar(&batchSolutions, "solutions-dir", "", "Write solutions under this directory")
	batchCmd.Flags().StringVar(&batchLabel, "label", "", "Label for the recorded run")
	batchCmd.Flags().BoolVar(&batchNoStore, "no-store", false, "Do not record results")
	batchCmd.Flags().BoolVar(&batchValidate, "validate", false, "Validate each plan with VAL")
}

func runBatch(cmd *cobra.Command, args []string) error {
	runner := &batch.Runner{
		Workers:       cfg.GetWorkers(),
		SolutionsDir:  cfg.Batch.SolutionsDir,
		SlowThreshold: cfg.GetSlowInstanceThreshold(),
		Label:         batchLabel,
	}
	if batchWorkers > 0 {
		runner.Workers = batchWorkers
	}
	if batchSolutions != "" {
		runner.SolutionsDir = batchSolutions
	}
	if batchValidate || cfg.Validator.Enabled {
		runner.Validator = validate.New(cfg.Validator.Binary, cfg.Validator.Tolerance, cfg.GetValidatorTimeout())
	}
	if cfg.Store.Enabled && !batchNoStore {
		rs, err := store.Open(cfg.Store.DatabasePath)
		if err != nil {
			return err
		}
		defer rs.Close()
		runner.Store = rs
	}

	report, err := runner.Run(cmd.Context(), args[0])
	if report != nil {
		printReport(cmd.OutOrStdout(), report)
	}
	return err
}

func printReport(w io.Writer, report *batch.Report) {
	for _, o := range report.Outcomes {
		if o.Err != nil {
			fmt.Fprintf(w, "FAIL  %s [%s] %v\n", o.Instance, types.Kind(o.Err), o.Err)
		} else if o.Valid != nil && !*o.Valid {
			fmt.Fprintf(w, "BAD   %s %s\n", o.Instance, o.Diagnostic)
		}
	}

	rows := make([][]string, 0, len(report.Domains))
	for _, d := range report.Domains {
		rows = append(rows, []string{
			d.Domain,
			strconv.Itoa(d.Instances),
			strconv.Itoa(d.Solved),
			strconv.Itoa(d.Valid),
			strconv.Itoa(d.Invalid),
			strconv.Itoa(d.Failed),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("domain", "instances", "solved", "valid", "invalid", "failed").
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
	if report.RunID != "" {
		fmt.Fprintf(w, "run %s\n", report.RunID)
	}
}
