package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"plansynth/internal/store"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var (
	resultsRun    string
	resultsRender bool
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Summarize a recorded batch run",
	Long: `Prints a markdown report of a batch run from the result store: per-domain
totals, error kinds and failed instances. Defaults to the latest run.`,
	Args: cobra.NoArgs,
	RunE: runResults,
}

func init() {
	resultsCmd.Flags().StringVar(&resultsRun, "run", "", "Run ID (default: latest)")
	resultsCmd.Flags().BoolVar(&resultsRender, "render", false, "Render the report for the terminal")
}

func runResults(cmd *cobra.Command, args []string) error {
	rs, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return err
	}
	defer rs.Close()

	ctx := cmd.Context()
	runID, label := resultsRun, ""
	if runID == "" {
		run, err := rs.LatestRun(ctx)
		if errors.Is(err, store.ErrNoRuns) {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet. Use 'planner batch <dir>' first.")
			return nil
		}
		if err != nil {
			return err
		}
		runID, label = run.ID, run.Label
	}

	results, err := rs.Results(ctx, runID)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("run %s has no results", runID)
	}

	report := resultsMarkdown(runID, label, results)
	if resultsRender {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err != nil {
			return err
		}
		if report, err = r.Render(report); err != nil {
			return err
		}
	}
	fmt.Fprint(cmd.OutOrStdout(), report)
	return nil
}

func resultsMarkdown(runID, label string, results []store.Result) string {
	var sb strings.Builder
	sb.WriteString("# Run " + runID + "\n\n")
	if label != "" {
		sb.WriteString("Label: `" + label + "`\n\n")
	}

	sb.WriteString("| domain | instances | solved | valid | invalid | failed |\n")
	sb.WriteString("|---|---:|---:|---:|---:|---:|\n")
	summaries := store.Summarize(results)
	for _, d := range summaries {
		fmt.Fprintf(&sb, "| %s | %d | %d | %d | %d | %d |\n",
			d.Domain, d.Instances, d.Solved, d.Valid, d.Invalid, d.Failed)
	}

	for _, d := range summaries {
		if len(d.Errors) == 0 {
			continue
		}
		kinds := make([]string, 0, len(d.Errors))
		for k := range d.Errors {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		fmt.Fprintf(&sb, "\n## %s errors\n\n", d.Domain)
		for _, k := range kinds {
			fmt.Fprintf(&sb, "- `%s`: %d\n", k, d.Errors[k])
		}
	}

	var failed []store.Result
	for _, r := range results {
		if !r.Solved() {
			failed = append(failed, r)
		}
	}
	if len(failed) > 0 {
		sb.WriteString("\n## Failed instances\n\n")
		for _, r := range failed {
			fmt.Fprintf(&sb, "- `%s` (%s): %s\n", r.Instance, r.ErrorKind, r.Error)
		}
	}
	return sb.String()
}
