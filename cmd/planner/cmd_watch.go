package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"plansynth/internal/batch"
	"plansynth/internal/logging"
	"plansynth/internal/types"
	"plansynth/internal/validate"
	"plansynth/internal/watch"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Re-solve problems as they change",
	Long: `Watches dir and its subdirectories. Whenever a problem file is created or
rewritten it is solved again and its .soln file refreshed. Runs until
interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	runner := &batch.Runner{SolutionsDir: cfg.Batch.SolutionsDir}
	if cfg.Validator.Enabled {
		runner.Validator = validate.New(cfg.Validator.Binary, cfg.Validator.Tolerance, cfg.GetValidatorTimeout())
	}
	out := cmd.OutOrStdout()

	w, err := watch.New(root, cfg.GetWatchDebounce(), func(ctx context.Context, path string) error {
		o := runner.Solve(ctx, root, path)
		switch {
		case o.Err != nil:
			fmt.Fprintf(out, "FAIL  %s [%s] %v\n", o.Instance, types.Kind(o.Err), o.Err)
			return o.Err
		case o.Valid != nil && !*o.Valid:
			fmt.Fprintf(out, "BAD   %s %s\n", o.Instance, o.Diagnostic)
		default:
			fmt.Fprintf(out, "OK    %s %d actions (%s)\n", o.Instance, len(o.Plan), o.Duration)
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer w.Stop()

	ctx := cmd.Context()
	if err := w.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "watching %s (ctrl+c to stop)\n", root)
	<-ctx.Done()

	stats := w.GetStats()
	logging.Watch("handled %d changes, %d failed", stats.Handled, stats.Failed)
	return nil
}
