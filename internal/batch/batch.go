// Package batch solves every problem instance under a directory tree,
// writes .soln files, optionally validates them and records the outcomes.
// A failing instance is logged and recorded; the run continues.
package batch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"plansynth/internal/logging"
	"plansynth/internal/pddl"
	"plansynth/internal/store"
	"plansynth/internal/synth"
	"plansynth/internal/types"
	"plansynth/internal/validate"

	"golang.org/x/sync/errgroup"
)

// DomainFile is the domain definition looked up next to instances.
const DomainFile = "domain.pddl"

// SolutionSuffix is appended to an instance file name for its plan.
const SolutionSuffix = ".soln"

// Recorder persists run outcomes. *store.ResultStore implements it.
type Recorder interface {
	StartRun(ctx context.Context, label string) (*store.Run, error)
	Record(ctx context.Context, r store.Result) error
}

// Runner drives a batch. Zero Validator or Store disables that step.
type Runner struct {
	Reader    *pddl.Reader
	Validator validate.Validator
	Store     Recorder

	// Workers bounds concurrent instances; values below 1 mean 1.
	Workers int
	// SolutionsDir mirrors the instance tree; empty writes next to instances.
	SolutionsDir string
	// SlowThreshold logs a warning for slower instances; zero disables.
	SlowThreshold time.Duration
	// Label tags the recorded run.
	Label string
}

// Outcome is what happened to one instance.
type Outcome struct {
	Instance     string // path relative to the batch root
	Domain       string
	Plan         types.Plan
	SolutionPath string
	// Valid is nil when the plan was not validated.
	Valid      *bool
	Diagnostic string
	Err        error
	Duration   time.Duration
}

// Report is the result of Run.
type Report struct {
	RunID    string
	Outcomes []Outcome
	Domains  []store.DomainSummary
}

// Discover returns every problem file under root, sorted, skipping domain
// definitions and hidden directories.
func Discover(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if filepath.Ext(name) != ".pddl" || name == DomainFile {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// FindDomain searches dir and its parents up to root for DomainFile.
func FindDomain(dir, root string) (string, bool) {
	root = filepath.Clean(root)
	for cur := filepath.Clean(dir); ; cur = filepath.Dir(cur) {
		candidate := filepath.Join(cur, DomainFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
		if cur == root || cur == filepath.Dir(cur) {
			return "", false
		}
	}
}

// Run solves every instance under root. Outcomes come back in discovery
// order regardless of Workers. The returned error is reserved for failures
// of the batch itself (scanning, recording, cancellation).
func (r *Runner) Run(ctx context.Context, root string) (*Report, error) {
	files, err := Discover(root)
	if err != nil {
		return nil, err
	}
	logging.Batch("discovered %d instances under %s", len(files), root)

	report := &Report{Outcomes: make([]Outcome, len(files))}
	if r.Store != nil {
		run, err := r.Store.StartRun(ctx, r.label(root))
		if err != nil {
			return nil, err
		}
		report.RunID = run.ID
	}

	if r.Reader == nil {
		r.Reader = &pddl.Reader{}
	}
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out := r.solve(gctx, root, path)
			report.Outcomes[i] = out
			return r.record(gctx, report.RunID, out)
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	results := make([]store.Result, len(report.Outcomes))
	for i, o := range report.Outcomes {
		results[i] = o.result(report.RunID)
	}
	report.Domains = store.Summarize(results)
	for _, d := range report.Domains {
		logging.Batch("%s: %d instances, %d solved, %d valid, %d invalid, %d failed",
			d.Domain, d.Instances, d.Solved, d.Valid, d.Invalid, d.Failed)
	}
	return report, nil
}

// Solve handles one instance outside a batch: it writes the solution and
// validates like Run but records nothing.
func (r *Runner) Solve(ctx context.Context, root, path string) Outcome {
	if r.Reader == nil {
		r.Reader = &pddl.Reader{}
	}
	return r.solve(ctx, root, path)
}

func (r *Runner) label(root string) string {
	if r.Label != "" {
		return r.Label
	}
	return root
}

func (r *Runner) solve(ctx context.Context, root, path string) (out Outcome) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	out = Outcome{Instance: filepath.ToSlash(rel), Domain: "unknown"}
	timer := logging.StartTimer(logging.CategoryBatch, "instance "+out.Instance)
	defer func() {
		if r.SlowThreshold > 0 {
			out.Duration = timer.StopWithThreshold(r.SlowThreshold)
		} else {
			out.Duration = timer.Stop()
		}
	}()

	p, err := r.Reader.ReadProblem(path)
	if err != nil {
		return r.fail(out, err)
	}
	if kind, err := p.Kind(); err == nil {
		out.Domain = string(kind)
	}

	plan, err := synth.Solve(p)
	if err != nil {
		return r.fail(out, err)
	}
	out.Plan = plan

	out.SolutionPath = r.solutionPath(root, rel, path)
	if err := os.MkdirAll(filepath.Dir(out.SolutionPath), 0755); err != nil {
		return r.fail(out, fmt.Errorf("failed to create solutions directory: %w", err))
	}
	if err := validate.WritePlan(out.SolutionPath, plan); err != nil {
		return r.fail(out, fmt.Errorf("failed to write solution: %w", err))
	}

	if r.Validator != nil {
		r.validate(ctx, root, path, &out)
	}
	logging.BatchDebug("%s: %d actions", out.Instance, len(plan))
	return out
}

func (r *Runner) validate(ctx context.Context, root, path string, out *Outcome) {
	domain, ok := FindDomain(filepath.Dir(path), root)
	if !ok {
		logging.BatchDebug("%s: no %s found, skipping validation", out.Instance, DomainFile)
		return
	}
	res, err := r.Validator.Validate(ctx, domain, path, out.SolutionPath)
	if err != nil {
		logging.BatchWarn("%s: validator unavailable: %v", out.Instance, err)
		out.Diagnostic = err.Error()
		return
	}
	valid := res.Valid
	out.Valid = &valid
	out.Diagnostic = res.Diagnostic
	if !valid {
		logging.BatchWarn("%s: plan rejected: %s", out.Instance, res.Diagnostic)
	}
}

func (r *Runner) fail(out Outcome, err error) Outcome {
	out.Err = err
	logging.BatchWarn("%s failed (%s): %v", out.Instance, types.Kind(err), err)
	return out
}

func (r *Runner) solutionPath(root, rel, path string) string {
	if r.SolutionsDir == "" {
		return path + SolutionSuffix
	}
	return filepath.Join(r.SolutionsDir, rel+SolutionSuffix)
}

func (r *Runner) record(ctx context.Context, runID string, out Outcome) error {
	if r.Store == nil {
		return nil
	}
	if err := r.Store.Record(ctx, out.result(runID)); err != nil {
		return fmt.Errorf("failed to record %s: %w", out.Instance, err)
	}
	return nil
}

func (o Outcome) result(runID string) store.Result {
	res := store.Result{
		RunID:    runID,
		Instance: o.Instance,
		Domain:   o.Domain,
		Actions:  len(o.Plan),
		Valid:    o.Valid,
		Plan:     o.Plan,
		Duration: o.Duration,
	}
	if o.Err != nil {
		res.Error = o.Err.Error()
		res.ErrorKind = types.Kind(o.Err)
	}
	return res
}
