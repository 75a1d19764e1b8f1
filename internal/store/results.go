// Package store persists batch runs and per-instance results in SQLite.
// Plans are stored zstd-compressed.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"plansynth/internal/logging"
	"plansynth/internal/types"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so started_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNoRuns is returned by LatestRun on an empty database.
var ErrNoRuns = errors.New("no runs recorded")

// ResultStore persists batch runs and per-instance outcomes in SQLite.
type ResultStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Run is one batch invocation.
type Run struct {
	ID        string
	Label     string
	StartedAt time.Time
}

// Result is the outcome of one instance in a run.
type Result struct {
	RunID    string
	Instance string
	Domain   string
	Actions  int
	// Valid is nil when the plan was not validated.
	Valid     *bool
	ErrorKind string
	Error     string
	Plan      types.Plan
	Duration  time.Duration
}

// Solved reports whether synthesis produced a plan.
func (r Result) Solved() bool { return r.Error == "" }

// DomainSummary aggregates a run's results for one domain family.
type DomainSummary struct {
	Domain    string
	Instances int
	Solved    int
	Valid     int
	Invalid   int
	Failed    int
	// Errors counts failures by error kind.
	Errors map[string]int
}

// Open opens or creates the result database at path. ":memory:" gives a
// private in-memory database.
func Open(path string) (*ResultStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	s := &ResultStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.StoreDebug("opened result store at %s", path)
	return s, nil
}

func (s *ResultStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS results (
		run_id TEXT NOT NULL REFERENCES runs(id),
		instance TEXT NOT NULL,
		domain TEXT NOT NULL,
		actions INTEGER NOT NULL DEFAULT 0,
		valid INTEGER,
		error_kind TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		plan BLOB,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, instance)
	);
	CREATE INDEX IF NOT EXISTS idx_results_domain ON results(run_id, domain);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *ResultStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *ResultStore) Path() string {
	return s.dbPath
}

// StartRun registers a new run with a fresh ID.
func (s *ResultStore) StartRun(ctx context.Context, label string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := &Run{ID: uuid.NewString(), Label: label, StartedAt: time.Now().UTC()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, label, started_at) VALUES (?, ?, ?)`,
		run.ID, run.Label, run.StartedAt.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	logging.Store("started run %s (%s)", run.ID, label)
	return run, nil
}

// Record stores one instance outcome. Recording the same instance twice in
// a run replaces the earlier row.
func (s *ResultStore) Record(ctx context.Context, r Result) error {
	blob, err := compressPlan(r.Plan)
	if err != nil {
		return err
	}
	var valid any
	if r.Valid != nil {
		valid = boolToInt(*r.Valid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO results
			(run_id, instance, domain, actions, valid, error_kind, error, plan, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Instance, r.Domain, r.Actions, valid, r.ErrorKind, r.Error, blob, r.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", r.Instance, err)
	}
	logging.StoreDebug("recorded %s in run %s (%d actions, %d compressed bytes)", r.Instance, r.RunID, r.Actions, len(blob))
	return nil
}

// Results returns every result of a run ordered by instance.
func (s *ResultStore) Results(ctx context.Context, runID string) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, instance, domain, actions, valid, error_kind, error, plan, duration_ms
		FROM results WHERE run_id = ? ORDER BY instance`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var (
			r     Result
			valid sql.NullInt64
			blob  []byte
			ms    int64
		)
		if err := rows.Scan(&r.RunID, &r.Instance, &r.Domain, &r.Actions, &valid, &r.ErrorKind, &r.Error, &blob, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if valid.Valid {
			v := valid.Int64 != 0
			r.Valid = &v
		}
		if r.Plan, err = decompressPlan(blob); err != nil {
			return nil, fmt.Errorf("result %s: %w", r.Instance, err)
		}
		if r.Plan == nil && r.Solved() {
			r.Plan = types.Plan{}
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summary aggregates a run per domain family, sorted by domain.
func (s *ResultStore) Summary(ctx context.Context, runID string) ([]DomainSummary, error) {
	results, err := s.Results(ctx, runID)
	if err != nil {
		return nil, err
	}
	return Summarize(results), nil
}

// Summarize aggregates results per domain family, sorted by domain.
func Summarize(results []Result) []DomainSummary {
	byDomain := make(map[string]*DomainSummary)
	for _, r := range results {
		d, ok := byDomain[r.Domain]
		if !ok {
			d = &DomainSummary{Domain: r.Domain, Errors: make(map[string]int)}
			byDomain[r.Domain] = d
		}
		d.Instances++
		if !r.Solved() {
			d.Failed++
			d.Errors[r.ErrorKind]++
			continue
		}
		d.Solved++
		if r.Valid != nil {
			if *r.Valid {
				d.Valid++
			} else {
				d.Invalid++
			}
		}
	}

	out := make([]DomainSummary, 0, len(byDomain))
	for _, d := range byDomain {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out
}

// LatestRun returns the most recently started run.
func (s *ResultStore) LatestRun(ctx context.Context) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		run     Run
		started string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, label, started_at FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`).
		Scan(&run.ID, &run.Label, &started)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("run %s has a bad timestamp: %w", run.ID, err)
	}
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
