// Package kb wraps a Google Mangle engine as a small deductive fact base.
// World model builders load extracted facts into it and read back derived
// relations (transitive support, airport membership) instead of computing
// them by hand.
package kb

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"

	"plansynth/internal/logging"
	"plansynth/internal/types"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
)

// Engine holds a compiled program and its fact store. It is safe for
// concurrent use, but each synthesis call normally owns its own Engine.
type Engine struct {
	mu             sync.Mutex
	store          factstore.FactStore
	programInfo    *analysis.ProgramInfo
	predicateIndex map[string]ast.PredicateSym
	dirty          bool
	factCount      int
}

// New parses and analyzes a Mangle program (declarations and rules).
func New(program string) (*Engine, error) {
	unit, err := parse.Unit(bytes.NewReader([]byte(program)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse program: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze program: %w", err)
	}

	index := make(map[string]ast.PredicateSym, len(programInfo.Decls))
	for sym := range programInfo.Decls {
		index[sym.Symbol] = sym
	}
	return &Engine{
		store:          factstore.NewSimpleInMemoryStore(),
		programInfo:    programInfo,
		predicateIndex: index,
	}, nil
}

// PredicateName maps a PDDL predicate to a Mangle identifier: prefix + name
// with '-' replaced by '_'.
func PredicateName(prefix, pddl string) string {
	return prefix + strings.ReplaceAll(pddl, "-", "_")
}

// Add inserts one fact. The predicate must be declared by the program.
func (e *Engine) Add(predicate string, args ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addLocked(predicate, args)
}

// AddFacts inserts PDDL facts whose predicates the program declares, renaming
// them with PredicateName(prefix, ...). Undeclared predicates are skipped and
// counted in the returned value.
func (e *Engine) AddFacts(prefix string, facts []types.Fact) (skipped int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, f := range facts {
		name := PredicateName(prefix, f.Predicate)
		sym, ok := e.predicateIndex[name]
		if !ok || sym.Arity != len(f.Args) {
			skipped++
			continue
		}
		if err := e.addLocked(name, f.Args); err != nil {
			return skipped, err
		}
	}
	return skipped, nil
}

func (e *Engine) addLocked(predicate string, args []string) error {
	sym, ok := e.predicateIndex[predicate]
	if !ok {
		return fmt.Errorf("predicate %s is not declared", predicate)
	}
	if sym.Arity != len(args) {
		return fmt.Errorf("predicate %s expects %d args, got %d", predicate, sym.Arity, len(args))
	}
	terms := make([]ast.BaseTerm, len(args))
	for i, a := range args {
		terms[i] = ast.String(a)
	}
	if e.store.Add(ast.NewAtom(predicate, terms...)) {
		e.factCount++
		e.dirty = true
	}
	return nil
}

// Evaluate runs the program's rules to a fixed point.
func (e *Engine) Evaluate() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.evaluateLocked()
}

func (e *Engine) evaluateLocked() error {
	if !e.dirty {
		return nil
	}
	stats, err := mengine.EvalProgramWithStats(e.programInfo, e.store)
	if err != nil {
		return fmt.Errorf("rule evaluation failed: %w", err)
	}
	e.dirty = false
	logging.KBDebug("evaluated %d base facts: %+v", e.factCount, stats)
	return nil
}

// Query returns every row of predicate, evaluating pending facts first.
// Rows are sorted lexicographically so callers see a canonical order.
func (e *Engine) Query(predicate string) ([][]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sym, ok := e.predicateIndex[predicate]
	if !ok {
		return nil, fmt.Errorf("predicate %s is not declared", predicate)
	}
	if err := e.evaluateLocked(); err != nil {
		return nil, err
	}

	var rows [][]string
	err := e.store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
		row := make([]string, len(atom.Args))
		for i, arg := range atom.Args {
			row[i] = termString(arg)
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		return strings.Join(rows[i], "\x00") < strings.Join(rows[j], "\x00")
	})
	return rows, nil
}

func termString(term ast.BaseTerm) string {
	if c, ok := term.(ast.Constant); ok {
		switch c.Type {
		case ast.StringType, ast.NameType:
			return c.Symbol
		}
		return c.String()
	}
	return fmt.Sprintf("%v", term)
}
