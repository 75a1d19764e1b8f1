package pddl

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"plansynth/internal/logging"
)

// Reader reads problem files, serializing concurrent reads of the same file.
// The zero value is ready to use and safe for concurrent use.
type Reader struct {
	locks sync.Map // canonical path -> *sync.Mutex
}

func (r *Reader) lockFor(path string) *sync.Mutex {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	m, _ := r.locks.LoadOrStore(filepath.Clean(path), &sync.Mutex{})
	return m.(*sync.Mutex)
}

// ReadFile returns the file content unchanged, so parse positions refer to
// the file itself.
func (r *Reader) ReadFile(path string) (string, error) {
	mu := r.lockFor(path)
	mu.Lock()
	data, err := os.ReadFile(path)
	mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// StripComments removes ';' comment lines and blank lines from src and trims
// the remaining lines.
func StripComments(src string) string {
	lines := strings.Split(src, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// ReadProblem reads and parses a problem file.
func (r *Reader) ReadProblem(path string) (*Problem, error) {
	src, err := r.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := ParseProblem(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	logging.ParseDebug("parsed %s: problem=%s domain=%s init=%d goal=%d",
		path, p.Name, p.Domain, len(p.Init), len(p.Goal))
	return p, nil
}
