// Package baseline keeps named reference profiles and reports how a new
// profile drifted from them, per function and per call stack.
package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/danpilch/fnprof/pkg/flamegraph"
	"github.com/danpilch/fnprof/pkg/report"
)

const ext = ".json"

// Baseline is a saved profile. Stacks holds the folded stacks (microsecond
// weights) of the same run and is empty when they were not available.
type Baseline struct {
	Name      string            `json:"name"`
	Timestamp time.Time         `json:"timestamp"`
	Hostname  string            `json:"hostname"`
	Report    *report.Document  `json:"report"`
	Stacks    flamegraph.Stacks `json:"stacks,omitempty"`
}

// Capture builds a baseline from a run's report and optional folded stacks.
func Capture(name string, doc *report.Document, stacks flamegraph.Stacks) *Baseline {
	hostname, _ := os.Hostname()
	return &Baseline{
		Name:      name,
		Timestamp: time.Now(),
		Hostname:  hostname,
		Report:    doc,
		Stacks:    stacks,
	}
}

// DefaultDir returns the default baseline storage directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".fnprof", "baselines")
	}
	return filepath.Join(home, ".fnprof", "baselines")
}

// Store keeps one JSON file per baseline in a directory.
type Store struct {
	dir string
}

// NewStore opens the store rooted at dir, DefaultDir when empty. The
// directory is created on the first Save.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Store{dir: dir}
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid baseline name %q", name)
	}
	return filepath.Join(s.dir, name+ext), nil
}

// Save writes b, replacing any baseline of the same name. The file is
// written to a temporary name first so a crash never leaves it truncated.
func (s *Store) Save(b *Baseline) error {
	if b.Report == nil {
		return fmt.Errorf("baseline %q has no report", b.Name)
	}
	path, err := s.path(b.Name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("cannot create baseline directory: %w", err)
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal baseline: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, "."+b.Name+"-*")
	if err != nil {
		return fmt.Errorf("cannot write baseline: %w", err)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cannot write baseline: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cannot write baseline: %w", err)
	}
	return nil
}

// Load reads the named baseline.
func (s *Store) Load(name string) (*Baseline, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read baseline %q: %w", name, err)
	}

	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("cannot parse baseline %q: %w", name, err)
	}
	if b.Report == nil {
		return nil, fmt.Errorf("baseline %q has no report", name)
	}
	return &b, nil
}

// Delete removes the named baseline.
func (s *Store) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("cannot delete baseline %q: %w", name, err)
	}
	return nil
}

// List returns the saved baseline names, sorted. A missing directory is an
// empty store.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot list baselines: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ext {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ext))
	}
	slices.Sort(names)
	return names, nil
}
