package main

import (
	"fmt"
	"os"

	"github.com/danpilch/fnprof/pkg/flamegraph"
	"github.com/danpilch/fnprof/pkg/report"
)

func readDocument(path string) (*report.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open profile report: %w", err)
	}
	defer f.Close()

	doc, err := report.ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// readFolded reads and merges one or more folded-stack files.
func readFolded(paths []string) (flamegraph.Stacks, error) {
	merged := make(flamegraph.Stacks)
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("cannot open folded stacks: %w", err)
		}
		stacks, err := flamegraph.ReadFolded(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		flamegraph.Merge(merged, stacks)
	}
	return merged, nil
}

// companionStacks loads the folded stacks that go with a JSON report: the
// explicit file when given, else the sibling .folded file if one exists.
func companionStacks(jsonPath, explicit string) (flamegraph.Stacks, error) {
	if explicit != "" {
		return readFolded([]string{explicit})
	}
	path := report.FoldedPath(jsonPath)
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	return readFolded([]string{path})
}
