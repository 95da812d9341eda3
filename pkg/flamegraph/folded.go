// Package flamegraph reads folded stack files and renders them as SVG flame graphs.
package flamegraph

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Stacks maps a ";"-joined stack (outermost first) to its weight in microseconds.
type Stacks map[string]int64

// ReadFolded parses "func1;func2;func3 count" lines. The count is everything
// after the last space, so frame names may contain spaces. Duplicate stacks
// are summed; blank lines are skipped.
func ReadFolded(r io.Reader) (Stacks, error) {
	stacks := make(Stacks)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		idx := strings.LastIndexByte(line, ' ')
		if idx <= 0 {
			return nil, fmt.Errorf("line %d: missing sample count", lineNo)
		}
		count, err := strconv.ParseInt(line[idx+1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid sample count: %w", lineNo, err)
		}
		stacks[strings.TrimSpace(line[:idx])] += count
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read folded stacks: %w", err)
	}
	return stacks, nil
}

// Merge adds every stack of src into dst.
func Merge(dst, src Stacks) {
	for k, v := range src {
		dst[k] += v
	}
}

// Total returns the summed weight.
func (s Stacks) Total() int64 {
	var total int64
	for _, v := range s {
		total += v
	}
	return total
}

// WriteFolded writes stacks sorted by key for deterministic output.
func WriteFolded(w io.Writer, stacks Stacks) error {
	keys := make([]string, 0, len(stacks))
	for k := range stacks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s %d\n", k, stacks[k]); err != nil {
			return err
		}
	}
	return nil
}
