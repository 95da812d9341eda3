package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const (
	jsonSuffix   = ".json"
	foldedSuffix = ".folded"
)

// FoldedPath derives the folded-stack path from the JSON report path:
// a trailing ".json" becomes ".folded", anything else gets ".folded" appended.
func FoldedPath(jsonPath string) string {
	if strings.HasSuffix(jsonPath, jsonSuffix) {
		return strings.TrimSuffix(jsonPath, jsonSuffix) + foldedSuffix
	}
	return jsonPath + foldedSuffix
}

// SampleCount converts accumulated nanoseconds to the folded weight:
// whole microseconds, at least 1 for any nonzero time.
func SampleCount(ns uint64) uint64 {
	if ns == 0 {
		return 0
	}
	us := ns / 1000
	if us == 0 {
		us = 1
	}
	return us
}

// WriteFolded writes one "outer;middle;inner <us>" line per stack with nonzero
// time, in first-seen order.
func WriteFolded(w io.Writer, snap *Snapshot) error {
	bw := bufio.NewWriter(w)
	for _, st := range snap.NamedStacks() {
		if st.TimeNS == 0 {
			continue
		}
		if _, err := fmt.Fprintf(bw, "%s %d\n", strings.Join(st.Frames, ";"), SampleCount(st.TimeNS)); err != nil {
			return err
		}
	}
	return bw.Flush()
}
