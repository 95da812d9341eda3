package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Millis is a millisecond value serialized with three decimals.
type Millis float64

// MarshalJSON implements json.Marshaler.
func (m Millis) MarshalJSON() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(m), 'f', 3, 64), nil
}

// Percent is a percentage serialized with two decimals.
type Percent float64

// MarshalJSON implements json.Marshaler.
func (p Percent) MarshalJSON() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(p), 'f', 2, 64), nil
}

// FunctionEntry is one row of the per-function report.
type FunctionEntry struct {
	Name    string  `json:"name"`
	Calls   uint64  `json:"calls"`
	TimeMS  Millis  `json:"time_ms"`
	Percent Percent `json:"percent"`
}

// Document is the per-function JSON report.
type Document struct {
	Functions   []FunctionEntry `json:"functions"`
	TotalTimeMS Millis          `json:"total_time_ms"`
}

// NewDocument builds the report from a snapshot. Percentages are relative to
// the summed time of registered functions, 0 when that sum is 0.
func NewDocument(snap *Snapshot) *Document {
	total := snap.TotalTimeNS()
	doc := &Document{
		Functions:   make([]FunctionEntry, 0, len(snap.Functions)),
		TotalTimeMS: Millis(nsToMillis(total)),
	}
	for _, f := range snap.Functions {
		var pct float64
		if total > 0 {
			pct = float64(f.TimeNS) * 100.0 / float64(total)
		}
		doc.Functions = append(doc.Functions, FunctionEntry{
			Name:    f.Name,
			Calls:   f.Calls,
			TimeMS:  Millis(nsToMillis(f.TimeNS)),
			Percent: Percent(pct),
		})
	}
	return doc
}

func nsToMillis(ns uint64) float64 {
	return float64(ns) / 1e6
}

// WriteJSON writes the document with two-space indentation. Invalid UTF-8 in
// a function name is written as U+FFFD; the folded output keeps the raw bytes.
func WriteJSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}

// ReadJSON parses a report previously written by WriteJSON.
func ReadJSON(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("cannot parse profile report: %w", err)
	}
	if doc.Functions == nil {
		doc.Functions = []FunctionEntry{}
	}
	return &doc, nil
}
