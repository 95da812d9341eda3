package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/fnprof/pkg/report"
)

func sampleDoc() *report.Document {
	return &report.Document{
		Functions: []report.FunctionEntry{
			{Name: "parse", Calls: 10, TimeMS: 20, Percent: 20},
			{Name: "main", Calls: 1, TimeMS: 70, Percent: 70},
			{Name: "emit", Calls: 4, TimeMS: 10, Percent: 10},
		},
		TotalTimeMS: 100,
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("TSV")
	require.NoError(t, err)
	assert.Equal(t, FormatTSV, f)

	_, err = ParseFormat("xml")
	require.Error(t, err)
}

func TestRenderTSVRanksByTime(t *testing.T) {
	var buf bytes.Buffer
	fm := NewFormatter(FormatTSV, &buf)
	fm.SetTop(2)
	require.NoError(t, fm.Render(sampleDoc()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "FUNCTION\tCALLS\tTIME_MS\tPERCENT", lines[0])
	assert.Equal(t, "main\t1\t70.000\t70.00", lines[1])
	assert.Equal(t, "parse\t10\t20.000\t20.00", lines[2])
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable, &buf).Render(sampleDoc()))

	out := buf.String()
	assert.Contains(t, out, "Function Profile")
	assert.Contains(t, out, "FUNCTION")
	assert.Contains(t, out, "main")
	assert.Contains(t, out, "70.000")
	assert.Contains(t, out, "Total: 100.000 ms across 3 functions")
	assert.Less(t, strings.Index(out, "main"), strings.Index(out, "parse"))
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatJSON, &buf).Render(sampleDoc()))
	assert.Contains(t, buf.String(), `"total_time_ms": 100.000`)
}

func TestPercentBar(t *testing.T) {
	assert.Equal(t, "", PercentBar(50, 0))
	assert.Equal(t, "", PercentBar(0, 10))
	assert.Equal(t, strings.Repeat("█", 10), PercentBar(100, 10))
	assert.Equal(t, strings.Repeat("█", 10), PercentBar(150, 10))
	assert.Equal(t, "█████", PercentBar(50, 10))
	assert.Equal(t, "██▌", PercentBar(25, 10))
}
