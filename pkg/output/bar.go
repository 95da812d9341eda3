package output

import "strings"

// eighth-block characters for fractional bar cells, narrowest first
var barBlocks = []rune{
	'▏', // ▏
	'▎', // ▎
	'▍', // ▍
	'▌', // ▌
	'▋', // ▋
	'▊', // ▊
	'▉', // ▉
}

// PercentBar renders percent (0-100) as a horizontal bar of width cells with
// eighth-cell resolution.
func PercentBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	eighths := int(percent / 100 * float64(width*8))
	full, rest := eighths/8, eighths%8

	var b strings.Builder
	b.WriteString(strings.Repeat("█", full))
	if rest > 0 {
		b.WriteRune(barBlocks[rest-1])
	}
	return b.String()
}
