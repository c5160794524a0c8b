package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"
)

const (
	tablePadding = 2

	// maxCellWidth keeps long action descriptions from wrapping rows.
	maxCellWidth = 72
)

func writeTable(out io.Writer, headers []string, rows [][]string) error {
	w := tabwriter.NewWriter(out, 0, 0, tablePadding, ' ', tabwriter.StripEscape)
	if len(headers) > 0 {
		fmt.Fprintln(w, strings.Join(headers, "\t"))
	}
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = truncate(cell, maxCellWidth)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
// Cells holding escape sequences are left alone.
func truncate(s string, n int) string {
	if strings.Contains(s, "\033") || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

func formatYesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
