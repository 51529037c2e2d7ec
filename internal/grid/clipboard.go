package grid

import "strings"

// EncodeTSV serialises the rectangle in row-major order: columns joined by
// tabs, rows by newlines. Embedded tabs are stripped from cell values so
// the payload stays a valid grid.
func EncodeTSV(r Rect, value func(row, col int) string) string {
	var b strings.Builder
	for row := r.MinRow; row <= r.MaxRow; row++ {
		if row > r.MinRow {
			b.WriteByte('\n')
		}
		for col := r.MinCol; col <= r.MaxCol; col++ {
			if col > r.MinCol {
				b.WriteByte('\t')
			}
			b.WriteString(strings.ReplaceAll(value(row, col), "\t", ""))
		}
	}
	return b.String()
}

// ParseTSV splits a clipboard payload into a cell matrix: rows on
// newlines, cells on tabs. Windows line endings are tolerated and a single
// trailing newline is ignored, since most spreadsheet tools append one.
func ParseTSV(text string) [][]string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	cells := make([][]string, len(lines))
	for i, line := range lines {
		cells[i] = strings.Split(line, "\t")
	}
	return cells
}

// IsSingleCell reports whether the parsed payload is exactly one cell,
// which makes a multi-cell paste a flood fill.
func IsSingleCell(cells [][]string) bool {
	return len(cells) == 1 && len(cells[0]) == 1
}
