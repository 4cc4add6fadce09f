package core

// normalize.go is the display-normalization stage applied after splitting.
//
// Priority per trimmed cell:
//  1. hh:mm:ss clock literals are kept verbatim
//  2. finite decimal numbers are rendered with exactly two decimals
//  3. anything else is kept as trimmed text
//
// The result is text in every case. Re-normalizing normalized output
// yields the same values.

import (
	"math"
	"regexp"
	"strconv"
)

// timeRegex matches two-digit hour:minute:second literals.
var timeRegex = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)

// numericRegex matches plain decimal numbers, optionally signed or in
// scientific notation. Hex, "Inf" and "NaN" are deliberately excluded.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// NormalizeCell types a single trimmed cell.
func NormalizeCell(s string) Cell {
	if timeRegex.MatchString(s) {
		return Cell{Kind: CellTime, Value: s}
	}
	if formatted, ok := FormatNumber(s); ok {
		return Cell{Kind: CellNumber, Value: formatted}
	}
	return Cell{Kind: CellText, Value: s}
}

// FormatNumber renders s with exactly two decimals if it is a finite number.
func FormatNumber(s string) (string, bool) {
	if s == "" || !numericRegex.MatchString(s) {
		return "", false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return "", false
	}

	out := strconv.FormatFloat(f, 'f', 2, 64)
	if out == "-0.00" {
		out = "0.00"
	}
	return out, true
}

// Normalize re-applies fn to every cell of t and returns a new table.
// Headers and dropped-row reports are shared with t.
func Normalize(t *Table, fn NormalizeFunc) *Table {
	if fn == nil {
		fn = NormalizeCell
	}
	out := &Table{
		Headers: t.Headers,
		Rows:    make([][]Cell, len(t.Rows)),
		Dropped: t.Dropped,
	}
	for i, row := range t.Rows {
		cells := make([]Cell, len(row))
		for j, c := range row {
			cells[j] = fn(c.Value)
		}
		out.Rows[i] = cells
	}
	return out
}

// TextCell is a NormalizeFunc that skips typing and keeps the trimmed text.
func TextCell(s string) Cell {
	return Cell{Kind: CellText, Value: s}
}
