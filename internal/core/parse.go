package core

// parse.go turns delimited text into a Table in three stages:
//  1. SplitTable: lines and cells (blank lines skipped, first line is the header)
//  2. FilterRows: rows whose cell count differs from the header are dropped and reported
//  3. Normalize: per-cell typing (time, number, text)
//
// Cell splitting is a plain split on ','. Quoted fields and escaped
// delimiters are not supported.

import (
	"strings"
)

// Extensions recognized by the parser.
const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
	ExtXLS  = ".xls"
)

// AcceptedExtensions lists every extension a file picker should offer.
var AcceptedExtensions = []string{ExtCSV, ExtXLSX, ExtXLS}

// NormalizeFunc converts one trimmed raw cell into a typed Cell.
type NormalizeFunc func(raw string) Cell

// RawTable is the output of the splitting stage.
type RawTable struct {
	Headers []string
	Rows    []RawRow
}

// RawRow is one retained line split into untrimmed cells.
type RawRow struct {
	Line  int // 1-indexed line in the input
	Cells []string
}

// Parser parses uploads into tables. The zero value uses NormalizeCell.
type Parser struct {
	// Normalizer replaces the cell typing stage. Nil means NormalizeCell.
	Normalizer NormalizeFunc
}

// DefaultParser is the parser used by sessions that don't configure one.
var DefaultParser = Parser{}

// Parse is shorthand for DefaultParser.Parse.
func Parse(content, extension string) (*Table, error) {
	return DefaultParser.Parse(content, extension)
}

// Parse checks the extension and, for CSV, runs split, filter and normalize.
// Normalization runs on the finished table, so a Parser with a different
// Normalizer sees the same rows and dropped-row report.
func (p Parser) Parse(content, extension string) (*Table, error) {
	if err := CheckExtension(extension); err != nil {
		return nil, err
	}

	raw, dropped := FilterRows(SplitTable(content))

	t := &Table{
		Headers: raw.Headers,
		Rows:    make([][]Cell, len(raw.Rows)),
		Dropped: dropped,
	}
	for i, row := range raw.Rows {
		t.Rows[i] = textRow(row.Cells)
	}
	return Normalize(t, p.Normalizer), nil
}

// CheckExtension validates a declared extension before any parsing happens.
// Spreadsheet extensions are recognized but not decoded.
func CheckExtension(extension string) error {
	switch strings.ToLower(strings.TrimSpace(extension)) {
	case ExtCSV:
		return nil
	case ExtXLSX, ExtXLS:
		return newError(KindUnsupportedFormat, "", nil)
	default:
		return newError(KindUnsupportedFileType, "", nil)
	}
}

// SplitTable splits content into lines and cells. Blank lines are skipped,
// the first remaining line becomes the trimmed headers.
func SplitTable(content string) RawTable {
	var t RawTable
	headerSeen := false

	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		cells := strings.Split(line, ",")
		if !headerSeen {
			headerSeen = true
			t.Headers = make([]string, len(cells))
			for j, c := range cells {
				t.Headers[j] = strings.TrimSpace(c)
			}
			continue
		}
		t.Rows = append(t.Rows, RawRow{Line: i + 1, Cells: cells})
	}
	return t
}

// FilterRows keeps rows whose cell count equals the header count and
// reports the others.
func FilterRows(t RawTable) (RawTable, []DroppedRow) {
	want := len(t.Headers)
	kept := RawTable{Headers: t.Headers, Rows: make([]RawRow, 0, len(t.Rows))}
	var dropped []DroppedRow

	for _, row := range t.Rows {
		if len(row.Cells) != want {
			dropped = append(dropped, DroppedRow{
				LineNumber: row.Line,
				Got:        len(row.Cells),
				Want:       want,
			})
			continue
		}
		kept.Rows = append(kept.Rows, row)
	}
	return kept, dropped
}

func textRow(cells []string) []Cell {
	out := make([]Cell, len(cells))
	for i, c := range cells {
		out[i] = TextCell(strings.TrimSpace(c))
	}
	return out
}
