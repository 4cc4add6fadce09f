package core

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Slot identifies one of the two fixed upload roles.
type Slot string

const (
	SlotOperational Slot = "operational"
	SlotBase        Slot = "base"
)

// Slots lists every slot in display order.
var Slots = []Slot{SlotOperational, SlotBase}

// ParseSlot converts a string (e.g. from a URL) to a Slot.
func ParseSlot(s string) (Slot, error) {
	switch Slot(strings.ToLower(strings.TrimSpace(s))) {
	case SlotOperational:
		return SlotOperational, nil
	case SlotBase:
		return SlotBase, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSlot, s)
	}
}

func (s Slot) index() int {
	switch s {
	case SlotOperational:
		return 0
	case SlotBase:
		return 1
	default:
		return -1
	}
}

// CellKind is the semantic type inferred for a cell.
type CellKind int

const (
	CellText CellKind = iota
	CellNumber
	CellTime
)

func (k CellKind) String() string {
	switch k {
	case CellNumber:
		return "number"
	case CellTime:
		return "time"
	default:
		return "text"
	}
}

// Cell is a normalized cell value. Value is always display text; numbers are
// rendered with two decimals and are not meant for arithmetic.
type Cell struct {
	Kind  CellKind
	Value string
}

// DroppedRow describes a row removed because its cell count did not match the header.
type DroppedRow struct {
	LineNumber int // 1-indexed line in the uploaded file
	Got        int // cells in the row
	Want       int // cells in the header
}

// Table is the structured result of parsing one file.
// Every row in Rows has exactly len(Headers) cells.
type Table struct {
	Headers []string
	Rows    [][]Cell
	Dropped []DroppedRow
}

// DroppedCount returns how many rows the consistency filter removed.
func (t *Table) DroppedCount() int {
	return len(t.Dropped)
}

// Records returns the rows as plain strings, aligned to Headers.
func (t *Table) Records() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rec := make([]string, len(row))
		for j, c := range row {
			rec[j] = c.Value
		}
		out[i] = rec
	}
	return out
}

// Preview returns at most limit rows. A limit <= 0 returns all rows.
func (t *Table) Preview(limit int) [][]Cell {
	if limit <= 0 || limit >= len(t.Rows) {
		return t.Rows
	}
	return t.Rows[:limit]
}

// RawUpload is a selected file as received from the user.
type RawUpload struct {
	FileName  string
	Extension string // lowercase, with leading dot
	Content   []byte
}

// NewRawUpload builds a RawUpload, deriving the extension from fileName.
func NewRawUpload(fileName string, content []byte) RawUpload {
	return RawUpload{
		FileName:  fileName,
		Extension: strings.ToLower(filepath.Ext(fileName)),
		Content:   content,
	}
}

// SlotState is the lifecycle state of one slot.
type SlotState string

const (
	SlotEmpty    SlotState = "empty"
	SlotSelected SlotState = "selected"
	SlotParsed   SlotState = "parsed"
	SlotFailed   SlotState = "failed"
)
