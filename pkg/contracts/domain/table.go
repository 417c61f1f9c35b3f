package domain

import (
	"time"
)

// CellKind identifies the scalar type a decoder produced for a cell
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellString
	CellNumber
	CellTime
)

// String returns the kind name
func (k CellKind) String() string {
	switch k {
	case CellString:
		return "string"
	case CellNumber:
		return "number"
	case CellTime:
		return "time"
	default:
		return "empty"
	}
}

// Cell is a single decoded spreadsheet value. Only the field matching Kind is meaningful.
type Cell struct {
	Kind CellKind  `json:"kind"`
	Str  string    `json:"str,omitempty"`
	Num  float64   `json:"num,omitempty"`
	Time time.Time `json:"time,omitempty"`
}

// EmptyCell returns a cell with no value
func EmptyCell() Cell {
	return Cell{Kind: CellEmpty}
}

// StringCell wraps a text value
func StringCell(s string) Cell {
	return Cell{Kind: CellString, Str: s}
}

// NumberCell wraps a numeric value
func NumberCell(f float64) Cell {
	return Cell{Kind: CellNumber, Num: f}
}

// TimeCell wraps a date/time value
func TimeCell(t time.Time) Cell {
	return Cell{Kind: CellTime, Time: t}
}

// IsEmpty reports whether the cell holds no value
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

// Value returns the cell as a plain Go scalar: nil, string, float64 or time.Time.
func (c Cell) Value() any {
	switch c.Kind {
	case CellString:
		return c.Str
	case CellNumber:
		return c.Num
	case CellTime:
		return c.Time
	default:
		return nil
	}
}

// RawRow is one ordered data row as delivered by a file decoder
type RawRow []Cell

// At returns the cell at index i, or an empty cell when the row is shorter.
func (r RawRow) At(i int) Cell {
	if i < 0 || i >= len(r) {
		return EmptyCell()
	}
	return r[i]
}

// StringRow builds a RawRow from text values, mapping "" to empty cells.
func StringRow(values ...string) RawRow {
	row := make(RawRow, len(values))
	for i, v := range values {
		if v == "" {
			row[i] = EmptyCell()
			continue
		}
		row[i] = StringCell(v)
	}
	return row
}

// Table is a decoded sheet: one header row followed by data rows
type Table struct {
	Header []string `json:"header"`
	Rows   []RawRow `json:"rows"`
}

// SourceInfo describes where a Table came from
type SourceInfo struct {
	FileName  string `json:"file_name"`
	FileSize  int64  `json:"file_size"`
	SheetName string `json:"sheet_name,omitempty"`
}
