// Package table is the in-memory result of a pipeline: a header and rows of
// formatted cells, with an opt-in CSV write and a terminal preview.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// Row is implemented by every record type a pipeline produces.
type Row interface {
	Columns() []string
	Values() []any
}

// Table holds formatted cells. It is built once and not mutated afterwards.
type Table struct {
	Columns []string
	Rows    [][]string
}

// FromRows builds a table from records in order.
func FromRows[R Row](rows []R) *Table {
	var zero R
	t := &Table{Columns: zero.Columns(), Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		vals := r.Values()
		cells := make([]string, len(vals))
		for i, v := range vals {
			cells[i] = Format(v)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Head returns a table with at most the first n rows.
func (t *Table) Head(n int) *Table {
	if n < 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	return &Table{Columns: t.Columns, Rows: t.Rows[:n]}
}

// Column returns the cells of the named column, or nil if there is none.
func (t *Table) Column(name string) []string {
	idx := -1
	for i, c := range t.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out
}

// WriteCSV writes the header and all rows.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteCSVFile writes the table to path, replacing any existing file.
func (t *Table) WriteCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Format renders one cell. Stringers (the nullable record values) format
// themselves; floats always keep a decimal point so 155 prints as 155.0.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case bool:
		if x {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatFloat(x)
	default:
		return fmt.Sprint(x)
	}
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if f == math.Trunc(f) {
		s += ".0"
	}
	return s
}
