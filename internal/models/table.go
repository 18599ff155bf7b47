package models

import (
	"bytes"
	"encoding/json"
)

// Table is an ordered set of flat records sharing a column universe. Columns
// follow first-seen order across the rows unless a caller reorders them.
type Table struct {
	Columns []string
	Rows    []Value // each row is an object Value
}

// BuildTable assembles a table from flat records. The column list is the
// union of keys across all records in first-seen order.
func BuildTable(records []Value) Table {
	t := Table{}
	seen := make(map[string]bool)
	for _, rec := range records {
		if rec.Kind() != KindObject {
			continue
		}
		for _, f := range rec.Fields() {
			if !seen[f.Key] {
				seen[f.Key] = true
				t.Columns = append(t.Columns, f.Key)
			}
		}
		t.Rows = append(t.Rows, rec)
	}
	return t
}

// IsEmpty reports whether the table has no rows.
func (t Table) IsEmpty() bool { return len(t.Rows) == 0 }

// Cell returns the value at the given row and column; missing keys are null.
func (t Table) Cell(row int, col string) Value {
	if row < 0 || row >= len(t.Rows) {
		return Null()
	}
	v, ok := t.Rows[row].Get(col)
	if !ok {
		return Null()
	}
	return v
}

// Column returns a column as a slice of values, one per row, null where the
// row has no such key.
func (t Table) Column(col string) []Value {
	out := make([]Value, len(t.Rows))
	for i := range t.Rows {
		out[i] = t.Cell(i, col)
	}
	return out
}

// Project returns a copy of the table restricted to the given columns in the
// given order. Row objects are rebuilt so they only carry the kept columns.
func (t Table) Project(cols []string) Table {
	out := Table{Columns: append([]string(nil), cols...)}
	out.Rows = make([]Value, len(t.Rows))
	for i := range t.Rows {
		row := Object()
		for _, c := range cols {
			if v, ok := t.Rows[i].Get(c); ok {
				row.Set(c, v)
			}
		}
		out.Rows[i] = row
	}
	return out
}

// WithColumn returns a copy of the table with the named column replaced by
// the given per-row values. The column is appended when not already present.
func (t Table) WithColumn(col string, values []Value) Table {
	out := Table{Columns: append([]string(nil), t.Columns...)}
	found := false
	for _, c := range out.Columns {
		if c == col {
			found = true
			break
		}
	}
	if !found {
		out.Columns = append(out.Columns, col)
	}
	out.Rows = make([]Value, len(t.Rows))
	for i := range t.Rows {
		row := t.Rows[i].Clone()
		v := Null()
		if i < len(values) {
			v = values[i]
		}
		row.Set(col, v)
		out.Rows[i] = row
	}
	return out
}

// MarshalJSON renders the table as {"columns": [...], "rows": [...]} with
// row objects restricted to the column list, in column order.
func (t Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"columns":`)
	cols, err := json.Marshal(t.Columns)
	if err != nil {
		return nil, err
	}
	buf.Write(cols)
	buf.WriteString(`,"rows":[`)
	for i := range t.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		row := Object()
		for _, c := range t.Columns {
			if v, ok := t.Rows[i].Get(c); ok {
				row.Set(c, v)
			}
		}
		b, err := row.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}
