package transformers

import (
	"strconv"
	"strings"
	"time"

	"parkinsight/internal/models"
)

// SanitizeOptions tunes the tabular sanitizer. The numeric-coercion threshold
// and column cap are display heuristics, kept configurable on purpose.
type SanitizeOptions struct {
	PreferredColumns []string
	MaxColumns       int
	NumericThreshold float64
}

// DefaultSanitizeOptions mirrors the dashboard defaults.
func DefaultSanitizeOptions() SanitizeOptions {
	return SanitizeOptions{MaxColumns: 20, NumericThreshold: 0.9}
}

// columnKind classifies the final dtype of a column.
type columnKind int

const (
	colEmpty columnKind = iota
	colNumeric
	colBool
	colString
	colTemporal
	colMixed
)

// SanitizeTable prepares a table for safe rendering.
//
// Columns already uniform in numeric, boolean or string values are kept as-is.
// For every other column a numeric coercion is attempted across the column:
// when strictly more than NumericThreshold of the non-null original values
// coerce, the whole column commits to numeric (failures become null).
// Otherwise each non-scalar cell is replaced with its JSON text serialization
// and scalar cells are left untouched.
//
// The output keeps only render-safe columns, preferred columns first in the
// order given, then the remaining safe columns in original order, truncated
// to MaxColumns. When no safe column exists the first MaxColumns columns of
// the coerced table are returned unfiltered. An empty table is returned
// unchanged. The function never fails; every irregularity is absorbed into
// null or text cells.
func SanitizeTable(t models.Table, opts SanitizeOptions) models.Table {
	if t.IsEmpty() {
		return t
	}
	if opts.MaxColumns <= 0 {
		opts.MaxColumns = 20
	}
	if opts.NumericThreshold <= 0 {
		opts.NumericThreshold = 0.9
	}

	cleaned := t
	for _, col := range t.Columns {
		cells := cleaned.Column(col)
		switch classifyColumn(cells) {
		case colNumeric, colBool, colString, colTemporal:
			continue
		}

		coerced, nonNull, successes := coerceColumn(cells)
		if nonNull > 0 && float64(successes)/float64(nonNull) > opts.NumericThreshold {
			cleaned = cleaned.WithColumn(col, coerced)
			continue
		}

		serialized := make([]models.Value, len(cells))
		changed := false
		for i, c := range cells {
			if c.IsScalar() {
				serialized[i] = c
				continue
			}
			serialized[i] = models.String(jsonText(c))
			changed = true
		}
		if changed {
			cleaned = cleaned.WithColumn(col, serialized)
		}
	}

	var safeCols []string
	for _, col := range cleaned.Columns {
		if columnIsSafe(cleaned.Column(col)) {
			safeCols = append(safeCols, col)
		}
	}

	var ordered []string
	inOrdered := make(map[string]bool)
	for _, c := range opts.PreferredColumns {
		if containsColumn(safeCols, c) && !inOrdered[c] {
			ordered = append(ordered, c)
			inOrdered[c] = true
		}
	}
	for _, c := range safeCols {
		if !inOrdered[c] {
			ordered = append(ordered, c)
			inOrdered[c] = true
		}
	}

	if len(ordered) == 0 {
		fallback := cleaned.Columns
		if len(fallback) > opts.MaxColumns {
			fallback = fallback[:opts.MaxColumns]
		}
		return cleaned.Project(fallback)
	}
	if len(ordered) > opts.MaxColumns {
		ordered = ordered[:opts.MaxColumns]
	}
	return cleaned.Project(ordered)
}

// CoerceNumericColumn force-converts one column to numeric values, turning
// failures into null. Used for columns known to be numeric regardless of the
// sanitizer threshold (lot counts, coordinates, tax totals).
func CoerceNumericColumn(t models.Table, col string) models.Table {
	if !containsColumn(t.Columns, col) {
		return t
	}
	cells := t.Column(col)
	coerced, _, _ := coerceColumn(cells)
	return t.WithColumn(col, coerced)
}

func classifyColumn(cells []models.Value) columnKind {
	kind := colEmpty
	for _, c := range cells {
		var k columnKind
		switch c.Kind() {
		case models.KindNull:
			continue
		case models.KindNumber:
			k = colNumeric
		case models.KindBool:
			k = colBool
		case models.KindString:
			k = colString
		default:
			return colMixed
		}
		if kind == colEmpty {
			kind = k
		} else if kind != k {
			return colMixed
		}
	}
	if kind == colString && allTemporal(cells) {
		return colTemporal
	}
	return kind
}

var temporalLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
}

func allTemporal(cells []models.Value) bool {
	seen := false
	for _, c := range cells {
		s, ok := c.AsString()
		if !ok {
			continue
		}
		if parseTemporal(s) == nil {
			return false
		}
		seen = true
	}
	return seen
}

func parseTemporal(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range temporalLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return &ts
		}
	}
	return nil
}

// coerceColumn attempts numeric coercion cell by cell. It reports the number
// of non-null original values and how many of them coerced.
func coerceColumn(cells []models.Value) (coerced []models.Value, nonNull, successes int) {
	coerced = make([]models.Value, len(cells))
	for i, c := range cells {
		if c.IsNull() {
			coerced[i] = models.Null()
			continue
		}
		nonNull++
		f, ok := coerceNumeric(c)
		if !ok {
			coerced[i] = models.Null()
			continue
		}
		successes++
		coerced[i] = models.Number(f)
	}
	return coerced, nonNull, successes
}

func coerceNumeric(v models.Value) (float64, bool) {
	switch v.Kind() {
	case models.KindNumber:
		f, _ := v.AsFloat()
		return f, true
	case models.KindBool:
		if v.AsBool() {
			return 1, true
		}
		return 0, true
	case models.KindString:
		s, _ := v.AsString()
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// jsonText serializes a non-scalar value to JSON text, falling back to the
// value's default textual form when marshaling fails.
func jsonText(v models.Value) string {
	b, err := v.MarshalJSON()
	if err != nil {
		return v.Text()
	}
	return string(b)
}

func columnIsSafe(cells []models.Value) bool {
	for _, c := range cells {
		if !c.IsScalar() {
			return false
		}
	}
	return true
}

func containsColumn(cols []string, name string) bool {
	for _, c := range cols {
		if c == name {
			return true
		}
	}
	return false
}
