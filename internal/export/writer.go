package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	apperrors "parkinsight/internal/errors"
	"parkinsight/internal/models"
	"parkinsight/internal/transformers"
)

// Write serializes records to path, choosing the format from the file
// extension. JSON keeps the raw record trees; CSV renders one row per record
// over the union of keys, serializing non-scalar cells as JSON text. An
// unrecognized extension is a hard failure.
func Write(path string, records []models.Value) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return writeJSON(path, records)
	case ".csv":
		return writeCSV(path, records)
	}
	return apperrors.NewAppError(
		fmt.Sprintf("unsupported output extension: %s", filepath.Ext(path)),
		"output file must end in .json or .csv",
		apperrors.ErrCodeUnsupportedFormat,
		http.StatusBadRequest,
		nil,
	)
}

func writeJSON(path string, records []models.Value) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(models.Array(records...)); err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// writeCSV emits a UTF-8 BOM so spreadsheet tools detect the encoding.
func writeCSV(path string, records []models.Value) error {
	table := models.BuildTable(transformers.ExpandRecords(records))

	var buf bytes.Buffer
	buf.WriteString("\uFEFF")

	w := csv.NewWriter(&buf)
	if err := w.Write(table.Columns); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for i := range table.Rows {
		row := make([]string, len(table.Columns))
		for j, col := range table.Columns {
			row[j] = cellText(table.Cell(i, col))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func cellText(v models.Value) string {
	if v.IsNull() {
		return ""
	}
	if v.IsScalar() {
		return v.Text()
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(data)
}
