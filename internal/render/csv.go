package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gridbill/gridbill/internal/model"
	"github.com/gridbill/gridbill/internal/worker"
)

// Columns returns the CSV header for the given policy: provenance columns
// first, then every field column that survives redaction, then notes.
func Columns(policy model.RedactionPolicy) []string {
	cols := []string{"source_file", "extraction_status", "missing_fields"}
	for _, f := range model.AllFields() {
		if f.Sensitive() && !policy.Show(f) {
			continue
		}
		cols = append(cols, string(f))
	}
	return append(cols, "notes")
}

// Row renders one batch result as a CSV row aligned with Columns(policy).
// Results without a record become failed rows carrying the error as a note,
// so a batch always yields one row per input file.
func Row(res *worker.FileResult, policy model.RedactionPolicy) []string {
	if res.Record == nil {
		return errorRow(res, policy)
	}

	rec := res.Record
	row := []string{rec.SourceFile, string(rec.Status), joinFields(rec.MissingFields)}
	for _, f := range model.AllFields() {
		if f.Sensitive() && !policy.Show(f) {
			continue
		}
		if v, ok := rec.Get(f); ok {
			row = append(row, v.String())
		} else {
			row = append(row, "")
		}
	}
	return append(row, strings.Join(rec.Notes, "; "))
}

func errorRow(res *worker.FileResult, policy model.RedactionPolicy) []string {
	note := "error: no result"
	if res.Err != nil {
		note = fmt.Sprintf("error: %v", res.Err)
	}

	row := []string{filepath.Base(res.Path), string(model.StatusFailed), ""}
	for _, f := range model.AllFields() {
		if f.Sensitive() && !policy.Show(f) {
			continue
		}
		row = append(row, "")
	}
	return append(row, note)
}

func joinFields(fields []model.Field) string {
	if len(fields) == 0 {
		return ""
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, "; ")
}

// WriteCSV writes the header and one row per result, preserving input order.
func WriteCSV(w io.Writer, results []*worker.FileResult, policy model.RedactionPolicy) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns(policy)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, res := range results {
		if err := cw.Write(Row(res, policy)); err != nil {
			return fmt.Errorf("write row for %s: %w", res.Path, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the batch to a new file at path.
func WriteCSVFile(path string, results []*worker.FileResult, policy model.RedactionPolicy) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	return WriteCSV(f, results, policy)
}
