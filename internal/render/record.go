package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gridbill/gridbill/internal/model"
)

// Text writes a human-readable listing of one record: present fields in
// canonical order, then missing fields and notes.
func Text(w io.Writer, rec *model.InvoiceRecord) error {
	if _, err := fmt.Fprintf(w, "File:    %s\nStatus:  %s\n", rec.SourceFile, rec.Status); err != nil {
		return err
	}

	for _, f := range model.AllFields() {
		v, ok := rec.Get(f)
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(w, "  %-18s %s\n", f, v.String()); err != nil {
			return err
		}
	}

	if len(rec.MissingFields) > 0 {
		if _, err := fmt.Fprintf(w, "Missing: %s\n", joinFields(rec.MissingFields)); err != nil {
			return err
		}
	}
	for _, note := range rec.Notes {
		if _, err := fmt.Fprintf(w, "Note:    %s\n", note); err != nil {
			return err
		}
	}
	return nil
}

// recordJSON is the flat wire form: every value in its canonical string
// rendering, matching the CSV cells.
type recordJSON struct {
	SourceFile    string                 `json:"source_file"`
	Status        model.ExtractionStatus `json:"extraction_status"`
	Fields        map[string]string      `json:"fields"`
	MissingFields []string               `json:"missing_fields,omitempty"`
	Notes         []string               `json:"notes,omitempty"`
}

// JSON writes one record as indented JSON.
func JSON(w io.Writer, rec *model.InvoiceRecord) error {
	out := recordJSON{
		SourceFile: rec.SourceFile,
		Status:     rec.Status,
		Fields:     make(map[string]string, len(rec.Fields)),
		Notes:      rec.Notes,
	}
	for f, v := range rec.Fields {
		out.Fields[string(f)] = v.String()
	}
	for _, f := range rec.MissingFields {
		out.MissingFields = append(out.MissingFields, string(f))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
