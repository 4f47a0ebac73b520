package render

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gridbill/gridbill/internal/model"
	"github.com/gridbill/gridbill/internal/worker"
	"github.com/shopspring/decimal"
)

func sampleRecord() *model.InvoiceRecord {
	return &model.InvoiceRecord{
		SourceFile: "2024-07.pdf",
		Status:     model.StatusPartial,
		Fields: map[model.Field]model.Value{
			model.FieldInvoiceNumber:   model.TextValue("INV-2024-001"),
			model.FieldBillingPeriod:   model.PeriodValue(model.Period{Year: 2024, Month: time.July}),
			model.FieldCustomerAccount: model.TextValue("0234567890"),
			model.FieldGrandTotal:      model.AmountValue(decimal.RequireFromString("128.45")),
		},
		MissingFields: []model.Field{model.FieldDueDate, model.FieldTax},
		Notes:         []string{"usage: tier units total 115, metered usage is 120"},
	}
}

func TestColumns_HidesSensitiveByDefault(t *testing.T) {
	cols := Columns(model.RedactionPolicy{})

	// 3 provenance columns, 20 surviving fields, notes
	if len(cols) != 24 {
		t.Fatalf("Expected 24 columns, got %d: %v", len(cols), cols)
	}
	if cols[0] != "source_file" || cols[1] != "extraction_status" || cols[2] != "missing_fields" {
		t.Errorf("Unexpected leading columns: %v", cols[:3])
	}
	if cols[len(cols)-1] != "notes" {
		t.Errorf("Expected notes last, got %s", cols[len(cols)-1])
	}
	for _, c := range cols {
		if c == "customer_account" || c == "customer_address" {
			t.Errorf("Expected sensitive column %s to be hidden", c)
		}
	}
}

func TestColumns_ShowFlags(t *testing.T) {
	policy := model.RedactionPolicy{ShowCustomerAccount: true, ShowCustomerAddress: true}
	cols := Columns(policy)

	if len(cols) != 26 {
		t.Fatalf("Expected 26 columns, got %d", len(cols))
	}
	joined := strings.Join(cols, ",")
	if !strings.Contains(joined, "customer_account") || !strings.Contains(joined, "customer_address") {
		t.Error("Expected sensitive columns to be present")
	}
}

func TestWriteCSV(t *testing.T) {
	results := []*worker.FileResult{
		{Index: 0, Path: "in/2024-07.pdf", Record: sampleRecord()},
		{Index: 1, Path: "in/broken.pdf", Err: errors.New("unreadable document: in/broken.pdf")},
	}

	var buf bytes.Buffer
	policy := model.RedactionPolicy{ShowCustomerAccount: true}
	if err := WriteCSV(&buf, results, policy); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Reading output failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d", len(rows))
	}

	header := rows[0]
	col := func(name string) int {
		for i, c := range header {
			if c == name {
				return i
			}
		}
		t.Fatalf("Column %s not found in %v", name, header)
		return -1
	}

	first := rows[1]
	if first[col("source_file")] != "2024-07.pdf" {
		t.Errorf("Unexpected source file: %s", first[col("source_file")])
	}
	if first[col("extraction_status")] != "partial" {
		t.Errorf("Unexpected status: %s", first[col("extraction_status")])
	}
	if first[col("missing_fields")] != "due_date; tax" {
		t.Errorf("Unexpected missing fields: %s", first[col("missing_fields")])
	}
	if first[col("billing_period")] != "2024-07" {
		t.Errorf("Unexpected period: %s", first[col("billing_period")])
	}
	if first[col("grand_total")] != "128.45" {
		t.Errorf("Unexpected grand total: %s", first[col("grand_total")])
	}
	if first[col("customer_account")] != "0234567890" {
		t.Errorf("Unexpected account: %s", first[col("customer_account")])
	}
	if first[col("tax")] != "" {
		t.Errorf("Expected empty cell for missing field, got %s", first[col("tax")])
	}
	if first[col("notes")] != "usage: tier units total 115, metered usage is 120" {
		t.Errorf("Unexpected notes: %s", first[col("notes")])
	}

	second := rows[2]
	if second[col("source_file")] != "broken.pdf" {
		t.Errorf("Unexpected error row file: %s", second[col("source_file")])
	}
	if second[col("extraction_status")] != "failed" {
		t.Errorf("Unexpected error row status: %s", second[col("extraction_status")])
	}
	if second[col("notes")] != "error: unreadable document: in/broken.pdf" {
		t.Errorf("Unexpected error note: %s", second[col("notes")])
	}
	if second[col("grand_total")] != "" {
		t.Error("Expected empty field cells on error rows")
	}
}

func TestWriteCSV_DefaultPolicyDropsSensitiveCells(t *testing.T) {
	results := []*worker.FileResult{{Path: "in/2024-07.pdf", Record: sampleRecord()}}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, results, model.RedactionPolicy{}); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "0234567890") {
		t.Error("Expected account number to be absent under the default policy")
	}
	if !strings.Contains(out, "INV-2024-001") {
		t.Error("Expected non-sensitive values to be present")
	}
}

func TestWriteCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoices.csv")
	results := []*worker.FileResult{{Path: "in/2024-07.pdf", Record: sampleRecord()}}

	if err := WriteCSVFile(path, results, model.RedactionPolicy{}); err != nil {
		t.Fatalf("WriteCSVFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Reading output failed: %v", err)
	}
	if !strings.HasPrefix(string(data), "source_file,extraction_status,missing_fields") {
		t.Errorf("Unexpected header: %s", strings.SplitN(string(data), "\n", 2)[0])
	}
}
