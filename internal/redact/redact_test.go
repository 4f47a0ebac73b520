package redact

import (
	"reflect"
	"testing"

	"github.com/gridbill/gridbill/internal/model"
)

func sampleRecord() *model.InvoiceRecord {
	return &model.InvoiceRecord{
		SourceFile: "2024-07.pdf",
		Status:     model.StatusPartial,
		Fields: map[model.Field]model.Value{
			model.FieldInvoiceNumber:   model.TextValue("INV-2024-001"),
			model.FieldCustomerAccount: model.TextValue("0234567890"),
			model.FieldCustomerAddress: model.TextValue("99 Example Road, Ban Suan"),
		},
		MissingFields: []model.Field{model.FieldDueDate},
		Notes: []string{
			"customer_account: label occurs 2 times with differing values",
			"reconciliation: subtotal 100.00 + tax 7.00 = 107.00, grand total is 110.00",
		},
	}
}

func TestApply_RemovesSensitiveFields(t *testing.T) {
	out := Apply(sampleRecord(), model.RedactionPolicy{})

	if out.Has(model.FieldCustomerAccount) {
		t.Error("customer_account should be removed by the default policy")
	}
	if out.Has(model.FieldCustomerAddress) {
		t.Error("customer_address should be removed by the default policy")
	}
	if !out.Has(model.FieldInvoiceNumber) {
		t.Error("non-sensitive fields should survive")
	}
}

func TestApply_DropsNotesForRedactedFields(t *testing.T) {
	out := Apply(sampleRecord(), model.RedactionPolicy{})

	if len(out.Notes) != 1 {
		t.Fatalf("expected 1 surviving note, got %v", out.Notes)
	}
	if out.Notes[0] != "reconciliation: subtotal 100.00 + tax 7.00 = 107.00, grand total is 110.00" {
		t.Errorf("wrong note survived: %q", out.Notes[0])
	}
}

func TestApply_ShowFlags(t *testing.T) {
	policy := model.RedactionPolicy{ShowCustomerAccount: true}
	out := Apply(sampleRecord(), policy)

	if !out.Has(model.FieldCustomerAccount) {
		t.Error("customer_account should be kept when shown")
	}
	if out.Has(model.FieldCustomerAddress) {
		t.Error("customer_address should still be removed")
	}
	if len(out.Notes) != 2 {
		t.Errorf("account notes should be kept when the field is shown, got %v", out.Notes)
	}
}

func TestApply_LeavesInputUntouched(t *testing.T) {
	rec := sampleRecord()
	Apply(rec, model.RedactionPolicy{})

	if !rec.Has(model.FieldCustomerAccount) || !rec.Has(model.FieldCustomerAddress) {
		t.Error("input record was modified")
	}
	if len(rec.Notes) != 2 {
		t.Errorf("input notes were modified: %v", rec.Notes)
	}
}

func TestApply_Idempotent(t *testing.T) {
	policy := model.RedactionPolicy{ShowCustomerAddress: true}

	once := Apply(sampleRecord(), policy)
	twice := Apply(once, policy)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second application changed the record:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestApply_KeepsStatusAndMissing(t *testing.T) {
	out := Apply(sampleRecord(), model.RedactionPolicy{})

	if out.Status != model.StatusPartial {
		t.Errorf("status changed to %s", out.Status)
	}
	if len(out.MissingFields) != 1 || out.MissingFields[0] != model.FieldDueDate {
		t.Errorf("missing_fields changed: %v", out.MissingFields)
	}
}
