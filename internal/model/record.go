package model

import "sort"

// ExtractionStatus classifies the overall outcome for one document.
type ExtractionStatus string

const (
	StatusComplete ExtractionStatus = "complete" // every field resolved cleanly
	StatusPartial  ExtractionStatus = "partial"  // usable, but fields missing or ambiguous
	StatusFailed   ExtractionStatus = "failed"   // a required field could not be established
)

// ResultStatus tags the outcome of a single field matcher.
type ResultStatus string

const (
	ResultFound     ResultStatus = "found"
	ResultNotFound  ResultStatus = "not_found"
	ResultAmbiguous ResultStatus = "ambiguous"
)

// FieldResult is the outcome of one matcher against one document. Malformed
// input is never an error; it surfaces as not_found or ambiguous.
type FieldResult struct {
	Field      Field        `json:"field"`
	Status     ResultStatus `json:"status"`
	Value      Value        `json:"value,omitempty"`      // set when found
	Raw        string       `json:"raw,omitempty"`        // raw matched substring
	Candidates []string     `json:"candidates,omitempty"` // raw values when ambiguous
	Note       string       `json:"note,omitempty"`
}

// Found builds a successful result carrying the parsed value and its raw form.
func Found(f Field, v Value, raw string) FieldResult {
	return FieldResult{Field: f, Status: ResultFound, Value: v, Raw: raw}
}

// NotFound builds a result for an absent or unparseable field.
func NotFound(f Field) FieldResult {
	return FieldResult{Field: f, Status: ResultNotFound}
}

// Ambiguous builds a result for a field with competing candidate values.
func Ambiguous(f Field, candidates []string, note string) FieldResult {
	return FieldResult{Field: f, Status: ResultAmbiguous, Candidates: candidates, Note: note}
}

// InvoiceRecord is the canonical structured representation of one parsed
// invoice. Treated as immutable after assembly; redaction clones.
type InvoiceRecord struct {
	SourceFile    string           `json:"source_file"`
	Status        ExtractionStatus `json:"extraction_status"`
	Fields        map[Field]Value  `json:"fields"`
	MissingFields []Field          `json:"missing_fields,omitempty"`
	Notes         []string         `json:"notes,omitempty"`
}

// Get returns the value for a field and whether it is present.
func (r *InvoiceRecord) Get(f Field) (Value, bool) {
	v, ok := r.Fields[f]
	return v, ok
}

// Has reports whether the field carries a value.
func (r *InvoiceRecord) Has(f Field) bool {
	_, ok := r.Fields[f]
	return ok
}

// Missing reports whether the field is listed as missing.
func (r *InvoiceRecord) Missing(f Field) bool {
	for _, m := range r.MissingFields {
		if m == f {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the record.
func (r *InvoiceRecord) Clone() *InvoiceRecord {
	out := &InvoiceRecord{
		SourceFile: r.SourceFile,
		Status:     r.Status,
		Fields:     make(map[Field]Value, len(r.Fields)),
	}
	for f, v := range r.Fields {
		out.Fields[f] = v
	}
	if r.MissingFields != nil {
		out.MissingFields = make([]Field, len(r.MissingFields))
		copy(out.MissingFields, r.MissingFields)
	}
	if r.Notes != nil {
		out.Notes = make([]string, len(r.Notes))
		copy(out.Notes, r.Notes)
	}
	return out
}

// SortFields orders field names by canonical column order, unknown names last.
func SortFields(fields []Field) {
	pos := make(map[Field]int, len(allFields))
	for i, f := range allFields {
		pos[f] = i
	}
	sort.SliceStable(fields, func(i, j int) bool {
		pi, iok := pos[fields[i]]
		pj, jok := pos[fields[j]]
		if iok && jok {
			return pi < pj
		}
		if iok != jok {
			return iok
		}
		return fields[i] < fields[j]
	})
}
