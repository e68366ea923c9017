package model

// FieldType classifies what a source column contains.
type FieldType string

const (
	FieldDate        FieldType = "date"
	FieldAmount      FieldType = "amount"
	FieldDescription FieldType = "description"
	FieldDebit       FieldType = "debit"
	FieldCredit      FieldType = "credit"
	FieldBalance     FieldType = "balance"
	FieldUnknown     FieldType = "unknown"
)

// AssignableFields are the field types a column can be assigned to at the
// file level. Balance columns are recognized but never assigned.
var AssignableFields = []FieldType{FieldDate, FieldAmount, FieldDescription, FieldDebit, FieldCredit}

// DetectionMethod records which signal decided a column's field type.
type DetectionMethod string

const (
	DetectionHeader  DetectionMethod = "header"
	DetectionContent DetectionMethod = "content"
	DetectionHybrid  DetectionMethod = "hybrid"
)

// ColumnAnalysis is the classification result for a single source column.
// Immutable once produced; recomputed fresh for every analyzed file.
type ColumnAnalysis struct {
	ColumnIndex     int
	HeaderName      string // raw header, or synthesized "Column N"
	FieldType       FieldType
	Confidence      float64 // 0..1
	SampleValues    []string
	DetectionMethod DetectionMethod
}

// AnalysisResult aggregates column classifications for one file.
// Each best-match index, when >= 0, points into Columns and that column's
// FieldType equals the corresponding field.
type AnalysisResult struct {
	Columns     []ColumnAnalysis
	HasHeaders  bool
	DateCol     int // -1 if unmatched
	AmountCol   int
	DescCol     int
	DebitCol    int
	CreditCol   int
	DateFormat  string // "" if no date column matched
	Fingerprint string
}

// HasRequiredFields reports whether date, description, and an amount source
// (a signed amount column or a debit/credit pair member) were all matched.
func (r AnalysisResult) HasRequiredFields() bool {
	return r.DateCol >= 0 && r.DescCol >= 0 && (r.AmountCol >= 0 || r.DebitCol >= 0 || r.CreditCol >= 0)
}
