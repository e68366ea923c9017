package model

import "time"

// ColumnMapping is a resolved column-to-field assignment for one file shape.
// Index values are 0-based column positions; -1 means the field is absent.
type ColumnMapping struct {
	DateCol    int    `yaml:"date_col" json:"date_col"`
	AmountCol  int    `yaml:"amount_col" json:"amount_col"`
	DescCol    int    `yaml:"desc_col" json:"desc_col"`
	DebitCol   int    `yaml:"debit_col" json:"debit_col"`
	CreditCol  int    `yaml:"credit_col" json:"credit_col"`
	DateFormat string `yaml:"date_format" json:"date_format"`
	HasHeaders bool   `yaml:"has_headers" json:"has_headers"`
}

// Complete reports whether the mapping names a date, a description, and at
// least one amount source.
func (m ColumnMapping) Complete() bool {
	return m.DateCol >= 0 && m.DescCol >= 0 && (m.AmountCol >= 0 || m.DebitCol >= 0 || m.CreditCol >= 0)
}

// MappingTemplate is a stored association between a file-shape fingerprint
// and a confirmed column mapping. Never mutated in place; a new fingerprint
// produces a new template.
type MappingTemplate struct {
	ID          string
	Fingerprint string
	Name        string
	Mapping     ColumnMapping
	UseCount    int
	CreatedAt   time.Time
	LastUsedAt  time.Time
}
