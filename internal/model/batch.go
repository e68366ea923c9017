package model

import "time"

// BatchState is the pipeline lifecycle state of an import batch.
type BatchState string

const (
	BatchAwaitingMapping BatchState = "awaiting-mapping"
	BatchStaged          BatchState = "staged"
	BatchCommitted       BatchState = "committed"
)

// ImportBatch groups the transactions produced from one source file.
// Created when a file finishes parsing (or suspends awaiting a manual
// mapping); deleted explicitly or consumed on commit.
type ImportBatch struct {
	ID           string
	FileName     string
	SourceType   string // "csv", "pdf-extract", ...
	Account      string
	State        BatchState
	Fingerprint  string
	Mapping      ColumnMapping
	AutoAccepted bool
	Transactions []ParsedTransaction
	RawRows      [][]string // snapshot of the tokenized source, for re-parsing
	CreatedAt    time.Time
}

// DuplicateCounts returns the number of within-file and database duplicates.
func (b ImportBatch) DuplicateCounts() (withinFile, database int) {
	for _, t := range b.Transactions {
		switch t.DuplicateType {
		case DuplicateWithinFile:
			withinFile++
		case DuplicateDatabase:
			database++
		}
	}
	return withinFile, database
}

// CommittableTransactions returns the transactions eligible for commit:
// not excluded, and not flagged as duplicates unless the user explicitly
// confirmed them back in.
func (b ImportBatch) CommittableTransactions() []ParsedTransaction {
	var out []ParsedTransaction
	for _, t := range b.Transactions {
		if t.Status == StatusExcluded {
			continue
		}
		if t.IsDuplicate && t.Status != StatusConfirmed {
			continue
		}
		out = append(out, t)
	}
	return out
}
