package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType splits transactions by sign convention.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// DuplicateType records where a duplicate was found.
type DuplicateType string

const (
	DuplicateNone       DuplicateType = ""
	DuplicateWithinFile DuplicateType = "within-file"
	DuplicateDatabase   DuplicateType = "database"
)

// TransactionStatus is the review state of a staged transaction.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusConfirmed TransactionStatus = "confirmed"
	StatusExcluded  TransactionStatus = "excluded"
)

// Split assigns part of a transaction's amount to a category.
type Split struct {
	CategoryID string
	Amount     decimal.Decimal
}

// ParsedTransaction is one bank row after parsing with a resolved mapping.
// Created by the parser; the hash/duplicate fields are filled by duplicate
// detection, splits and status by categorization and user review.
type ParsedTransaction struct {
	Date          time.Time // calendar date, no time component
	Description   string
	Amount        decimal.Decimal // signed; negative = expense by convention
	Type          TransactionType
	Merchant      string // derived from Description
	IsDuplicate   bool
	DuplicateType DuplicateType
	ContentHash   string
	Status        TransactionStatus
	Splits        []Split
	ParseError    string // non-empty when the source row needs correction
}

// Categorized reports whether at least one category split is assigned.
func (t ParsedTransaction) Categorized() bool {
	return len(t.Splits) > 0
}

// SplitsBalance reports whether the splits sum to the transaction amount.
// A transaction with no splits is trivially balanced.
func (t ParsedTransaction) SplitsBalance() bool {
	if len(t.Splits) == 0 {
		return true
	}
	sum := decimal.Zero
	for _, s := range t.Splits {
		sum = sum.Add(s.Amount)
	}
	return sum.Equal(t.Amount)
}
