package importer

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankfeed-dev/bankfeed/internal/analyzer"
	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// europeanAmountRe matches decimal-comma amounts, with optional dot
// thousands separators: "1.234,56".
var europeanAmountRe = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})*,\d{1,2}$`)

// ParseRows converts tokenized rows into transactions using a resolved
// mapping. A malformed date or amount does not drop the row: the transaction
// is still produced with ParseError set so the user can correct it in review.
func ParseRows(rows [][]string, mapping model.ColumnMapping) []model.ParsedTransaction {
	start := 0
	if mapping.HasHeaders {
		start = 1
	}

	var txns []model.ParsedTransaction
	for i, row := range rows[start:] {
		if emptyRow(row) {
			continue
		}
		txn := parseRow(row, mapping)
		if txn.ParseError != "" {
			txn.ParseError = fmt.Sprintf("row %d: %s", start+i+1, txn.ParseError)
		}
		txns = append(txns, txn)
	}
	return txns
}

func parseRow(row []string, mapping model.ColumnMapping) model.ParsedTransaction {
	txn := model.ParsedTransaction{Status: model.StatusPending}

	desc := strings.TrimSpace(cell(row, mapping.DescCol))
	txn.Description = desc
	txn.Merchant = Merchant(desc)

	date, err := ParseDate(cell(row, mapping.DateCol), mapping.DateFormat)
	if err != nil {
		txn.ParseError = err.Error()
	} else {
		txn.Date = date
	}

	amount, err := rowAmount(row, mapping)
	if err != nil {
		if txn.ParseError != "" {
			txn.ParseError += "; "
		}
		txn.ParseError += err.Error()
	}
	txn.Amount = amount
	if amount.IsPositive() {
		txn.Type = model.TypeIncome
	} else {
		txn.Type = model.TypeExpense
	}
	return txn
}

// rowAmount resolves the signed amount, from either a single amount column
// or a debit/credit pair (debits negate).
func rowAmount(row []string, mapping model.ColumnMapping) (decimal.Decimal, error) {
	if mapping.AmountCol >= 0 {
		return ParseAmount(cell(row, mapping.AmountCol))
	}

	amount := decimal.Zero
	if v := strings.TrimSpace(cell(row, mapping.DebitCol)); v != "" {
		debit, err := ParseAmount(v)
		if err != nil {
			return decimal.Zero, err
		}
		amount = amount.Sub(debit.Abs())
	}
	if v := strings.TrimSpace(cell(row, mapping.CreditCol)); v != "" {
		credit, err := ParseAmount(v)
		if err != nil {
			return decimal.Zero, err
		}
		amount = amount.Add(credit.Abs())
	}
	return amount, nil
}

// ParseAmount parses a monetary cell: currency symbols and thousands
// separators are stripped, parentheses negate, and decimal-comma values are
// normalized.
func ParseAmount(s string) (decimal.Decimal, error) {
	v := strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"'`))
	if v == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		negative = true
		v = strings.TrimSpace(v[1 : len(v)-1])
	}
	v = strings.NewReplacer("$", "", "€", "", "£", "", " ", "").Replace(v)

	if europeanAmountRe.MatchString(v) {
		v = strings.ReplaceAll(v, ".", "")
		v = strings.ReplaceAll(v, ",", ".")
	} else {
		v = strings.ReplaceAll(v, ",", "")
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParseDate parses a date cell using the detected format label. The "auto"
// label (and an unknown label) falls back to trying every known layout.
func ParseDate(s, format string) (time.Time, error) {
	v := strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"'`))
	if v == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if layout, ok := analyzer.DateLayout(format); ok {
		t, err := time.Parse(layout, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing date %q as %s: %w", s, format, err)
		}
		return truncateToDay(t), nil
	}

	for _, layout := range analyzer.GenericDateLayouts() {
		if t, err := time.Parse(layout, v); err == nil {
			return truncateToDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing date %q: no known format", s)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Merchant derives a categorization key from a raw description: whitespace
// collapsed, trailing reference numbers and card fragments dropped.
func Merchant(desc string) string {
	fields := strings.Fields(desc)
	// Trim trailing tokens that are reference noise rather than a name.
	for len(fields) > 1 {
		last := fields[len(fields)-1]
		if isReferenceToken(last) {
			fields = fields[:len(fields)-1]
			continue
		}
		break
	}
	return strings.Join(fields, " ")
}

var digitsOnlyRe = regexp.MustCompile(`^[#*]?\d+$`)

func isReferenceToken(tok string) bool {
	if digitsOnlyRe.MatchString(tok) {
		return true
	}
	// Mixed alphanumeric reference codes like "X7F3K9Q2" but not short
	// real words such as "7-ELEVEN".
	if len(tok) >= 6 && strings.IndexFunc(tok, isDigit) >= 0 && strings.IndexFunc(tok, isLetter) >= 0 && !strings.Contains(tok, "-") {
		return true
	}
	return false
}

func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isLetter(r rune) bool { return r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' }

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

func emptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
