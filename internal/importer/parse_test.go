package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"-4.50", "-4.5"},
		{"2500.00", "2500"},
		{"$1,234.56", "1234.56"},
		{"(45.00)", "-45"},
		{"($45.00)", "-45"},
		{"1.234,56", "1234.56"},
		{"-1.234,56", "-1234.56"},
		{"€12,50", "12.5"},
		{`"1,200.00"`, "1200"},
		{"  42  ", "42"},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got.String(), "input %q", tt.input)
	}
}

func TestParseAmount_Errors(t *testing.T) {
	for _, input := range []string{"", "   ", "abc", "12.34.56"} {
		_, err := ParseAmount(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestParseDate_LabeledFormat(t *testing.T) {
	got, err := ParseDate("01/02/2024", "MM/DD/YYYY")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDate("2024-01-02", "YYYY-MM-DD")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDate_AutoFallback(t *testing.T) {
	got, err := ParseDate("Jan 2, 2024", "auto")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDate_Errors(t *testing.T) {
	_, err := ParseDate("", "MM/DD/YYYY")
	assert.Error(t, err)

	_, err = ParseDate("not a date", "auto")
	assert.Error(t, err)

	_, err = ParseDate("2024-01-02", "MM/DD/YYYY")
	assert.Error(t, err, "a value that does not match the labeled format is an error")
}

func TestParseRows_AmountColumn(t *testing.T) {
	rows := [][]string{
		{"Date", "Amount", "Description"},
		{"01/02/2024", "-4.50", "Coffee Shop"},
		{"", "", ""},
		{"01/03/2024", "2500.00", "Payroll Deposit"},
	}
	mapping := model.ColumnMapping{
		DateCol: 0, AmountCol: 1, DescCol: 2,
		DebitCol: -1, CreditCol: -1,
		DateFormat: "MM/DD/YYYY",
		HasHeaders: true,
	}

	txns := ParseRows(rows, mapping)
	require.Len(t, txns, 2, "header and blank rows are skipped")

	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), txns[0].Date)
	assert.True(t, txns[0].Amount.Equal(decimal.RequireFromString("-4.50")))
	assert.Equal(t, "Coffee Shop", txns[0].Description)
	assert.Equal(t, model.TypeExpense, txns[0].Type)
	assert.Empty(t, txns[0].ParseError)

	assert.Equal(t, model.TypeIncome, txns[1].Type)
}

func TestParseRows_DebitCreditPair(t *testing.T) {
	rows := [][]string{
		{"Trans Date", "Desc", "Debit", "Credit"},
		{"01/02/2024", "Coffee Shop", "4.50", ""},
		{"01/03/2024", "Payroll", "", "2500.00"},
	}
	mapping := model.ColumnMapping{
		DateCol: 0, DescCol: 1, AmountCol: -1,
		DebitCol: 2, CreditCol: 3,
		DateFormat: "MM/DD/YYYY",
		HasHeaders: true,
	}

	txns := ParseRows(rows, mapping)
	require.Len(t, txns, 2)

	assert.True(t, txns[0].Amount.Equal(decimal.RequireFromString("-4.50")),
		"debit values negate")
	assert.Equal(t, model.TypeExpense, txns[0].Type)
	assert.True(t, txns[1].Amount.Equal(decimal.RequireFromString("2500.00")))
	assert.Equal(t, model.TypeIncome, txns[1].Type)
}

func TestParseRows_MalformedRowKept(t *testing.T) {
	rows := [][]string{
		{"01/02/2024", "-4.50", "Coffee Shop"},
		{"garbage", "not-a-number", "Mystery"},
	}
	mapping := model.ColumnMapping{
		DateCol: 0, AmountCol: 1, DescCol: 2,
		DebitCol: -1, CreditCol: -1,
		DateFormat: "MM/DD/YYYY",
	}

	txns := ParseRows(rows, mapping)
	require.Len(t, txns, 2, "malformed rows are kept for review, not dropped")

	assert.Empty(t, txns[0].ParseError)
	require.NotEmpty(t, txns[1].ParseError)
	assert.True(t, strings.HasPrefix(txns[1].ParseError, "row 2:"),
		"parse errors carry the 1-based row number")
	assert.Contains(t, txns[1].ParseError, "date")
	assert.Contains(t, txns[1].ParseError, "amount")
}

func TestParseRows_ShortRow(t *testing.T) {
	rows := [][]string{
		{"01/02/2024", "-4.50"},
	}
	mapping := model.ColumnMapping{
		DateCol: 0, AmountCol: 1, DescCol: 2,
		DebitCol: -1, CreditCol: -1,
		DateFormat: "MM/DD/YYYY",
	}

	txns := ParseRows(rows, mapping)
	require.Len(t, txns, 1)
	assert.Empty(t, txns[0].Description, "a missing cell reads as empty rather than panicking")
}

func TestMerchant(t *testing.T) {
	tests := []struct {
		desc string
		want string
	}{
		{"STARBUCKS STORE 12345", "STARBUCKS STORE"},
		{"AMAZON MKTPL X7F3K9Q2", "AMAZON MKTPL"},
		{"PAYROLL ACME CORP", "PAYROLL ACME CORP"},
		{"7-ELEVEN", "7-ELEVEN"},
		{"CHECK #1042", "CHECK"},
		{"  Coffee   Shop  ", "Coffee Shop"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Merchant(tt.desc), "desc %q", tt.desc)
	}
}
