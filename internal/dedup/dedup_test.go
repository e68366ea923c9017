package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

func txn(date string, desc string, amount string) model.ParsedTransaction {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return model.ParsedTransaction{
		Date:        d,
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
	}
}

type fakeHistory struct {
	existing  map[string]bool
	err       error
	gotHashes []string
}

func (f *fakeHistory) ExistingHashes(_ context.Context, hashes []string) (map[string]bool, error) {
	f.gotHashes = hashes
	if f.err != nil {
		return nil, f.err
	}
	return f.existing, nil
}

func TestContentHash_Deterministic(t *testing.T) {
	a := ContentHash(txn("2024-01-02", "Coffee Shop", "-4.50"))
	b := ContentHash(txn("2024-01-02", "Coffee Shop", "-4.50"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestContentHash_IgnoresCosmeticDifferences(t *testing.T) {
	a := ContentHash(txn("2024-01-02", "Coffee Shop", "-4.50"))
	b := ContentHash(txn("2024-01-02", "  COFFEE   shop ", "-4.5"))
	assert.Equal(t, a, b, "case, whitespace, and amount formatting should not change the hash")
}

func TestContentHash_DistinguishesFields(t *testing.T) {
	base := ContentHash(txn("2024-01-02", "Coffee Shop", "-4.50"))
	assert.NotEqual(t, base, ContentHash(txn("2024-01-03", "Coffee Shop", "-4.50")))
	assert.NotEqual(t, base, ContentHash(txn("2024-01-02", "Coffee Shop", "-4.51")))
	assert.NotEqual(t, base, ContentHash(txn("2024-01-02", "Tea Shop", "-4.50")))
}

func TestNormalizeDescription(t *testing.T) {
	assert.Equal(t, "coffee shop", NormalizeDescription("  Coffee   SHOP "))
	assert.Equal(t, "", NormalizeDescription("   "))
}

func TestCheck_WithinFile(t *testing.T) {
	txns := []model.ParsedTransaction{
		txn("2024-01-02", "Coffee Shop", "-4.50"),
		txn("2024-01-03", "Payroll", "2500.00"),
		txn("2024-01-02", "Coffee Shop", "-4.50"),
	}

	d := NewDetector(nil)
	require.NoError(t, d.Check(context.Background(), txns))

	assert.False(t, txns[0].IsDuplicate, "first occurrence is never a duplicate")
	assert.Equal(t, model.DuplicateNone, txns[0].DuplicateType)
	assert.False(t, txns[1].IsDuplicate)
	assert.True(t, txns[2].IsDuplicate)
	assert.Equal(t, model.DuplicateWithinFile, txns[2].DuplicateType)
	for i := range txns {
		assert.NotEmpty(t, txns[i].ContentHash)
	}
}

func TestCheck_HistoryTakesPrecedence(t *testing.T) {
	txns := []model.ParsedTransaction{
		txn("2024-01-02", "Coffee Shop", "-4.50"),
		txn("2024-01-02", "Coffee Shop", "-4.50"),
	}
	hash := ContentHash(txns[0])
	history := &fakeHistory{existing: map[string]bool{hash: true}}

	d := NewDetector(history)
	require.NoError(t, d.Check(context.Background(), txns))

	assert.Equal(t, model.DuplicateDatabase, txns[0].DuplicateType)
	assert.Equal(t, model.DuplicateDatabase, txns[1].DuplicateType,
		"a history hit overrides a within-file flag")
	assert.Equal(t, []string{hash, hash}, history.gotHashes)
}

func TestCheck_HistoryFailureKeepsWithinFileMarks(t *testing.T) {
	txns := []model.ParsedTransaction{
		txn("2024-01-02", "Coffee Shop", "-4.50"),
		txn("2024-01-02", "Coffee Shop", "-4.50"),
	}
	history := &fakeHistory{err: errors.New("db locked")}

	d := NewDetector(history)
	err := d.Check(context.Background(), txns)
	require.Error(t, err)

	assert.True(t, txns[1].IsDuplicate)
	assert.Equal(t, model.DuplicateWithinFile, txns[1].DuplicateType)
}

func TestCheck_Idempotent(t *testing.T) {
	txns := []model.ParsedTransaction{
		txn("2024-01-02", "Coffee Shop", "-4.50"),
		txn("2024-01-02", "Coffee Shop", "-4.50"),
	}

	d := NewDetector(nil)
	require.NoError(t, d.Check(context.Background(), txns))
	require.NoError(t, d.Check(context.Background(), txns))

	assert.False(t, txns[0].IsDuplicate, "re-running must not flag the first occurrence")
	assert.True(t, txns[1].IsDuplicate)
}

func TestApplyDefaultStatus(t *testing.T) {
	categorized := txn("2024-01-02", "Coffee Shop", "-4.50")
	categorized.Splits = []model.Split{{CategoryID: "cat-1", Amount: categorized.Amount}}

	duplicate := txn("2024-01-02", "Coffee Shop", "-4.50")
	duplicate.Splits = []model.Split{{CategoryID: "cat-1", Amount: duplicate.Amount}}
	duplicate.IsDuplicate = true
	duplicate.DuplicateType = model.DuplicateWithinFile

	uncategorized := txn("2024-01-03", "Payroll", "2500.00")

	confirmed := txn("2024-01-04", "Rent", "-1200.00")
	confirmed.IsDuplicate = true
	confirmed.Status = model.StatusConfirmed

	txns := []model.ParsedTransaction{categorized, duplicate, uncategorized, confirmed}
	ApplyDefaultStatus(txns)

	assert.Equal(t, model.StatusPending, txns[0].Status)
	assert.Equal(t, model.StatusExcluded, txns[1].Status, "duplicates default to excluded")
	assert.Equal(t, model.StatusExcluded, txns[2].Status, "uncategorized transactions default to excluded")
	assert.Equal(t, model.StatusConfirmed, txns[3].Status, "a user decision is never overridden")
}
