package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "bankfeed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testMapping() model.ColumnMapping {
	return model.ColumnMapping{
		DateCol: 0, AmountCol: 1, DescCol: 2,
		DebitCol: -1, CreditCol: -1,
		DateFormat: "MM/DD/YYYY",
		HasHeaders: true,
	}
}

func testBatch(id string) model.ImportBatch {
	return model.ImportBatch{
		ID:          id,
		FileName:    "checking.csv",
		SourceType:  "csv",
		Account:     "checking",
		State:       model.BatchStaged,
		Fingerprint: "3-abc123",
		Mapping:     testMapping(),
		RawRows: [][]string{
			{"Date", "Amount", "Description"},
			{"01/02/2024", "-4.50", "Coffee Shop"},
		},
		Transactions: []model.ParsedTransaction{
			{
				Date:        time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
				Description: "Coffee Shop",
				Amount:      decimal.RequireFromString("-4.50"),
				Type:        model.TypeExpense,
				Merchant:    "Coffee Shop",
				ContentHash: "hash-" + id,
				Status:      model.StatusPending,
				Splits: []model.Split{
					{CategoryID: "cat-dining", Amount: decimal.RequireFromString("-4.50")},
				},
			},
		},
		CreatedAt: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestOpen_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "bankfeed.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
}

func TestTemplates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.LookupTemplate(ctx, "3-abc123")
	assert.ErrorIs(t, err, ErrNotFound)

	id, err := s.SaveTemplate(ctx, "3-abc123", testMapping(), "Chase Checking")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	tmpl, err := s.LookupTemplate(ctx, "3-abc123")
	require.NoError(t, err)
	assert.Equal(t, id, tmpl.ID)
	assert.Equal(t, "Chase Checking", tmpl.Name)
	assert.Equal(t, testMapping(), tmpl.Mapping)
	assert.Equal(t, 0, tmpl.UseCount)
}

func TestSaveTemplate_NeverMutatesExisting(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.SaveTemplate(ctx, "3-abc123", testMapping(), "Original")
	require.NoError(t, err)

	other := testMapping()
	other.DateCol = 5
	second, err := s.SaveTemplate(ctx, "3-abc123", other, "Replacement")
	require.NoError(t, err)
	assert.Equal(t, first, second, "the stored template's ID is reported")

	tmpl, err := s.LookupTemplate(ctx, "3-abc123")
	require.NoError(t, err)
	assert.Equal(t, "Original", tmpl.Name)
	assert.Equal(t, 0, tmpl.Mapping.DateCol)
}

func TestSaveTemplate_DefaultName(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.SaveTemplate(ctx, "3-abc123", testMapping(), "")
	require.NoError(t, err)

	tmpl, err := s.LookupTemplate(ctx, "3-abc123")
	require.NoError(t, err)
	assert.Equal(t, "Layout 3-abc123", tmpl.Name)
}

func TestTouchTemplate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.SaveTemplate(ctx, "3-abc123", testMapping(), "Chase")
	require.NoError(t, err)

	require.NoError(t, s.TouchTemplate(ctx, "3-abc123"))
	require.NoError(t, s.TouchTemplate(ctx, "3-abc123"))

	tmpl, err := s.LookupTemplate(ctx, "3-abc123")
	require.NoError(t, err)
	assert.Equal(t, 2, tmpl.UseCount)
}

func TestListTemplates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.SaveTemplate(ctx, "3-aaa", testMapping(), "A")
	require.NoError(t, err)
	_, err = s.SaveTemplate(ctx, "4-bbb", testMapping(), "B")
	require.NoError(t, err)

	templates, err := s.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, templates, 2)
}

func TestBatchRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batch := testBatch("batch-1")
	require.NoError(t, s.SaveBatch(ctx, batch))

	got, err := s.GetBatch(ctx, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, batch.FileName, got.FileName)
	assert.Equal(t, batch.State, got.State)
	assert.Equal(t, batch.Mapping, got.Mapping)
	assert.Equal(t, batch.RawRows, got.RawRows)
	require.Len(t, got.Transactions, 1)

	txn := got.Transactions[0]
	assert.Equal(t, batch.Transactions[0].Date, txn.Date)
	assert.True(t, txn.Amount.Equal(batch.Transactions[0].Amount))
	assert.Equal(t, model.StatusPending, txn.Status)
	require.Len(t, txn.Splits, 1)
	assert.Equal(t, "cat-dining", txn.Splits[0].CategoryID)
	assert.True(t, txn.Splits[0].Amount.Equal(decimal.RequireFromString("-4.50")))
}

func TestSaveBatch_LastWriteWins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batch := testBatch("batch-1")
	require.NoError(t, s.SaveBatch(ctx, batch))

	batch.State = model.BatchCommitted
	batch.Transactions[0].Status = model.StatusConfirmed
	batch.Transactions = append(batch.Transactions, model.ParsedTransaction{
		Date:        time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		Description: "Payroll",
		Amount:      decimal.RequireFromString("2500.00"),
		Type:        model.TypeIncome,
		Merchant:    "Payroll",
		ContentHash: "hash-2",
		Status:      model.StatusPending,
	})
	require.NoError(t, s.SaveBatch(ctx, batch))

	got, err := s.GetBatch(ctx, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, model.BatchCommitted, got.State)
	require.Len(t, got.Transactions, 2)
	assert.Equal(t, model.StatusConfirmed, got.Transactions[0].Status)
}

func TestGetBatch_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetBatch(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteBatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveBatch(ctx, testBatch("batch-1")))
	require.NoError(t, s.DeleteBatch(ctx, "batch-1"))

	_, err := s.GetBatch(ctx, "batch-1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteBatch(ctx, "batch-1"), ErrNotFound)
}

func TestListBatches(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := testBatch("batch-1")
	second := testBatch("batch-2")
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	require.NoError(t, s.SaveBatch(ctx, first))
	require.NoError(t, s.SaveBatch(ctx, second))

	batches, err := s.ListBatches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, "batch-2", batches[0].ID, "newest first")
	assert.Len(t, batches[0].Transactions, 1)
}

func TestCommitBatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batch := testBatch("batch-1")
	require.NoError(t, s.SaveBatch(ctx, batch))
	require.NoError(t, s.CommitBatch(ctx, batch, batch.Transactions))

	n, err := s.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.GetBatch(ctx, "batch-1")
	assert.ErrorIs(t, err, ErrNotFound, "the batch is discarded on commit")

	existing, err := s.ExistingHashes(ctx, []string{"hash-batch-1", "hash-other"})
	require.NoError(t, err)
	assert.True(t, existing["hash-batch-1"])
	assert.False(t, existing["hash-other"])
}

func TestCommitBatch_SkipsAlreadyCommittedHashes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batch := testBatch("batch-1")
	require.NoError(t, s.CommitBatch(ctx, batch, batch.Transactions))

	rerun := testBatch("batch-2")
	rerun.Transactions[0].ContentHash = "hash-batch-1"
	require.NoError(t, s.CommitBatch(ctx, rerun, rerun.Transactions))

	n, err := s.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "an unconfirmed hash can only be committed once")
}

func TestCommitBatch_ConfirmedReinclude(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batch := testBatch("batch-1")
	require.NoError(t, s.CommitBatch(ctx, batch, batch.Transactions))

	// A confirmed transaction with an identical hash is a deliberate
	// re-include (for example rent charged twice in one month) and must
	// land in history alongside the first copy.
	again := testBatch("batch-2")
	again.Transactions[0].ContentHash = "hash-batch-1"
	again.Transactions[0].Status = model.StatusConfirmed
	again.Transactions[0].IsDuplicate = true
	require.NoError(t, s.CommitBatch(ctx, again, again.Transactions))

	n, err := s.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestExistingHashes_Empty(t *testing.T) {
	s := openTestStore(t)
	existing, err := s.ExistingHashes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, existing)
}

func TestCategories(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddCategory(ctx, model.Category{ID: "cat-dining", Name: "Dining"}))
	require.NoError(t, s.AddCategory(ctx, model.Category{ID: "cat-auto", Name: "Auto"}))
	require.NoError(t, s.AddCategory(ctx, model.Category{ID: "cat-dining", Name: "Renamed"}),
		"re-adding an existing ID is a no-op")

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Auto", cats[0].Name)
	assert.Equal(t, "Dining", cats[1].Name)
}
