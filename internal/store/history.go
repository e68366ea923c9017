package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// ExistingHashes returns the subset of the given content hashes already
// present in committed history. Implements dedup.HistoryLookup.
func (s *Store) ExistingHashes(ctx context.Context, hashes []string) (map[string]bool, error) {
	if len(hashes) == 0 {
		return map[string]bool{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(hashes)), ",")
	args := make([]any, len(hashes))
	for i, h := range hashes {
		args[i] = h
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT content_hash FROM transactions WHERE content_hash IN (%s)`, placeholders),
		args...)
	if err != nil {
		return nil, fmt.Errorf("querying existing hashes: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scanning hash: %w", err)
		}
		existing[h] = true
	}
	return existing, rows.Err()
}

// CommitBatch writes the given transactions to permanent history and
// discards the batch, atomically. Hashes already committed are skipped so a
// re-run cannot double-import, except for transactions the user confirmed:
// a deliberate re-include (a real repeat of date, description, and amount)
// must be insertable.
func (s *Store) CommitBatch(ctx context.Context, batch model.ImportBatch, txns []model.ParsedTransaction) error {
	return s.transact(func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for _, t := range txns {
			if t.Status != model.StatusConfirmed {
				var n int
				err := tx.QueryRowContext(ctx,
					`SELECT COUNT(*) FROM transactions WHERE content_hash = ?`,
					t.ContentHash).Scan(&n)
				if err != nil {
					return fmt.Errorf("checking committed hash: %w", err)
				}
				if n > 0 {
					continue
				}
			}

			id := uuid.NewString()
			_, err := tx.ExecContext(ctx, `
				INSERT INTO transactions (id, date, description, amount, type,
					merchant, account, content_hash, committed_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				id, t.Date.Format("2006-01-02"), t.Description, t.Amount.String(),
				t.Type, t.Merchant, batch.Account, t.ContentHash, now)
			if err != nil {
				return fmt.Errorf("committing transaction: %w", err)
			}
			for _, sp := range t.Splits {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO transaction_splits (transaction_id, category_id, amount)
					VALUES (?, ?, ?)`, id, sp.CategoryID, sp.Amount.String()); err != nil {
					return fmt.Errorf("committing split: %w", err)
				}
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM import_batches WHERE id = ?`, batch.ID); err != nil {
			return fmt.Errorf("discarding batch: %w", err)
		}
		return nil
	})
}

// CountTransactions returns the number of committed transactions.
func (s *Store) CountTransactions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting transactions: %w", err)
	}
	return n, nil
}

func parseStoredDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored date %q: %w", s, err)
	}
	return t, nil
}
