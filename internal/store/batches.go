package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// SaveBatch persists a batch and its staged transactions, replacing any
// previous staged state for the same batch ID (last write wins).
func (s *Store) SaveBatch(ctx context.Context, batch model.ImportBatch) error {
	mappingJSON, err := json.Marshal(batch.Mapping)
	if err != nil {
		return fmt.Errorf("encoding batch mapping: %w", err)
	}
	rawJSON, err := json.Marshal(batch.RawRows)
	if err != nil {
		return fmt.Errorf("encoding raw rows: %w", err)
	}

	return s.transact(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO import_batches (id, file_name, source_type, account, state,
				fingerprint, mapping_json, auto_accepted, raw_rows_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				state = excluded.state,
				mapping_json = excluded.mapping_json,
				auto_accepted = excluded.auto_accepted`,
			batch.ID, batch.FileName, batch.SourceType, batch.Account, batch.State,
			batch.Fingerprint, string(mappingJSON), batch.AutoAccepted, string(rawJSON),
			batch.CreatedAt)
		if err != nil {
			return fmt.Errorf("saving batch: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM staged_transactions WHERE batch_id = ?`, batch.ID); err != nil {
			return fmt.Errorf("clearing staged transactions: %w", err)
		}

		for i, t := range batch.Transactions {
			splitsJSON, err := json.Marshal(splitRecords(t.Splits))
			if err != nil {
				return fmt.Errorf("encoding splits: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO staged_transactions (batch_id, position, date, description,
					amount, type, merchant, is_duplicate, duplicate_type, content_hash,
					status, splits_json, parse_error)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				batch.ID, i, t.Date.Format("2006-01-02"), t.Description,
				t.Amount.String(), t.Type, t.Merchant, t.IsDuplicate, t.DuplicateType,
				t.ContentHash, t.Status, string(splitsJSON), t.ParseError)
			if err != nil {
				return fmt.Errorf("saving staged transaction %d: %w", i, err)
			}
		}
		return nil
	})
}

// GetBatch loads a batch and its staged transactions.
func (s *Store) GetBatch(ctx context.Context, id string) (model.ImportBatch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, file_name, source_type, account, state, fingerprint,
			mapping_json, auto_accepted, raw_rows_json, created_at
		FROM import_batches WHERE id = ?`, id)

	var batch model.ImportBatch
	var mappingJSON, rawJSON string
	err := row.Scan(&batch.ID, &batch.FileName, &batch.SourceType, &batch.Account,
		&batch.State, &batch.Fingerprint, &mappingJSON, &batch.AutoAccepted,
		&rawJSON, &batch.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ImportBatch{}, ErrNotFound
	}
	if err != nil {
		return model.ImportBatch{}, fmt.Errorf("loading batch: %w", err)
	}
	if err := json.Unmarshal([]byte(mappingJSON), &batch.Mapping); err != nil {
		return model.ImportBatch{}, fmt.Errorf("decoding batch mapping: %w", err)
	}
	if err := json.Unmarshal([]byte(rawJSON), &batch.RawRows); err != nil {
		return model.ImportBatch{}, fmt.Errorf("decoding raw rows: %w", err)
	}

	batch.Transactions, err = s.stagedTransactions(ctx, id)
	if err != nil {
		return model.ImportBatch{}, err
	}
	return batch, nil
}

// ListBatches returns all staged batches, newest first, without raw rows.
func (s *Store) ListBatches(ctx context.Context) ([]model.ImportBatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_name, source_type, account, state, fingerprint, auto_accepted, created_at
		FROM import_batches ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	defer rows.Close()

	var batches []model.ImportBatch
	for rows.Next() {
		var b model.ImportBatch
		if err := rows.Scan(&b.ID, &b.FileName, &b.SourceType, &b.Account, &b.State,
			&b.Fingerprint, &b.AutoAccepted, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning batch: %w", err)
		}
		b.Transactions, err = s.stagedTransactions(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// DeleteBatch discards a batch and its staged transactions.
func (s *Store) DeleteBatch(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM import_batches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting batch: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) stagedTransactions(ctx context.Context, batchID string) ([]model.ParsedTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, description, amount, type, merchant, is_duplicate,
			duplicate_type, content_hash, status, splits_json, parse_error
		FROM staged_transactions WHERE batch_id = ? ORDER BY position`, batchID)
	if err != nil {
		return nil, fmt.Errorf("loading staged transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.ParsedTransaction
	for rows.Next() {
		var t model.ParsedTransaction
		var dateStr, amountStr, splitsJSON string
		if err := rows.Scan(&dateStr, &t.Description, &amountStr, &t.Type,
			&t.Merchant, &t.IsDuplicate, &t.DuplicateType, &t.ContentHash,
			&t.Status, &splitsJSON, &t.ParseError); err != nil {
			return nil, fmt.Errorf("scanning staged transaction: %w", err)
		}
		t.Date, err = parseStoredDate(dateStr)
		if err != nil {
			return nil, err
		}
		t.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("parsing stored amount %q: %w", amountStr, err)
		}
		t.Splits, err = decodeSplits(splitsJSON)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// splitRecord is the JSON shape for a staged category split.
type splitRecord struct {
	CategoryID string `json:"category_id"`
	Amount     string `json:"amount"`
}

func splitRecords(splits []model.Split) []splitRecord {
	out := make([]splitRecord, len(splits))
	for i, sp := range splits {
		out[i] = splitRecord{CategoryID: sp.CategoryID, Amount: sp.Amount.String()}
	}
	return out
}

func decodeSplits(data string) ([]model.Split, error) {
	var records []splitRecord
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, fmt.Errorf("decoding splits: %w", err)
	}
	var splits []model.Split
	for _, r := range records {
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("parsing split amount %q: %w", r.Amount, err)
		}
		splits = append(splits, model.Split{CategoryID: r.CategoryID, Amount: amount})
	}
	return splits, nil
}
