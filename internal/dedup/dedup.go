// Package dedup flags transactions already seen within a file or in
// previously committed history.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// HistoryLookup answers which content hashes already exist in permanent
// storage.
type HistoryLookup interface {
	ExistingHashes(ctx context.Context, hashes []string) (map[string]bool, error)
}

// Detector runs the two duplicate passes over a batch's transactions.
type Detector struct {
	history HistoryLookup
}

// NewDetector creates a Detector. history may be nil, in which case only the
// within-file pass runs.
func NewDetector(history HistoryLookup) *Detector {
	return &Detector{history: history}
}

// ContentHash derives a deterministic identity for a transaction from its
// date, normalized description, and amount.
func ContentHash(t model.ParsedTransaction) string {
	key := fmt.Sprintf("%s|%s|%s", t.Date.Format("2006-01-02"), NormalizeDescription(t.Description), t.Amount.StringFixed(2))
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// NormalizeDescription lowercases and collapses runs of whitespace so
// cosmetic differences don't defeat duplicate detection.
func NormalizeDescription(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Check recomputes every transaction's content hash and marks duplicates in
// place: first the within-file pass (the first occurrence of a hash is never
// a duplicate), then the history pass. A history hit takes precedence over a
// within-file flag.
//
// The within-file marks always apply; a history lookup failure is returned
// after they are in place so the caller can stage anyway and offer a retry.
func (d *Detector) Check(ctx context.Context, txns []model.ParsedTransaction) error {
	seen := make(map[string]bool, len(txns))
	hashes := make([]string, 0, len(txns))
	for i := range txns {
		h := ContentHash(txns[i])
		txns[i].ContentHash = h
		txns[i].IsDuplicate = false
		txns[i].DuplicateType = model.DuplicateNone
		if seen[h] {
			txns[i].IsDuplicate = true
			txns[i].DuplicateType = model.DuplicateWithinFile
		}
		seen[h] = true
		hashes = append(hashes, h)
	}

	if d.history == nil || len(hashes) == 0 {
		return nil
	}

	existing, err := d.history.ExistingHashes(ctx, hashes)
	if err != nil {
		return fmt.Errorf("duplicate history lookup: %w", err)
	}
	for i := range txns {
		if existing[txns[i].ContentHash] {
			txns[i].IsDuplicate = true
			txns[i].DuplicateType = model.DuplicateDatabase
		}
	}
	return nil
}

// ApplyDefaultStatus excludes duplicates and uncategorized transactions so
// they are not committed unless a user re-includes them. Transactions a user
// already confirmed are left alone.
func ApplyDefaultStatus(txns []model.ParsedTransaction) {
	for i := range txns {
		if txns[i].Status == model.StatusConfirmed {
			continue
		}
		if txns[i].IsDuplicate || !txns[i].Categorized() {
			txns[i].Status = model.StatusExcluded
		} else {
			txns[i].Status = model.StatusPending
		}
	}
}
