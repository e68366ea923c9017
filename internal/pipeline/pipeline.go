// Package pipeline drives a file through analysis, parsing, duplicate
// detection, categorization, staging, and commit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bankfeed-dev/bankfeed/internal/analyzer"
	"github.com/bankfeed-dev/bankfeed/internal/categories"
	"github.com/bankfeed-dev/bankfeed/internal/dedup"
	"github.com/bankfeed-dev/bankfeed/internal/importer"
	"github.com/bankfeed-dev/bankfeed/internal/model"
	"github.com/bankfeed-dev/bankfeed/internal/retry"
	"github.com/bankfeed-dev/bankfeed/internal/store"
)

// ErrCheckInFlight is returned when a duplicate or categorization re-run is
// requested while one is already running for the same batch.
var ErrCheckInFlight = errors.New("a check is already in flight for this batch")

// ErrMappingIncomplete is returned when a manual mapping lacks a required
// field.
var ErrMappingIncomplete = errors.New("mapping must assign date, description, and an amount source")

// RetryableError marks a failed external step the user can retry without
// re-importing.
type RetryableError struct {
	Step string
	Err  error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s failed (retryable): %v", e.Step, e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// BatchStore persists staged batches.
type BatchStore interface {
	SaveBatch(ctx context.Context, batch model.ImportBatch) error
	GetBatch(ctx context.Context, id string) (model.ImportBatch, error)
	DeleteBatch(ctx context.Context, id string) error
	CommitBatch(ctx context.Context, batch model.ImportBatch, txns []model.ParsedTransaction) error
}

// TemplateStore persists fingerprint-to-mapping associations.
type TemplateStore interface {
	LookupTemplate(ctx context.Context, fingerprint string) (model.MappingTemplate, error)
	SaveTemplate(ctx context.Context, fingerprint string, mapping model.ColumnMapping, name string) (string, error)
	TouchTemplate(ctx context.Context, fingerprint string) error
}

// Options configures a pipeline Service.
type Options struct {
	Batches   BatchStore
	Templates TemplateStore
	Analyzer  *analyzer.Analyzer
	Detector  *dedup.Detector
	Suggester categories.Suggester // optional
	Catalog   *categories.Service  // optional, validates splits at commit
	Log       zerolog.Logger

	// Bounded retry when loading a recently staged batch.
	RetryAttempts int
	RetryBackoff  time.Duration
}

// Service is the import pipeline.
type Service struct {
	opts Options

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewService creates a pipeline Service.
func NewService(opts Options) *Service {
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 200 * time.Millisecond
	}
	return &Service{opts: opts, inFlight: make(map[string]bool)}
}

// ImportResult reports the outcome of running a file through the pipeline.
type ImportResult struct {
	Batch        model.ImportBatch
	Analysis     *model.AnalysisResult // nil when a template was reused
	TemplateUsed bool
	AutoAccepted bool
	// NeedsMapping means the pipeline suspended awaiting a manual mapping;
	// the batch holds the raw rows for ApplyMapping.
	NeedsMapping bool
	// Warnings lists external steps that failed but did not block staging.
	Warnings []string
}

// ImportFile runs tokenized rows through the pipeline. An empty file is a
// fatal error for that file; no batch is created.
func (s *Service) ImportFile(ctx context.Context, rows [][]string, fileName, sourceType, account string) (ImportResult, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return ImportResult{}, analyzer.ErrEmptyInput
	}

	fingerprint := analyzer.Fingerprint(rows)
	batch := model.ImportBatch{
		ID:          uuid.NewString(),
		FileName:    fileName,
		SourceType:  sourceType,
		Account:     account,
		Fingerprint: fingerprint,
		RawRows:     rows,
		CreatedAt:   time.Now().UTC(),
	}
	log := s.opts.Log.With().Str("file", fileName).Str("fingerprint", fingerprint).Logger()

	result := ImportResult{}

	// A known layout skips re-scoring entirely. Lookup failures degrade to a
	// full re-analysis; they never block import.
	mapping, templateUsed := s.lookupTemplate(ctx, fingerprint, log)
	result.TemplateUsed = templateUsed

	if !templateUsed {
		analysis, err := s.opts.Analyzer.Analyze(rows)
		if err != nil {
			return ImportResult{}, fmt.Errorf("analyzing %s: %w", fileName, err)
		}
		result.Analysis = &analysis
		result.AutoAccepted = s.opts.Analyzer.AutoAccept(analysis)
		if !result.AutoAccepted {
			// Escalate: suspend awaiting a manual mapping.
			batch.State = model.BatchAwaitingMapping
			batch.Mapping = analyzer.Mapping(analysis)
			if err := s.opts.Batches.SaveBatch(ctx, batch); err != nil {
				return ImportResult{}, fmt.Errorf("saving batch: %w", err)
			}
			log.Info().Str("batch", batch.ID).Msg("layout not recognized, awaiting manual mapping")
			result.Batch = batch
			result.NeedsMapping = true
			return result, nil
		}
		mapping = analyzer.Mapping(analysis)
	}

	batch.Mapping = mapping
	batch.AutoAccepted = result.AutoAccepted || templateUsed
	staged, warnings, err := s.stage(ctx, batch, log)
	if err != nil {
		return ImportResult{}, err
	}
	result.Batch = staged
	result.Warnings = warnings
	return result, nil
}

// lookupTemplate returns a stored mapping for the fingerprint, if any.
func (s *Service) lookupTemplate(ctx context.Context, fingerprint string, log zerolog.Logger) (model.ColumnMapping, bool) {
	tmpl, err := s.opts.Templates.LookupTemplate(ctx, fingerprint)
	if errors.Is(err, store.ErrNotFound) {
		return model.ColumnMapping{}, false
	}
	if err != nil {
		log.Warn().Err(err).Msg("template lookup failed, re-analyzing")
		return model.ColumnMapping{}, false
	}
	if err := s.opts.Templates.TouchTemplate(ctx, fingerprint); err != nil {
		log.Warn().Err(err).Msg("updating template usage failed")
	}
	log.Info().Str("template", tmpl.Name).Msg("reusing mapping template")
	return tmpl.Mapping, true
}

// stage parses, deduplicates, applies default statuses, and persists the
// batch. A duplicate-lookup failure stages anyway and is reported as a
// retryable warning.
func (s *Service) stage(ctx context.Context, batch model.ImportBatch, log zerolog.Logger) (model.ImportBatch, []string, error) {
	batch.Transactions = importer.ParseRows(batch.RawRows, batch.Mapping)
	batch.State = model.BatchStaged

	var warnings []string
	if err := s.opts.Detector.Check(ctx, batch.Transactions); err != nil {
		log.Warn().Err(err).Msg("duplicate history lookup failed, staging anyway")
		warnings = append(warnings, (&RetryableError{Step: "duplicate-check", Err: err}).Error())
	}
	dedup.ApplyDefaultStatus(batch.Transactions)

	if err := s.opts.Batches.SaveBatch(ctx, batch); err != nil {
		return model.ImportBatch{}, nil, fmt.Errorf("saving batch: %w", err)
	}

	within, database := batch.DuplicateCounts()
	log.Info().
		Str("batch", batch.ID).
		Int("transactions", len(batch.Transactions)).
		Int("dup_within_file", within).
		Int("dup_database", database).
		Msg("batch staged")
	return batch, warnings, nil
}

// ApplyMapping resumes a suspended batch with a human-confirmed mapping,
// stores it as a template for future reuse, and stages the batch. Template
// save failures never block the import.
func (s *Service) ApplyMapping(ctx context.Context, batchID string, mapping model.ColumnMapping, templateName string) (model.ImportBatch, error) {
	if !mapping.Complete() {
		return model.ImportBatch{}, ErrMappingIncomplete
	}

	batch, err := s.opts.Batches.GetBatch(ctx, batchID)
	if err != nil {
		return model.ImportBatch{}, fmt.Errorf("loading batch: %w", err)
	}
	log := s.opts.Log.With().Str("batch", batchID).Logger()

	if _, err := s.opts.Templates.SaveTemplate(ctx, batch.Fingerprint, mapping, templateName); err != nil {
		log.Warn().Err(err).Msg("saving mapping template failed")
	}

	batch.Mapping = mapping
	batch.AutoAccepted = false
	staged, _, err := s.stage(ctx, batch, log)
	return staged, err
}

// LoadBatch loads a staged batch, tolerating staging-store lag with a
// bounded retry before falling back to a direct read.
func (s *Service) LoadBatch(ctx context.Context, batchID string) (model.ImportBatch, error) {
	batch, err := retry.Do(ctx, s.opts.RetryAttempts, retry.Linear(s.opts.RetryBackoff),
		func(ctx context.Context) (model.ImportBatch, error) {
			b, err := s.opts.Batches.GetBatch(ctx, batchID)
			if errors.Is(err, store.ErrNotFound) {
				return model.ImportBatch{}, retry.ErrNotReady
			}
			return b, err
		})
	if errors.Is(err, retry.ErrNotReady) {
		return s.opts.Batches.GetBatch(ctx, batchID)
	}
	return batch, err
}

// RecheckDuplicates recomputes hashes and duplicate flags from the batch's
// current transactions and persists the result. Only one check per batch may
// run at a time; last write wins.
func (s *Service) RecheckDuplicates(ctx context.Context, batchID string) (model.ImportBatch, error) {
	if !s.acquire(batchID) {
		return model.ImportBatch{}, ErrCheckInFlight
	}
	defer s.release(batchID)

	batch, err := s.opts.Batches.GetBatch(ctx, batchID)
	if err != nil {
		return model.ImportBatch{}, fmt.Errorf("loading batch: %w", err)
	}

	if err := s.opts.Detector.Check(ctx, batch.Transactions); err != nil {
		return batch, &RetryableError{Step: "duplicate-check", Err: err}
	}
	dedup.ApplyDefaultStatus(batch.Transactions)

	if err := s.opts.Batches.SaveBatch(ctx, batch); err != nil {
		return model.ImportBatch{}, fmt.Errorf("saving batch: %w", err)
	}
	return batch, nil
}

// Categorize requests category suggestions for the batch's uncategorized
// transactions and persists the accepted ones as single full-amount splits.
// Service failure leaves prior state untouched and is retryable.
func (s *Service) Categorize(ctx context.Context, batchID string) (model.ImportBatch, error) {
	if s.opts.Suggester == nil {
		return model.ImportBatch{}, &RetryableError{Step: "categorization", Err: errors.New("no suggestion service configured")}
	}
	if !s.acquire(batchID) {
		return model.ImportBatch{}, ErrCheckInFlight
	}
	defer s.release(batchID)

	batch, err := s.opts.Batches.GetBatch(ctx, batchID)
	if err != nil {
		return model.ImportBatch{}, fmt.Errorf("loading batch: %w", err)
	}

	var indexes []int
	var merchants []string
	for i, t := range batch.Transactions {
		if !t.Categorized() && t.ParseError == "" {
			indexes = append(indexes, i)
			merchants = append(merchants, t.Merchant)
		}
	}
	if len(merchants) == 0 {
		return batch, nil
	}

	suggestions, err := s.opts.Suggester.Suggest(ctx, merchants)
	if err != nil {
		return batch, &RetryableError{Step: "categorization", Err: err}
	}

	for pos, i := range indexes {
		if pos >= len(suggestions) {
			break
		}
		sg := suggestions[pos]
		if sg.CategoryID == "" {
			continue
		}
		if s.opts.Catalog != nil && !s.opts.Catalog.Exists(sg.CategoryID) {
			continue
		}
		batch.Transactions[i].Splits = []model.Split{{
			CategoryID: sg.CategoryID,
			Amount:     batch.Transactions[i].Amount,
		}}
	}
	dedup.ApplyDefaultStatus(batch.Transactions)

	if err := s.opts.Batches.SaveBatch(ctx, batch); err != nil {
		return model.ImportBatch{}, fmt.Errorf("saving batch: %w", err)
	}
	return batch, nil
}

// SetTransactionStatus edits one staged transaction's review status and
// persists the batch.
func (s *Service) SetTransactionStatus(ctx context.Context, batchID string, index int, status model.TransactionStatus) (model.ImportBatch, error) {
	batch, err := s.opts.Batches.GetBatch(ctx, batchID)
	if err != nil {
		return model.ImportBatch{}, fmt.Errorf("loading batch: %w", err)
	}
	if index < 0 || index >= len(batch.Transactions) {
		return model.ImportBatch{}, fmt.Errorf("no transaction at index %d", index)
	}
	batch.Transactions[index].Status = status
	if err := s.opts.Batches.SaveBatch(ctx, batch); err != nil {
		return model.ImportBatch{}, fmt.Errorf("saving batch: %w", err)
	}
	return batch, nil
}

// Commit writes the batch's non-excluded, non-duplicate transactions to
// permanent storage atomically and discards the batch.
func (s *Service) Commit(ctx context.Context, batchID string) ([]model.ParsedTransaction, error) {
	batch, err := s.opts.Batches.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("loading batch: %w", err)
	}

	txns := batch.CommittableTransactions()
	if err := s.validateCommit(txns); err != nil {
		return nil, err
	}

	if err := s.opts.Batches.CommitBatch(ctx, batch, txns); err != nil {
		return nil, fmt.Errorf("committing batch: %w", err)
	}
	s.opts.Log.Info().Str("batch", batchID).Int("transactions", len(txns)).Msg("batch committed")
	return txns, nil
}

// validateCommit enforces split invariants on the transactions to commit:
// splits balance to the amount and reference known categories.
func (s *Service) validateCommit(txns []model.ParsedTransaction) error {
	for i, t := range txns {
		if t.ParseError != "" {
			return fmt.Errorf("transaction %d has an unresolved parse error: %s", i, t.ParseError)
		}
		if !t.SplitsBalance() {
			sum := decimal.Zero
			for _, sp := range t.Splits {
				sum = sum.Add(sp.Amount)
			}
			return fmt.Errorf("transaction %d: splits sum %s != amount %s",
				i, sum.StringFixed(2), t.Amount.StringFixed(2))
		}
		if s.opts.Catalog != nil {
			for _, sp := range t.Splits {
				if !s.opts.Catalog.Exists(sp.CategoryID) {
					return fmt.Errorf("transaction %d: unknown category %s", i, sp.CategoryID)
				}
			}
		}
	}
	return nil
}

// Delete discards a batch and its staged transactions without committing.
func (s *Service) Delete(ctx context.Context, batchID string) error {
	if err := s.opts.Batches.DeleteBatch(ctx, batchID); err != nil {
		return fmt.Errorf("deleting batch: %w", err)
	}
	s.opts.Log.Info().Str("batch", batchID).Msg("batch deleted")
	return nil
}

func (s *Service) acquire(batchID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[batchID] {
		return false
	}
	s.inFlight[batchID] = true
	return true
}

func (s *Service) release(batchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, batchID)
}
