// Package importer coordinates the full import pipeline: decoded bytes are
// parsed into raw entries, account tokens are resolved against a chart
// snapshot, balanced ledger entries are built, and the format's failure
// policy decides whether the batch may be committed.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/domain"
	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/parser"
)

// ErrBatchBlocked is returned by Commit for a batch whose failure policy
// forbids committing anything.
var ErrBatchBlocked = errors.New("import batch is blocked by unresolved accounts")

// ChartRepository is the external chart-of-accounts lookup.
type ChartRepository interface {
	ListChartAccounts(ctx context.Context) ([]domain.ChartAccount, error)
}

// LedgerRepository accepts committed batches. CommitBatch is expected to be
// atomic for the whole entry set.
type LedgerRepository interface {
	CommitBatch(ctx context.Context, batch *domain.ImportBatch, documentNumber string) error
}

// NumberAllocator hands out a unique document identifier for a location and
// period, stamped on the batch at commit time.
type NumberAllocator interface {
	Allocate(ctx context.Context, location string, month int, year int) (string, error)
}

// Options selects the format and its per-format inputs for one import run.
type Options struct {
	Format domain.Format

	// DocumentID links the batch to the stored source file. Optional.
	DocumentID string

	// Mapping is required for the delimited format unless it can be guessed
	// from the first row; ignored otherwise.
	Mapping *parser.ColumnMapping

	// LocationSuffix extends bare 3-digit codes from the fixed-layout form
	// into location-specific analytical sub-accounts; ignored otherwise.
	LocationSuffix string

	// Location and period, used for document number allocation at commit.
	Location string
	Month    int
	Year     int
}

// Importer runs import pipelines. It is stateless apart from its
// dependencies; concurrent runs are independent because each takes its own
// chart snapshot.
type Importer struct {
	chart  ChartRepository
	ledger LedgerRepository
	docnum NumberAllocator
	log    zerolog.Logger
	now    func() time.Time
}

// New creates an importer. The number allocator may be nil when commits are
// never performed (preview-only callers, tests).
func New(chart ChartRepository, ledger LedgerRepository, docnum NumberAllocator, log zerolog.Logger) *Importer {
	return &Importer{
		chart:  chart,
		ledger: ledger,
		docnum: docnum,
		log:    log,
		now:    time.Now,
	}
}

// RunResult is the outcome of one pipeline run: the batch itself plus the
// inputs the caller should confirm before committing.
type RunResult struct {
	Batch *domain.ImportBatch

	// UsedMapping echoes the column mapping the delimited parser applied,
	// including a guessed one. Guessing is a suggestion, never a silent
	// decision: the caller surfaces it for confirmation.
	UsedMapping *parser.ColumnMapping

	// Encoding is the label of the detected source encoding, diagnostic only.
	Encoding string
}

// Run executes the pipeline for one uploaded file and returns the resulting
// batch: either a committable preview or a blocked import with diagnostics.
// Run never commits; Commit is a separate, caller-driven step.
func (imp *Importer) Run(ctx context.Context, data []byte, opts Options) (*RunResult, error) {
	state := &State{
		Data:  data,
		Opts:  opts,
		Batch: &domain.ImportBatch{BatchID: uuid.NewString(), DocumentID: opts.DocumentID, Format: opts.Format},
		Now:   imp.now(),
	}

	pipeline := NewImportPipeline(imp.chart)
	if err := pipeline.Execute(ctx, state); err != nil {
		return nil, err
	}

	imp.log.Info().
		Str("batch_id", state.Batch.BatchID).
		Str("format", string(opts.Format)).
		Str("encoding", state.EncodingLabel).
		Int("entries", len(state.Batch.Entries)).
		Int("errors", state.Batch.ErrorCount()).
		Int("skipped_rows", state.Batch.SkippedRows).
		Bool("blocked", state.Batch.Blocked).
		Msg("Import pipeline finished")

	return &RunResult{
		Batch:       state.Batch,
		UsedMapping: state.ParseResult.Mapping,
		Encoding:    state.EncodingLabel,
	}, nil
}

// Commit appends the batch's entries to the external ledger store as one
// atomic write, stamped with a freshly allocated document number. Blocked
// batches are refused. Store failures are propagated verbatim: retrying a
// non-idempotent commit is the caller's decision.
func (imp *Importer) Commit(ctx context.Context, batch *domain.ImportBatch, opts Options) (string, error) {
	if batch.Blocked {
		return "", fmt.Errorf("%w: missing accounts %v", ErrBatchBlocked, batch.MissingAccounts)
	}
	if len(batch.Entries) == 0 {
		return "", fmt.Errorf("commit batch %s: no entries", batch.BatchID)
	}

	documentNumber, err := imp.docnum.Allocate(ctx, opts.Location, opts.Month, opts.Year)
	if err != nil {
		return "", fmt.Errorf("commit batch %s: allocate document number: %w", batch.BatchID, err)
	}

	if err := imp.ledger.CommitBatch(ctx, batch, documentNumber); err != nil {
		return "", fmt.Errorf("commit batch %s: %w", batch.BatchID, err)
	}

	imp.log.Info().
		Str("batch_id", batch.BatchID).
		Str("document_number", documentNumber).
		Int("entries", len(batch.Entries)).
		Int("pending_completion", batch.ErrorCount()).
		Msg("Batch committed")

	return documentNumber, nil
}
