package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/domain"
)

// LedgerEntryRow is one committed ledger entry as stored in BigQuery.
// Debit and credit amounts are equal for every row this system writes.
type LedgerEntryRow struct {
	EntryID string `bigquery:"entry_id"` // REQUIRED

	BatchID        string `bigquery:"batch_id"`        // REQUIRED
	DocumentID     string `bigquery:"document_id"`     // NULLABLE
	DocumentNumber string `bigquery:"document_number"` // REQUIRED
	SourceFormat   string `bigquery:"source_format"`   // REQUIRED

	EntryDate    civil.Date `bigquery:"entry_date"` // REQUIRED
	Description  string     `bigquery:"description"`
	Currency     string     `bigquery:"currency"`      // REQUIRED
	ExchangeRate *big.Rat   `bigquery:"exchange_rate"` // NUMERIC

	DebitAmount  *big.Rat `bigquery:"debit_amount"`  // REQUIRED NUMERIC
	CreditAmount *big.Rat `bigquery:"credit_amount"` // REQUIRED NUMERIC

	// Account references are NULL for entries committed with an unresolved
	// side, pending manual completion.
	DebitAccountID  bigquery.NullString `bigquery:"debit_account_id"`
	CreditAccountID bigquery.NullString `bigquery:"credit_account_id"`
	DebitToken      string              `bigquery:"debit_token"`
	CreditToken     string              `bigquery:"credit_token"`

	HasError    bool                `bigquery:"has_error"`
	ErrorReason bigquery.NullString `bigquery:"error_reason"`

	DisplayOrder int64 `bigquery:"display_order"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// BigQueryLedgerRepository writes committed batches.
type BigQueryLedgerRepository struct {
	client *bigquery.Client
}

// NewBigQueryLedgerRepository creates a ledger repository with a shared client.
func NewBigQueryLedgerRepository(ctx context.Context) (*BigQueryLedgerRepository, error) {
	client, err := bigquery.NewClient(ctx, ProjectID())
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryLedgerRepository: creating client: %w", err)
	}
	return &BigQueryLedgerRepository{client: client}, nil
}

// Close releases the underlying client.
func (r *BigQueryLedgerRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// CommitBatch appends the whole batch in a single streaming insert. The
// inserter call either accepts the full row set or fails as a unit, which is
// the atomic-batch contract the coordinator relies on.
func (r *BigQueryLedgerRepository) CommitBatch(ctx context.Context, batch *domain.ImportBatch, documentNumber string) error {
	return CommitBatchWithClient(ctx, r.client, batch, documentNumber)
}

// CommitBatchWithClient maps the batch's entries to rows and inserts them.
func CommitBatchWithClient(ctx context.Context, client *bigquery.Client, batch *domain.ImportBatch, documentNumber string) error {
	rows := make([]*LedgerEntryRow, 0, len(batch.Entries))
	now := time.Now()
	for i := range batch.Entries {
		rows = append(rows, ledgerEntryRow(&batch.Entries[i], batch, documentNumber, i, now))
	}

	inserter := client.Dataset(DatasetID()).Table(ledgerTableID).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("CommitBatch: inserting %d rows: %w", len(rows), err)
	}
	return nil
}

func ledgerEntryRow(e *domain.LedgerEntry, batch *domain.ImportBatch, documentNumber string, seq int, now time.Time) *LedgerEntryRow {
	row := &LedgerEntryRow{
		EntryID:        fmt.Sprintf("%s-%d", batch.BatchID, seq),
		BatchID:        batch.BatchID,
		DocumentID:     batch.DocumentID,
		DocumentNumber: documentNumber,
		SourceFormat:   string(batch.Format),
		EntryDate:      civil.DateOf(e.Date),
		Description:    e.Description,
		Currency:       e.Currency,
		ExchangeRate:   numeric(e.ExchangeRate),
		DebitAmount:    numeric(e.DebitAmount),
		CreditAmount:   numeric(e.CreditAmount),
		DebitToken:     e.DebitAccount.Token,
		CreditToken:    e.CreditAccount.Token,
		HasError:       e.HasError,
		DisplayOrder:   int64(e.DisplayOrder),
		CreatedTS:      now,
	}
	if e.DebitAccount.Resolved() {
		row.DebitAccountID = bigquery.NullString{StringVal: e.DebitAccount.Account.ID, Valid: true}
	}
	if e.CreditAccount.Resolved() {
		row.CreditAccountID = bigquery.NullString{StringVal: e.CreditAccount.Account.ID, Valid: true}
	}
	if e.ErrorReason != "" {
		row.ErrorReason = bigquery.NullString{StringVal: e.ErrorReason, Valid: true}
	}
	return row
}

// numeric converts a decimal amount to the *big.Rat BigQuery NUMERIC type.
func numeric(d decimal.Decimal) *big.Rat {
	return d.Rat()
}
