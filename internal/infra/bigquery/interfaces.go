package bigquery

import (
	"context"

	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/domain"
)

// ChartRepository is the chart-of-accounts boundary used by the importer
// and the API. The interface enables mocking in tests.
type ChartRepository interface {
	ListChartAccounts(ctx context.Context) ([]domain.ChartAccount, error)
	InsertChartAccount(ctx context.Context, account domain.ChartAccount) error
}

// LedgerRepository accepts committed batches as a single atomic write.
type LedgerRepository interface {
	CommitBatch(ctx context.Context, batch *domain.ImportBatch, documentNumber string) error
}

// DocumentRepository records uploaded source files.
type DocumentRepository interface {
	InsertImportDocument(ctx context.Context, row *ImportDocumentRow) error
	ListImportDocuments(ctx context.Context) ([]*ImportDocumentRow, error)
	MarkDocumentCommitted(ctx context.Context, documentID string) error
}
