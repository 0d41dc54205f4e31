package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// ImportDocumentRow records one uploaded source file.
type ImportDocumentRow struct {
	DocumentID string `bigquery:"document_id"` // REQUIRED

	GCSURI           string `bigquery:"gcs_uri"`
	OriginalFilename string `bigquery:"original_filename"`
	Format           string `bigquery:"format"` // bank_statement / delimited_text / settlement_form

	UploadTS     time.Time              `bigquery:"upload_ts"`
	ImportStatus string                 `bigquery:"import_status"` // PENDING / PREVIEWED / COMMITTED / BLOCKED
	CommittedTS  bigquery.NullTimestamp `bigquery:"committed_ts"`
}

// BigQueryDocumentRepository records uploaded source files and their import
// status.
type BigQueryDocumentRepository struct {
	client *bigquery.Client
}

// NewBigQueryDocumentRepository creates a document repository with a shared
// client.
func NewBigQueryDocumentRepository(ctx context.Context) (*BigQueryDocumentRepository, error) {
	client, err := bigquery.NewClient(ctx, ProjectID())
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryDocumentRepository: creating client: %w", err)
	}
	return &BigQueryDocumentRepository{client: client}, nil
}

// Close releases the underlying client.
func (r *BigQueryDocumentRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// InsertImportDocument records a freshly uploaded file.
func (r *BigQueryDocumentRepository) InsertImportDocument(ctx context.Context, row *ImportDocumentRow) error {
	inserter := r.client.Dataset(DatasetID()).Table(documentsTableID).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertImportDocument: inserting row: %w", err)
	}
	return nil
}

// ListImportDocuments returns all recorded uploads, newest first.
func (r *BigQueryDocumentRepository) ListImportDocuments(ctx context.Context) ([]*ImportDocumentRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT document_id, gcs_uri, original_filename, format, upload_ts, import_status, committed_ts
		FROM %s.%s
		ORDER BY upload_ts DESC
	`, DatasetID(), documentsTableID))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListImportDocuments: running query: %w", err)
	}

	var docs []*ImportDocumentRow
	for {
		var row ImportDocumentRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListImportDocuments: reading row: %w", err)
		}
		docs = append(docs, &row)
	}
	return docs, nil
}

// MarkDocumentCommitted updates a document's status after a successful
// batch commit.
func (r *BigQueryDocumentRepository) MarkDocumentCommitted(ctx context.Context, documentID string) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET import_status = @status, committed_ts = @committed_ts
		WHERE document_id = @document_id
	`, DatasetID(), documentsTableID))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "COMMITTED"},
		{Name: "committed_ts", Value: time.Now()},
		{Name: "document_id", Value: documentID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("MarkDocumentCommitted: running update: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("MarkDocumentCommitted: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("MarkDocumentCommitted: job error: %w", err)
	}
	return nil
}
