package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/domain"
)

// ChartAccountRow is one chart-of-accounts entry as stored in BigQuery.
type ChartAccountRow struct {
	AccountID string `bigquery:"account_id"` // REQUIRED

	Number string `bigquery:"number"` // REQUIRED, hyphen-segmented ("420-1-1-1")
	Name   string `bigquery:"name"`   // NULLABLE
	Type   string `bigquery:"type"`   // NULLABLE (ASSET/LIABILITY/INCOME/EXPENSE/EQUITY)

	CreatedTS time.Time              `bigquery:"created_ts"`
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"`
}

// BigQueryChartRepository reads and writes the chart of accounts. It holds a
// shared client to avoid creating a new connection per operation.
type BigQueryChartRepository struct {
	client *bigquery.Client
}

// NewBigQueryChartRepository creates a chart repository with a shared client.
func NewBigQueryChartRepository(ctx context.Context) (*BigQueryChartRepository, error) {
	client, err := bigquery.NewClient(ctx, ProjectID())
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryChartRepository: creating client: %w", err)
	}
	return &BigQueryChartRepository{client: client}, nil
}

// Close releases the underlying client.
func (r *BigQueryChartRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// ListChartAccounts returns the current flat list of accounts. The caller
// freezes the result into a snapshot; this read is the only chart access an
// import performs.
func (r *BigQueryChartRepository) ListChartAccounts(ctx context.Context) ([]domain.ChartAccount, error) {
	return ListChartAccountsWithClient(ctx, r.client)
}

// InsertChartAccount adds one account to the chart.
func (r *BigQueryChartRepository) InsertChartAccount(ctx context.Context, account domain.ChartAccount) error {
	return InsertChartAccountWithClient(ctx, r.client, account)
}

// ListChartAccountsWithClient queries the chart table ordered by number.
func ListChartAccountsWithClient(ctx context.Context, client *bigquery.Client) ([]domain.ChartAccount, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT account_id, number, name, type
		FROM %s.%s
		ORDER BY number
	`, DatasetID(), chartTableID))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListChartAccounts: running query: %w", err)
	}

	var accounts []domain.ChartAccount
	for {
		var row ChartAccountRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListChartAccounts: reading row: %w", err)
		}
		accounts = append(accounts, domain.ChartAccount{
			ID:     row.AccountID,
			Number: row.Number,
			Name:   row.Name,
			Type:   domain.AccountType(row.Type),
		})
	}
	return accounts, nil
}

// InsertChartAccountWithClient streams one chart account row.
func InsertChartAccountWithClient(ctx context.Context, client *bigquery.Client, account domain.ChartAccount) error {
	row := &ChartAccountRow{
		AccountID: account.ID,
		Number:    account.Number,
		Name:      account.Name,
		Type:      string(account.Type),
		CreatedTS: time.Now(),
	}

	inserter := client.Dataset(DatasetID()).Table(chartTableID).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertChartAccount: inserting row: %w", err)
	}
	return nil
}
