// Package docnum allocates document numbers for committed batches. Numbers
// are per location and period: RK/<location>/<month>/<year>/<sequence>.
package docnum

import (
	"context"
	"fmt"
	"sync"

	bigquerylib "cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	infra "github.com/szpilki111/omi-financial-compass-91-sub001/internal/infra/bigquery"
)

// Allocator hands out the next document number for a location and period.
type Allocator interface {
	Allocate(ctx context.Context, location string, month int, year int) (string, error)
}

// BigQueryAllocator derives the next sequence from the committed ledger
// entries. Allocation races between concurrent commits for the same location
// and period are tolerated: document numbers identify, they do not order.
type BigQueryAllocator struct {
	client *bigquerylib.Client
}

// NewBigQueryAllocator creates an allocator with a shared client.
func NewBigQueryAllocator(ctx context.Context) (*BigQueryAllocator, error) {
	client, err := bigquerylib.NewClient(ctx, infra.ProjectID())
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryAllocator: creating client: %w", err)
	}
	return &BigQueryAllocator{client: client}, nil
}

// Close releases the underlying client.
func (a *BigQueryAllocator) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// Allocate returns the next free number for the location and period.
func (a *BigQueryAllocator) Allocate(ctx context.Context, location string, month int, year int) (string, error) {
	prefix := numberPrefix(location, month, year)

	q := a.client.Query(fmt.Sprintf(`
		SELECT COUNT(DISTINCT document_number) AS used
		FROM %s.ledger_entries
		WHERE STARTS_WITH(document_number, @prefix)
	`, infra.DatasetID()))
	q.Parameters = []bigquerylib.QueryParameter{
		{Name: "prefix", Value: prefix},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return "", fmt.Errorf("Allocate: running query: %w", err)
	}
	var row struct {
		Used int64 `bigquery:"used"`
	}
	if err := it.Next(&row); err != nil && err != iterator.Done {
		return "", fmt.Errorf("Allocate: reading row: %w", err)
	}

	return fmt.Sprintf("%s%d", prefix, row.Used+1), nil
}

func numberPrefix(location string, month, year int) string {
	return fmt.Sprintf("RK/%s/%02d/%d/", location, month, year)
}

// MemoryAllocator is an in-process allocator for tests and the offline CLI.
type MemoryAllocator struct {
	mu   sync.Mutex
	next map[string]int
}

// NewMemoryAllocator creates an empty in-process allocator.
func NewMemoryAllocator() *MemoryAllocator {
	return &MemoryAllocator{next: make(map[string]int)}
}

// Allocate returns sequential numbers per location and period.
func (a *MemoryAllocator) Allocate(_ context.Context, location string, month int, year int) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	prefix := numberPrefix(location, month, year)
	a.next[prefix]++
	return fmt.Sprintf("%s%d", prefix, a.next[prefix]), nil
}
