// Package bigquery holds the BigQuery-backed repositories: the chart of
// accounts, the ledger entry store and the import document records.
package bigquery

import "os"

const (
	defaultDatasetID = "ledger"

	chartTableID     = "chart_accounts"
	ledgerTableID    = "ledger_entries"
	documentsTableID = "import_documents"
)

// ProjectID resolves the GCP project from the environment.
func ProjectID() string {
	if p := os.Getenv("BQ_PROJECT"); p != "" {
		return p
	}
	return os.Getenv("GOOGLE_CLOUD_PROJECT")
}

// DatasetID resolves the BigQuery dataset, defaulting to "ledger".
func DatasetID() string {
	if d := os.Getenv("BQ_DATASET"); d != "" {
		return d
	}
	return defaultDatasetID
}
