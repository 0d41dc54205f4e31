package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/docnum"
	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/domain"
	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/importer"
	infraBQ "github.com/szpilki111/omi-financial-compass-91-sub001/internal/infra/bigquery"
	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/logger"
	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/parser"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "preview":
		runPreview(log)
	case "commit":
		runCommit(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Import File CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  importfile <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  preview   Run the import pipeline on a local file and print the batch")
	fmt.Println("  commit    Preview a local file and commit the batch to the ledger")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'importfile <command> -h' for more information on a command.")
}

type importFlags struct {
	file           *string
	format         *string
	chart          *string
	mapping        *string
	locationSuffix *string
	location       *string
	month          *int
	year           *int
}

func registerImportFlags(fs *flag.FlagSet) importFlags {
	now := time.Now()
	return importFlags{
		file:           fs.String("file", "", "Path to the source file"),
		format:         fs.String("format", "", "Source format: bank_statement, delimited_text or settlement_form"),
		chart:          fs.String("chart", "", "Path to a chart-of-accounts JSON file (default: read from BigQuery)"),
		mapping:        fs.String("mapping", "", "Column mapping JSON for delimited files, e.g. {\"description\":1,\"amount\":2,\"account\":3}"),
		locationSuffix: fs.String("location-suffix", "", "Analytical suffix for bare settlement-form account codes"),
		location:       fs.String("location", "", "Location code for document numbering"),
		month:          fs.Int("month", int(now.Month()), "Accounting month"),
		year:           fs.Int("year", now.Year(), "Accounting year"),
	}
}

func runPreview(log zerolog.Logger) {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	flags := registerImportFlags(fs)
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	imp, cleanup := buildImporter(ctx, log, flags, false)
	defer cleanup()

	result := runPipeline(ctx, log, imp, flags)
	printBatch(result)
}

func runCommit(log zerolog.Logger) {
	fs := flag.NewFlagSet("commit", flag.ExitOnError)
	flags := registerImportFlags(fs)
	fs.Parse(os.Args[2:])

	if *flags.location == "" {
		log.Fatal().Msg("Error: --location is required for commit")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	imp, cleanup := buildImporter(ctx, log, flags, true)
	defer cleanup()

	result := runPipeline(ctx, log, imp, flags)
	printBatch(result)

	documentNumber, err := imp.Commit(ctx, result.Batch, importer.Options{
		Format:   domain.Format(*flags.format),
		Location: *flags.location,
		Month:    *flags.month,
		Year:     *flags.year,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Commit failed")
	}

	fmt.Printf("\nCommitted as %s\n", documentNumber)
}

// buildImporter wires the importer from flags: chart from a local JSON file
// or BigQuery, ledger and allocator only when committing.
func buildImporter(ctx context.Context, log zerolog.Logger, flags importFlags, commit bool) (*importer.Importer, func()) {
	var cleanups []func()
	cleanup := func() {
		for _, fn := range cleanups {
			fn()
		}
	}

	var chart importer.ChartRepository
	if *flags.chart != "" {
		accounts, err := loadChartFile(*flags.chart)
		if err != nil {
			log.Fatal().Err(err).Str("path", *flags.chart).Msg("Failed to load chart file")
		}
		chart = fileChart(accounts)
	} else {
		repo, err := infraBQ.NewBigQueryChartRepository(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create chart repository")
		}
		cleanups = append(cleanups, func() { repo.Close() })
		chart = repo
	}

	var ledger importer.LedgerRepository
	var allocator importer.NumberAllocator
	if commit {
		repo, err := infraBQ.NewBigQueryLedgerRepository(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create ledger repository")
		}
		cleanups = append(cleanups, func() { repo.Close() })
		ledger = repo

		alloc, err := docnum.NewBigQueryAllocator(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create document number allocator")
		}
		cleanups = append(cleanups, func() { alloc.Close() })
		allocator = alloc
	} else {
		allocator = docnum.NewMemoryAllocator()
	}

	return importer.New(chart, ledger, allocator, log), cleanup
}

func runPipeline(ctx context.Context, log zerolog.Logger, imp *importer.Importer, flags importFlags) *importer.RunResult {
	if *flags.file == "" {
		log.Fatal().Msg("Error: --file is required")
	}
	if *flags.format == "" {
		log.Fatal().Msg("Error: --format is required")
	}

	data, err := os.ReadFile(*flags.file)
	if err != nil {
		log.Fatal().Err(err).Str("path", *flags.file).Msg("Failed to read source file")
	}

	var mapping *parser.ColumnMapping
	if *flags.mapping != "" {
		mapping = &parser.ColumnMapping{}
		if err := json.Unmarshal([]byte(*flags.mapping), mapping); err != nil {
			log.Fatal().Err(err).Msg("Failed to parse column mapping JSON")
		}
	}

	result, err := imp.Run(ctx, data, importer.Options{
		Format:         domain.Format(*flags.format),
		Mapping:        mapping,
		LocationSuffix: *flags.locationSuffix,
		Location:       *flags.location,
		Month:          *flags.month,
		Year:           *flags.year,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Import pipeline failed")
	}
	return result
}

func printBatch(result *importer.RunResult) {
	batch := result.Batch

	fmt.Printf("Batch %s (%s, encoding %s)\n", batch.BatchID, batch.Format, result.Encoding)
	if result.UsedMapping != nil {
		mappingJSON, _ := json.Marshal(result.UsedMapping)
		fmt.Printf("Column mapping: %s\n", mappingJSON)
	}
	fmt.Printf("Entries: %d, errors: %d, skipped rows: %d\n", len(batch.Entries), batch.ErrorCount(), batch.SkippedRows)

	if batch.Blocked {
		fmt.Println("\nBLOCKED: unresolved accounts")
		for _, token := range batch.MissingAccounts {
			fmt.Printf("  %s\n", token)
		}
		return
	}

	for _, e := range batch.Entries {
		marker := " "
		if e.HasError {
			marker = "!"
		}
		fmt.Printf("%s %s  %10s %s  Wn %-15s Ma %-15s  %s\n",
			marker,
			e.Date.Format("2006-01-02"),
			e.DebitAmount.StringFixed(2),
			e.Currency,
			accountLabel(e.DebitAccount),
			accountLabel(e.CreditAccount),
			e.Description,
		)
		if e.HasError {
			fmt.Printf("      %s\n", e.ErrorReason)
		}
	}
}

func accountLabel(ra domain.ResolvedAccount) string {
	if ra.Resolved() {
		return ra.Account.Number
	}
	if ra.Token == "" {
		return "?"
	}
	return "?" + ra.Token
}

// fileChart serves a chart of accounts loaded from a local JSON file.
type fileChart []domain.ChartAccount

func (c fileChart) ListChartAccounts(ctx context.Context) ([]domain.ChartAccount, error) {
	return c, nil
}

func loadChartFile(path string) ([]domain.ChartAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chart file: %w", err)
	}
	var accounts []domain.ChartAccount
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("parse chart file: %w", err)
	}
	return accounts, nil
}
