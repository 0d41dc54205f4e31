package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/api/handlers"
	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/api/middleware"
	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/docnum"
	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/filestore"
	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/importer"
	infraBQ "github.com/szpilki111/omi-financial-compass-91-sub001/internal/infra/bigquery"
	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/jobs"
	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/jobs/inmemory"
	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/logger"
)

func main() {
	// Parse command-line flags
	var (
		port   = flag.String("port", "8080", "HTTP server port")
		bucket = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket name for source file uploads (or set GCS_BUCKET env)")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	if *bucket == "" {
		log.Warn().Msg("No GCS bucket configured - file uploads will be disabled")
	}

	// Initialize repositories
	ctx := context.Background()

	chartRepo, err := infraBQ.NewBigQueryChartRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create chart repository")
	}
	defer chartRepo.Close()

	ledgerRepo, err := infraBQ.NewBigQueryLedgerRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ledger repository")
	}
	defer ledgerRepo.Close()

	docRepo, err := infraBQ.NewBigQueryDocumentRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create document repository")
	}
	defer docRepo.Close()

	allocator, err := docnum.NewBigQueryAllocator(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create document number allocator")
	}
	defer allocator.Close()

	files := filestore.NewGCSService()
	imp := importer.New(chartRepo, ledgerRepo, allocator, log)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := newImportJobHandler(imp, files, log)

	// Start job consumer in background
	go func() {
		log.Info().Msg("Starting import worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Import worker stopped with error")
		}
	}()

	// Initialize handlers
	documentsHandler := handlers.NewDocumentsHandler(docRepo, files, *bucket, log)
	importsHandler := handlers.NewImportsHandler(jobQueue, jobStore, imp, docRepo, log)
	accountsHandler := handlers.NewAccountsHandler(chartRepo, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	// Documents endpoints
	mux.HandleFunc("/api/documents", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			documentsHandler.List(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/documents/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			documentsHandler.Upload(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Imports endpoints
	mux.HandleFunc("/api/imports", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			importsHandler.Enqueue(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/imports/commit", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			importsHandler.Commit(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Accounts endpoints
	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			accountsHandler.List(w, r)
		case http.MethodPost:
			accountsHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.List(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract job ID from path
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.Get(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Cancel worker context
	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}

// newImportJobHandler builds the worker callback: fetch the stored source
// file, run the import pipeline, and attach the resulting batch preview to
// the job for polling.
func newImportJobHandler(imp *importer.Importer, files filestore.Service, log zerolog.Logger) jobs.JobHandler {
	return func(ctx context.Context, job *jobs.ImportFileJob) error {
		log.Info().
			Str("job_id", job.JobID).
			Str("document_id", job.DocumentID).
			Str("gcs_uri", job.GCSURI).
			Str("filename", filestore.Filename(job.GCSURI)).
			Str("format", string(job.Format)).
			Msg("Processing import job")

		data, err := files.Fetch(ctx, job.GCSURI)
		if err != nil {
			log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to fetch source file")
			return err
		}

		result, err := imp.Run(ctx, data, importer.Options{
			Format:         job.Format,
			DocumentID:     job.DocumentID,
			Mapping:        job.Mapping,
			LocationSuffix: job.LocationSuffix,
			Location:       job.Location,
			Month:          job.Month,
			Year:           job.Year,
		})
		if err != nil {
			log.Error().Err(err).Str("job_id", job.JobID).Msg("Import pipeline failed")
			return err
		}

		job.Batch = result.Batch
		job.UsedMapping = result.UsedMapping

		log.Info().
			Str("job_id", job.JobID).
			Str("batch_id", result.Batch.BatchID).
			Int("entries", len(result.Batch.Entries)).
			Bool("blocked", result.Batch.Blocked).
			Msg("Import job completed")

		return nil
	}
}
