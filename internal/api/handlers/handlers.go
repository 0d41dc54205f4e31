package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/api/middleware"
	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/domain"
	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/filestore"
	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/importer"
	infra "github.com/szpilki111/omi-financial-compass-91-sub001/internal/infra/bigquery"
	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/jobs"
	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/parser"
)

// DocumentsHandler stores uploaded source files and their records.
type DocumentsHandler struct {
	docs   infra.DocumentRepository
	files  filestore.Service
	bucket string
	log    zerolog.Logger
}

// NewDocumentsHandler creates a documents handler.
func NewDocumentsHandler(docs infra.DocumentRepository, files filestore.Service, bucket string, log zerolog.Logger) *DocumentsHandler {
	return &DocumentsHandler{docs: docs, files: files, bucket: bucket, log: log}
}

// Upload handles POST /api/documents/upload. The request body is the raw
// file; filename and format come from query parameters. The file lands in
// GCS first so any import can be re-run against the original bytes.
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filename := filepath.Base(r.URL.Query().Get("filename"))
	if filename == "" || filename == "." {
		middleware.WriteError(w, http.StatusBadRequest, "filename query parameter is required")
		return
	}
	format := r.URL.Query().Get("format")

	documentID := uuid.NewString()
	object := fmt.Sprintf("imports/%s/%s-%s", time.Now().Format("2006/01/02"), documentID, filename)

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	gcsURI, err := h.files.Upload(ctx, h.bucket, object, contentType, r.Body)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to store uploaded file")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}

	doc := &infra.ImportDocumentRow{
		DocumentID:       documentID,
		GCSURI:           gcsURI,
		OriginalFilename: filename,
		Format:           format,
		UploadTS:         time.Now(),
		ImportStatus:     "PENDING",
	}
	if err := h.docs.InsertImportDocument(ctx, doc); err != nil {
		h.log.Error().Err(err).Msg("Failed to record uploaded document")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to record uploaded document")
		return
	}

	h.log.Info().
		Str("document_id", documentID).
		Str("gcs_uri", gcsURI).
		Str("filename", filename).
		Msg("Source file uploaded")

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"document_id": documentID,
		"gcs_uri":     gcsURI,
	})
}

// List handles GET /api/documents.
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docs.ListImportDocuments(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list documents")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

// ImportsHandler enqueues import jobs and commits previewed batches.
type ImportsHandler struct {
	publisher jobs.Publisher
	store     jobs.JobStore
	imp       *importer.Importer
	docs      infra.DocumentRepository
	log       zerolog.Logger
}

// NewImportsHandler creates an imports handler.
func NewImportsHandler(publisher jobs.Publisher, store jobs.JobStore, imp *importer.Importer, docs infra.DocumentRepository, log zerolog.Logger) *ImportsHandler {
	return &ImportsHandler{publisher: publisher, store: store, imp: imp, docs: docs, log: log}
}

type enqueueImportRequest struct {
	DocumentID     string                `json:"document_id"`
	GCSURI         string                `json:"gcs_uri"`
	Format         domain.Format         `json:"format"`
	Mapping        *parser.ColumnMapping `json:"mapping,omitempty"`
	LocationSuffix string                `json:"location_suffix,omitempty"`
	Location       string                `json:"location,omitempty"`
	Month          int                   `json:"month,omitempty"`
	Year           int                   `json:"year,omitempty"`
}

// Enqueue handles POST /api/imports: it queues the pipeline run for an
// uploaded file and returns the job ID for polling.
func (h *ImportsHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.GCSURI == "" || req.Format == "" {
		middleware.WriteError(w, http.StatusBadRequest, "gcs_uri and format are required")
		return
	}

	job := &jobs.ImportFileJob{
		DocumentID:     req.DocumentID,
		GCSURI:         req.GCSURI,
		Format:         req.Format,
		Mapping:        req.Mapping,
		LocationSuffix: req.LocationSuffix,
		Location:       req.Location,
		Month:          req.Month,
		Year:           req.Year,
	}

	if err := h.publisher.PublishImport(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue import job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue import job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("gcs_uri", req.GCSURI).Str("format", string(req.Format)).Msg("Import job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

type commitRequest struct {
	JobID string `json:"job_id"`
}

// Commit handles POST /api/imports/commit: it writes the previewed batch to
// the ledger store. Blocked batches are refused with the full missing-account
// list so the operator can fix the chart or the form in one pass.
func (h *ImportsHandler) Commit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.JobID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "job_id is required")
		return
	}

	job, err := h.store.GetJob(ctx, req.JobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if job.Status != jobs.JobStatusCompleted || job.Batch == nil {
		middleware.WriteError(w, http.StatusConflict, "Import has not completed; nothing to commit")
		return
	}

	opts := importer.Options{
		Format:   job.Format,
		Location: job.Location,
		Month:    job.Month,
		Year:     job.Year,
	}
	documentNumber, err := h.imp.Commit(ctx, job.Batch, opts)
	if err != nil {
		if errors.Is(err, importer.ErrBatchBlocked) {
			middleware.WriteJSON(w, http.StatusConflict, map[string]interface{}{
				"error":            "Import is blocked by unresolved accounts",
				"missing_accounts": job.Batch.MissingAccounts,
			})
			return
		}
		h.log.Error().Err(err).Str("job_id", req.JobID).Msg("Failed to commit batch")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to commit batch")
		return
	}

	if job.DocumentID != "" {
		if err := h.docs.MarkDocumentCommitted(ctx, job.DocumentID); err != nil {
			h.log.Error().Err(err).Str("document_id", job.DocumentID).Msg("Failed to mark document committed")
		}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"document_number":    documentNumber,
		"entries":            len(job.Batch.Entries),
		"pending_completion": job.Batch.ErrorCount(),
	})
}

// AccountsHandler serves the chart of accounts.
type AccountsHandler struct {
	chart infra.ChartRepository
	log   zerolog.Logger
}

// NewAccountsHandler creates an accounts handler.
func NewAccountsHandler(chart infra.ChartRepository, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{chart: chart, log: log}
}

// List handles GET /api/accounts.
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.chart.ListChartAccounts(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list chart accounts")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list chart accounts")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// Create handles POST /api/accounts, used to register the missing accounts a
// blocked import reported.
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var account domain.ChartAccount
	if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if account.Number == "" {
		middleware.WriteError(w, http.StatusBadRequest, "number is required")
		return
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	if err := h.chart.InsertChartAccount(r.Context(), account); err != nil {
		h.log.Error().Err(err).Msg("Failed to insert chart account")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to insert chart account")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, account)
}

// JobsHandler serves job status and batch previews.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// Get handles GET /api/jobs/{id}. The completed job carries the batch
// preview, including the column mapping actually applied, so the operator
// can confirm or correct it before committing.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// List handles GET /api/jobs.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		DocumentID: query.Get("document_id"),
		Status:     jobs.JobStatus(query.Get("status")),
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
