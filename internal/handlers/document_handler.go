package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
	"github.com/ternarybob/probo/internal/services/intake"
	"github.com/ternarybob/probo/internal/services/report"
)

// maxMultipartMemory bounds the in-memory portion of multipart parsing.
const maxMultipartMemory = 10 << 20

type DocumentHandler struct {
	intake   *intake.Service
	storage  interfaces.JobStorage
	reports  *report.Service
	dispatch intake.Dispatcher
	logger   arbor.ILogger
}

func NewDocumentHandler(intakeService *intake.Service, storage interfaces.JobStorage, reports *report.Service, dispatch intake.Dispatcher, logger arbor.ILogger) *DocumentHandler {
	return &DocumentHandler{
		intake:   intakeService,
		storage:  storage,
		reports:  reports,
		dispatch: dispatch,
		logger:   logger,
	}
}

// UploadHandler accepts a multipart document submission and creates a
// verification job.
func (h *DocumentHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Missing document file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read uploaded file")
		WriteError(w, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}

	sub := intake.Submission{
		Filename:      header.Filename,
		Variant:       r.FormValue("variant"),
		Data:          data,
		CompanyName:   r.FormValue("company_name"),
		CompanyNumber: r.FormValue("company_number"),
		Address:       r.FormValue("address"),
		VATNumber:     r.FormValue("vat_number"),
		DirectorName:  r.FormValue("director_name"),
		DateOfBirth:   r.FormValue("date_of_birth"),
	}

	job, err := h.intake.Submit(r.Context(), sub)
	if err != nil {
		h.logger.Warn().Err(err).Str("filename", header.Filename).Msg("Submission rejected")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}

// GetHandler returns a single job by ID.
func (h *DocumentHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	id := PathID(r.URL.Path, "/api/documents")
	job, err := h.storage.GetJob(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Document not found")
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// ListHandler returns jobs filtered by status and variant.
func (h *DocumentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit, offset := GetPaginationParams(r)
	opts := interfaces.ListOptions{
		Status:  models.JobStatus(r.URL.Query().Get("status")),
		Variant: models.Variant(r.URL.Query().Get("variant")),
		Limit:   limit,
		Offset:  offset,
	}

	jobs, err := h.storage.ListJobs(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	count, err := h.storage.CountJobs(r.Context(), opts.Status)
	if err != nil {
		count = len(jobs)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents": jobs,
		"total":     count,
		"limit":     limit,
		"offset":    offset,
	})
}

// DeleteHandler removes a job record.
func (h *DocumentHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id := PathID(r.URL.Path, "/api/documents")
	if _, err := h.storage.GetJob(r.Context(), id); err != nil {
		WriteError(w, http.StatusNotFound, "Document not found")
		return
	}
	if err := h.storage.DeleteJob(r.Context(), id); err != nil {
		h.logger.Error().Err(err).Str("job_id", id).Msg("Failed to delete job")
		WriteError(w, http.StatusInternalServerError, "Failed to delete document")
		return
	}
	WriteSuccess(w, "Document deleted")
}

// ProcessHandler re-runs the verification pipeline for a pending or failed
// job. Terminal jobs other than failed are left alone.
func (h *DocumentHandler) ProcessHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	id := PathID(r.URL.Path, "/api/documents")
	job, err := h.storage.GetJob(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Document not found")
		return
	}

	if job.Status == models.JobStatusProcessing {
		WriteError(w, http.StatusConflict, "Document is already processing")
		return
	}
	if job.Status.IsTerminal() && job.Status != models.JobStatusFailed {
		WriteError(w, http.StatusConflict, "Document already has a verdict")
		return
	}

	if job.Status == models.JobStatusFailed {
		// Reset so the dispatcher's terminal guard lets the rerun through.
		job.Status = models.JobStatusPending
		job.Decision = ""
		job.ProcessedAt = nil
		if err := h.storage.SaveJob(r.Context(), job); err != nil {
			h.logger.Error().Err(err).Str("job_id", id).Msg("Failed to reset job for rerun")
			WriteError(w, http.StatusInternalServerError, "Failed to restart processing")
			return
		}
	}

	go func() {
		if err := h.dispatch.Process(context.Background(), id); err != nil {
			h.logger.Error().Err(err).Str("job_id", id).Msg("Reprocess dispatch failed")
		}
	}()

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":  "started",
		"message": "Processing started",
		"id":      id,
	})
}

// ReportHandler renders the verification report. Format is selected by the
// "format" query parameter: md, html (default) or pdf.
func (h *DocumentHandler) ReportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	id := PathID(r.URL.Path, "/api/documents")
	job, err := h.storage.GetJob(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Document not found")
		return
	}

	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		io.WriteString(w, h.reports.Markdown(job))
	case "pdf":
		data, err := h.reports.PDF(job)
		if err != nil {
			h.logger.Error().Err(err).Str("job_id", id).Msg("Report PDF generation failed")
			WriteError(w, http.StatusInternalServerError, "Failed to generate report")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", "attachment; filename=\"report-"+id+".pdf\"")
		w.Write(data)
	default:
		data, err := h.reports.HTML(job)
		if err != nil {
			h.logger.Error().Err(err).Str("job_id", id).Msg("Report HTML generation failed")
			WriteError(w, http.StatusInternalServerError, "Failed to generate report")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(data)
	}
}

// AuditHandler returns the audit trail for a job.
func (h *DocumentHandler) AuditHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	id := PathID(r.URL.Path, "/api/documents")
	if _, err := h.storage.GetJob(r.Context(), id); err != nil {
		WriteError(w, http.StatusNotFound, "Document not found")
		return
	}

	entries, err := h.storage.ListAudit(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", id).Msg("Failed to list audit trail")
		WriteError(w, http.StatusInternalServerError, "Failed to load audit trail")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"audit": entries})
}
