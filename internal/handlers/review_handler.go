package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
)

type ReviewHandler struct {
	storage interfaces.JobStorage
	logger  arbor.ILogger
}

func NewReviewHandler(storage interfaces.JobStorage, logger arbor.ILogger) *ReviewHandler {
	return &ReviewHandler{storage: storage, logger: logger}
}

type reviewRequest struct {
	ReviewerID string `json:"reviewer_id"`
	Action     string `json:"action"`
	Notes      string `json:"notes,omitempty"`
}

// SubmitHandler applies a reviewer decision to a job in review state.
func (h *ReviewHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ReviewerID == "" || req.Action == "" {
		WriteError(w, http.StatusBadRequest, "reviewer_id and action are required")
		return
	}

	id := PathID(r.URL.Path, "/api/documents")
	job, err := h.storage.GetJob(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Document not found")
		return
	}

	review := models.Review{
		ReviewerID: req.ReviewerID,
		Action:     models.ReviewAction(req.Action),
		Notes:      req.Notes,
	}
	if !job.ApplyReview(review) {
		if job.Status != models.JobStatusReview {
			WriteError(w, http.StatusConflict, "Document is not awaiting review")
		} else {
			WriteError(w, http.StatusBadRequest, "Unknown review action")
		}
		return
	}

	if err := h.storage.SaveJob(r.Context(), job); err != nil {
		h.logger.Error().Err(err).Str("job_id", id).Msg("Failed to persist review")
		WriteError(w, http.StatusInternalServerError, "Failed to save review")
		return
	}
	h.audit(r, id, req)

	h.logger.Info().
		Str("job_id", id).
		Str("reviewer", req.ReviewerID).
		Str("action", req.Action).
		Str("status", string(job.Status)).
		Msg("Review applied")
	WriteJSON(w, http.StatusOK, job)
}

func (h *ReviewHandler) audit(r *http.Request, jobID string, req reviewRequest) {
	entry := &models.AuditEntry{
		JobID:  jobID,
		Action: "reviewed",
		Detail: req.Action,
		UserID: req.ReviewerID,
	}
	if err := h.storage.AppendAudit(r.Context(), entry); err != nil {
		h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to append review audit entry")
	}
}
