package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
)

type APIHandler struct {
	config  *common.Config
	storage interfaces.JobStorage
	queue   interfaces.Queue
	logger  arbor.ILogger
}

func NewAPIHandler(config *common.Config, storage interfaces.JobStorage, queue interfaces.Queue, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		config:  config,
		storage: storage,
		queue:   queue,
		logger:  logger,
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.Build,
		"git_commit": common.GitCommit,
	})
}

// HealthHandler returns health check status
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// StatusHandler returns job counts per status and the queue depth.
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	counts := map[string]int{}
	for _, status := range []models.JobStatus{
		models.JobStatusPending,
		models.JobStatusProcessing,
		models.JobStatusPassed,
		models.JobStatusFailed,
		models.JobStatusReview,
		models.JobStatusManualReview,
	} {
		n, err := h.storage.CountJobs(r.Context(), status)
		if err != nil {
			h.logger.Warn().Err(err).Str("job_status", string(status)).Msg("Failed to count jobs")
			continue
		}
		counts[string(status)] = n
	}

	queueDepth := -1
	if h.queue != nil {
		if n, err := h.queue.Length(r.Context()); err == nil {
			queueDepth = n
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":     common.GetVersion(),
		"environment": h.config.Environment,
		"jobs":        counts,
		"queue_depth": queueDepth,
	})
}

// ConfigHandler returns the runtime configuration with secrets redacted.
func (h *APIHandler) ConfigHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	redacted := common.DeepCloneConfig(h.config)
	redacted.LLM.APIKey = redact(redacted.LLM.APIKey)
	redacted.Registry.CompaniesHouse.APIKey = redact(redacted.Registry.CompaniesHouse.APIKey)
	redacted.Registry.HMRC.ClientSecret = redact(redacted.Registry.HMRC.ClientSecret)
	redacted.Registry.HMRC.ServerToken = redact(redacted.Registry.HMRC.ServerToken)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version": common.GetVersion(),
		"config":  redacted,
	})
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "[redacted]"
}
