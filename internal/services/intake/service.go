// Package intake accepts document submissions and stages them for the
// verification pipeline.
package intake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
)

// allowedExtensions are the document formats the pipeline can process.
var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".bmp":  "image/bmp",
	".gif":  "image/gif",
	".txt":  "text/plain",
}

// Submission is a validated intake request. Merchant-declared fields are
// optional; which ones matter depends on the variant.
type Submission struct {
	Filename string `validate:"required,max=255"`
	Variant  string `validate:"required"`
	Data     []byte `validate:"required"`

	// Merchant-declared identity, compared against the document later.
	CompanyName   string `validate:"max=200"`
	CompanyNumber string `validate:"max=20"`
	Address       string `validate:"max=500"`
	VATNumber     string `validate:"max=20"`
	DirectorName  string `validate:"max=200"`
	DateOfBirth   string `validate:"max=40"`
}

// Dispatcher processes a job immediately when the queue is disabled.
type Dispatcher interface {
	Process(ctx context.Context, jobID string) error
}

// Service validates submissions, stages the file locally, archives it to
// the blob store and hands the job to the queue or dispatcher.
type Service struct {
	config    common.IntakeConfig
	storage   interfaces.JobStorage
	blobs     interfaces.BlobStore
	queue     interfaces.Queue
	validator *validator.Validate
	logger    arbor.ILogger

	// dispatch runs when the queue path is disabled or unavailable.
	dispatch Dispatcher
}

func NewService(cfg common.IntakeConfig, storage interfaces.JobStorage, blobs interfaces.BlobStore, queue interfaces.Queue, dispatch Dispatcher, logger arbor.ILogger) *Service {
	return &Service{
		config:    cfg,
		storage:   storage,
		blobs:     blobs,
		queue:     queue,
		validator: validator.New(),
		dispatch:  dispatch,
		logger:    logger,
	}
}

// Submit accepts a document, creates the job record, and routes it for
// processing. The returned job is in pending state (or processing, when
// dispatched inline).
func (s *Service) Submit(ctx context.Context, sub Submission) (*models.Job, error) {
	if err := s.validator.Struct(sub); err != nil {
		return nil, fmt.Errorf("invalid submission: %w", err)
	}
	if s.config.MaxUploadSize > 0 && int64(len(sub.Data)) > s.config.MaxUploadSize {
		return nil, fmt.Errorf("document exceeds upload limit of %d bytes", s.config.MaxUploadSize)
	}

	ext := strings.ToLower(filepath.Ext(sub.Filename))
	contentType, ok := allowedExtensions[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported document type: %s", ext)
	}

	variant := models.ParseVariant(sub.Variant)
	jobID := uuid.New().String()

	localPath, err := s.stage(jobID, ext, sub.Data)
	if err != nil {
		return nil, err
	}

	job := &models.Job{
		ID:          jobID,
		Filename:    filepath.Base(sub.Filename),
		Variant:     variant,
		LocalPath:   localPath,
		Status:      models.JobStatusPending,
		Payload:     models.NewVariantPayload(variant),
		SubmittedAt: time.Now(),
		UpdatedAt:   time.Now(),
	}
	applyMerchantFields(job, sub)

	// Durable archive is best-effort; the staged copy drives processing.
	if s.blobs != nil {
		key := BlobKey(jobID, ext)
		if _, err := s.blobs.Upload(ctx, key, sub.Data, contentType); err != nil {
			s.logger.Warn().
				Err(err).
				Str("job_id", jobID).
				Msg("Blob archival failed, continuing with local copy")
			job.AddFlag("archival_failed")
		} else {
			job.BlobKey = key
		}
	}

	if err := s.storage.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}
	s.audit(ctx, jobID, "submitted", sub.Filename)

	s.route(ctx, job)
	return job, nil
}

// route enqueues the job, falling back to inline dispatch when the queue
// path is disabled or the enqueue fails.
func (s *Service) route(ctx context.Context, job *models.Job) {
	if s.config.UseQueue && s.queue != nil {
		msg := &models.JobQueueMessage{JobID: job.ID, Action: models.QueueActionProcess}
		if err := s.queue.Enqueue(ctx, msg); err == nil {
			s.logger.Info().
				Str("job_id", job.ID).
				Str("variant", string(job.Variant)).
				Msg("Job queued for verification")
			return
		} else {
			s.logger.Warn().
				Err(err).
				Str("job_id", job.ID).
				Msg("Enqueue failed, dispatching inline")
		}
	}

	if s.dispatch == nil {
		s.logger.Error().
			Str("job_id", job.ID).
			Msg("No dispatcher available, job left pending")
		return
	}

	go func() {
		// Detach from the request context; processing outlives the upload.
		if err := s.dispatch.Process(context.Background(), job.ID); err != nil {
			s.logger.Error().
				Err(err).
				Str("job_id", job.ID).
				Msg("Inline dispatch failed")
		}
	}()
}

func (s *Service) stage(jobID, ext string, data []byte) (string, error) {
	if err := os.MkdirAll(s.config.UploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	localPath := filepath.Join(s.config.UploadDir, jobID+ext)
	if err := os.WriteFile(localPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to stage document: %w", err)
	}
	return localPath, nil
}

func (s *Service) audit(ctx context.Context, jobID, action, detail string) {
	entry := &models.AuditEntry{
		JobID:     jobID,
		Action:    action,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if err := s.storage.AppendAudit(ctx, entry); err != nil {
		s.logger.Warn().
			Err(err).
			Str("job_id", jobID).
			Msg("Failed to append audit entry")
	}
}

func applyMerchantFields(job *models.Job, sub Submission) {
	switch {
	case job.Payload.Company != nil:
		job.Payload.Company.Merchant = models.CompanyFields{
			CompanyName:   sub.CompanyName,
			CompanyNumber: sub.CompanyNumber,
			Address:       sub.Address,
		}
	case job.Payload.VAT != nil:
		job.Payload.VAT.Merchant = models.VATFields{
			VATNumber:    sub.VATNumber,
			BusinessName: sub.CompanyName,
			Address:      sub.Address,
		}
	case job.Payload.Director != nil:
		job.Payload.Director.Merchant = models.DirectorFields{
			DirectorName:  sub.DirectorName,
			DateOfBirth:   sub.DateOfBirth,
			CompanyName:   sub.CompanyName,
			CompanyNumber: sub.CompanyNumber,
			Address:       sub.Address,
		}
	}
}

// BlobKey is the archive key layout for submitted documents.
func BlobKey(jobID, ext string) string {
	return fmt.Sprintf("documents/%s/%s%s", jobID, jobID, ext)
}
