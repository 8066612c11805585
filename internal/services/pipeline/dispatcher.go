// Package pipeline runs the verification stage graph for a submitted job:
// extraction, field parsing, forensic analysis, registry lookups and scoring.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
	"github.com/ternarybob/probo/internal/services/extraction"
	"github.com/ternarybob/probo/internal/services/forensic"
	"github.com/ternarybob/probo/internal/services/parser"
	"github.com/ternarybob/probo/internal/services/registry"
	"github.com/ternarybob/probo/internal/services/scoring"
)

// Dispatcher executes the verification pipeline for one job at a time.
// It satisfies the intake dispatcher and the queue handler.
type Dispatcher struct {
	storage   interfaces.JobStorage
	blobs     interfaces.BlobStore
	extractor *extraction.Service
	parser    *parser.Service
	forensics *forensic.Service
	companies interfaces.CompanyRegistry
	tax       interfaces.TaxRegistry
	scorer    *scoring.Service
	progress  interfaces.ProgressBus
	logger    arbor.ILogger
}

func NewDispatcher(
	storage interfaces.JobStorage,
	blobs interfaces.BlobStore,
	extractor *extraction.Service,
	fieldParser *parser.Service,
	forensics *forensic.Service,
	companies interfaces.CompanyRegistry,
	tax interfaces.TaxRegistry,
	scorer *scoring.Service,
	progress interfaces.ProgressBus,
	logger arbor.ILogger,
) *Dispatcher {
	return &Dispatcher{
		storage:   storage,
		blobs:     blobs,
		extractor: extractor,
		parser:    fieldParser,
		forensics: forensics,
		companies: companies,
		tax:       tax,
		scorer:    scorer,
		progress:  progress,
		logger:    logger,
	}
}

// Process runs the full pipeline for jobID. A job already in a terminal
// state is left untouched, so redelivered queue messages are harmless.
// Stage failures mark the job failed and return nil: the run completed
// with a verdict, and the message should be acknowledged.
func (d *Dispatcher) Process(ctx context.Context, jobID string) (err error) {
	job, err := d.storage.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	if job.Status.IsTerminal() {
		d.logger.Info().
			Str("job_id", jobID).
			Str("status", string(job.Status)).
			Msg("Job already terminal, skipping")
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().
				Str("job_id", jobID).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Pipeline panicked")
			err = d.fail(ctx, job, fmt.Errorf("pipeline panic: %v", r))
		}
	}()

	job.MarkProcessing()
	if err := d.storage.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}
	d.step(jobID, models.StepInitializing, 5, "Verification started")

	data, contentType, err := d.loadDocument(ctx, job)
	if err != nil {
		return d.fail(ctx, job, err)
	}
	d.step(jobID, models.StepFileValidation, 10, "Document validated")
	d.step(jobID, models.StepPipelineInit, 15, "Pipeline initialized")

	d.step(jobID, models.StepExtractionStart, 20, "Extracting document text")
	extracted, err := d.extractor.Extract(ctx, data, contentType)
	if err != nil {
		// An OCR hard failure is not fatal: the job continues with empty
		// text, the registry stage skips and scoring bottoms out.
		d.logger.Warn().
			Err(err).
			Str("job_id", jobID).
			Msg("Text extraction failed, continuing with empty text")
		job.AddFlag("extraction_failed")
		extracted = &extraction.Result{}
	}
	job.Payload.SetExtractionResult(extracted.Text, extracted.Confidence)

	// Forensic analysis only needs the raw bytes, so it overlaps with
	// field parsing. Progress events still go out in schedule order.
	d.step(jobID, models.StepFieldParseStart, 30, "Parsing document fields")
	forensicDone := make(chan struct{})
	var report *models.ForensicReport
	var forensicErr error
	go func() {
		defer close(forensicDone)
		report, forensicErr = d.forensics.Analyze(ctx, data, contentType)
	}()

	if err := d.parser.Parse(ctx, job.Variant, &job.Payload); err != nil {
		d.logger.Warn().
			Err(err).
			Str("job_id", jobID).
			Msg("Field parsing produced nothing")
		job.AddFlag("no_fields_extracted")
	}
	d.step(jobID, models.StepExtractionComplete, 40, "Field extraction complete")

	d.step(jobID, models.StepForensicStart, 50, "Running forensic checks")
	<-forensicDone
	if forensicErr != nil {
		return d.fail(ctx, job, fmt.Errorf("forensic analysis failed: %w", forensicErr))
	}
	job.Forensic = report
	d.step(jobID, models.StepForensicComplete, 60, "Forensic checks complete")

	if err := d.storage.SaveJob(ctx, job); err != nil {
		d.logger.Warn().
			Err(err).
			Str("job_id", jobID).
			Msg("Failed to persist interim results")
	}

	d.step(jobID, models.StepRegistryStart, 70, "Checking registries")
	if d.registryStage(ctx, job) {
		d.step(jobID, models.StepRegistryComplete, 80, "Registry lookup complete")
	} else {
		d.step(jobID, models.StepRegistrySkipped, 80, "Registry lookup skipped")
	}

	d.step(jobID, models.StepScoringStart, 90, "Scoring evidence")
	decision := d.scorer.Score(&job.Payload, report.Penalty)
	job.MarkTerminal(decision)

	if err := d.storage.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to persist verdict for job %s: %w", jobID, err)
	}
	d.audit(ctx, jobID, "processed", string(decision))

	d.progress.PublishSync(jobID, models.ProgressEvent{
		Step:    models.StepComplete,
		Percent: 100,
		Status:  string(job.Status),
		Message: fmt.Sprintf("Verification complete: %s", decision),
	})
	d.logger.Info().
		Str("job_id", jobID).
		Str("decision", string(decision)).
		Str("status", string(job.Status)).
		Msg("Pipeline complete")
	return nil
}

// registryStage runs the per-variant registry lookup. It returns true when a
// lookup was performed, false when it was skipped (no number to look up, no
// client configured, or the registry was unreachable).
func (d *Dispatcher) registryStage(ctx context.Context, job *models.Job) bool {
	switch {
	case job.Payload.Company != nil:
		return d.companyLookup(ctx, job, job.Payload.Company)
	case job.Payload.VAT != nil:
		return d.vatLookup(ctx, job, job.Payload.VAT)
	case job.Payload.Director != nil:
		return d.directorLookup(ctx, job, job.Payload.Director)
	}
	return false
}

func (d *Dispatcher) companyLookup(ctx context.Context, job *models.Job, p *models.CompanyPayload) bool {
	number := firstNonEmpty(p.Extracted.CompanyNumber, p.Merchant.CompanyNumber)
	if number == "" || d.companies == nil {
		return false
	}
	number = registry.NormalizeCompanyNumber(number)

	profile, err := d.companies.GetProfile(ctx, number)
	if err != nil {
		d.logger.Warn().
			Err(err).
			Str("job_id", job.ID).
			Str("company_number", number).
			Msg("Company registry unavailable")
		job.AddFlag("registry_unavailable")
		return false
	}
	if profile == nil {
		job.AddFlag("registry_not_found")
		return true
	}

	p.Registry = models.CompanyFields{
		CompanyName:   profile.CompanyName,
		CompanyNumber: profile.CompanyNumber,
		Address:       profile.Address,
		Date:          profile.CreatedDate,
	}
	p.Officers = profile.Officers
	p.RegistryRaw = profile.Raw
	return true
}

func (d *Dispatcher) vatLookup(ctx context.Context, job *models.Job, p *models.VATPayload) bool {
	vrn := firstNonEmpty(p.Extracted.VATNumber, p.Merchant.VATNumber)
	if vrn == "" || d.tax == nil {
		return false
	}

	record, err := d.tax.CheckVAT(ctx, vrn)
	if err != nil {
		d.logger.Warn().
			Err(err).
			Str("job_id", job.ID).
			Msg("Tax registry unavailable")
		job.AddFlag("registry_unavailable")
		return false
	}
	if record == nil {
		job.AddFlag("registry_unavailable")
		return false
	}

	valid := record.Valid
	p.RegistryValid = &valid
	p.Registry = models.VATFields{
		VATNumber:        record.VATNumber,
		BusinessName:     record.BusinessName,
		Address:          record.AddressLine1,
		RegistrationDate: record.RegistrationDate,
	}
	return true
}

func (d *Dispatcher) directorLookup(ctx context.Context, job *models.Job, p *models.DirectorPayload) bool {
	companyNumber := firstNonEmpty(p.Merchant.CompanyNumber, p.Extracted.CompanyNumber)
	if companyNumber == "" || d.companies == nil {
		p.VerifyReason = "No company number for officer lookup"
		return false
	}

	officers, err := d.companies.GetOfficers(ctx, registry.NormalizeCompanyNumber(companyNumber))
	if err != nil {
		d.logger.Warn().
			Err(err).
			Str("job_id", job.ID).
			Msg("Officer lookup unavailable")
		job.AddFlag("registry_unavailable")
		return false
	}

	name := firstNonEmpty(p.Merchant.DirectorName, p.Extracted.DirectorName)
	dob := firstNonEmpty(p.Merchant.DateOfBirth, p.Extracted.DateOfBirth)
	match := registry.MatchDirector(name, dob, officers)
	p.Verified = match.Verified
	p.VerifyReason = match.Reason
	p.MatchedOfficer = match.Officer
	return true
}

// loadDocument reads the staged copy, restoring it from the blob archive
// when the staging file is gone.
func (d *Dispatcher) loadDocument(ctx context.Context, job *models.Job) ([]byte, string, error) {
	data, err := os.ReadFile(job.LocalPath)
	if err != nil && job.BlobKey != "" && d.blobs != nil {
		d.logger.Warn().
			Err(err).
			Str("job_id", job.ID).
			Msg("Staged copy missing, restoring from archive")
		if dlErr := d.blobs.Download(ctx, job.BlobKey, job.LocalPath); dlErr == nil {
			data, err = os.ReadFile(job.LocalPath)
		}
	}
	if err != nil {
		return nil, "", fmt.Errorf("document unavailable: %w", err)
	}
	return data, contentTypeFor(job.LocalPath), nil
}

// fail moves the job to the failed state and emits the terminal error event.
// The run is considered handled, so the error is absorbed.
func (d *Dispatcher) fail(ctx context.Context, job *models.Job, cause error) error {
	d.logger.Error().
		Err(cause).
		Str("job_id", job.ID).
		Msg("Pipeline failed")

	job.MarkFailed()
	job.AddFlag("processing_error")
	if err := d.storage.SaveJob(ctx, job); err != nil {
		d.logger.Error().
			Err(err).
			Str("job_id", job.ID).
			Msg("Failed to persist failed state")
	}
	d.audit(ctx, job.ID, "failed", cause.Error())

	d.progress.PublishSync(job.ID, models.ProgressEvent{
		Step:    models.StepError,
		Percent: 0,
		Status:  string(models.JobStatusFailed),
		Message: cause.Error(),
	})
	return nil
}

func (d *Dispatcher) step(jobID, step string, percent int, message string) {
	d.progress.Publish(jobID, models.ProgressEvent{
		Step:    step,
		Percent: percent,
		Message: message,
	})
	d.logger.Debug().
		Str("job_id", jobID).
		Str("step", step).
		Int("percent", percent).
		Msg(message)
}

func (d *Dispatcher) audit(ctx context.Context, jobID, action, detail string) {
	entry := &models.AuditEntry{
		JobID:  jobID,
		Action: action,
		Detail: detail,
	}
	if err := d.storage.AppendAudit(ctx, entry); err != nil {
		d.logger.Warn().
			Err(err).
			Str("job_id", jobID).
			Msg("Failed to append audit entry")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".bmp":
		return "image/bmp"
	case ".gif":
		return "image/gif"
	case ".txt":
		return "text/plain"
	}
	return "application/octet-stream"
}
