package models

import "time"

// ProgressEvent is one step update for a job, streamed to subscribers.
type ProgressEvent struct {
	JobID     string    `json:"document_id"`
	Step      string    `json:"step"`
	Percent   int       `json:"progress"`
	Message   string    `json:"message"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Progress step names emitted by the stage runner, in schedule order.
const (
	StepInitializing       = "initializing"
	StepFileValidation     = "file_validation"
	StepPipelineInit       = "pipeline_init"
	StepExtractionStart    = "extraction_start"
	StepFieldParseStart    = "field_parse_start"
	StepExtractionComplete = "extraction_complete"
	StepForensicStart      = "forensic_start"
	StepForensicComplete   = "forensic_complete"
	StepRegistryStart      = "registry_start"
	StepRegistryComplete   = "registry_complete"
	StepRegistrySkipped    = "registry_skipped"
	StepScoringStart       = "scoring_start"
	StepComplete           = "complete"
	StepError              = "error"
)

// Terminal reports whether this event closes the job's progress stream.
func (e ProgressEvent) Terminal() bool {
	if e.Percent >= 100 && e.Status != "" {
		return true
	}
	return e.Percent == 0 && e.Status == string(JobStatusFailed)
}
