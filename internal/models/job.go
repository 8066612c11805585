package models

import (
	"time"
)

// JobStatus is the lifecycle state of a verification job.
type JobStatus string

const (
	JobStatusPending      JobStatus = "pending"
	JobStatusProcessing   JobStatus = "processing"
	JobStatusPassed       JobStatus = "passed"
	JobStatusFailed       JobStatus = "failed"
	JobStatusReview       JobStatus = "review"
	JobStatusManualReview JobStatus = "manual_review"
)

// IsTerminal reports whether the automated pipeline will not advance the job further.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusPassed, JobStatusFailed, JobStatusReview, JobStatusManualReview:
		return true
	}
	return false
}

// Decision is the scoring outcome for a job.
type Decision string

const (
	DecisionPass   Decision = "PASS"
	DecisionFail   Decision = "FAIL"
	DecisionReview Decision = "REVIEW"
)

// Variant identifies the document kind being verified.
type Variant string

const (
	VariantCorpIncorporation   Variant = "corp_incorporation"
	VariantCompanyRegistration Variant = "company_registration"
	VariantVATRegistration     Variant = "vat_registration"
	VariantDirectorVerification Variant = "director_verification"
)

// ParseVariant maps a submission tag to a Variant, defaulting to
// corp_incorporation when the tag is unknown.
func ParseVariant(tag string) Variant {
	switch Variant(tag) {
	case VariantCorpIncorporation, VariantCompanyRegistration,
		VariantVATRegistration, VariantDirectorVerification:
		return Variant(tag)
	}
	return VariantCorpIncorporation
}

// ReviewAction is a reviewer's disposition of a job in review.
type ReviewAction string

const (
	ReviewActionApprove  ReviewAction = "APPROVE"
	ReviewActionReject   ReviewAction = "REJECT"
	ReviewActionEscalate ReviewAction = "ESCALATE"
)

// Review records a manual reviewer action on a job.
type Review struct {
	ReviewerID string       `json:"reviewer_id"`
	Action     ReviewAction `json:"action"`
	Notes      string       `json:"notes,omitempty"`
	ReviewedAt time.Time    `json:"reviewed_at"`
}

// Job is one document verification submission and its accumulated results.
type Job struct {
	ID       string  `json:"id" badgerhold:"key"`
	Filename string  `json:"filename"`
	Variant  Variant `json:"variant" badgerhold:"index"`

	// Blob handles. LocalPath is the staging copy used for processing;
	// BlobKey is the durable archive key when archival is enabled.
	LocalPath string `json:"local_path,omitempty"`
	BlobKey   string `json:"blob_key,omitempty"`

	Status   JobStatus `json:"status" badgerhold:"index"`
	Decision Decision  `json:"decision,omitempty"`

	Payload  VariantPayload  `json:"payload"`
	Forensic *ForensicReport `json:"forensic,omitempty"`

	Review *Review  `json:"review,omitempty"`
	Flags  []string `json:"flags,omitempty"`

	SubmittedAt time.Time  `json:"submitted_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// MarkProcessing transitions a pending job to processing.
func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.UpdatedAt = time.Now()
}

// MarkTerminal applies the scoring decision and the matching terminal status.
func (j *Job) MarkTerminal(decision Decision) {
	j.Decision = decision
	switch decision {
	case DecisionPass:
		j.Status = JobStatusPassed
	case DecisionFail:
		j.Status = JobStatusFailed
	case DecisionReview:
		j.Status = JobStatusReview
	}
	now := time.Now()
	j.ProcessedAt = &now
	j.UpdatedAt = now
}

// MarkFailed moves the job to the failed terminal state with a FAIL decision.
func (j *Job) MarkFailed() {
	j.MarkTerminal(DecisionFail)
}

// ApplyReview applies a reviewer action. Only jobs in review accept one.
func (j *Job) ApplyReview(r Review) bool {
	if j.Status != JobStatusReview {
		return false
	}
	switch r.Action {
	case ReviewActionApprove:
		j.Status = JobStatusPassed
	case ReviewActionReject:
		j.Status = JobStatusFailed
		j.Decision = DecisionFail
	case ReviewActionEscalate:
		j.Status = JobStatusManualReview
	default:
		return false
	}
	r.ReviewedAt = time.Now()
	j.Review = &r
	j.UpdatedAt = r.ReviewedAt
	return true
}

// AddFlag appends a flag string if not already present.
func (j *Job) AddFlag(flag string) {
	for _, f := range j.Flags {
		if f == flag {
			return
		}
	}
	j.Flags = append(j.Flags, flag)
}

// AuditEntry is an append-only record of an action taken on a job.
type AuditEntry struct {
	ID        uint64    `json:"id" badgerhold:"key"`
	JobID     string    `json:"job_id" badgerhold:"index"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
