package interfaces

import (
	"context"

	"github.com/ternarybob/probo/internal/models"
)

// JobStorage persists verification jobs and their payloads.
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	ListJobs(ctx context.Context, opts ListOptions) ([]*models.Job, error)
	CountJobs(ctx context.Context, status models.JobStatus) (int, error)
	DeleteJob(ctx context.Context, jobID string) error

	// ListStale returns non-terminal jobs whose last update is older than
	// the given number of minutes. Used by the maintenance sweep.
	ListStale(ctx context.Context, olderThanMinutes int) ([]*models.Job, error)

	AppendAudit(ctx context.Context, entry *models.AuditEntry) error
	ListAudit(ctx context.Context, jobID string) ([]*models.AuditEntry, error)

	Close() error
}

// ListOptions narrows job listings.
type ListOptions struct {
	Status  models.JobStatus
	Variant models.Variant
	Limit   int
	Offset  int
}
