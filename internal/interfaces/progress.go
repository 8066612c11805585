package interfaces

import (
	"github.com/ternarybob/probo/internal/models"
)

// ProgressSubscription is one subscriber's handle on a job's progress stream.
type ProgressSubscription interface {
	// Events delivers progress updates. The channel is closed after a
	// terminal event or on unsubscribe.
	Events() <-chan models.ProgressEvent
	Unsubscribe()
}

// ProgressBus broadcasts per-job progress to in-process subscribers.
type ProgressBus interface {
	Subscribe(jobID string) ProgressSubscription

	// Publish delivers to every live subscriber without blocking the caller.
	Publish(jobID string, event models.ProgressEvent)

	// PublishSync delivers before returning. Used at terminal transitions
	// so the final event is observable before the job record flips.
	PublishSync(jobID string, event models.ProgressEvent)

	// Latest returns the most recent event for one-shot polling.
	Latest(jobID string) (models.ProgressEvent, bool)

	Close() error
}
