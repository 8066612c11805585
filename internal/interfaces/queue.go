package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/probo/internal/models"
)

// ErrNoMessage is returned by Receive when the queue is empty after the
// poll wait elapses.
var ErrNoMessage = errors.New("no message available")

// Queue is the work queue feeding the verification pipeline.
type Queue interface {
	Enqueue(ctx context.Context, msg *models.JobQueueMessage) error

	// Receive long-polls for one message. The returned delete function
	// acknowledges the message; an unacknowledged message becomes visible
	// again after the visibility timeout.
	Receive(ctx context.Context) (*models.JobQueueMessage, func() error, error)

	Length(ctx context.Context) (int, error)
	Close() error
}
