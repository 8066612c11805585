package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
)

// HandlerFunc processes one queue message. A nil return acknowledges the
// message; an error leaves it for redelivery after the visibility timeout.
type HandlerFunc func(ctx context.Context, msg *models.JobQueueMessage) error

// Worker runs a pool of goroutines polling the queue and dispatching
// messages to the handler.
type Worker struct {
	queue   interfaces.Queue
	handler HandlerFunc
	workers int
	logger  arbor.ILogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWorker(queue interfaces.Queue, handler HandlerFunc, workers int, logger arbor.ILogger) *Worker {
	if workers <= 0 {
		workers = 1
	}
	return &Worker{
		queue:   queue,
		handler: handler,
		workers: workers,
		logger:  logger,
	}
}

// Start launches the worker pool. Call Stop to drain it.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.logger.Info().
		Int("workers", w.workers).
		Msg("Starting queue workers")

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.run(ctx, id)
		}(i)
	}
}

func (w *Worker) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, deleteFn, err := w.queue.Receive(ctx)
		if err != nil {
			if errors.Is(err, interfaces.ErrNoMessage) || errors.Is(err, context.Canceled) {
				continue
			}
			w.logger.Error().
				Err(err).
				Int("worker", id).
				Msg("Queue receive failed")

			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		w.logger.Debug().
			Str("job_id", msg.JobID).
			Str("action", string(msg.Action)).
			Int("worker", id).
			Msg("Dispatching queue message")

		if err := w.handler(ctx, msg); err != nil {
			// Leave the message for redelivery.
			w.logger.Error().
				Err(err).
				Str("job_id", msg.JobID).
				Msg("Message handling failed, leaving for retry")
			continue
		}

		if err := deleteFn(); err != nil {
			w.logger.Warn().
				Err(err).
				Str("job_id", msg.JobID).
				Msg("Failed to acknowledge message")
		}
	}
}

// Stop signals the pool and waits for in-flight handlers to finish.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Info().Msg("Queue workers stopped")
}
