// Package progress broadcasts per-job pipeline progress to subscribers.
package progress

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
)

// subscriberBuffer bounds each subscriber channel. A slow consumer drops
// intermediate updates rather than stalling the pipeline.
const subscriberBuffer = 16

// Bus implements the progress pub/sub with per-job subscriber lists and
// last-event retention for pollers and late subscribers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscription
	latest      map[string]models.ProgressEvent
	closed      bool
	logger      arbor.ILogger
}

type subscription struct {
	bus    *Bus
	jobID  string
	mu     sync.Mutex
	closed bool
	events chan models.ProgressEvent
}

func (s *subscription) Events() <-chan models.ProgressEvent {
	return s.events
}

func (s *subscription) Unsubscribe() {
	s.bus.remove(s)
	s.close()
}

// send delivers without blocking; a full buffer drops the event.
func (s *subscription) send(event models.ProgressEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.events <- event:
		return true
	default:
		return false
	}
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}

// NewBus creates the in-process progress bus.
func NewBus(logger arbor.ILogger) *Bus {
	return &Bus{
		subscribers: make(map[string][]*subscription),
		latest:      make(map[string]models.ProgressEvent),
		logger:      logger,
	}
}

// Subscribe registers for a job's progress stream. The most recent event is
// replayed immediately so a late subscriber sees the current state.
func (b *Bus) Subscribe(jobID string) interfaces.ProgressSubscription {
	sub := &subscription{
		bus:    b,
		jobID:  jobID,
		events: make(chan models.ProgressEvent, subscriberBuffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		sub.close()
		return sub
	}

	b.subscribers[jobID] = append(b.subscribers[jobID], sub)
	if last, ok := b.latest[jobID]; ok {
		sub.send(last)
	}
	return sub
}

// Publish delivers to live subscribers, dropping events for any subscriber
// whose buffer is full.
func (b *Bus) Publish(jobID string, event models.ProgressEvent) {
	b.deliver(jobID, event)
}

// PublishSync delivers the event and, if it is terminal, closes every
// subscriber's channel before returning. Delivery itself never blocks, so
// the only difference from Publish is the guarantee that retention and
// stream closure are complete when this returns.
func (b *Bus) PublishSync(jobID string, event models.ProgressEvent) {
	b.deliver(jobID, event)
}

func (b *Bus) deliver(jobID string, event models.ProgressEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.JobID = jobID

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.latest[jobID] = event
	subs := make([]*subscription, len(b.subscribers[jobID]))
	copy(subs, b.subscribers[jobID])

	terminal := event.Terminal()
	if terminal {
		delete(b.subscribers, jobID)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		if !sub.send(event) && b.logger != nil {
			b.logger.Debug().
				Str("job_id", jobID).
				Str("step", event.Step).
				Msg("Dropping progress event for slow subscriber")
		}
	}

	if terminal {
		for _, sub := range subs {
			sub.close()
		}
	}
}

// Latest returns the most recent event for a job.
func (b *Bus) Latest(jobID string) (models.ProgressEvent, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	event, ok := b.latest[jobID]
	return event, ok
}

func (b *Bus) remove(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[sub.jobID]
	for i, s := range subs {
		if s == sub {
			b.subscribers[sub.jobID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subscribers[sub.jobID]) == 0 {
		delete(b.subscribers, sub.jobID)
	}
}

// Close shuts the bus down and closes every subscriber channel.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.subscribers {
		for _, sub := range subs {
			sub.close()
		}
	}
	b.subscribers = nil
	return nil
}
