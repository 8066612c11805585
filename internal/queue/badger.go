// Package queue provides the work queue feeding the verification pipeline.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
)

// storedMessage is the internal envelope persisted in Badger.
type storedMessage struct {
	ID           string                  `json:"id"`
	Body         models.JobQueueMessage  `json:"body"`
	EnqueuedAt   time.Time               `json:"enqueued_at"`
	VisibleAt    time.Time               `json:"visible_at"`
	ReceiveCount int                     `json:"receive_count"`
}

// BadgerQueue is a persistent queue on BadgerDB with visibility timeouts.
// Messages live under a data key; a visibility index keyed by timestamp
// makes the next ready message a prefix scan away.
type BadgerQueue struct {
	db                *badger.DB
	queueName         string
	pollWait          time.Duration
	visibilityTimeout time.Duration
	maxReceive        int
}

// NewBadgerQueue creates a Badger-backed queue. The DB is managed by the
// caller and shared with job storage.
func NewBadgerQueue(db *badger.DB, queueName string, pollWait, visibilityTimeout time.Duration, maxReceive int) (*BadgerQueue, error) {
	if db == nil {
		return nil, errors.New("badger db is required")
	}
	if queueName == "" {
		return nil, errors.New("queue name is required")
	}
	if pollWait <= 0 {
		pollWait = 20 * time.Second
	}
	if visibilityTimeout <= 0 {
		visibilityTimeout = 5 * time.Minute
	}
	if maxReceive <= 0 {
		maxReceive = 3
	}

	return &BadgerQueue{
		db:                db,
		queueName:         queueName,
		pollWait:          pollWait,
		visibilityTimeout: visibilityTimeout,
		maxReceive:        maxReceive,
	}, nil
}

// Enqueue adds a message, immediately visible.
func (q *BadgerQueue) Enqueue(ctx context.Context, msg *models.JobQueueMessage) error {
	if msg == nil {
		return errors.New("message cannot be nil")
	}

	stored := storedMessage{
		ID:         uuid.New().String(),
		Body:       *msg,
		EnqueuedAt: time.Now(),
		VisibleAt:  time.Now(),
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal queue message: %w", err)
	}

	return q.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(q.msgKey(stored.ID), data); err != nil {
			return err
		}
		return txn.Set(q.indexKey(stored.VisibleAt, stored.ID), []byte{})
	})
}

// Receive long-polls for the next visible message. The returned delete
// function acknowledges it; unacknowledged messages reappear after the
// visibility timeout. Messages that exceed the receive limit are dropped.
func (q *BadgerQueue) Receive(ctx context.Context) (*models.JobQueueMessage, func() error, error) {
	deadline := time.Now().Add(q.pollWait)
	for {
		msg, deleteFn, err := q.receiveOnce()
		if err == nil {
			return msg, deleteFn, nil
		}
		if err != interfaces.ErrNoMessage {
			return nil, nil, err
		}
		if time.Now().After(deadline) {
			return nil, nil, interfaces.ErrNoMessage
		}

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
}

func (q *BadgerQueue) receiveOnce() (*models.JobQueueMessage, func() error, error) {
	var stored storedMessage
	var msgID string
	found := false

	// No-message is signalled outside the closure: returning an error here
	// would abort the transaction and roll back any poison-message drops.
	err := q.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := q.indexPrefix()
		it := txn.NewIterator(opts)
		defer it.Close()

		now := time.Now()
		var oldIndexKey []byte

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)

			ts, id, err := q.parseIndexKey(key)
			if err != nil {
				continue
			}
			if ts.After(now) {
				// Index keys sort by timestamp, so nothing later is ready.
				break
			}

			msgItem, err := txn.Get(q.msgKey(id))
			if err != nil {
				if err == badger.ErrKeyNotFound {
					// Orphaned index entry.
					if err := txn.Delete(key); err != nil {
						return err
					}
					continue
				}
				return err
			}
			if err := msgItem.Value(func(val []byte) error {
				return json.Unmarshal(val, &stored)
			}); err != nil {
				return err
			}

			if stored.ReceiveCount >= q.maxReceive {
				// Poison message: drop it rather than loop forever.
				if err := txn.Delete(key); err != nil {
					return err
				}
				if err := txn.Delete(q.msgKey(id)); err != nil {
					return err
				}
				continue
			}

			found = true
			msgID = id
			oldIndexKey = key
			break
		}

		if !found {
			return nil
		}

		stored.ReceiveCount++
		stored.VisibleAt = time.Now().Add(q.visibilityTimeout)

		newData, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		if err := txn.Set(q.msgKey(msgID), newData); err != nil {
			return err
		}
		if err := txn.Delete(oldIndexKey); err != nil {
			return err
		}
		return txn.Set(q.indexKey(stored.VisibleAt, msgID), []byte{})
	})
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, interfaces.ErrNoMessage
	}

	deleteFn := func() error {
		return q.db.Update(func(txn *badger.Txn) error {
			msgKey := q.msgKey(msgID)
			item, err := txn.Get(msgKey)
			if err != nil {
				if err == badger.ErrKeyNotFound {
					return nil // Already deleted
				}
				return err
			}

			var current storedMessage
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &current)
			}); err != nil {
				return err
			}

			if err := txn.Delete(q.indexKey(current.VisibleAt, msgID)); err != nil && err != badger.ErrKeyNotFound {
				return err
			}
			return txn.Delete(msgKey)
		})
	}

	body := stored.Body
	return &body, deleteFn, nil
}

// Length counts stored messages, visible or not.
func (q *BadgerQueue) Length(ctx context.Context) (int, error) {
	count := 0
	err := q.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(fmt.Sprintf("queue:%s:msg:", q.queueName))
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to measure queue length: %w", err)
	}
	return count, nil
}

// Close is a no-op; the DB is managed externally.
func (q *BadgerQueue) Close() error {
	return nil
}

func (q *BadgerQueue) msgKey(id string) []byte {
	return []byte(fmt.Sprintf("queue:%s:msg:%s", q.queueName, id))
}

func (q *BadgerQueue) indexPrefix() []byte {
	return []byte(fmt.Sprintf("queue:%s:index:", q.queueName))
}

func (q *BadgerQueue) indexKey(visibleAt time.Time, id string) []byte {
	// Zero pad to 20 digits so lexical ordering matches numeric ordering.
	return []byte(fmt.Sprintf("queue:%s:index:%020d:%s", q.queueName, visibleAt.UnixNano(), id))
}

func (q *BadgerQueue) parseIndexKey(key []byte) (time.Time, string, error) {
	prefix := q.indexPrefix()
	if len(key) <= len(prefix) {
		return time.Time{}, "", fmt.Errorf("invalid key length")
	}

	suffix := string(key[len(prefix):])
	if len(suffix) < 21 {
		return time.Time{}, "", fmt.Errorf("invalid suffix length")
	}

	var ts int64
	if _, err := fmt.Sscanf(suffix[:20], "%d", &ts); err != nil {
		return time.Time{}, "", err
	}
	return time.Unix(0, ts), suffix[21:], nil
}
