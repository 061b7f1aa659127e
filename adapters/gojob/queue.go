package gojob

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
)

// DedupPolicyDrop discards a message while another with the same
// idempotency key is queued or in flight.
const DedupPolicyDrop = "drop"

// DeadLetter is a message the queue gave up on.
type DeadLetter struct {
	Message *job.ExecutionMessage
	Attempt int
	Reason  string
	At      time.Time
}

type MemoryQueueOption func(*MemoryQueue)

// WithQueueLogger reports dropped and dead-lettered messages.
func WithQueueLogger(logger job.Logger) MemoryQueueOption {
	return func(q *MemoryQueue) {
		q.logger = logger
	}
}

// WithQueueClock overrides the clock used for nack delays.
func WithQueueClock(now func() time.Time) MemoryQueueOption {
	return func(q *MemoryQueue) {
		if now != nil {
			q.now = now
		}
	}
}

type queuedMessage struct {
	msg         *job.ExecutionMessage
	attempt     int
	availableAt time.Time
}

// MemoryQueue is a single-process go-job queue. It backs the pending sweep
// when no external broker is configured.
type MemoryQueue struct {
	mu          sync.Mutex
	ready       []*queuedMessage
	keys        map[string]struct{}
	deadLetters []DeadLetter
	now         func() time.Time
	logger      job.Logger
}

func NewMemoryQueue(opts ...MemoryQueueOption) *MemoryQueue {
	q := &MemoryQueue{
		keys: map[string]struct{}{},
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}
	return q
}

func (q *MemoryQueue) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	if q == nil {
		return fmt.Errorf("gojob: queue is nil")
	}
	if msg == nil {
		return fmt.Errorf("gojob: execution message is required")
	}
	key := strings.TrimSpace(msg.IdempotencyKey)

	q.mu.Lock()
	defer q.mu.Unlock()
	if key != "" {
		if _, exists := q.keys[key]; exists && strings.EqualFold(string(msg.DedupPolicy), DedupPolicyDrop) {
			q.logInfo("gojob: duplicate message dropped", "job_id", msg.JobID, "idempotency_key", key)
			return nil
		}
		q.keys[key] = struct{}{}
	}
	q.ready = append(q.ready, &queuedMessage{msg: msg, attempt: 1, availableAt: q.now()})
	return nil
}

// Dequeue hands out the oldest message whose delay has elapsed, or nil when
// nothing is ready.
func (q *MemoryQueue) Dequeue(ctx context.Context) (queue.Delivery, error) {
	if q == nil {
		return nil, fmt.Errorf("gojob: queue is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	for i, item := range q.ready {
		if item.availableAt.After(now) {
			continue
		}
		q.ready = append(q.ready[:i], q.ready[i+1:]...)
		return &memoryDelivery{queue: q, item: item}, nil
	}
	return nil, nil
}

// Len counts queued messages, delayed ones included.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready)
}

func (q *MemoryQueue) DeadLetters() []DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]DeadLetter, len(q.deadLetters))
	copy(out, q.deadLetters)
	return out
}

func (q *MemoryQueue) release(item *queuedMessage) {
	if key := strings.TrimSpace(item.msg.IdempotencyKey); key != "" {
		delete(q.keys, key)
	}
}

func (q *MemoryQueue) logInfo(msg string, args ...any) {
	if q.logger != nil {
		q.logger.Info(msg, args...)
	}
}

type memoryDelivery struct {
	queue   *MemoryQueue
	item    *queuedMessage
	settled bool
}

func (d *memoryDelivery) Message() *job.ExecutionMessage { return d.item.msg }

// Attempt starts at 1 and grows with every requeue.
func (d *memoryDelivery) Attempt() int { return d.item.attempt }

func (d *memoryDelivery) Ack(context.Context) error {
	q := d.queue
	q.mu.Lock()
	defer q.mu.Unlock()
	if d.settled {
		return fmt.Errorf("gojob: delivery already settled")
	}
	d.settled = true
	q.release(d.item)
	return nil
}

func (d *memoryDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	q := d.queue
	q.mu.Lock()
	defer q.mu.Unlock()
	if d.settled {
		return fmt.Errorf("gojob: delivery already settled")
	}
	d.settled = true

	switch {
	case opts.DeadLetter:
		q.release(d.item)
		q.deadLetters = append(q.deadLetters, DeadLetter{
			Message: d.item.msg,
			Attempt: d.item.attempt,
			Reason:  opts.Reason,
			At:      q.now(),
		})
		q.logInfo("gojob: message dead-lettered", "job_id", d.item.msg.JobID, "attempt", d.item.attempt, "reason", opts.Reason)
	case opts.Requeue:
		delay := opts.Delay
		if delay < 0 {
			delay = 0
		}
		q.ready = append(q.ready, &queuedMessage{
			msg:         d.item.msg,
			attempt:     d.item.attempt + 1,
			availableAt: q.now().Add(delay),
		})
	default:
		q.release(d.item)
	}
	return nil
}

var (
	_ queue.Enqueuer = (*MemoryQueue)(nil)
	_ queue.Dequeuer = (*MemoryQueue)(nil)
	_ queue.Delivery = (*memoryDelivery)(nil)
)
