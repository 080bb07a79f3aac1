package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Message is the envelope carried on the queue. It references the job
// record by id only; the payload (source document, parameters) lives in
// the job record and blob storage, never on the queue.
type Message struct {
	JobID   uuid.UUID `json:"job_id"`
	Attempt int       `json:"attempt"`
}

// Queue is a durable FIFO handoff of job ids backed by a Redis list.
// Delivery is at-least-once: a message popped by a worker that dies
// mid-processing is lost from the list but the job record remains, and
// terminal-state checks on the record make redelivery safe.
type Queue struct {
	rdb *redis.Client
	key string
}

func New(rdb *redis.Client, key string) *Queue {
	if key == "" {
		key = "tomeforge:jobs"
	}
	return &Queue{rdb: rdb, key: key}
}

// Push enqueues a message. Callers must have durably written the job
// record in the queued state before pushing, so a worker that races
// ahead can always resolve the record.
func (q *Queue) Push(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal queue message: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("queue push: %w", err)
	}
	return nil
}

// BlockingPop waits up to timeout for the next message. It returns
// ok=false with no error when the wait times out, which lets worker
// loops check for shutdown between waits.
func (q *Queue) BlockingPop(ctx context.Context, timeout time.Duration) (Message, bool, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	if err == redis.Nil {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, fmt.Errorf("queue pop: %w", err)
	}
	// BRPop returns [key, value].
	if len(res) != 2 {
		return Message{}, false, fmt.Errorf("queue pop: unexpected reply of length %d", len(res))
	}

	var msg Message
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		return Message{}, false, fmt.Errorf("decode queue message: %w", err)
	}
	return msg, true, nil
}

// Len reports the number of waiting messages, used by health checks.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}
