package scheduler

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gomodule/redigo/redis"

	"github.com/thebtf/melvin/pkg/melvin"
)

// InputKind distinguishes the two shapes of work a scheduler tick can
// pull from the input queue (§4.G additions): a teaching document ready
// to ingest+verify, or a standalone query to answer (answering does not
// add facts, but it activates the path's nodes and touches SRS items).
type InputKind uint8

const (
	InputTeachingText InputKind = iota
	InputQuery
)

// InputItem is one unit of work enqueued ahead of the tick loop's
// perceive phase. TeachingText/Query are mutually exclusive, selected by
// Kind.
type InputItem struct {
	Kind         InputKind `json:"kind"`
	SourcePath   string    `json:"source_path,omitempty"`
	TeachingText string    `json:"teaching_text,omitempty"`
	Query        string    `json:"query,omitempty"`
	Intent       melvin.Intent `json:"intent,omitempty"`
	EnqueuedAtNs int64     `json:"enqueued_at_ns"`
}

// InputQueue is the scheduler's pull-input source (§5 "Suspension points
// ... input-queue pull"). ChanQueue is the in-process default; RedisQueue
// backs it with a durable redigo list when REDIS_ADDR is configured (§4.G
// additions), surviving a melvind restart with work still pending.
type InputQueue interface {
	Push(ctx context.Context, item InputItem) error
	// Pop returns the next item, or ok=false if none is available
	// without blocking past timeout.
	Pop(ctx context.Context, timeout time.Duration) (InputItem, bool, error)
	Close() error
}

// ChanQueue is a buffered in-process InputQueue.
type ChanQueue struct {
	ch chan InputItem
}

// NewChanQueue constructs a ChanQueue with the given buffer size.
func NewChanQueue(buffer int) *ChanQueue {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChanQueue{ch: make(chan InputItem, buffer)}
}

func (q *ChanQueue) Push(ctx context.Context, item InputItem) error {
	select {
	case q.ch <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ChanQueue) Pop(ctx context.Context, timeout time.Duration) (InputItem, bool, error) {
	select {
	case item := <-q.ch:
		return item, true, nil
	default:
	}
	select {
	case item := <-q.ch:
		return item, true, nil
	case <-time.After(timeout):
		return InputItem{}, false, nil
	case <-ctx.Done():
		return InputItem{}, false, ctx.Err()
	}
}

func (q *ChanQueue) Close() error {
	close(q.ch)
	return nil
}

// redisQueueKey is the single LPUSH/BRPOP list holding pending input
// items, serialized as JSON (goccy/go-json, matching internal/ingest's
// wire codec choice).
const redisQueueKey = "melvin:input"

// RedisQueue is a redigo-backed durable InputQueue (§4.G "when REDIS_ADDR
// is configured"). It is a thin idiomatic wrapper over redigo's
// connection-pool pattern: every call borrows a connection from the pool
// and returns it, rather than holding one open across ticks.
type RedisQueue struct {
	pool *redis.Pool
}

// NewRedisQueue dials addr lazily via a redigo pool.
func NewRedisQueue(addr string) *RedisQueue {
	return &RedisQueue{
		pool: &redis.Pool{
			MaxIdle:     4,
			IdleTimeout: 240 * time.Second,
			Dial: func() (redis.Conn, error) {
				return redis.Dial("tcp", addr)
			},
		},
	}
}

func (q *RedisQueue) Push(ctx context.Context, item InputItem) error {
	body, err := json.Marshal(item)
	if err != nil {
		return err
	}
	conn, err := q.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Do("LPUSH", redisQueueKey, body)
	return err
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (InputItem, bool, error) {
	conn, err := q.pool.GetContext(ctx)
	if err != nil {
		return InputItem{}, false, err
	}
	defer conn.Close()

	secs := int(timeout.Seconds())
	if secs < 1 {
		secs = 1
	}
	reply, err := redis.ByteSlices(conn.Do("BRPOP", redisQueueKey, secs))
	if errors.Is(err, redis.ErrNil) {
		return InputItem{}, false, nil
	}
	if err != nil {
		return InputItem{}, false, err
	}
	if len(reply) < 2 {
		return InputItem{}, false, nil
	}
	var item InputItem
	if err := json.Unmarshal(reply[1], &item); err != nil {
		return InputItem{}, false, err
	}
	return item, true, nil
}

func (q *RedisQueue) Close() error {
	return q.pool.Close()
}
