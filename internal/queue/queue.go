// Package queue implements the pending-job FIFO that sits between ingress
// and the worker pool: a bounded channel of jobs, a blocking Take with
// timeout, and a sentinel-based shutdown signal the worker pool's
// goroutines watch for in place of a channel close.
package queue

import (
	"errors"
	"time"

	"github.com/nimbusdata/statsqueue/pkg/types"
)

// ErrQueueFull is returned by Put when the queue is at capacity. Ingress
// treats it as a rejection rather than blocking the HTTP handler
// goroutine until a worker makes room.
var ErrQueueFull = errors.New("queue: full")

// Queue is a FIFO of pending jobs, implemented as a buffered channel. It is
// safe for any number of concurrent producers and consumers.
type Queue struct {
	ch chan types.Job
}

// New returns a Queue with room for capacity pending jobs before Put
// starts rejecting with ErrQueueFull.
func New(capacity int) *Queue {
	return &Queue{ch: make(chan types.Job, capacity)}
}

// Put enqueues job, returning ErrQueueFull immediately instead of blocking
// if the queue is at capacity.
func (q *Queue) Put(job types.Job) error {
	select {
	case q.ch <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// PutSentinel enqueues the zero-value Job the worker pool recognizes as a
// shutdown signal. One sentinel wakes exactly one blocked worker, so the
// pool enqueues one per worker it wants to stop.
func (q *Queue) PutSentinel() {
	q.ch <- types.Job{}
}

// IsSentinel reports whether job is the shutdown sentinel rather than real
// work.
func IsSentinel(job types.Job) bool {
	return job.ID == 0
}

// Take blocks until a job is available or timeout elapses, mirroring the
// reference TaskRunner's `job_queue.get(timeout=1)` poll loop. It returns
// ok=false on timeout so callers can re-check a shutdown flag between
// waits without blocking on the queue forever.
func (q *Queue) Take(timeout time.Duration) (job types.Job, ok bool) {
	select {
	case job = <-q.ch:
		return job, true
	case <-time.After(timeout):
		return types.Job{}, false
	}
}

// Size returns the number of jobs currently queued, including any
// unconsumed sentinels. It is a snapshot and may be stale the instant it
// returns.
func (q *Queue) Size() int {
	return len(q.ch)
}
