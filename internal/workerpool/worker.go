// Package workerpool runs a fixed set of long-lived worker goroutines that
// pull jobs from the pending queue, run them through a Dispatcher, and
// write the outcome to the result store. Workers are created once at
// Start and never respawn.
package workerpool

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/nimbusdata/statsqueue/internal/compute"
	"github.com/nimbusdata/statsqueue/internal/logging"
	"github.com/nimbusdata/statsqueue/internal/metrics"
	"github.com/nimbusdata/statsqueue/internal/queue"
	"github.com/nimbusdata/statsqueue/internal/resultstore"
	"github.com/nimbusdata/statsqueue/internal/shutdown"
	"github.com/nimbusdata/statsqueue/pkg/types"
	"go.uber.org/zap"
)

// pollInterval is how long a worker blocks on queue.Take before re-checking
// the shutdown flag, matching the reference TaskRunner's one-second poll.
const pollInterval = time.Second

// worker is one long-lived goroutine pulling from a shared queue.
type worker struct {
	id         int
	queue      *queue.Queue
	dispatcher compute.Dispatcher
	store      *resultstore.Store
	flag       *shutdown.Flag
	metrics    *metrics.Collector
	log        *logging.Logger
}

func newWorker(id int, q *queue.Queue, dispatcher compute.Dispatcher, store *resultstore.Store, flag *shutdown.Flag, m *metrics.Collector, log *logging.Logger) *worker {
	return &worker{
		id:         id,
		queue:      q,
		dispatcher: dispatcher,
		store:      store,
		flag:       flag,
		metrics:    m,
		log:        log,
	}
}

// run is the worker's main loop: block on the queue with a timeout,
// re-check shutdown on every wake, process whatever it dequeues to
// completion before checking shutdown again.
func (w *worker) run() {
	for {
		if w.flag.IsSet() {
			return
		}

		job, ok := w.queue.Take(pollInterval)
		if !ok {
			continue
		}
		if queue.IsSentinel(job) {
			return
		}

		w.process(job)
	}
}

// process computes job's result and finalizes it. Compute functions are
// not expected to panic, but the boundary recovers anyway so one bad
// computation can't take a worker goroutine down with it; a recovered
// panic finalizes the job with an error payload just like a returned
// error would.
func (w *worker) process(job types.Job) {
	start := time.Now()

	w.metrics.IncRunning()
	result, err := w.safeCompute(job)
	w.metrics.DecRunning()
	duration := time.Since(start).Seconds()

	if err != nil {
		w.log.Error("job computation failed",
			zap.Int("worker_id", w.id),
			zap.Int("job_id", job.ID),
			zap.String("kind", string(job.Kind)),
			zap.Error(err),
		)
		w.metrics.RecordFailed(duration)
		result = map[string]string{"error": err.Error()}
	} else {
		w.metrics.RecordCompleted(duration)
	}

	if err := w.store.Finalize(job.ID, result); err != nil {
		w.log.Error("failed to persist job result",
			zap.Int("job_id", job.ID),
			zap.Error(err),
		)
		return
	}

	w.log.Event("job completed",
		zap.Int("worker_id", w.id),
		zap.Int("job_id", job.ID),
		zap.String("kind", string(job.Kind)),
	)
}

func (w *worker) safeCompute(job types.Job) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("recovered from panic in worker goroutine",
				zap.Int("worker_id", w.id),
				zap.Int("job_id", job.ID),
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.dispatcher.Compute(job.Kind, job.Args)
}
