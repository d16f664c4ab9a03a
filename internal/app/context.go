// Package app is the explicit, non-singleton carrier of every piece of
// shared server state — dataset, id allocator, queue, result store, worker
// pool, shutdown flag, logger, metrics — threaded into HTTP handlers via
// Context rather than held in package-level globals.
package app

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nimbusdata/statsqueue/internal/compute"
	"github.com/nimbusdata/statsqueue/internal/dataset"
	"github.com/nimbusdata/statsqueue/internal/idalloc"
	"github.com/nimbusdata/statsqueue/internal/logging"
	"github.com/nimbusdata/statsqueue/internal/metrics"
	"github.com/nimbusdata/statsqueue/internal/queue"
	"github.com/nimbusdata/statsqueue/internal/resultstore"
	"github.com/nimbusdata/statsqueue/internal/shutdown"
	"github.com/nimbusdata/statsqueue/internal/workerpool"
	"github.com/nimbusdata/statsqueue/pkg/types"
	"go.uber.org/zap"
)

// Sentinel errors returned by Context methods; internal/httpapi maps each
// to the status code and apiError envelope spec.md's ingress contract
// requires.
var (
	// ErrShuttingDown is returned by Submit once RequestShutdown has started.
	ErrShuttingDown = errors.New("app: server is shutting down")
	// ErrInvalidJobID is returned by Poll when id is not positive or has
	// never been issued.
	ErrInvalidJobID = errors.New("app: invalid job id")
	// ErrResultMissing is returned by Poll when id was issued but its
	// result file cannot be read — an invariant violation, since Submit
	// guarantees the file exists before returning an id.
	ErrResultMissing = errors.New("app: result file missing for issued job id")
	// ErrQueueFull is returned by Submit when the job queue is saturated.
	// It is an alias for queue.ErrQueueFull so internal/httpapi can match
	// it without importing internal/queue directly.
	ErrQueueFull = queue.ErrQueueFull
)

// Context wires the dataset, compute dispatcher, id allocator, job queue,
// result store, worker pool, shutdown flag, logger, and metrics collector
// into the single object HTTP handlers hold a reference to. It owns the
// ingress operations (Submit/Poll/NumPending/JobsStatus) and the shutdown
// protocol (RequestShutdown/IsShuttingDown).
type Context struct {
	dataset    *dataset.Table
	dispatcher compute.Dispatcher
	allocator  *idalloc.Allocator
	queue      *queue.Queue
	store      *resultstore.Store
	pool       *workerpool.Pool
	flag       *shutdown.Flag
	log        *logging.Logger
	metrics    *metrics.Collector

	shutdownMu      chan struct{} // binary semaphore guarding shutdownStarted
	shutdownStarted bool
}

// New assembles a Context from its already-constructed collaborators. The
// caller is responsible for loading the dataset and starting the pool;
// New only wires references together.
func New(
	table *dataset.Table,
	dispatcher compute.Dispatcher,
	allocator *idalloc.Allocator,
	q *queue.Queue,
	store *resultstore.Store,
	pool *workerpool.Pool,
	flag *shutdown.Flag,
	log *logging.Logger,
	m *metrics.Collector,
) *Context {
	return &Context{
		dataset:    table,
		dispatcher: dispatcher,
		allocator:  allocator,
		queue:      q,
		store:      store,
		pool:       pool,
		flag:       flag,
		log:        log,
		metrics:    m,
		shutdownMu: make(chan struct{}, 1),
	}
}

// Submit admits one job: it checks the shutdown gate, allocates an id,
// registers the "running" result file, and enqueues the job for a worker
// to pick up. The file and lock entry are guaranteed to exist before
// Submit returns an id, so any subsequent poll observes at worst
// "running", never "missing".
func (c *Context) Submit(kind types.JobKind, args types.JobArgs) (int, error) {
	if c.flag.IsSet() {
		return 0, ErrShuttingDown
	}

	id := c.allocator.Next()

	if err := c.store.Register(id); err != nil {
		c.log.Error("failed to register job", zap.Int("job_id", id), zap.Error(err))
		return 0, fmt.Errorf("app: register job %d: %w", id, err)
	}

	if err := c.queue.Put(types.Job{ID: id, Kind: kind, Args: args}); err != nil {
		// The job was already registered as "running"; since no worker will
		// ever dequeue it, finalize it now so a poll doesn't hang forever.
		if finalizeErr := c.store.Finalize(id, map[string]string{"error": "queue full"}); finalizeErr != nil {
			c.log.Error("failed to finalize rejected job", zap.Int("job_id", id), zap.Error(finalizeErr))
		}
		c.log.Error("job rejected, queue full", zap.Int("job_id", id), zap.Error(err))
		return 0, ErrQueueFull
	}

	c.metrics.RecordSubmitted()
	c.metrics.SetQueueDepth(c.queue.Size())
	c.log.Event("job submitted", zap.Int("job_id", id), zap.String("kind", string(kind)))

	return id, nil
}

// Poll returns the raw JSON body of id's result file as recorded by the
// result store — either `{"status":"running"}` or the terminal
// `{"status":"done","data":...}` — untouched, so a done result is
// forwarded byte for byte. The caller maps the returned sentinel errors
// to HTTP status codes.
func (c *Context) Poll(id int) ([]byte, error) {
	if id <= 0 || id > c.allocator.LastIssued() {
		return nil, ErrInvalidJobID
	}

	body, err := c.store.Read(id)
	if err != nil {
		c.log.Error("result file missing for known job id", zap.Int("job_id", id), zap.Error(err))
		return nil, ErrResultMissing
	}

	return body, nil
}

// NumPending returns the current queue depth, refreshing the jobs_pending
// gauge as a side effect so /metrics reflects the same value a caller just
// observed.
func (c *Context) NumPending() int {
	depth := c.queue.Size()
	c.metrics.SetQueueDepth(depth)
	return depth
}

type jobState struct {
	Status string `json:"status"`
}

type jobsStatusResponse struct {
	Status string              `json:"status"`
	Data   []map[string]string `json:"data"`
}

// JobsStatus iterates every id issued so far and reports its current
// state, skipping any id whose result file cannot be read (there is no
// such id in steady state, but a read error must not fail the whole
// listing).
func (c *Context) JobsStatus() []byte {
	last := c.allocator.LastIssued()
	data := make([]map[string]string, 0, last)

	for id := 1; id <= last; id++ {
		body, err := c.store.Read(id)
		if err != nil {
			continue
		}
		var state jobState
		if err := json.Unmarshal(body, &state); err != nil {
			continue
		}
		key := fmt.Sprintf("job_id_%d", id)
		data = append(data, map[string]string{key: state.Status})
	}

	return mustMarshal(jobsStatusResponse{Status: "done", Data: data})
}

// RequestShutdown runs the one-shot shutdown protocol: set the flag, stop
// the worker pool (which posts sentinels and joins every worker in id
// order), and report done. Calling it again after the first call returns
// immediately, idempotently, without re-running the protocol.
func (c *Context) RequestShutdown() map[string]string {
	c.shutdownMu <- struct{}{}
	alreadyStarted := c.shutdownStarted
	c.shutdownStarted = true
	<-c.shutdownMu

	if alreadyStarted {
		return map[string]string{"status": "done", "reason": "already shut down"}
	}

	c.flag.Set()
	c.log.Event("shutdown requested")
	c.pool.Stop()
	c.log.Event("shutdown complete")

	return map[string]string{"status": "done"}
}

// IsShuttingDown reports whether RequestShutdown has been called.
func (c *Context) IsShuttingDown() bool {
	return c.flag.IsSet()
}

func mustMarshal(v any) []byte {
	body, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("app: marshal %T: %v", v, err))
	}
	return body
}
