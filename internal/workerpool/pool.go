package workerpool

import (
	"sync"

	"github.com/nimbusdata/statsqueue/internal/compute"
	"github.com/nimbusdata/statsqueue/internal/logging"
	"github.com/nimbusdata/statsqueue/internal/metrics"
	"github.com/nimbusdata/statsqueue/internal/queue"
	"github.com/nimbusdata/statsqueue/internal/resultstore"
	"github.com/nimbusdata/statsqueue/internal/shutdown"
	"go.uber.org/zap"
)

// Pool owns a fixed number of worker goroutines that pull from a shared
// queue. It is created and started exactly once; there is no resize and no
// respawn.
type Pool struct {
	size    int
	queue   *queue.Queue
	workers []*worker
	done    []chan struct{}
	log     *logging.Logger

	startOnce sync.Once
	started   bool
}

// New returns a Pool of size workers that will consume q, dispatch through
// dispatcher, persist through store, and stop once flag is set.
func New(size int, q *queue.Queue, dispatcher compute.Dispatcher, store *resultstore.Store, flag *shutdown.Flag, m *metrics.Collector, log *logging.Logger) *Pool {
	p := &Pool{
		size:    size,
		queue:   q,
		workers: make([]*worker, size),
		done:    make([]chan struct{}, size),
		log:     log,
	}
	for i := 0; i < size; i++ {
		p.workers[i] = newWorker(i, q, dispatcher, store, flag, m, log)
		p.done[i] = make(chan struct{})
	}
	return p
}

// Start launches one goroutine per worker. It is idempotent: calling it
// more than once after the first call has no effect.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		p.started = true
		for i, w := range p.workers {
			go func(i int, w *worker) {
				w.run()
				close(p.done[i])
			}(i, w)
		}
	})
}

// Stop posts one shutdown sentinel per worker, then joins them in
// ascending worker-id order, logging each join — the order spec.md's
// shutdown protocol requires, so a restart's log reads deterministically
// even though completion order during normal operation is not.
func (p *Pool) Stop() {
	if !p.started {
		return
	}
	for range p.workers {
		p.queue.PutSentinel()
	}
	for i := range p.workers {
		<-p.done[i]
		p.log.Event("worker joined", zap.Int("worker_id", i))
	}
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return p.size
}
