package app

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nimbusdata/statsqueue/internal/dataset"
	"github.com/nimbusdata/statsqueue/internal/idalloc"
	"github.com/nimbusdata/statsqueue/internal/logging"
	"github.com/nimbusdata/statsqueue/internal/metrics"
	"github.com/nimbusdata/statsqueue/internal/queue"
	"github.com/nimbusdata/statsqueue/internal/resultstore"
	"github.com/nimbusdata/statsqueue/internal/shutdown"
	"github.com/nimbusdata/statsqueue/internal/workerpool"
	"github.com/nimbusdata/statsqueue/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDispatcher lets tests control when a job's computation finishes, so
// Poll can be exercised against both "running" and "done" states.
type stubDispatcher struct {
	mu      sync.Mutex
	release chan struct{}
	fail    bool
}

func newStubDispatcher() *stubDispatcher {
	return &stubDispatcher{release: make(chan struct{})}
}

func (s *stubDispatcher) Compute(kind types.JobKind, args types.JobArgs) (any, error) {
	<-s.release
	s.mu.Lock()
	fail := s.fail
	s.mu.Unlock()
	if fail {
		return nil, assertError{}
	}
	return map[string]any{"question": args.Question}, nil
}

type assertError struct{}

func (assertError) Error() string { return "stub compute failure" }

func newTestContext(t *testing.T, size int, dispatcher *stubDispatcher) *Context {
	t.Helper()
	table := &dataset.Table{}
	q := queue.New(16)
	store, err := resultstore.New(t.TempDir())
	require.NoError(t, err)
	flag := shutdown.New()
	log, err := logging.New(t.TempDir())
	require.NoError(t, err)
	m := metrics.NewCollector(prometheus.NewRegistry())
	pool := workerpool.New(size, q, dispatcher, store, flag, m, log)
	ctx := New(table, dispatcher, idalloc.New(), q, store, pool, flag, log, m)
	pool.Start()
	t.Cleanup(func() {
		flag.Set()
		pool.Stop()
	})
	return ctx
}

func TestSubmitReturnsAscendingIDsAndRegistersResult(t *testing.T) {
	dispatcher := newStubDispatcher()
	close(dispatcher.release)
	ctx := newTestContext(t, 1, dispatcher)

	id1, err := ctx.Submit(types.GlobalMean, types.JobArgs{Question: "q1"})
	require.NoError(t, err)
	id2, err := ctx.Submit(types.GlobalMean, types.JobArgs{Question: "q2"})
	require.NoError(t, err)

	assert.Equal(t, 1, id1)
	assert.Equal(t, 2, id2)
}

func TestPollRunningThenDone(t *testing.T) {
	dispatcher := newStubDispatcher()
	ctx := newTestContext(t, 1, dispatcher)

	id, err := ctx.Submit(types.GlobalMean, types.JobArgs{Question: "q1"})
	require.NoError(t, err)

	body, err := ctx.Poll(id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"running"}`, string(body))

	close(dispatcher.release)
	require.Eventually(t, func() bool {
		body, err := ctx.Poll(id)
		if err != nil {
			return false
		}
		var parsed map[string]any
		_ = json.Unmarshal(body, &parsed)
		return parsed["status"] == "done"
	}, time.Second, 5*time.Millisecond)
}

func TestPollRejectsNonPositiveID(t *testing.T) {
	ctx := newTestContext(t, 1, newStubDispatcher())

	_, err := ctx.Poll(0)
	assert.ErrorIs(t, err, ErrInvalidJobID)

	_, err = ctx.Poll(-5)
	assert.ErrorIs(t, err, ErrInvalidJobID)
}

func TestPollRejectsUnissuedID(t *testing.T) {
	ctx := newTestContext(t, 1, newStubDispatcher())

	_, err := ctx.Poll(999)
	assert.ErrorIs(t, err, ErrInvalidJobID)
}

func TestSubmitRejectedAfterShutdown(t *testing.T) {
	dispatcher := newStubDispatcher()
	close(dispatcher.release)
	ctx := newTestContext(t, 1, dispatcher)

	ctx.RequestShutdown()

	_, err := ctx.Submit(types.GlobalMean, types.JobArgs{Question: "q"})
	assert.ErrorIs(t, err, ErrShuttingDown)
}

func TestRequestShutdownIsIdempotent(t *testing.T) {
	dispatcher := newStubDispatcher()
	close(dispatcher.release)
	ctx := newTestContext(t, 2, dispatcher)

	first := ctx.RequestShutdown()
	assert.Equal(t, map[string]string{"status": "done"}, first)

	second := ctx.RequestShutdown()
	assert.Equal(t, map[string]string{"status": "done", "reason": "already shut down"}, second)
}

func TestSubmitReturnsErrQueueFullAndFinalizesRejectedJob(t *testing.T) {
	dispatcher := newStubDispatcher()
	table := &dataset.Table{}
	q := queue.New(1)
	store, err := resultstore.New(t.TempDir())
	require.NoError(t, err)
	flag := shutdown.New()
	log, err := logging.New(t.TempDir())
	require.NoError(t, err)
	m := metrics.NewCollector(prometheus.NewRegistry())
	pool := workerpool.New(1, q, dispatcher, store, flag, m, log)
	ctx := New(table, dispatcher, idalloc.New(), q, store, pool, flag, log, m)
	t.Cleanup(func() {
		flag.Set()
		pool.Stop()
	})

	// Fill the one-slot queue directly, bypassing Submit, so the pool never
	// starts draining it and the next Submit observes a saturated queue.
	require.NoError(t, q.Put(types.Job{ID: 999}))

	id, err := ctx.Submit(types.GlobalMean, types.JobArgs{Question: "q"})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 0, id)

	body, readErr := ctx.store.Read(1)
	require.NoError(t, readErr)
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(body, &parsed))
	assert.Equal(t, "done", parsed["status"])
}

func TestNumPendingReflectsQueueDepth(t *testing.T) {
	dispatcher := newStubDispatcher()
	ctx := newTestContext(t, 1, dispatcher)

	_, err := ctx.Submit(types.GlobalMean, types.JobArgs{Question: "q1"})
	require.NoError(t, err)
	_, err = ctx.Submit(types.GlobalMean, types.JobArgs{Question: "q2"})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, ctx.NumPending(), 0)
	close(dispatcher.release)

	require.Eventually(t, func() bool {
		return ctx.NumPending() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestJobsStatusListsEveryIssuedID(t *testing.T) {
	dispatcher := newStubDispatcher()
	ctx := newTestContext(t, 1, dispatcher)
	// Release the blocked computation before the cleanup's pool.Stop, which
	// waits for in-flight jobs to finish.
	defer close(dispatcher.release)

	id1, err := ctx.Submit(types.GlobalMean, types.JobArgs{Question: "q1"})
	require.NoError(t, err)
	id2, err := ctx.Submit(types.GlobalMean, types.JobArgs{Question: "q2"})
	require.NoError(t, err)

	body := ctx.JobsStatus()
	var parsed struct {
		Status string              `json:"status"`
		Data   []map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &parsed))
	assert.Equal(t, "done", parsed.Status)
	require.Len(t, parsed.Data, 2)
	assert.Equal(t, "running", parsed.Data[0][fmt.Sprintf("job_id_%d", id1)])
	assert.Equal(t, "running", parsed.Data[1][fmt.Sprintf("job_id_%d", id2)])
}
