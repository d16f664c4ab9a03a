package queue

import (
	"testing"
	"time"

	"github.com/nimbusdata/statsqueue/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutAndTakeFIFO(t *testing.T) {
	q := New(4)
	assert.NoError(t, q.Put(types.Job{ID: 1}))
	assert.NoError(t, q.Put(types.Job{ID: 2}))

	job, ok := q.Take(time.Second)
	assert.True(t, ok)
	assert.Equal(t, 1, job.ID)

	job, ok = q.Take(time.Second)
	assert.True(t, ok)
	assert.Equal(t, 2, job.ID)
}

func TestTakeTimesOutWhenEmpty(t *testing.T) {
	q := New(1)
	_, ok := q.Take(10 * time.Millisecond)
	assert.False(t, ok)
}

func TestSizeReflectsPendingJobs(t *testing.T) {
	q := New(4)
	assert.Equal(t, 0, q.Size())
	assert.NoError(t, q.Put(types.Job{ID: 1}))
	assert.NoError(t, q.Put(types.Job{ID: 2}))
	assert.Equal(t, 2, q.Size())
	q.Take(time.Second)
	assert.Equal(t, 1, q.Size())
}

func TestPutReturnsErrQueueFullWhenSaturated(t *testing.T) {
	q := New(1)
	require.NoError(t, q.Put(types.Job{ID: 1}))

	err := q.Put(types.Job{ID: 2})
	assert.ErrorIs(t, err, ErrQueueFull)

	job, ok := q.Take(time.Second)
	assert.True(t, ok)
	assert.Equal(t, 1, job.ID)
}

func TestSentinelDetection(t *testing.T) {
	q := New(2)
	q.PutSentinel()
	job, ok := q.Take(time.Second)
	assert.True(t, ok)
	assert.True(t, IsSentinel(job))

	assert.NoError(t, q.Put(types.Job{ID: 7}))
	job, ok = q.Take(time.Second)
	assert.True(t, ok)
	assert.False(t, IsSentinel(job))
}
