package idalloc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextStartsAtOne(t *testing.T) {
	a := New()
	assert.Equal(t, 0, a.LastIssued())
	assert.Equal(t, 1, a.Next())
	assert.Equal(t, 2, a.Next())
	assert.Equal(t, 2, a.LastIssued())
}

func TestNextStrictlyMonotonic(t *testing.T) {
	a := New()
	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		id := a.Next()
		assert.False(t, seen[id], "id %d issued twice", id)
		seen[id] = true
	}
	assert.Equal(t, 1000, a.LastIssued())
}

func TestNextConcurrentNoDuplicates(t *testing.T) {
	a := New()
	const n = 500
	ids := make([]int, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			ids[i] = a.Next()
		}(i)
	}
	wg.Wait()

	seen := make(map[int]bool, n)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Equal(t, n, a.LastIssued())
}
