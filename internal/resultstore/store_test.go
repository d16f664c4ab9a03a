package resultstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nimbusdata/statsqueue/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterThenReadReturnsRunning(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Register(1))
	assert.True(t, s.Contains(1))

	body, err := s.Read(1)
	require.NoError(t, err)

	var rec types.RunningRecord
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.Equal(t, types.StatusRunning, rec.Status)
}

func TestFinalizeTransitionsToDoneAndRemovesEntry(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Register(2))
	require.NoError(t, s.Finalize(2, map[string]any{"global_mean": 42.0}))

	assert.False(t, s.Contains(2))
	assert.True(t, s.Exists(2))

	body, err := s.Read(2)
	require.NoError(t, err)

	var rec types.DoneRecord
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.Equal(t, types.StatusDone, rec.Status)
}

func TestReadUnknownIDReturnsErrNotFound(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	_, err = s.Read(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFinalizeWithoutRegisterFails(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	err = s.Finalize(5, map[string]any{})
	assert.Error(t, err)
}

func TestNewWipesExistingResultFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.json"), []byte(`{"status":"done"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2.json"), []byte(`{"status":"running"}`), 0o644))

	s, err := New(dir)
	require.NoError(t, err)

	assert.False(t, s.Exists(1))
	assert.False(t, s.Exists(2))
}

func TestConcurrentRegisterFinalizeDistinctIDs(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	const n = 50

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 1; i <= n; i++ {
		go func(id int) {
			defer wg.Done()
			require.NoError(t, s.Register(id))
			require.NoError(t, s.Finalize(id, map[string]any{"id": id}))
		}(i)
	}
	wg.Wait()

	for i := 1; i <= n; i++ {
		assert.False(t, s.Contains(i))
		assert.True(t, s.Exists(i))
	}
}
