package logging

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewCreatesLogFile(t *testing.T) {
	dir := t.TempDir()
	log, err := New(dir)
	require.NoError(t, err)
	defer log.Sync()

	log.Event("hello")
	require.NoError(t, log.Sync())

	_, err = os.Stat(filepath.Join(dir, logFileName))
	assert.NoError(t, err)
}

func TestNewWipesExistingLogFiles(t *testing.T) {
	dir := t.TempDir()
	stalePath := filepath.Join(dir, logFileName+".1")
	require.NoError(t, os.WriteFile(stalePath, []byte("stale"), 0o644))

	_, err := New(dir)
	require.NoError(t, err)

	_, err = os.Stat(stalePath)
	assert.True(t, os.IsNotExist(err))
}

func TestConcurrentEventCallsDoNotRace(t *testing.T) {
	dir := t.TempDir()
	log, err := New(dir)
	require.NoError(t, err)
	defer log.Sync()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			log.Event("concurrent event", zap.Int("i", i))
		}(i)
	}
	wg.Wait()
}

func TestErrorLogsThroughSamePath(t *testing.T) {
	dir := t.TempDir()
	log, err := New(dir)
	require.NoError(t, err)
	assert.NotPanics(t, func() { log.Error("boom", zap.String("reason", "test")) })
}
