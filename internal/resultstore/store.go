// Package resultstore persists job results to the filesystem: one JSON
// file per job id, written "running" the instant the job is accepted and
// overwritten "done" the instant a worker finishes it. Writes go through a
// temp-file-then-rename so a concurrent reader never observes a half
// written file, the same technique the teacher's snapshot manager uses for
// its own periodic state dumps.
package resultstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/nimbusdata/statsqueue/pkg/types"
)

// ErrNotFound is returned by Read when id has never been registered.
var ErrNotFound = errors.New("resultstore: no such job id")

// Store persists one result file per job under a fixed results directory.
//
// The table maps a job id to a mutex for exactly as long as that job is
// pending or executing: Register inserts the entry, Finalize removes it
// after writing the terminal file. An id absent from the table is either
// unknown or done; since a done file is never written again, Read can
// safely read it without acquiring any lock. This is the lock-table
// protocol from the server's concurrency model, not a generic cache, so
// entries are never evicted for any other reason.
type Store struct {
	dir string

	tableMu sync.Mutex
	locks   map[int]*sync.Mutex
}

// New returns a Store writing result files under dir. dir must already
// exist; New does not create it, but it does wipe any *.json result files
// left over from a previous run, mirroring the logging package's own
// wipe-at-New startup cleanup — a fresh process issues ids starting at 1
// again, so a stale file from a prior run would otherwise be readable
// under an id this run never submitted.
func New(dir string) (*Store, error) {
	if err := wipeOldResults(dir); err != nil {
		return nil, fmt.Errorf("resultstore: wipe old results: %w", err)
	}
	return &Store{
		dir:   dir,
		locks: make(map[int]*sync.Mutex),
	}, nil
}

func wipeOldResults(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return err
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (s *Store) path(id int) string {
	return filepath.Join(s.dir, strconv.Itoa(id)+".json")
}

// Register inserts id's entry and writes the initial "running" file under
// its mutex. It must be called exactly once per id, before the job is
// handed to the worker pool, so a concurrent GET for the same id always
// finds either the table entry or, once Finalize runs, the done file.
func (s *Store) Register(id int) error {
	s.tableMu.Lock()
	mu := &sync.Mutex{}
	s.locks[id] = mu
	s.tableMu.Unlock()

	mu.Lock()
	defer mu.Unlock()
	return s.writeAtomic(id, types.NewRunningRecord())
}

// Finalize overwrites id's result file with the terminal "done" record
// carrying data, then removes id's entry from the table. It is called
// exactly once, by the worker that executed the job.
func (s *Store) Finalize(id int, data any) error {
	s.tableMu.Lock()
	mu, ok := s.locks[id]
	s.tableMu.Unlock()
	if !ok {
		return fmt.Errorf("resultstore: finalize job %d: not registered", id)
	}

	mu.Lock()
	err := s.writeAtomic(id, types.NewDoneRecord(data))
	mu.Unlock()

	s.tableMu.Lock()
	delete(s.locks, id)
	s.tableMu.Unlock()

	return err
}

// writeAtomic marshals record and writes it to id's result file via a
// temp-file-then-rename, so a reader never observes a partially written
// file. Caller must hold id's mutex.
func (s *Store) writeAtomic(id int, record any) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("resultstore: marshal job %d: %w", id, err)
	}

	final := s.path(id)
	tmp := final + ".tmp"

	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("resultstore: write temp file for job %d: %w", id, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("resultstore: rename temp file for job %d: %w", id, err)
	}
	return nil
}

// Read returns the raw JSON bytes of id's result file. If id is in the
// table (pending or executing) the read happens under its mutex to avoid
// a torn read during the running-to-done overwrite; otherwise the file is
// immutable and is read without any lock. Read returns ErrNotFound if id
// was never registered and no file exists.
func (s *Store) Read(id int) ([]byte, error) {
	s.tableMu.Lock()
	mu, pending := s.locks[id]
	s.tableMu.Unlock()

	if pending {
		mu.Lock()
		defer mu.Unlock()
	}

	body, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("resultstore: read job %d: %w", id, err)
	}
	return body, nil
}

// Contains reports whether id currently has a pending or executing entry
// in the table. It does not report on done jobs; combine with a file stat
// to test for any job having ever existed.
func (s *Store) Contains(id int) bool {
	s.tableMu.Lock()
	defer s.tableMu.Unlock()
	_, ok := s.locks[id]
	return ok
}

// Exists reports whether any result file, running or done, exists for id.
func (s *Store) Exists(id int) bool {
	_, err := os.Stat(s.path(id))
	return err == nil
}
