package memory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// StoreError represents a persisted-record read or write failure. Callers
// recover locally: the system continues with an empty or stale record rather
// than failing the chat turn.
type StoreError struct {
	// Op is the failed operation ("read", "write", "rename", "mkdir")
	Op string

	// Path is the record path
	Path string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("memory store %s failed for %q: %v", e.Op, e.Path, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Store persists the distilled memory record as a single JSON file.
//
// Load never fails; Save performs a read-whole/merge-whole/write-whole update
// with atomic file replacement so a reader never observes a partially-written
// record. The store is safe for concurrent use from the request path (reads)
// and the background summarizer (writes); last-writer-wins is acceptable
// because updates are infrequent and eventually consistent.
type Store struct {
	path string

	// mu serializes writers; readers go straight to the file, which is
	// always a complete record thanks to the atomic rename.
	mu sync.Mutex
}

// NewStore creates a store backed by the JSON file at path. The backing
// directory is created on first save if absent.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted record. It never fails: a missing, unreadable, or
// corrupt file yields the empty record, with the failure logged.
func (s *Store) Load() *Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("memory record unreadable, using empty record",
				"path", s.path,
				"error", err,
			)
		}
		return Empty()
	}

	rec := Empty()
	if err := json.Unmarshal(data, rec); err != nil {
		slog.Warn("memory record corrupt, using empty record",
			"path", s.path,
			"error", err,
		)
		return Empty()
	}

	return rec
}

// Save merges the partial update into the current record, persists the merged
// result atomically, and returns it. Sub-records not present in the update
// are retained unchanged.
func (s *Store) Save(update Update) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.Load()
	update.apply(rec)

	if err := s.write(rec); err != nil {
		return rec, err
	}

	return rec, nil
}

// write persists the record via temp file plus rename, so concurrent readers
// see either the old record or the new one, never a torn write.
func (s *Store) write(rec *Record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &StoreError{Op: "mkdir", Path: dir, Cause: err}
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return &StoreError{Op: "write", Path: s.path, Cause: err}
	}

	tmp, err := os.CreateTemp(dir, ".memory-*.json")
	if err != nil {
		return &StoreError{Op: "write", Path: s.path, Cause: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &StoreError{Op: "write", Path: tmpName, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &StoreError{Op: "write", Path: tmpName, Cause: err}
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &StoreError{Op: "rename", Path: s.path, Cause: err}
	}

	return nil
}

// Ping reports whether the backing directory is writable. Used by the
// readiness endpoint.
func (s *Store) Ping() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &StoreError{Op: "mkdir", Path: dir, Cause: err}
	}

	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return &StoreError{Op: "write", Path: dir, Cause: err}
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)

	return nil
}
