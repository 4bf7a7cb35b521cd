// Package store implements the durable document store: three JSON documents
// on disk, each replaced wholesale through a validated, crash-safe write
// path. A reader can never observe a half-written document because content
// is flushed to a sibling temp file and swapped in with an atomic rename.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Kind names one of the three persisted documents.
type Kind string

const (
	KindEntries     Kind = "entries"
	KindActive      Kind = "active"
	KindSuggestions Kind = "suggestions"
)

// Kinds lists every document kind the store manages.
var Kinds = []Kind{KindEntries, KindActive, KindSuggestions}

var fileNames = map[Kind]string{
	KindEntries:     "entries.json",
	KindActive:      "active_timers.json",
	KindSuggestions: "suggestions.json",
}

var defaults = map[Kind][]byte{
	KindEntries:     []byte("[]"),
	KindActive:      []byte("{}"),
	KindSuggestions: []byte("[]"),
}

// DefaultMaxPayloadBytes caps document size before any parsing happens.
const DefaultMaxPayloadBytes = 1 << 20

var (
	ErrUnknownKind     = errors.New("unknown document kind")
	ErrPayloadTooLarge = errors.New("payload exceeds size cap")
)

// FileStore persists the documents under a single directory with one mutex
// per document kind, so concurrent writers to the same document are
// serialized while different documents proceed independently.
type FileStore struct {
	dir        string
	maxPayload int64
	locks      map[Kind]*sync.Mutex

	// rename is swapped out by tests to simulate a crash between the temp
	// write and the swap into place.
	rename func(oldpath, newpath string) error
}

// New creates the data directory if needed and returns a store over it.
// maxPayload <= 0 selects DefaultMaxPayloadBytes.
func New(dir string, maxPayload int64) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayloadBytes
	}
	locks := make(map[Kind]*sync.Mutex, len(Kinds))
	for _, kind := range Kinds {
		locks[kind] = new(sync.Mutex)
	}
	return &FileStore{dir: dir, maxPayload: maxPayload, locks: locks, rename: os.Rename}, nil
}

// MaxPayloadBytes returns the configured size cap.
func (s *FileStore) MaxPayloadBytes() int64 {
	return s.maxPayload
}

// DefaultContent returns the empty document for the kind ("[]" or "{}").
func DefaultContent(kind Kind) ([]byte, error) {
	d, ok := defaults[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	out := make([]byte, len(d))
	copy(out, d)
	return out, nil
}

func (s *FileStore) path(kind Kind) (string, error) {
	name, ok := fileNames[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return filepath.Join(s.dir, name), nil
}

// Read returns the current raw content of the document. A document that has
// never been written reads as its empty default, so first-run bootstrap is
// transparent; any other read failure is surfaced so callers can tell
// "legitimately absent" from "read failed".
func (s *FileStore) Read(kind Kind) ([]byte, error) {
	path, err := s.path(kind)
	if err != nil {
		return nil, err
	}
	s.locks[kind].Lock()
	defer s.locks[kind].Unlock()

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultContent(kind)
		}
		return nil, fmt.Errorf("failed to read %s document: %w", kind, err)
	}
	return raw, nil
}

// Write validates the payload and swaps it into place atomically. On any
// failure the previous document remains authoritative: validation rejects
// before touching disk, and an I/O failure aborts before the rename.
func (s *FileStore) Write(kind Kind, raw []byte) error {
	path, err := s.path(kind)
	if err != nil {
		return err
	}
	if int64(len(raw)) > s.maxPayload {
		return fmt.Errorf("%w: %d > %d bytes", ErrPayloadTooLarge, len(raw), s.maxPayload)
	}
	if err := ValidateDocument(kind, raw); err != nil {
		return err
	}

	s.locks[kind].Lock()
	defer s.locks[kind].Unlock()

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open temp file: %w", err)
	}
	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to flush temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := s.rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to swap %s document into place: %w", kind, err)
	}
	return nil
}

// Exists reports whether the document has ever been written.
func (s *FileStore) Exists(kind Kind) bool {
	path, err := s.path(kind)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
