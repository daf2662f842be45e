package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// fileStore keeps entries in one JSON document. Every mutation re-reads the
// file under an exclusive advisory lock so concurrent processes merge rather
// than overwrite each other.
type fileStore struct {
	path    string
	lock    *flock.Flock
	mu      sync.RWMutex
	entries map[string]Entry
}

// OpenFile opens (creating lazily) a JSON file store at path.
func OpenFile(path string) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	s := &fileStore{
		path:    path,
		lock:    flock.New(path + ".lock"),
		entries: make(map[string]Entry),
	}
	if err := s.lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock cache file: %w", err)
	}
	defer s.lock.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *fileStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	return entry, ok, nil
}

func (s *fileStore) Put(_ context.Context, entry Entry) error {
	return s.mutate(func(entries map[string]Entry) int {
		entries[entry.Key] = entry
		return 1
	})
}

func (s *fileStore) List(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedEntries(s.entries), nil
}

func (s *fileStore) DeleteBefore(_ context.Context, cutoff time.Time) (int, error) {
	var removed int
	err := s.mutate(func(entries map[string]Entry) int {
		for key, entry := range entries {
			if entry.CreatedAt.Before(cutoff) {
				delete(entries, key)
				removed++
			}
		}
		return removed
	})
	return removed, err
}

func (s *fileStore) Clear(_ context.Context) (int, error) {
	var removed int
	err := s.mutate(func(entries map[string]Entry) int {
		removed = len(entries)
		clear(entries)
		return removed
	})
	return removed, err
}

func (s *fileStore) Path() string { return s.path }

func (s *fileStore) Close() error { return nil }

// mutate applies fn to the freshly loaded entry set and persists the result
// when fn reports a change. The mutex is taken first: a Flock handle is not
// reentrant across goroutines.
func (s *fileStore) mutate(fn func(map[string]Entry) int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock cache file: %w", err)
	}
	defer s.lock.Unlock()

	if err := s.load(); err != nil {
		return err
	}
	if fn(s.entries) == 0 {
		return nil
	}
	return s.save()
}

// load replaces the in-memory entries with the file contents. Callers hold
// the file lock.
func (s *fileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}
	s.entries = make(map[string]Entry, len(entries))
	for _, entry := range entries {
		if entry.Key != "" {
			s.entries[entry.Key] = entry
		}
	}
	return nil
}

// save writes the cache to disk atomically.
func (s *fileStore) save() error {
	data, err := json.MarshalIndent(sortedEntries(s.entries), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func sortedEntries(m map[string]Entry) []Entry {
	entries := make([]Entry, 0, len(m))
	for _, entry := range m {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].Key < entries[j].Key
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries
}
