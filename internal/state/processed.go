// Package state persists the set of already-processed source video ids so
// re-running the pipeline never reprocesses a video, even across restarts.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
)

// ProcessedSet is a durable set of source-video identifiers. The on-disk form
// is a JSON array of strings, rewritten in full after each mutation. A file
// lock guards against two clipmill processes sharing one state directory.
type ProcessedSet struct {
	path string
	lock *flock.Flock
	ids  map[string]struct{}
}

// LoadProcessedSet reads (or initializes) the processed set at path.
func LoadProcessedSet(path string) (*ProcessedSet, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("processed set path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure state directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire state lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("state file %s is locked by another clipmill process", path)
	}

	set := &ProcessedSet{
		path: path,
		lock: lock,
		ids:  make(map[string]struct{}),
	}
	if err := set.load(); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return set, nil
}

func (s *ProcessedSet) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read processed set: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("parse processed set %s: %w", s.path, err)
	}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			s.ids[id] = struct{}{}
		}
	}
	return nil
}

// Contains reports whether the video id has already been processed.
func (s *ProcessedSet) Contains(id string) bool {
	_, ok := s.ids[strings.TrimSpace(id)]
	return ok
}

// Len returns the number of processed video ids.
func (s *ProcessedSet) Len() int {
	return len(s.ids)
}

// IDs returns the processed ids in sorted order.
func (s *ProcessedSet) IDs() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Add records a video id and rewrites the backing file. Adding an id that is
// already present is a no-op that skips the rewrite.
func (s *ProcessedSet) Add(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("video id required")
	}
	if _, ok := s.ids[id]; ok {
		return nil
	}
	s.ids[id] = struct{}{}
	if err := s.persist(); err != nil {
		delete(s.ids, id)
		return err
	}
	return nil
}

// persist rewrites the full JSON array atomically: write a temp file in the
// same directory, then rename over the target.
func (s *ProcessedSet) persist() error {
	data, err := json.MarshalIndent(s.IDs(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal processed set: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".processed-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace processed set: %w", err)
	}
	return nil
}

// Close releases the file lock.
func (s *ProcessedSet) Close() error {
	if s == nil || s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}
