// Package backup keeps timestamped snapshots of the graph document on
// the local filesystem. Every successful edit writes one, so a bad
// remote state can always be rebuilt from the last good local copy.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	snapshotExt = ".json"
	// DefaultKeep bounds the snapshot directory; Prune enforces it.
	DefaultKeep = 30
)

// Store writes and lists graph document snapshots under one directory.
type Store struct {
	dir string
}

// NewStore creates a snapshot store rooted at dir. The directory is
// created on first write, not here.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Snapshot writes one document snapshot and returns its key. The write
// is atomic: temp file in the target directory, then rename. Keys
// carry nanosecond precision so edits in the same second get distinct
// snapshots, and stay lexicographically ordered by time.
func (s *Store) Snapshot(doc []byte, now time.Time) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory %s: %w", s.dir, err)
	}

	key := now.Format("20060102T150405.000000000") + snapshotExt
	fullPath := filepath.Join(s.dir, key)

	tempFile, err := os.CreateTemp(s.dir, "temp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer tempFile.Close()

	if _, err := tempFile.Write(doc); err != nil {
		os.Remove(tempFile.Name())
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		os.Remove(tempFile.Name())
		return "", fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempFile.Name())
		return "", fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tempFile.Name(), fullPath); err != nil {
		os.Remove(tempFile.Name())
		return "", fmt.Errorf("failed to rename snapshot to %s: %w", fullPath, err)
	}
	return key, nil
}

// List returns the snapshot keys, oldest first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	var keys []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), snapshotExt) {
			keys = append(keys, e.Name())
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Read returns the content of one snapshot.
func (s *Store) Read(key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("backup %s not found", key)
		}
		return nil, fmt.Errorf("failed to read backup %s: %w", key, err)
	}
	return data, nil
}

// Prune deletes the oldest snapshots until at most keep remain.
func (s *Store) Prune(keep int) error {
	if keep < 1 {
		keep = DefaultKeep
	}
	keys, err := s.List()
	if err != nil {
		return err
	}
	for len(keys) > keep {
		if err := os.Remove(filepath.Join(s.dir, keys[0])); err != nil {
			return fmt.Errorf("failed to prune backup %s: %w", keys[0], err)
		}
		keys = keys[1:]
	}
	return nil
}
