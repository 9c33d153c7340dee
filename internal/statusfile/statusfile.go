// Package statusfile publishes the daemon's current status for shell tooling
// (waybar modules, `whispa status --follow`).
package statusfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Snapshot is the document written on every state transition.
type Snapshot struct {
	State     string    `json:"state"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Path returns <runtimeDir>/whispa/status.
func Path(runtimeDir string) string {
	return filepath.Join(runtimeDir, "whispa", "status")
}

// Write replaces the status file atomically so readers never see a partial document.
func Write(path string, snap Snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create status dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "status-*.tmp")
	if err != nil {
		return fmt.Errorf("create status temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := json.NewEncoder(tmpFile).Encode(snap); err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync status: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close status temp: %w", err)
	}
	success = true

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename status: %w", err)
	}
	return nil
}

// Read loads the current snapshot.
func Read(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode status %s: %w", path, err)
	}
	return snap, nil
}

// Follow calls fn with the current snapshot (when present) and again after
// every replacement until ctx is done. Consecutive identical snapshots are
// reported once.
func Follow(ctx context.Context, path string, fn func(Snapshot)) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create status dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create status watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: Write replaces the file by rename.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	var last Snapshot
	emit := func() {
		snap, err := Read(path)
		if err != nil {
			return
		}
		if snap == last {
			return
		}
		last = snap
		fn(snap)
	}
	emit()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("status watcher closed")
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				emit()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("status watcher closed")
			}
			return fmt.Errorf("status watcher: %w", err)
		}
	}
}
