// Package repositories persists relay state. The only durable
// artifact is the per-cycle snapshot file; chat history otherwise
// lives in memory only.
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"neochat/domain"
)

// filenameLayout keys each artifact by its capture timestamp.
const filenameLayout = "20060102_150405"

// SnapshotStore writes one JSON artifact per eviction cycle into a
// flat directory.
type SnapshotStore struct {
	dir string
	log *slog.Logger
}

func NewSnapshotStore(dir string, log *slog.Logger) (*SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory %s: %w", dir, err)
	}
	return &SnapshotStore{dir: dir, log: log}, nil
}

// Write marshals the snapshot to chat_log_<timestamp>.json and
// returns the path. The file lands via rename so a crashed write
// never leaves a half-written artifact behind.
func (s *SnapshotStore) Write(snap domain.Snapshot) (string, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}

	name := fmt.Sprintf("chat_log_%s.json", time.Now().Format(filenameLayout))
	path := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, name+".tmp")
	if err != nil {
		return "", fmt.Errorf("creating snapshot file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("publishing snapshot: %w", err)
	}

	s.log.Debug("Snapshot artifact written", "path", path, "bytes", len(data))
	return path, nil
}
