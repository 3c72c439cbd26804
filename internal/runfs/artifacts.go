package runfs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/calcifer-3118/yt-neural-miner/internal/fileutil"
)

// Kind classifies an artifact for the completion test.
type Kind int

const (
	// KindJSON requires a structural parse to count as present.
	KindJSON Kind = iota
	// KindText requires non-zero size.
	KindText
	// KindMedia requires more than minMediaBytes on disk.
	KindMedia
)

// minMediaBytes guards against zero-byte or header-only downloads being
// treated as cached media.
const minMediaBytes = 1024

// Complete reports whether the artifact at path satisfies the completion
// test for its kind. File presence plus this non-triviality check is the
// sole "already done" signal the pipeline uses.
func Complete(path string, kind Kind) bool {
	switch kind {
	case KindJSON:
		data, err := os.ReadFile(path)
		if err != nil || len(data) == 0 {
			return false
		}
		return json.Valid(data)
	case KindMedia:
		return fileutil.FileSize(path) > minMediaBytes
	default:
		return fileutil.FileSize(path) > 0
	}
}

// WriteArtifact persists a stage result atomically. The pipeline only calls
// this after a worker returned a complete value; partial or streaming writes
// to the final path never happen.
func WriteArtifact(path string, data []byte) error {
	return fileutil.WriteFileAtomic(path, data, 0o644)
}

// EnsureRunDir creates the run directory when missing.
func EnsureRunDir(paths RunPaths) error {
	if err := os.MkdirAll(paths.Root, 0o755); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}
	return nil
}

// LockRun takes an exclusive advisory lock on the run directory so exactly
// one miner process works a run at any time. Callers must Unlock the
// returned lock when the run ends.
func LockRun(paths RunPaths) (*flock.Flock, error) {
	if err := EnsureRunDir(paths); err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(paths.Root, ".miner.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("run directory %s is locked by another miner process", paths.Root)
	}
	return lock, nil
}
