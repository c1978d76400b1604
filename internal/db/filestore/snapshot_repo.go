// Package filestore keeps post store snapshots in a single local file.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"Postbox/internal/core/posts"
)

type fileSnapshotRepo struct {
	codec  Codec
	logger *slog.Logger
	path   string
}

// NewSnapshotRepository creates a snapshot repository backed by the file at path
// The codec is chosen from the extension (see CodecForPath)
func NewSnapshotRepository(path string, logger *slog.Logger) posts.SnapshotRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &fileSnapshotRepo{
		codec:  CodecForPath(path),
		logger: logger,
		path:   path,
	}
}

// Load reads the snapshot file
// A missing or empty file is reported as posts.ErrNoSnapshot
func (r *fileSnapshotRepo) Load(ctx context.Context) (*posts.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, posts.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", r.path, err)
	}
	if len(data) == 0 {
		return nil, posts.ErrNoSnapshot
	}

	snap, err := r.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", r.path, err)
	}

	r.logger.Debug("snapshot loaded",
		"path", r.path,
		"codec", r.codec.Name(),
		"rev", snap.Rev,
		"posts", len(snap.Posts))
	return snap, nil
}

// Save writes the snapshot to a temp file in the same directory and renames it over the target,
// so readers never see a half-written file
func (r *fileSnapshotRepo) Save(ctx context.Context, snap *posts.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap == nil {
		return posts.NewValidationError("snapshot", "snapshot is required")
	}

	stamped := snap.Stamped()
	data, err := r.codec.Encode(stamped)
	if err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("failed to replace snapshot %s: %w", r.path, err)
	}

	attrs := []any{
		"path", r.path,
		"codec", r.codec.Name(),
		"rev", stamped.Rev,
		"posts", len(stamped.Posts),
	}
	if _, ok := r.codec.(CBORCodec); ok {
		if c, err := BlockCID(data); err == nil {
			attrs = append(attrs, "cid", c)
		}
	}
	r.logger.Debug("snapshot saved", attrs...)
	return nil
}
