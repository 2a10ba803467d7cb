package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pageza/flavor-monk/backend/internal/apperrors"
)

// ArchiveStore keeps snapshots of archived recipes.
type ArchiveStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// ArchiveLinker is implemented by stores that can hand out temporary
// download links for a snapshot.
type ArchiveLinker interface {
	PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// LocalArchive writes snapshots below a directory.
type LocalArchive struct {
	dir string
}

func NewLocalArchive(dir string) *LocalArchive {
	return &LocalArchive{dir: dir}
}

func (a *LocalArchive) path(key string) string {
	return filepath.Join(a.dir, filepath.FromSlash(key))
}

// Put implements ArchiveStore.
func (a *LocalArchive) Put(_ context.Context, key string, data []byte, _ string) error {
	path := a.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write archive snapshot: %w", err)
	}
	return nil
}

// Get implements ArchiveStore.
func (a *LocalArchive) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(a.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.NotFound("archive snapshot")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read archive snapshot: %w", err)
	}
	return data, nil
}
