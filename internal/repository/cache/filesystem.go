package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jaennil/guide_helper/tilecache/internal/tile"
)

// FilesystemStore keeps one file per tile.
// Structure: {dir}/{z}/{x}/{y}.tile
type FilesystemStore struct {
	dir string
}

func NewFilesystemStore(dir string) (*FilesystemStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	return &FilesystemStore{dir: dir}, nil
}

var _ TileStore = (*FilesystemStore)(nil)

func (s *FilesystemStore) pathFor(idx tile.Index) string {
	return filepath.Join(s.dir,
		strconv.Itoa(idx.Level),
		strconv.Itoa(idx.X),
		strconv.Itoa(idx.Y)+".tile",
	)
}

func (s *FilesystemStore) Get(_ context.Context, idx tile.Index) ([]byte, bool, error) {
	data, err := os.ReadFile(s.pathFor(idx))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return data, true, nil
}

// Set writes through a temp file and rename, so readers never see a
// partially written tile.
func (s *FilesystemStore) Set(_ context.Context, idx tile.Index, data []byte) error {
	path := s.pathFor(idx)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return nil
}

func (s *FilesystemStore) Delete(_ context.Context, idx tile.Index) (bool, error) {
	err := os.Remove(s.pathFor(idx))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *FilesystemStore) Close() error {
	return nil
}
