package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

type FileSystemProvider struct {
	Path string
}

func NewFileSystemProvider(path string) (SnapshotStorage, error) {
	if path == "" {
		return nil, errors.New("Empty snapshot path")
	}
	return &FileSystemProvider{
		Path: path,
	}, nil
}

func (storage *FileSystemProvider) Type() StorageType {
	return STORAGE_FILESYSTEM
}

func (storage *FileSystemProvider) Load(ctx context.Context) ([]byte, error) {
	payload, err := os.ReadFile(storage.Path)
	if os.IsNotExist(err) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read snapshot '%s'", storage.Path)
	}
	return payload, nil
}

// Save writes payload to a temporary file next to the target and renames it, so readers never see partial snapshot
func (storage *FileSystemProvider) Save(ctx context.Context, payload []byte) error {
	dir := filepath.Dir(storage.Path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrapf(err, "Can't create directory '%s'", dir)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(storage.Path)+".*")
	if err != nil {
		return errors.Wrap(err, "Can't create temporary snapshot")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return errors.Wrap(err, "Can't write temporary snapshot")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "Can't close temporary snapshot")
	}
	if err := os.Rename(tmp.Name(), storage.Path); err != nil {
		return errors.Wrapf(err, "Can't replace snapshot '%s'", storage.Path)
	}
	return nil
}
