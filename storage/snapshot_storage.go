package storage

import (
	"context"
	"fmt"
	"strings"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet
var ErrNoSnapshot = fmt.Errorf("no snapshot saved yet")

// SnapshotStorage keeps a single serialized snapshot of edited settings
type SnapshotStorage interface {
	Type() StorageType
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, payload []byte) error
}

// StorageType is where snapshot lives
type StorageType uint16

const (
	STORAGE_UNDEFINED_TYPE = StorageType(iota)
	STORAGE_FILESYSTEM
	STORAGE_MINIO
)

func (iotaIdx StorageType) String() string {
	switch iotaIdx {
	case STORAGE_FILESYSTEM:
		return "filesystem"
	case STORAGE_MINIO:
		return "minio"
	default:
		return "undefined"
	}
}

// NewStorageTypeFrom parses storage type name (case insensitive)
func NewStorageTypeFrom(str string) StorageType {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "filesystem", "fs":
		return STORAGE_FILESYSTEM
	case "minio", "s3":
		return STORAGE_MINIO
	default:
		return STORAGE_UNDEFINED_TYPE
	}
}
