package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFileSystemProvider(t *testing.T) {
	Convey("Given a filesystem snapshot storage", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "nested", "settings.json")
		provider, err := NewFileSystemProvider(path)
		So(err, ShouldBeNil)
		So(provider.Type(), ShouldEqual, STORAGE_FILESYSTEM)

		Convey("Nothing is loaded before the first save", func() {
			_, err := provider.Load(ctx)
			So(err, ShouldEqual, ErrNoSnapshot)
		})

		Convey("Saved snapshot is loaded back and replaced by the next save", func() {
			So(provider.Save(ctx, []byte(`{"VideoWidth":1280}`)), ShouldBeNil)
			So(provider.Save(ctx, []byte(`{"VideoWidth":640}`)), ShouldBeNil)
			payload, err := provider.Load(ctx)
			So(err, ShouldBeNil)
			So(string(payload), ShouldEqual, `{"VideoWidth":640}`)

			entries, err := os.ReadDir(filepath.Dir(path))
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 1)
		})
	})

	Convey("Empty path is refused", t, func() {
		_, err := NewFileSystemProvider("")
		So(err, ShouldNotBeNil)
	})
}

func TestStorageType(t *testing.T) {
	Convey("Storage types are parsed case insensitive", t, func() {
		So(NewStorageTypeFrom("MinIO"), ShouldEqual, STORAGE_MINIO)
		So(NewStorageTypeFrom("filesystem").String(), ShouldEqual, "filesystem")
		So(NewStorageTypeFrom(" fs "), ShouldEqual, STORAGE_FILESYSTEM)
		So(NewStorageTypeFrom("redis"), ShouldEqual, STORAGE_UNDEFINED_TYPE)
		So(StorageType(42).String(), ShouldEqual, "undefined")
	})
}

func TestMinioProvider(t *testing.T) {
	Convey("MinIO provider needs bucket and object names", t, func() {
		client, err := NewMinioClient("localhost", 9000, "minio", "minio123", false)
		So(err, ShouldBeNil)
		_, err = NewMinioProvider(client, "", "settings.json")
		So(err, ShouldNotBeNil)
		provider, err := NewMinioProvider(client, "kickoff", "settings.json")
		So(err, ShouldBeNil)
		So(provider.Type(), ShouldEqual, STORAGE_MINIO)
	})
}
