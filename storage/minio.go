package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

type MinioProvider struct {
	client *minio.Client

	Bucket string
	Object string
}

// NewMinioClient connects to MinIO (or any S3 compatible) server
func NewMinioClient(host string, port int32, user, password string, useSSL bool) (*minio.Client, error) {
	client, err := minio.New(fmt.Sprintf("%s:%d", host, port), &minio.Options{
		Creds:  credentials.NewStaticV4(user, password, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "Can't prepare MinIO client")
	}
	return client, nil
}

func NewMinioProvider(client *minio.Client, bucket, object string) (SnapshotStorage, error) {
	if bucket == "" || object == "" {
		return nil, errors.Errorf("Bucket '%s' and object '%s' must not be empty", bucket, object)
	}
	return &MinioProvider{
		client: client,
		Bucket: bucket,
		Object: object,
	}, nil
}

func (m *MinioProvider) Type() StorageType {
	return STORAGE_MINIO
}

// MakeBucket creates the bucket unless it exists already
func (m *MinioProvider) MakeBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.Bucket)
	if err != nil {
		return errors.Wrapf(err, "Can't check bucket '%s'", m.Bucket)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.Bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrapf(err, "Can't create bucket '%s'", m.Bucket)
	}
	return nil
}

func (m *MinioProvider) Load(ctx context.Context) ([]byte, error) {
	object, err := m.client.GetObject(ctx, m.Bucket, m.Object, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "Can't get object '%s/%s'", m.Bucket, m.Object)
	}
	defer object.Close()
	payload, err := io.ReadAll(object)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNoSnapshot
		}
		return nil, errors.Wrapf(err, "Can't read object '%s/%s'", m.Bucket, m.Object)
	}
	return payload, nil
}

func (m *MinioProvider) Save(ctx context.Context, payload []byte) error {
	_, err := m.client.PutObject(
		ctx,
		m.Bucket,
		m.Object,
		bytes.NewReader(payload),
		int64(len(payload)),
		minio.PutObjectOptions{
			ContentType: "application/json",
		},
	)
	if err != nil {
		return errors.Wrapf(err, "Can't put object '%s/%s'", m.Bucket, m.Object)
	}
	return nil
}
