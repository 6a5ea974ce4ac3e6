package media

import (
	"bytes"
	"context"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig locates the bucket that holds uploads.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	// Prefix is prepended to every object key.
	Prefix string
	Secure bool
	// PublicURL is the base URL objects are served from,
	// defaults to the endpoint in path style.
	PublicURL string
}

// MinIO stores files as objects in an S3 compatible bucket.
type MinIO struct {
	cli *minio.Client
	cfg MinIOConfig
}

// NewMinIO connects to the object storage described by cfg.
func NewMinIO(cfg MinIOConfig) (*MinIO, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("minio endpoint and bucket are required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new minio client")
	}

	return NewMinIOWithClient(cli, cfg), nil
}

// NewMinIOWithClient wraps an existing client.
func NewMinIOWithClient(cli *minio.Client, cfg MinIOConfig) *MinIO {
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	if cfg.PublicURL == "" {
		scheme := "http://"
		if cfg.Secure {
			scheme = "https://"
		}
		cfg.PublicURL = scheme + cfg.Endpoint + "/" + cfg.Bucket
	}

	return &MinIO{cli: cli, cfg: cfg}
}

func (m *MinIO) objectKey(filename string) string {
	if m.cfg.Prefix == "" {
		return filename
	}
	return m.cfg.Prefix + "/" + filename
}

// Put implements Storage.
func (m *MinIO) Put(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	key := m.objectKey(filename)
	if _, err := m.cli.PutObject(ctx,
		m.cfg.Bucket,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{
			ContentType: contentType,
		},
	); err != nil {
		return "", errors.Wrapf(err, "put object %s", key)
	}

	return m.URL(filename), nil
}

// Delete implements Storage.
func (m *MinIO) Delete(ctx context.Context, filename string) (bool, error) {
	key := m.objectKey(filename)
	if _, err := m.cli.StatObject(ctx, m.cfg.Bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, errors.Wrapf(err, "stat object %s", key)
	}

	if err := m.cli.RemoveObject(ctx, m.cfg.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return false, errors.Wrapf(err, "remove object %s", key)
	}

	return true, nil
}

// URL implements Storage.
func (m *MinIO) URL(filename string) string {
	return m.cfg.PublicURL + "/" + m.objectKey(filename)
}
