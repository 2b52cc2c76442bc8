package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// S3Config holds object store settings.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// Configured reports whether enough settings are present to build a client.
func (c S3Config) Configured() bool {
	return c.Endpoint != ""
}

// ObjectGetter opens one object for streaming.
type ObjectGetter interface {
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// S3Opener serves s3://bucket/key locations.
type S3Opener struct {
	store ObjectGetter
}

// NewS3Opener creates an opener over store.
func NewS3Opener(store ObjectGetter) *S3Opener {
	return &S3Opener{store: store}
}

// NewMinioOpener builds an S3Opener backed by a minio-go client.
func NewMinioOpener(cfg S3Config) (*S3Opener, error) {
	client, err := NewMinioStore(cfg)
	if err != nil {
		return nil, err
	}
	return NewS3Opener(client), nil
}

func (o *S3Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3Location(location)
	if err != nil {
		return nil, err
	}
	return o.store.GetObject(ctx, bucket, key)
}

// ParseS3Location splits s3://bucket/key.
func ParseS3Location(location string) (bucket, key string, err error) {
	u, err := url.Parse(location)
	if err != nil || !strings.EqualFold(u.Scheme, "s3") {
		return "", "", fmt.Errorf("%q is not an s3:// location: %w", location, pgseed.ErrUnsupportedSource)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%q needs both bucket and key: %w", location, pgseed.ErrUnsupportedSource)
	}
	return bucket, key, nil
}

// MinioStore implements ObjectGetter with minio-go.
type MinioStore struct {
	client *minio.Client
}

// NewMinioStore creates a client. The endpoint may be a bare host:port or a
// URL; an https scheme forces TLS.
func NewMinioStore(cfg S3Config) (*MinioStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required: %w", pgseed.ErrInvalidConfig)
	}

	endpoint, useSSL := cfg.Endpoint, cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	var creds *credentials.Credentials
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	} else {
		creds = credentials.NewEnvAWS()
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &MinioStore{client: client}, nil
}

// GetObject stats the object first so a missing key fails before COPY starts.
func (s *MinioStore) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyMinioError(bucket, key, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, classifyMinioError(bucket, key, err)
	}
	return obj, nil
}

func classifyMinioError(bucket, key string, err error) error {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.Code {
		case "NoSuchKey", "NoSuchBucket":
			return fmt.Errorf("s3://%s/%s: %s: %w", bucket, key, resp.Message, pgseed.ErrSourceNotFound)
		}
	}
	return fmt.Errorf("s3://%s/%s: %w", bucket, key, err)
}
