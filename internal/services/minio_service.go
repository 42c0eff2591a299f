package services

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ImageStorage resolves stored image keys into URLs a browser can fetch.
type ImageStorage interface {
	PresignedURL(ctx context.Context, objectKey string) (string, error)
	DeleteImage(ctx context.Context, objectKey string) error
	EnsureBucketExists(ctx context.Context) error
	Ping(ctx context.Context) error
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
	Bucket    string
	URLExpiry time.Duration
}

type minioClient struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

func NewMinioService(cfg MinioConfig) (ImageStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &minioClient{client: client, bucket: cfg.Bucket, expiry: expiry}, nil
}

func (m *minioClient) PresignedURL(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", fmt.Errorf("empty object key")
	}
	u, err := m.client.PresignedGetObject(ctx, m.bucket, objectKey, m.expiry, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (m *minioClient) DeleteImage(ctx context.Context, objectKey string) error {
	return m.client.RemoveObject(ctx, m.bucket, objectKey, minio.RemoveObjectOptions{})
}

func (m *minioClient) EnsureBucketExists(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (m *minioClient) Ping(ctx context.Context) error {
	_, err := m.client.BucketExists(ctx, m.bucket)
	return err
}
