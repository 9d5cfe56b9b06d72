package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/automax/grievance-backend/internal/config"
)

const presignExpiry = 24 * time.Hour

// MinIOStorage keeps grievance attachments in a single bucket, one folder per
// grievance token.
type MinIOStorage struct {
	client     *minio.Client
	bucketName string
}

func NewMinIOStorage(ctx context.Context, cfg *config.MinIOConfig, log *zap.Logger) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Info("Bucket created", zap.String("bucket", cfg.BucketName))
	}

	log.Info("MinIO storage connected", zap.String("endpoint", cfg.Endpoint))
	return &MinIOStorage{
		client:     client,
		bucketName: cfg.BucketName,
	}, nil
}

// ObjectName builds a collision-free object key that keeps the original
// extension.
func ObjectName(folder, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return fmt.Sprintf("%s/%s%s", folder, uuid.New().String(), ext)
}

func (s *MinIOStorage) Upload(ctx context.Context, folder, fileName string, r io.Reader, size int64, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	objectName := ObjectName(folder, fileName)

	_, err := s.client.PutObject(ctx, s.bucketName, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return objectName, nil
}

func (s *MinIOStorage) PresignedURL(ctx context.Context, objectName string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucketName, objectName, presignExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get presigned URL: %w", err)
	}
	return u.String(), nil
}

func (s *MinIOStorage) Delete(ctx context.Context, objectName string) error {
	if err := s.client.RemoveObject(ctx, s.bucketName, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *MinIOStorage) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucketName)
	return err
}
