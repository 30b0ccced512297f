package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"musicbox/config"
	"musicbox/logger"
	"musicbox/model"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioAudioStore 使用 MinIO 存储歌曲音频
type MinioAudioStore struct {
	client *minio.Client
	bucket string
	region string
}

// NewMinioAudioStore 创建 MinIO 客户端，不做网络请求
func NewMinioAudioStore(cfg *config.Config) (*MinioAudioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return &MinioAudioStore{client: client, bucket: cfg.MinioBucket, region: cfg.MinioRegion}, nil
}

// EnsureBucket 检查存储桶是否存在，不存在则创建
func (s *MinioAudioStore) EnsureBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		logger.Info("MinIO bucket exists", logger.String("bucket", s.bucket))
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	logger.Info("MinIO bucket created", logger.String("bucket", s.bucket))
	return nil
}

func (s *MinioAudioStore) PutAudio(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: AudioContentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// GetAudio reads the whole object into memory.
func (s *MinioAudioStore) GetAudio(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError(key, err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key only surfaces on first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.mapError(key, err)
	}
	return data, nil
}

func (s *MinioAudioStore) DeleteAudio(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *MinioAudioStore) mapError(key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("audio object %s: %w", key, model.ErrNotFound)
	}
	return fmt.Errorf("failed to read %s: %w", key, err)
}

// ListObjects 列出前缀下的所有对象及统计信息
func (s *MinioAudioStore) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, *BucketStats, error) {
	stats := &BucketStats{}
	objects := make([]ObjectInfo, 0)

	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		objects = append(objects, ObjectInfo{Key: object.Key, Size: object.Size, LastModified: object.LastModified})
		stats.add(object.Size, object.LastModified)
	}
	return objects, stats, nil
}

// Bucket returns the configured bucket name.
func (s *MinioAudioStore) Bucket() string {
	return s.bucket
}
