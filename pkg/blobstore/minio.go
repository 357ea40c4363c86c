package blobstore

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"noticeboard/config"
	"noticeboard/pkg/apperror"
	"noticeboard/pkg/logger"
)

// MinioStore 基于 S3 兼容对象存储的附件存储
type MinioStore struct {
	client *minio.Client
	bucket string
	logger *logger.Logger

	mu          sync.Mutex
	bucketReady bool
}

// NewMinioStore 创建 MinIO 客户端，bucket 在首次写入时创建
func NewMinioStore(cfg config.MinioConfig, logger *logger.Logger) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("连接 MinIO 失败: %w", err)
	}
	return &MinioStore{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

func (s *MinioStore) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bucketReady {
		return nil
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return err
		}
		s.logger.Info("已创建附件 bucket", "bucket", s.bucket)
	}
	s.bucketReady = true
	return nil
}

// Store 上传对象，大小未知时由 SDK 分片上传
func (s *MinioStore) Store(ctx context.Context, r io.Reader, originalName string) (string, error) {
	key, err := NewKey(originalName)
	if err != nil {
		return "", err
	}
	body, err := peekNonEmpty(r)
	if err != nil {
		return "", err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", apperror.Wrap(apperror.StorageFailure, "初始化存储桶失败", err)
	}

	if _, err := s.client.PutObject(ctx, s.bucket, key, body, -1, minio.PutObjectOptions{}); err != nil {
		return "", apperror.Wrap(apperror.StorageFailure, "文件保存失败", err)
	}
	return key, nil
}

// Load 获取对象内容，对象不存在时返回 NotFound
func (s *MinioStore) Load(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := CheckKey(key); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError(key, err)
	}
	// GetObject 是惰性的，Stat 才会真正访问服务端
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, s.mapError(key, err)
	}
	return obj, nil
}

// Delete 删除对象，失败只记录日志
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if err := CheckKey(key); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		s.logger.Error("删除附件对象失败", "bucket", s.bucket, "key", key, "error", err)
	}
	return nil
}

func (s *MinioStore) mapError(key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return apperror.NotFoundf("文件不存在: %s", key)
	}
	return apperror.Wrap(apperror.StorageFailure, "读取文件失败", err)
}
