package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"noticeboard/pkg/apperror"
	"noticeboard/pkg/logger"
)

// LocalStore 基于本地目录的附件存储，所有文件平铺在 root 下
type LocalStore struct {
	root   string
	logger *logger.Logger
}

// NewLocalStore 创建本地存储，目录在首次写入时创建
func NewLocalStore(dir string, logger *logger.Logger) (*LocalStore, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("解析上传目录失败: %w", err)
	}
	return &LocalStore{root: filepath.Clean(root), logger: logger}, nil
}

// Root 返回存储根目录
func (s *LocalStore) Root() string {
	return s.root
}

// resolve 把 key 解析为 root 下的绝对路径，越出 root 的 key 视为非法
func (s *LocalStore) resolve(key string) (string, error) {
	if err := CheckKey(key); err != nil {
		return "", err
	}
	p := filepath.Join(s.root, key)
	if filepath.Dir(p) != s.root {
		return "", apperror.Invalid("无效的文件标识: %s", key)
	}
	return p, nil
}

// Store 保存文件内容，先写临时文件再改名，避免留下半截文件
func (s *LocalStore) Store(ctx context.Context, r io.Reader, originalName string) (string, error) {
	key, err := NewKey(originalName)
	if err != nil {
		return "", err
	}
	body, err := peekNonEmpty(r)
	if err != nil {
		return "", err
	}
	target, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.root, 0755); err != nil {
		return "", apperror.Wrap(apperror.StorageFailure, "创建上传目录失败", err)
	}

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return "", apperror.Wrap(apperror.StorageFailure, "文件保存失败", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", apperror.Wrap(apperror.StorageFailure, "文件保存失败", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", apperror.Wrap(apperror.StorageFailure, "文件保存失败", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", apperror.Wrap(apperror.StorageFailure, "文件保存失败", err)
	}

	s.logger.Debug("附件已保存", "key", key, "original_name", originalName)
	return key, nil
}

// Load 打开 key 对应的文件，调用方负责关闭
func (s *LocalStore) Load(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperror.NotFoundf("文件不存在: %s", key)
		}
		return nil, apperror.Wrap(apperror.StorageFailure, "读取文件失败", err)
	}
	return f, nil
}

// Delete 删除文件，失败只记录日志
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Error("删除附件文件失败", "key", key, "error", err)
	}
	return nil
}
