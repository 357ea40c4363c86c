// Package blobstore 保存附件的二进制内容，只关心 key 与字节，不了解公告
package blobstore

import (
	"bufio"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"noticeboard/pkg/apperror"
)

// Storage 附件存储
//
// Store 返回的 key 全局唯一，后续 Load/Delete 都只使用 key。
// Delete 尽力而为：底层 I/O 失败只记录日志，不返回错误。
type Storage interface {
	Store(ctx context.Context, r io.Reader, originalName string) (string, error)
	Load(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

const maxNameLen = 100

// NewKey 生成存储 key：随机 UUID + "_" + 清洗后的原始文件名
func NewKey(originalName string) (string, error) {
	if strings.TrimSpace(originalName) == "" {
		return "", apperror.Invalid("文件名不能为空")
	}
	return uuid.NewString() + "_" + SanitizeName(originalName), nil
}

// SanitizeName 只保留文件名的最后一段，非 [A-Za-z0-9._-] 字符替换为下划线，
// 超长时截断主体部分并保留扩展名
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	safe := strings.Trim(b.String(), ".")
	if safe == "" {
		return "file"
	}

	if len(safe) > maxNameLen {
		ext := filepath.Ext(safe)
		if len(ext) > 16 {
			ext = ""
		}
		safe = safe[:maxNameLen-len(ext)] + ext
	}
	return safe
}

// CheckKey 校验 key 是单层、非空且不含路径分隔符
func CheckKey(key string) error {
	if strings.TrimSpace(key) == "" || !utf8.ValidString(key) {
		return apperror.Invalid("无效的文件标识")
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." || strings.ContainsRune(key, 0) {
		return apperror.Invalid("无效的文件标识: %s", key)
	}
	return nil
}

// peekNonEmpty 确认 r 至少有一个字节，返回可继续读取的 reader
func peekNonEmpty(r io.Reader) (io.Reader, error) {
	if r == nil {
		return nil, apperror.Invalid("文件内容不能为空")
	}
	br := bufio.NewReader(r)
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperror.Invalid("文件内容不能为空")
		}
		return nil, apperror.Wrap(apperror.StorageFailure, "读取上传文件失败", err)
	}
	return br, nil
}
